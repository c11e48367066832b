// Package ws provides the one-way host→presentation event channel.
//
// Each delivery is one Event Record as JSON with a "type" field from the
// closed protocol set plus kind-specific fields. Exactly one connection is
// the active subscriber at a time; subscribing again transfers the stream
// instead of duplicating it.
package ws
