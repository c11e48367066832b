// Package monitoring provides Prometheus metrics for the host: HTTP
// request metrics via Gin middleware, plus domain metrics for session
// lifecycle, worker exits, and the event pipe.
package monitoring
