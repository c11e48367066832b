// Package bot supervises the external bot worker process.
//
// The worker is a conversational/media agent that speaks a line-oriented
// JSON protocol on stdout (see internal/protocol) and logs diagnostics on
// stderr. The Supervisor owns the single worker handle for the whole host
// process and enforces the at-most-one-running invariant: starting a new
// session first tears down the old worker, waits out a settle delay, then
// spawns the replacement.
//
// Termination is platform-aware: Unix workers get SIGTERM with a timed
// SIGKILL escalation, Windows workers get a forceful process-tree kill.
package bot
