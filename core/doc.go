// Package core defines the shared domain types of the invocation pipeline:
// role-based content with a closed set of parts, append-only session events
// carrying state deltas, sessions addressed by (app, user, session id), the
// SessionStore contract, and the per-invocation execution contexts handed to
// agents, hooks and tools.
package core
