// Package health provides liveness and readiness endpoints for the
// long-running watch command. Components register a CheckFunc; readiness
// reports degraded (HTTP 503) while any of them fails.
package health
