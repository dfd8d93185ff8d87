// Package health holds the liveness and readiness probes served on the ops
// listener.
//
// Probes compose with [All]. [Fixed] and [CheckFunc] cover static
// and ad-hoc checks. [ShutdownGate] fails readiness while the server drains,
// and [NotDying] fails both probes once supervised work has hit a fatal error.
package health
