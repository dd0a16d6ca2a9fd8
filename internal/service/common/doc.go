// Package common holds helpers shared by the energy-ctl commands.
//
// It provides a gRPC client wrapper for the control service with per-call
// timeouts, and detects the calling host and user so the server can log who
// changed the clock.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
