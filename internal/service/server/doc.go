// Package server runs the energy-sim process: it restores the simulation from
// the configured store, applies the startup scenario and serves the gRPC
// control API and the admin HTTP endpoints until its context is canceled.
package server
