// Package version exposes build metadata of the energy-sim binaries.
//
// Version, Commit and BuildTime are injected with -ldflags at build time.
package version
