// Package integration holds end-to-end tests that run the simulator binary
// entry points against each other.
package integration
