// Package client implements the one-shot energy-ctl commands.
//
// Each command connects to the simulator, performs a single control call and
// prints the response as aligned key/value lines.
package client
