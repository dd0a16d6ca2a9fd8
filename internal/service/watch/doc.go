// Package watch implements energy-ctl watch: it polls the clock status and,
// optionally, one aggregate, logging a line per poll.
package watch
