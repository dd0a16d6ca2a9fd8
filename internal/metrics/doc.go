// Package metrics holds the Prometheus instruments of the simulation.
//
// Instruments are registered on a private registry so tests can build as
// many Metrics values as they like; the admin HTTP server exposes it.
package metrics
