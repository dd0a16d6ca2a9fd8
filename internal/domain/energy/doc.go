// Package energy contains the domain model of the simulation.
//
// It defines the closed set of entity kinds with one attribute block per kind,
// the pure per-kind consumption functions, unit conversions, the aggregator
// state shared by regions and nations and the coordinator's tick record.
// All energy values are expressed in joules per simulated day.
package energy
