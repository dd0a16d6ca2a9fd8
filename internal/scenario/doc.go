// Package scenario loads a YAML topology of nations, regions and entities
// and applies it to a running simulation.
//
// A scenario is a bootstrap, not a generator: applying the same file twice
// yields the same identities and the same tree.
package scenario
