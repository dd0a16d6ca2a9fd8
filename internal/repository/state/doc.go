// Package state implements the persisted state store used by actors.
//
// Store is an opaque key-value boundary: actors save a serialized document
// under their identity when their state changes and when they deactivate,
// and load it back on activation. Backends cover an in-process map, a
// directory of JSON files, SQLite, PostgreSQL and Redis. Repository adds a
// typed JSON codec and a key namespace on top of any Store.
//
// Every backend provides read-your-writes per key; there is no cross-key
// transaction.
package state
