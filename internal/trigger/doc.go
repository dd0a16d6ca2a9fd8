// Package trigger provides durable scheduled triggers.
//
// A trigger is a named periodic callback whose registration is persisted,
// so an owner can resume it after a restart or reactivation. The first
// firing happens immediately; later firings follow the period. Firings of
// one trigger never overlap: a slow callback delays the next firing instead
// of running concurrently with it.
package trigger
