// Package actor is a small virtual actor runtime.
//
// Every actor owns a Mailbox: a goroutine that runs one invocation at a time,
// so actor state needs no locks. A Registry addresses actors by identity,
// activates them lazily on first call, and deactivates them explicitly or
// when idle, giving each actor a chance to persist its state.
package actor
