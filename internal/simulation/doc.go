// Package simulation implements the tick-and-aggregate pipeline.
//
// Entities compute a per-tick energy output and publish it to their region's
// inbox. Regions and nations are aggregators: on every tick they snapshot
// their children, tick them concurrently, wait for every child call to
// return (a returned call means the child's publish is queued), drain their
// inbox, keep only contributions for the current sequence, and emit the sum
// upward. Nations hand their totals to an analytics sink. A singleton
// coordinator drives the whole tree from a durable scheduled trigger.
//
// Every actor runs in its own mailbox, so actor state is never shared; the
// System type is the entry point that addresses actors by identity.
package simulation
