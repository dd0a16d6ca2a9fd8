// Package channel provides an addressable many-producer delivery primitive.
//
// A Hub routes values to subscriptions keyed by an owner identity. Publish
// returns as soon as the value is queued in every subscription of the owner,
// which is the completion signal producers hand back to their caller. The
// owner drains its subscription when it is ready to read. Queues are
// unbounded; the lock guarding them is private to this package.
package channel
