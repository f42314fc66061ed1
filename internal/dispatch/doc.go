// Package dispatch relays values to a sink from a dedicated goroutine.
//
// The session manager uses it to deliver notifications without holding up
// the operation that produced them.
//
// # What this package must NOT do
//
//   - Decide which values are worth emitting.
//   - Reorder values: delivery is FIFO from one worker.
//   - Import the authsession root package.
package dispatch
