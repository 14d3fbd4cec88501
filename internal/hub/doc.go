// Package hub implements the live-state broadcast hub.
//
// The Hub is the only consumer of the heart rate Source and the only writer of
// the state Store. Every reading it receives is stored, then offered to each
// registered Subscriber with a non-blocking send: a full delivery channel drops
// that reading for that subscriber only, so a slow WebSocket client can never
// hold up the store or any other subscriber. When the source stream ends the hub
// keeps the last reading visible and reconnects with backoff, forever, until its
// context is cancelled.
//
// The registry is a mutex-guarded map. The lock covers add, remove and taking a
// snapshot; delivery runs on the snapshot without the lock.
package hub
