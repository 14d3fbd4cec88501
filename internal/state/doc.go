// Package state holds the single latest heart-rate reading.
//
// The Store is the pull path's source of truth: one writer (the hub) and any
// number of readers (REST handlers, new WebSocket connections). Reads and writes
// are lock-free and never block.
package state
