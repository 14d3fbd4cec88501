// Package domain defines the core domain types and interfaces.
//
// Reading is the single value object that flows from a heart-rate source through the hub
// to the pull (REST) and push (WebSocket) paths. Source is the boundary to whatever
// produces readings. No implementation code - just contracts.
package domain
