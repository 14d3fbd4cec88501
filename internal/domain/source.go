package domain

import "context"

// Source produces heart-rate readings from a physical (or simulated) link.
//
// Each call to Connect yields a fresh, non-restartable stream. The returned
// channel is closed when the link disconnects or ctx is cancelled. Connect
// returns an error when no stream could be established at all.
type Source interface {
	Connect(ctx context.Context) (<-chan Reading, error)
}
