package port

import (
	"context"
	"time"
)

// Tick is a single live mark price update.
type Tick struct {
	Exchange string
	Symbol   string // venue-native, e.g. "BTCUSDT"
	Mark     float64
	Funding  *float64 // percent per period, when the stream carries it
	At       time.Time
}

// PriceFeed streams mark prices for a fixed symbol set over WebSocket.
// Subscribe returns immediately; the feed reconnects on its own and closes
// the channel only when ctx is done.
type PriceFeed interface {
	Name() string
	Subscribe(ctx context.Context, symbols []string) (<-chan Tick, error)
}
