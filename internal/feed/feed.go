// Package feed delivers live ticks to the simulation runner. A feed
// fans every subscribed symbol into a single tick channel.
package feed

import (
	"context"

	"github.com/rxtech-lab/paper-trading/internal/types"
)

// Feed is a source of asynchronous market ticks.
type Feed interface {
	// Connect prepares the feed for subscriptions. It must be called
	// once before Subscribe and fails fast when the upstream is
	// unreachable.
	Connect(ctx context.Context) error
	// Subscribe adds symbols to the stream. Subscriptions are lazy and
	// additive; subscribing an already-subscribed symbol is a no-op.
	Subscribe(symbols ...string) error
	// Ticks returns the fan-in channel. The channel is closed by Close
	// once every producer has wound down.
	Ticks() <-chan types.Tick
	// Close tears down every subscription and closes the tick channel.
	Close() error
}
