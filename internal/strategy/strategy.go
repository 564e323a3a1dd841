// Package strategy defines the signal-generation interface consumed by
// the backtest runner and a named factory registry for resolving
// strategies at call time.
package strategy

import (
	"github.com/rxtech-lab/paper-trading/internal/types"
)

// PortfolioView is the read-only slice of account state a strategy may
// consult while generating signals. The ledger satisfies it.
type PortfolioView interface {
	Cash() float64
	Position(symbol string) (types.Position, bool)
}

// Strategy turns a stream of bars into trade signals. Implementations
// may keep per-symbol state between calls; the runner feeds bars in
// time order on a single goroutine.
type Strategy interface {
	// Name returns the registry name of the strategy.
	Name() string
	// GenerateSignal inspects the latest bar and the current portfolio
	// and returns a signal. Return a hold signal when no action is
	// warranted.
	GenerateSignal(bar types.Bar, view PortfolioView) types.Signal
}

// Factory builds a configured Strategy instance from a YAML config
// string. An empty config must yield a strategy with default
// parameters.
type Factory func(config string) (Strategy, error)
