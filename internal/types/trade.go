package types

import "time"

// Trade is the immutable record of a fill. Append-only; the canonical
// record of what happened. Never deleted except by wholesale account
// deletion.
type Trade struct {
	ID     string `json:"id" yaml:"id"`
	Symbol string `json:"symbol" yaml:"symbol"`
	Side   Side   `json:"action" yaml:"action"`
	// Quantity is the executed quantity, which may be less than requested
	// when a sell was clamped to current holdings.
	Quantity int64 `json:"quantity" yaml:"quantity"`
	// Price is the slippage-adjusted fill price.
	Price      float64 `json:"price" yaml:"price"`
	Commission float64 `json:"commission" yaml:"commission"`
	// RealizedPnL is (fill - avg cost at time of sale) * quantity - commission
	// for sell trades, zero for buys.
	RealizedPnL float64   `json:"realized_pnl" yaml:"realized_pnl"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	// OrderID links the trade to the order book entry that produced it.
	// Empty for direct executions that bypass the book (backtests).
	OrderID string `json:"order_id,omitempty" yaml:"order_id,omitempty"`
}
