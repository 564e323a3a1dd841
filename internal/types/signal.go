package types

type SignalAction string

const (
	SignalActionBuy  SignalAction = "buy"
	SignalActionSell SignalAction = "sell"
	SignalActionHold SignalAction = "hold"
)

// Signal is a strategy's decision for a single time step. The core treats
// signal generation as an opaque call per bar or tick.
type Signal struct {
	Action   SignalAction `json:"action" yaml:"action"`
	Symbol   string       `json:"symbol" yaml:"symbol"`
	Quantity int64        `json:"quantity" yaml:"quantity"`
}

// IsActionable reports whether the signal requests a trade.
func (s Signal) IsActionable() bool {
	return (s.Action == SignalActionBuy || s.Action == SignalActionSell) && s.Quantity > 0
}
