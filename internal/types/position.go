package types

// Position represents current holdings of a symbol under weighted-average
// costing. Invariant: TotalCost == AvgPrice * Quantity at all times. A
// position whose quantity reaches zero is removed, never retained.
type Position struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Quantity int64  `json:"quantity" yaml:"quantity"`
	// AvgPrice is the quantity-weighted mean fill price across all buys.
	AvgPrice  float64 `json:"avg_price" yaml:"avg_price"`
	TotalCost float64 `json:"total_cost" yaml:"total_cost"`
}

// MarketValue returns the position value marked at the given price.
func (p Position) MarketValue(price float64) float64 {
	return float64(p.Quantity) * price
}
