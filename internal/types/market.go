package types

import "time"

// Bar is a single OHLCV bar of historical price data.
type Bar struct {
	Symbol string    `json:"symbol" yaml:"symbol" csv:"symbol"`
	Time   time.Time `json:"time" yaml:"time" csv:"time"`
	Open   float64   `json:"open" yaml:"open" csv:"open"`
	High   float64   `json:"high" yaml:"high" csv:"high"`
	Low    float64   `json:"low" yaml:"low" csv:"low"`
	Close  float64   `json:"close" yaml:"close" csv:"close"`
	Volume float64   `json:"volume" yaml:"volume" csv:"volume"`
}

// Tick is a single quote event delivered by a tick feed.
// Delivery order within a symbol is monotonic in Timestamp; order across
// symbols is not guaranteed.
type Tick struct {
	Symbol    string    `json:"symbol" yaml:"symbol"`
	Price     float64   `json:"price" yaml:"price"`
	Volume    float64   `json:"volume" yaml:"volume"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}
