package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ValuationPoint is one sample of the portfolio valuation series: total
// portfolio value (cash + positions marked to price) at a point in time.
// The series is append-only and never mutated retroactively.
type ValuationPoint struct {
	Time  time.Time `json:"time" yaml:"time"`
	Value float64   `json:"value" yaml:"value"`
}

// Metrics holds performance statistics computed from a valuation series
// and trade history. All fields are finite: NaN and Inf intermediate
// results are normalized to zero before leaving the metrics engine.
type Metrics struct {
	// TotalReturn is (final value - initial capital) / initial capital.
	TotalReturn float64 `json:"total_return" yaml:"total_return"`
	// AnnualizedReturn assumes one valuation sample per trading day
	// (252 trading days per year).
	AnnualizedReturn float64 `json:"annualized_return" yaml:"annualized_return"`
	SharpeRatio      float64 `json:"sharpe_ratio" yaml:"sharpe_ratio"`
	// MaxDrawdown is the largest decline from a running peak, a
	// non-positive fraction.
	MaxDrawdown float64 `json:"max_drawdown" yaml:"max_drawdown"`
	// WinRate is the fraction of sell trades with positive realized P&L.
	WinRate     float64 `json:"win_rate" yaml:"win_rate"`
	TotalTrades int     `json:"total_trades" yaml:"total_trades"`
	FinalValue  float64 `json:"final_capital" yaml:"final_capital"`
}

// WriteMetrics writes metrics to a YAML file.
func WriteMetrics(path string, metrics Metrics) error {
	data, err := yaml.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write metrics to file: %w", err)
	}

	return nil
}
