// Package metrics computes performance statistics over a portfolio
// valuation series and its trade history. Compute is a pure function:
// it never mutates its inputs and always returns finite numbers.
package metrics

import (
	"math"

	"github.com/rxtech-lab/paper-trading/internal/types"
)

// tradingDaysPerYear is the annualization basis. The valuation series
// is assumed to hold one sample per trading day; callers sampling at a
// different cadence get a correspondingly scaled annualized figure.
const tradingDaysPerYear = 252

// Compute derives summary statistics from an initial capital, an
// ordered valuation series, and the trades that produced it. A series
// shorter than two points yields zeroed ratio metrics. Every result is
// sanitized: NaN and ±Inf collapse to 0 before return.
func Compute(initialCapital float64, series []types.ValuationPoint, trades []types.Trade) types.Metrics {
	m := types.Metrics{TotalTrades: len(trades)}

	if len(series) > 0 {
		m.FinalValue = series[len(series)-1].Value
	} else {
		m.FinalValue = initialCapital
	}

	if initialCapital > 0 {
		m.TotalReturn = (m.FinalValue - initialCapital) / initialCapital
	}
	if n := len(series); n > 0 {
		m.AnnualizedReturn = math.Pow(1+m.TotalReturn, tradingDaysPerYear/float64(n)) - 1
	}

	returns := periodReturns(series)
	m.SharpeRatio = sharpe(returns)
	m.MaxDrawdown = maxDrawdown(series)
	m.WinRate = winRate(trades)

	sanitize(&m.TotalReturn)
	sanitize(&m.AnnualizedReturn)
	sanitize(&m.SharpeRatio)
	sanitize(&m.MaxDrawdown)
	sanitize(&m.WinRate)
	sanitize(&m.FinalValue)
	return m
}

func periodReturns(series []types.ValuationPoint) []float64 {
	if len(series) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Value
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (series[i].Value-prev)/prev)
	}
	return returns
}

// sharpe annualizes the mean/stdev ratio of period returns, using the
// population standard deviation. Fewer than two observations or a flat
// series gives 0 rather than a division by zero.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	stdev := math.Sqrt(sq / float64(len(returns)))
	if stdev == 0 {
		return 0
	}
	return mean / stdev * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown is the deepest decline from a running peak, expressed as
// a non-positive fraction.
func maxDrawdown(series []types.ValuationPoint) float64 {
	if len(series) == 0 {
		return 0
	}
	peak := series[0].Value
	worst := 0.0
	for _, p := range series {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			if dd := (p.Value - peak) / peak; dd < worst {
				worst = dd
			}
		}
	}
	return worst
}

// winRate is the fraction of sell trades that realized a profit over
// the cost basis they liquidated.
func winRate(trades []types.Trade) float64 {
	var sells, wins int
	for _, t := range trades {
		if t.Side != types.SideSell {
			continue
		}
		sells++
		if t.RealizedPnL > 0 {
			wins++
		}
	}
	if sells == 0 {
		return 0
	}
	return float64(wins) / float64(sells)
}

func sanitize(v *float64) {
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		*v = 0
	}
}
