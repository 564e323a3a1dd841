// Package ledger implements portfolio accounting: cash balance, per-symbol
// positions under weighted-average costing, and the append-only trade
// history. The execution model applies slippage and commission and mutates
// cash, position and history atomically: a rejected trade leaves all three
// untouched.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/paper-trading/internal/logger"
	"github.com/rxtech-lab/paper-trading/internal/types"
	"github.com/rxtech-lab/paper-trading/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger tracks one account's cash, positions and trades. It has no
// knowledge of what drives time: the backtest engine and the simulation
// worker both execute through it. It is not safe for concurrent use; the
// owner serializes access (the simulation worker holds its account lock
// for the duration of every mutation).
type Ledger struct {
	cash           float64
	commissionRate float64
	slippageRate   float64
	positions      map[string]types.Position
	trades         []types.Trade
	log            *logger.Logger
}

// New creates a ledger with the given starting cash. Commission and
// slippage rates are fixed for the ledger's lifetime.
func New(initialCash, commissionRate, slippageRate float64, log *logger.Logger) *Ledger {
	return &Ledger{
		cash:           initialCash,
		commissionRate: commissionRate,
		slippageRate:   slippageRate,
		positions:      make(map[string]types.Position),
		trades:         nil,
		log:            log,
	}
}

// Buy executes a buy of quantity shares at the given quoted price. The
// fill price is adjusted upward by the slippage rate and commission is
// charged on the gross amount. Fails with ErrCodeInsufficientCapital,
// without mutating anything, when total cost exceeds cash.
func (l *Ledger) Buy(symbol string, quantity int64, quotePrice float64) (types.Trade, error) {
	return l.buy(symbol, quantity, quotePrice, "")
}

// Sell executes a sell at the given quoted price, adjusted downward by the
// slippage rate. The quantity is clamped to current holdings so the
// account can never go net short; the executed quantity is reported on
// the returned trade. Fails with ErrCodeNoPosition when nothing is held.
func (l *Ledger) Sell(symbol string, quantity int64, quotePrice float64) (types.Trade, error) {
	return l.sell(symbol, quantity, quotePrice, "")
}

// Fill executes an order-book fill through the execution model, using the
// order's own limit price as the execution reference, and stamps the order
// ID on the recorded trade.
func (l *Ledger) Fill(order types.Order) (types.Trade, error) {
	if order.Side == types.SideSell {
		return l.sell(order.Symbol, order.Quantity, order.Price, order.ID)
	}

	return l.buy(order.Symbol, order.Quantity, order.Price, order.ID)
}

func (l *Ledger) buy(symbol string, quantity int64, quotePrice float64, orderID string) (types.Trade, error) {
	if err := validateRequest(symbol, quantity, quotePrice); err != nil {
		return types.Trade{}, err
	}

	fillPrice := quotePrice * (1 + l.slippageRate)
	gross := fillPrice * float64(quantity)
	commission := gross * l.commissionRate
	totalCost := gross + commission

	if totalCost > l.cash {
		return types.Trade{}, errors.Newf(errors.ErrCodeInsufficientCapital,
			"buy cost %.2f exceeds available cash %.2f", totalCost, l.cash)
	}

	l.cash -= totalCost

	if pos, ok := l.positions[symbol]; ok {
		newQty := pos.Quantity + quantity
		newAvg := (pos.AvgPrice*float64(pos.Quantity) + fillPrice*float64(quantity)) / float64(newQty)
		l.positions[symbol] = types.Position{
			Symbol:    symbol,
			Quantity:  newQty,
			AvgPrice:  newAvg,
			TotalCost: newAvg * float64(newQty),
		}
	} else {
		l.positions[symbol] = types.Position{
			Symbol:    symbol,
			Quantity:  quantity,
			AvgPrice:  fillPrice,
			TotalCost: fillPrice * float64(quantity),
		}
	}

	trade := types.Trade{
		ID:          uuid.New().String(),
		Symbol:      symbol,
		Side:        types.SideBuy,
		Quantity:    quantity,
		Price:       fillPrice,
		Commission:  commission,
		RealizedPnL: 0,
		Timestamp:   time.Now(),
		OrderID:     orderID,
	}
	l.trades = append(l.trades, trade)

	l.log.Debug("Buy executed",
		zap.String("symbol", symbol),
		zap.Int64("quantity", quantity),
		zap.Float64("fill_price", fillPrice),
		zap.Float64("cash", l.cash),
	)

	return trade, nil
}

func (l *Ledger) sell(symbol string, quantity int64, quotePrice float64, orderID string) (types.Trade, error) {
	if err := validateRequest(symbol, quantity, quotePrice); err != nil {
		return types.Trade{}, err
	}

	pos, ok := l.positions[symbol]
	if !ok {
		return types.Trade{}, errors.Newf(errors.ErrCodeNoPosition, "no position in %s", symbol)
	}

	fillPrice := quotePrice * (1 - l.slippageRate)

	sellQty := quantity
	if sellQty > pos.Quantity {
		sellQty = pos.Quantity
	}

	proceeds := fillPrice * float64(sellQty)
	commission := proceeds * l.commissionRate
	l.cash += proceeds - commission

	if pos.Quantity == sellQty {
		delete(l.positions, symbol)
	} else {
		remaining := pos.Quantity - sellQty
		l.positions[symbol] = types.Position{
			Symbol:    symbol,
			Quantity:  remaining,
			AvgPrice:  pos.AvgPrice,
			TotalCost: pos.AvgPrice * float64(remaining),
		}
	}

	trade := types.Trade{
		ID:          uuid.New().String(),
		Symbol:      symbol,
		Side:        types.SideSell,
		Quantity:    sellQty,
		Price:       fillPrice,
		Commission:  commission,
		RealizedPnL: realizedPnL(fillPrice, pos.AvgPrice, sellQty, commission),
		Timestamp:   time.Now(),
		OrderID:     orderID,
	}
	l.trades = append(l.trades, trade)

	l.log.Debug("Sell executed",
		zap.String("symbol", symbol),
		zap.Int64("quantity", sellQty),
		zap.Float64("fill_price", fillPrice),
		zap.Float64("realized_pnl", trade.RealizedPnL),
		zap.Float64("cash", l.cash),
	)

	return trade, nil
}

// realizedPnL computes (fill - avg cost) * qty - commission using decimal
// arithmetic to keep win/loss classification exact near break-even.
func realizedPnL(fillPrice, avgPrice float64, quantity int64, commission float64) float64 {
	qtyDec := decimal.NewFromInt(quantity)
	exitDec := decimal.NewFromFloat(fillPrice).Mul(qtyDec)
	entryDec := decimal.NewFromFloat(avgPrice).Mul(qtyDec)
	pnl, _ := exitDec.Sub(entryDec).Sub(decimal.NewFromFloat(commission)).Float64()

	return pnl
}

func validateRequest(symbol string, quantity int64, price float64) error {
	if symbol == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "symbol is required")
	}

	if quantity <= 0 {
		return errors.Newf(errors.ErrCodeInvalidQuantity, "quantity must be positive, got %d", quantity)
	}

	if price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPrice, "price must be positive, got %f", price)
	}

	return nil
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash
}

// Position returns the current position for a symbol.
func (l *Ledger) Position(symbol string) (types.Position, bool) {
	pos, ok := l.positions[symbol]

	return pos, ok
}

// Positions returns a copy of all open positions.
func (l *Ledger) Positions() map[string]types.Position {
	out := make(map[string]types.Position, len(l.positions))
	for symbol, pos := range l.positions {
		out[symbol] = pos
	}

	return out
}

// Trades returns a copy of the trade history in execution order.
func (l *Ledger) Trades() []types.Trade {
	out := make([]types.Trade, len(l.trades))
	copy(out, l.trades)

	return out
}

// MarkValue returns total portfolio value: cash plus every position marked
// at the given prices. Positions without a quote are marked at their
// average cost.
func (l *Ledger) MarkValue(prices map[string]float64) float64 {
	total := l.cash

	for symbol, pos := range l.positions {
		price, ok := prices[symbol]
		if !ok {
			price = pos.AvgPrice
		}

		total += pos.MarketValue(price)
	}

	return total
}

// Restore replaces the ledger's state with a previously exported snapshot:
// cash verbatim, every position's quantity and average price verbatim, and
// the full trade history so displays are never truncated across restarts.
func (l *Ledger) Restore(cash float64, positions map[string]types.Position, trades []types.Trade) {
	l.cash = cash

	l.positions = make(map[string]types.Position, len(positions))
	for symbol, pos := range positions {
		l.positions[symbol] = pos
	}

	l.trades = make([]types.Trade, len(trades))
	copy(l.trades, trades)
}
