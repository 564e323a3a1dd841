// Package orderbook tracks an account's limit orders: submission with
// sequential human-readable IDs, idempotent cancellation, tick matching in
// price-time priority, and snapshot restore that advances the ID counter
// past every historical order.
package orderbook

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/paper-trading/internal/logger"
	"github.com/rxtech-lab/paper-trading/internal/types"
	"github.com/rxtech-lab/paper-trading/pkg/errors"
	"go.uber.org/zap"
)

const orderIDPrefix = "ORD_"

var orderIDPattern = regexp.MustCompile(`^ORD_(\d{6,})$`)

// Executor performs the financial side of a fill. *ledger.Ledger satisfies
// this.
type Executor interface {
	Fill(order types.Order) (types.Trade, error)
}

// Book holds one account's orders in submission order, which is also
// ascending ID order. Not safe for concurrent use; the owner serializes
// access under its account lock.
type Book struct {
	orders  []types.Order
	index   map[string]int
	nextSeq int64
	log     *logger.Logger
}

// New creates an empty order book whose first allocated ID is ORD_000001.
func New(log *logger.Logger) *Book {
	return &Book{
		orders:  nil,
		index:   make(map[string]int),
		nextSeq: 1,
		log:     log,
	}
}

// Submit inserts a pending limit order and returns it with its assigned
// ID. It never blocks on a fill; matching happens on subsequent ticks.
func (b *Book) Submit(symbol string, side types.Side, quantity int64, limitPrice float64) (types.Order, error) {
	now := time.Now()
	order := types.Order{
		ID:        fmt.Sprintf("%s%06d", orderIDPrefix, b.nextSeq),
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		Price:     limitPrice,
		Type:      types.OrderTypeLimit,
		Status:    types.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := order.Validate(); err != nil {
		return types.Order{}, err
	}

	b.nextSeq++
	b.index[order.ID] = len(b.orders)
	b.orders = append(b.orders, order)

	b.log.Debug("Order submitted",
		zap.String("order_id", order.ID),
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Int64("quantity", quantity),
		zap.Float64("limit_price", limitPrice),
	)

	return order, nil
}

// Cancel transitions a pending order to cancelled and returns true.
// Returns false, not an error, when the order is already filled or
// cancelled: the caller may race a cancel against a fill and must treat
// "already resolved" as a normal outcome. Unknown IDs also return false.
func (b *Book) Cancel(orderID string) bool {
	i, ok := b.index[orderID]
	if !ok {
		return false
	}

	order := &b.orders[i]
	if order.Status != types.OrderStatusPending {
		return false
	}

	order.Status = types.OrderStatusCancelled
	order.UpdatedAt = time.Now()

	b.log.Debug("Order cancelled", zap.String("order_id", orderID))

	return true
}

// Match fills every pending order on the symbol whose limit condition is
// satisfied by the market price (buy: market <= limit, sell: market >=
// limit), in ascending ID order for price-time priority. Each fill
// executes at the order's own limit price, all-or-nothing. An order whose
// execution is rejected (e.g. insufficient capital) stays pending and may
// fill on a later tick. Returns the IDs of the orders filled.
func (b *Book) Match(symbol string, marketPrice float64, exec Executor) []string {
	var filled []string

	for i := range b.orders {
		order := &b.orders[i]
		if order.Symbol != symbol || order.Status != types.OrderStatusPending {
			continue
		}

		if !limitSatisfied(order.Side, order.Price, marketPrice) {
			continue
		}

		if _, err := exec.Fill(*order); err != nil {
			b.log.Debug("Fill rejected, order stays pending",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)

			continue
		}

		order.Status = types.OrderStatusFilled
		order.UpdatedAt = time.Now()
		filled = append(filled, order.ID)

		b.log.Debug("Order filled",
			zap.String("order_id", order.ID),
			zap.Float64("limit_price", order.Price),
			zap.Float64("market_price", marketPrice),
		)
	}

	return filled
}

func limitSatisfied(side types.Side, limitPrice, marketPrice float64) bool {
	if side == types.SideBuy {
		return marketPrice <= limitPrice
	}

	return marketPrice >= limitPrice
}

// Get returns the order with the given ID.
func (b *Book) Get(orderID string) optional.Option[types.Order] {
	i, ok := b.index[orderID]
	if !ok {
		return optional.None[types.Order]()
	}

	return optional.Some(b.orders[i])
}

// Pending returns all pending orders in ascending ID order.
func (b *Book) Pending() []types.Order {
	var out []types.Order

	for _, order := range b.orders {
		if order.Status == types.OrderStatusPending {
			out = append(out, order)
		}
	}

	return out
}

// All returns a copy of every order, any status, in ascending ID order.
func (b *Book) All() []types.Order {
	out := make([]types.Order, len(b.orders))
	copy(out, b.orders)

	return out
}

// Symbols returns the distinct symbols referenced by any order, used for
// lazy feed subscriptions.
func (b *Book) Symbols() []string {
	seen := make(map[string]bool)

	var out []string

	for _, order := range b.orders {
		if !seen[order.Symbol] {
			seen[order.Symbol] = true
			out = append(out, order.Symbol)
		}
	}

	return out
}

// Restore re-inserts historical orders verbatim, original IDs and statuses
// included, and advances the ID counter past the maximum numeric suffix
// seen so new submissions never collide with or precede restored IDs.
// Pending orders remain eligible to fill on the next matching tick.
func (b *Book) Restore(orders []types.Order) error {
	restored := make([]types.Order, 0, len(orders))
	index := make(map[string]int, len(orders))
	maxSeq := int64(0)

	for _, order := range orders {
		if _, dup := index[order.ID]; dup {
			return errors.Newf(errors.ErrCodeSnapshotCorrupt, "duplicate order id %s in snapshot", order.ID)
		}

		matches := orderIDPattern.FindStringSubmatch(order.ID)
		if matches == nil {
			return errors.Newf(errors.ErrCodeSnapshotCorrupt, "malformed order id %s in snapshot", order.ID)
		}

		seq, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeSnapshotCorrupt, err, "malformed order id %s in snapshot", order.ID)
		}

		if seq > maxSeq {
			maxSeq = seq
		}

		index[order.ID] = len(restored)
		restored = append(restored, order)
	}

	b.orders = restored
	b.index = index
	b.nextSeq = maxSeq + 1

	b.log.Debug("Order book restored",
		zap.Int("orders", len(restored)),
		zap.Int64("next_seq", b.nextSeq),
	)

	return nil
}
