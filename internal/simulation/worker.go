// Package simulation runs paper-trading accounts against live tick
// feeds. Each running account owns one background worker; the Registry
// owns the workers and enforces the single-running-account policy.
package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/paper-trading/internal/feed"
	"github.com/rxtech-lab/paper-trading/internal/ledger"
	"github.com/rxtech-lab/paper-trading/internal/logger"
	"github.com/rxtech-lab/paper-trading/internal/metrics"
	"github.com/rxtech-lab/paper-trading/internal/orderbook"
	"github.com/rxtech-lab/paper-trading/internal/store"
	"github.com/rxtech-lab/paper-trading/internal/types"
	"github.com/rxtech-lab/paper-trading/pkg/errors"
	"go.uber.org/zap"
)

// worker is the actor behind one running account. It owns the ledger
// and order book; every mutation happens under mu, whether it comes
// from the tick loop or from a synchronous registry call.
type worker struct {
	state  types.AccountState
	ledger *ledger.Ledger
	book   *orderbook.Book

	feed   feed.Feed
	store  store.SnapshotStore
	logger *logger.Logger

	snapshotEvery time.Duration
	lastPrices    map[string]float64
	valuations    []types.ValuationPoint

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// newWorker rehydrates a worker from a persisted snapshot. The order
// book restore advances the ID counter past every restored order so
// new submissions never collide with history.
func newWorker(state types.AccountState, f feed.Feed, s store.SnapshotStore, snapshotEvery time.Duration, log *logger.Logger) (*worker, error) {
	led := ledger.New(state.InitialCapital, state.CommissionRate, state.SlippageRate, log)
	led.Restore(state.Cash, state.Positions, state.Trades)

	book := orderbook.New(log)
	if err := book.Restore(state.Orders); err != nil {
		return nil, err
	}

	return &worker{
		state:         state,
		ledger:        led,
		book:          book,
		feed:          f,
		store:         s,
		logger:        log,
		snapshotEvery: snapshotEvery,
		lastPrices:    make(map[string]float64),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}, nil
}

// start connects the feed, resubscribes symbols referenced by restored
// orders, and launches the tick loop. A feed that cannot connect fails
// the start.
func (w *worker) start(ctx context.Context) error {
	if err := w.feed.Connect(ctx); err != nil {
		return errors.Wrapf(errors.ErrCodeFeedConnectFailed, err, "failed to connect feed for account %s", w.state.ID)
	}

	if symbols := w.book.Symbols(); len(symbols) > 0 {
		if err := w.feed.Subscribe(symbols...); err != nil {
			w.feed.Close()

			return err
		}
	}

	go w.run()

	return nil
}

// run is the worker goroutine: match orders on every tick, snapshot on
// a fixed cadence, exit on stop.
func (w *worker) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.snapshotEvery)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case tick, ok := <-w.feed.Ticks():
			if !ok {
				w.logger.Warn("tick channel closed", zap.String("account", w.state.ID))

				return
			}

			w.onTick(tick)
		case <-ticker.C:
			w.snapshot()
		}
	}
}

func (w *worker) onTick(tick types.Tick) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.lastPrices[tick.Symbol] = tick.Price

	filled := w.book.Match(tick.Symbol, tick.Price, w.ledger)
	if len(filled) > 0 {
		w.logger.Info("orders filled",
			zap.String("account", w.state.ID),
			zap.String("symbol", tick.Symbol),
			zap.Float64("price", tick.Price),
			zap.Strings("orders", filled),
		)
	}
}

// snapshot marks positions to the latest ticks, appends a valuation
// point, and persists the full account state.
func (w *worker) snapshot() {
	w.mu.Lock()
	state := w.currentStateLocked()
	w.valuations = append(w.valuations, types.ValuationPoint{
		Time:  state.LastUpdate,
		Value: w.ledger.MarkValue(w.lastPrices),
	})
	w.mu.Unlock()

	if err := w.store.Save(state); err != nil {
		w.logger.Error("snapshot save failed", zap.String("account", w.state.ID), zap.Error(err))
	}
}

// submitOrder inserts a pending limit order and lazily subscribes the
// feed to the order's symbol.
func (w *worker) submitOrder(symbol string, side types.Side, quantity int64, limitPrice float64) (types.Order, error) {
	w.mu.Lock()
	order, err := w.book.Submit(symbol, side, quantity, limitPrice)
	w.mu.Unlock()

	if err != nil {
		return types.Order{}, err
	}

	if err := w.feed.Subscribe(symbol); err != nil {
		// An order with no tick stream can never fill. Withdraw it so
		// the caller sees the failure instead of a stuck pending order.
		w.mu.Lock()
		w.book.Cancel(order.ID)
		w.mu.Unlock()

		w.logger.Error("feed subscription failed",
			zap.String("account", w.state.ID),
			zap.String("symbol", symbol),
			zap.Error(err),
		)

		return types.Order{}, err
	}

	return order, nil
}

func (w *worker) cancelOrder(orderID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.book.Cancel(orderID)
}

func (w *worker) currentState() types.AccountState {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.currentStateLocked()
}

func (w *worker) currentStateLocked() types.AccountState {
	state := w.state
	state.Cash = w.ledger.Cash()
	state.Positions = w.ledger.Positions()
	state.Trades = w.ledger.Trades()
	state.Orders = w.book.All()
	state.Status = types.AccountStatusRunning
	state.LastUpdate = time.Now()

	return state
}

func (w *worker) currentMetrics() types.Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()

	series := make([]types.ValuationPoint, len(w.valuations))
	copy(series, w.valuations)

	return metrics.Compute(w.state.InitialCapital, series, w.ledger.Trades())
}

func (w *worker) markValue() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.ledger.MarkValue(w.lastPrices)
}

// shutdown stops the tick loop, takes the final snapshot, and tears
// down the feed. The returned state is the restart recovery point;
// pending orders stay pending in it.
func (w *worker) shutdown() types.AccountState {
	close(w.stop)
	<-w.done

	w.mu.Lock()
	state := w.currentStateLocked()
	state.Status = types.AccountStatusStopped
	state.StoppedAt = time.Now()
	w.mu.Unlock()

	if err := w.store.Save(state); err != nil {
		w.logger.Error("final snapshot save failed", zap.String("account", w.state.ID), zap.Error(err))
	}

	if err := w.feed.Close(); err != nil {
		w.logger.Error("feed close failed", zap.String("account", w.state.ID), zap.Error(err))
	}

	return state
}
