package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/paper-trading/internal/feed"
	"github.com/rxtech-lab/paper-trading/internal/logger"
	"github.com/rxtech-lab/paper-trading/internal/store"
	"github.com/rxtech-lab/paper-trading/internal/types"
	"github.com/rxtech-lab/paper-trading/pkg/errors"
	"go.uber.org/zap"
)

// DefaultSnapshotInterval is the cadence at which a running worker
// marks positions and persists its state.
const DefaultSnapshotInterval = time.Minute

// FeedFactory builds a fresh feed for each started account. Start and
// stop own the feed's lifecycle, so a feed is never shared between
// workers.
type FeedFactory func() feed.Feed

// Registry owns every account. Stopped accounts live only in the
// snapshot store; running accounts additionally hold a worker. At most
// one account runs at a time: Start stops every other running account
// first, persisting each one's final snapshot.
type Registry struct {
	store         store.SnapshotStore
	newFeed       FeedFactory
	logger        *logger.Logger
	snapshotEvery time.Duration

	mu      sync.Mutex
	workers map[string]*worker
}

// NewRegistry creates a registry over the given snapshot store.
func NewRegistry(s store.SnapshotStore, newFeed FeedFactory, snapshotEvery time.Duration, log *logger.Logger) *Registry {
	if snapshotEvery <= 0 {
		snapshotEvery = DefaultSnapshotInterval
	}

	return &Registry{
		store:         s,
		newFeed:       newFeed,
		logger:        log,
		snapshotEvery: snapshotEvery,
		workers:       make(map[string]*worker),
	}
}

// Create registers a new stopped account and persists its initial
// snapshot. Capital, commission, and slippage are fixed for the
// account's lifetime.
func (r *Registry) Create(name string, initialCapital, commissionRate, slippageRate float64) (types.AccountState, error) {
	if initialCapital <= 0 {
		return types.AccountState{}, errors.New(errors.ErrCodeInvalidParameter, "initial capital must be positive")
	}

	if commissionRate < 0 || slippageRate < 0 {
		return types.AccountState{}, errors.New(errors.ErrCodeInvalidParameter, "rates must be non-negative")
	}

	now := time.Now()
	state := types.AccountState{
		ID:             uuid.New().String(),
		Name:           name,
		InitialCapital: initialCapital,
		CommissionRate: commissionRate,
		SlippageRate:   slippageRate,
		Cash:           initialCapital,
		Positions:      make(map[string]types.Position),
		Trades:         []types.Trade{},
		Orders:         []types.Order{},
		Status:         types.AccountStatusStopped,
		CreatedAt:      now,
		LastUpdate:     now,
	}

	if err := r.store.Save(state); err != nil {
		return types.AccountState{}, err
	}

	r.logger.Info("account created", zap.String("account", state.ID), zap.String("name", name))

	return state, nil
}

// Start brings an account into the running state, rehydrated from its
// last snapshot. Every other running account is stopped first. A
// malformed snapshot fails the start and leaves the account stopped.
func (r *Registry) Start(ctx context.Context, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, running := r.workers[accountID]; running {
		return errors.Newf(errors.ErrCodeAccountRunning, "account %s is already running", accountID)
	}

	state, err := r.loadState(accountID)
	if err != nil {
		return err
	}

	// Only one paper-trading session is live at a time.
	r.stopOthersLocked(accountID)

	w, err := newWorker(state, r.newFeed(), r.store, r.snapshotEvery, r.logger)
	if err != nil {
		return err
	}

	if err := w.start(ctx); err != nil {
		return err
	}

	r.workers[accountID] = w
	r.logger.Info("account started", zap.String("account", accountID))

	return nil
}

// Stop tears down a running account's worker and returns the final
// snapshot it persisted. Pending orders survive in the snapshot.
func (r *Registry) Stop(accountID string) (types.AccountState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, running := r.workers[accountID]
	if !running {
		return types.AccountState{}, errors.Newf(errors.ErrCodeAccountNotRunning, "account %s is not running", accountID)
	}

	delete(r.workers, accountID)
	state := w.shutdown()

	r.logger.Info("account stopped", zap.String("account", accountID))

	return state, nil
}

// Delete removes an account entirely, stopping its worker first when
// running. The snapshot is discarded.
func (r *Registry) Delete(accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, running := r.workers[accountID]; running {
		delete(r.workers, accountID)
		w.shutdown()
	} else if _, err := r.loadState(accountID); err != nil {
		return err
	}

	if err := r.store.Delete(accountID); err != nil {
		return err
	}

	r.logger.Info("account deleted", zap.String("account", accountID))

	return nil
}

// SubmitOrder places a pending limit order on a running account.
func (r *Registry) SubmitOrder(accountID, symbol string, side types.Side, quantity int64, limitPrice float64) (types.Order, error) {
	w, err := r.runningWorker(accountID)
	if err != nil {
		return types.Order{}, err
	}

	return w.submitOrder(symbol, side, quantity, limitPrice)
}

// CancelOrder cancels a pending order on a running account. The
// boolean mirrors the order book contract: false means the order was
// already filled, cancelled, or unknown.
func (r *Registry) CancelOrder(accountID, orderID string) (bool, error) {
	w, err := r.runningWorker(accountID)
	if err != nil {
		return false, err
	}

	return w.cancelOrder(orderID), nil
}

// GetState returns the live state for a running account or the last
// persisted snapshot for a stopped one.
func (r *Registry) GetState(accountID string) (types.AccountState, error) {
	r.mu.Lock()
	w, running := r.workers[accountID]
	r.mu.Unlock()

	if running {
		return w.currentState(), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.loadState(accountID)
}

// GetMetrics computes performance metrics for a running account over
// its accumulated valuation history.
func (r *Registry) GetMetrics(accountID string) (types.Metrics, error) {
	w, err := r.runningWorker(accountID)
	if err != nil {
		return types.Metrics{}, err
	}

	return w.currentMetrics(), nil
}

// List returns a summary of every known account.
func (r *Registry) List() ([]types.AccountSummary, error) {
	ids, err := r.store.List()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	summaries := make([]types.AccountSummary, 0, len(ids))

	for _, id := range ids {
		if w, running := r.workers[id]; running {
			summaries = append(summaries, types.AccountSummary{
				ID:             w.state.ID,
				Name:           w.state.Name,
				Status:         types.AccountStatusRunning,
				InitialCapital: w.state.InitialCapital,
				CurrentValue:   w.markValue(),
				CreatedAt:      w.state.CreatedAt,
			})

			continue
		}

		state, err := r.loadState(id)
		if err != nil {
			r.logger.Warn("skipping unreadable snapshot", zap.String("account", id), zap.Error(err))

			continue
		}

		value := state.Cash
		for _, p := range state.Positions {
			value += p.TotalCost
		}

		summaries = append(summaries, types.AccountSummary{
			ID:             state.ID,
			Name:           state.Name,
			Status:         types.AccountStatusStopped,
			InitialCapital: state.InitialCapital,
			CurrentValue:   value,
			CreatedAt:      state.CreatedAt,
		})
	}

	return summaries, nil
}

// Close stops every running account. Used on process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopOthersLocked("")
}

// stopOthersLocked shuts down every running worker except exceptID.
// Callers hold r.mu, which is what makes the one-running-account
// policy atomic: no new worker can appear mid-sweep.
func (r *Registry) stopOthersLocked(exceptID string) {
	for id, w := range r.workers {
		if id == exceptID {
			continue
		}

		delete(r.workers, id)
		w.shutdown()
		r.logger.Info("account stopped to make way", zap.String("account", id))
	}
}

func (r *Registry) runningWorker(accountID string) (*worker, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w, running := r.workers[accountID]
	if !running {
		return nil, errors.Newf(errors.ErrCodeAccountNotRunning, "account %s is not running", accountID)
	}

	return w, nil
}

// loadState reads a snapshot, mapping a missing file to account-not-
// found. An account with no live worker is stopped regardless of what
// the snapshot says: a periodic snapshot written mid-session carries a
// running status, and after a crash that file is all that survives.
// Callers hold r.mu.
func (r *Registry) loadState(accountID string) (types.AccountState, error) {
	state, err := r.store.Load(accountID)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeSnapshotNotFound) {
			return types.AccountState{}, errors.Newf(errors.ErrCodeAccountNotFound, "account %s not found", accountID)
		}

		return types.AccountState{}, err
	}

	if _, running := r.workers[accountID]; !running {
		state.Status = types.AccountStatusStopped
	}

	return state, nil
}
