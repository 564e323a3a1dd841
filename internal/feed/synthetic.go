package feed

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rxtech-lab/paper-trading/internal/logger"
	"github.com/rxtech-lab/paper-trading/internal/types"
	"github.com/rxtech-lab/paper-trading/pkg/errors"
	"go.uber.org/zap"
)

const syntheticTickBuffer = 64

// SyntheticConfig tunes the random-walk generator.
type SyntheticConfig struct {
	// StartPrice is the first tick price for every symbol.
	StartPrice float64
	// Volatility is the per-tick fractional step size.
	Volatility float64
	// Interval is the delay between ticks per symbol.
	Interval time.Duration
	// Seed makes the walk reproducible.
	Seed int64
}

// DefaultSyntheticConfig returns a walk suitable for demos: 100.0
// start, 0.1% steps, ten ticks a second.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		StartPrice: 100.0,
		Volatility: 0.001,
		Interval:   100 * time.Millisecond,
		Seed:       time.Now().UnixNano(),
	}
}

// SyntheticFeed emits a seeded random-walk price stream per subscribed
// symbol. It exists for tests, demos, and offline use.
type SyntheticFeed struct {
	config    SyntheticConfig
	logger    *logger.Logger
	ticks     chan types.Tick
	done      chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	symbols   map[string]bool
	rng       *rand.Rand
	connected bool
	closed    bool
}

// NewSyntheticFeed creates a synthetic feed with the given config.
func NewSyntheticFeed(config SyntheticConfig, log *logger.Logger) *SyntheticFeed {
	return &SyntheticFeed{
		config:  config,
		logger:  log,
		ticks:   make(chan types.Tick, syntheticTickBuffer),
		done:    make(chan struct{}),
		symbols: make(map[string]bool),
		rng:     rand.New(rand.NewSource(config.Seed)),
	}
}

// Connect implements Feed.
func (f *SyntheticFeed) Connect(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errors.New(errors.ErrCodeFeedClosed, "feed is closed")
	}

	f.connected = true

	return nil
}

// Subscribe implements Feed. Each symbol walks on its own goroutine.
func (f *SyntheticFeed) Subscribe(symbols ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errors.New(errors.ErrCodeFeedClosed, "feed is closed")
	}

	if !f.connected {
		return errors.New(errors.ErrCodeFeedConnectFailed, "feed is not connected")
	}

	for _, symbol := range symbols {
		symbol = strings.ToUpper(symbol)
		if f.symbols[symbol] {
			continue
		}

		f.symbols[symbol] = true
		// Each walk gets an independent generator so symbol subscription
		// order does not perturb other walks.
		seed := f.rng.Int63()

		f.wg.Add(1)

		go f.walk(symbol, seed)

		f.logger.Debug("synthetic walk started", zap.String("symbol", symbol))
	}

	return nil
}

// Ticks implements Feed.
func (f *SyntheticFeed) Ticks() <-chan types.Tick {
	return f.ticks
}

// Close implements Feed. Safe to call more than once.
func (f *SyntheticFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()

		return nil
	}

	f.closed = true
	f.mu.Unlock()

	close(f.done)
	f.wg.Wait()
	close(f.ticks)

	return nil
}

func (f *SyntheticFeed) walk(symbol string, seed int64) {
	defer f.wg.Done()

	rng := rand.New(rand.NewSource(seed))
	price := f.config.StartPrice

	ticker := time.NewTicker(f.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			price *= 1 + f.config.Volatility*(2*rng.Float64()-1)

			tick := types.Tick{
				Symbol:    symbol,
				Price:     price,
				Volume:    float64(rng.Intn(1000) + 1),
				Timestamp: time.Now(),
			}

			select {
			case <-f.done:
				return
			case f.ticks <- tick:
			}
		}
	}
}

var _ Feed = (*SyntheticFeed)(nil)
