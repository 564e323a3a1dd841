// Package backtest drives a strategy across a historical bar sequence.
// A run is terminal, single-pass, and deterministic: the caller blocks
// until every bar is consumed and receives the composed result.
package backtest

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/paper-trading/internal/datasource"
	"github.com/rxtech-lab/paper-trading/internal/ledger"
	"github.com/rxtech-lab/paper-trading/internal/logger"
	"github.com/rxtech-lab/paper-trading/internal/metrics"
	"github.com/rxtech-lab/paper-trading/internal/strategy"
	"github.com/rxtech-lab/paper-trading/internal/types"
	"github.com/rxtech-lab/paper-trading/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration of a single backtest run.
type Config struct {
	InitialCapital float64 `yaml:"initial_capital" validate:"gt=0"`
	CommissionRate float64 `yaml:"commission_rate" validate:"gte=0,lt=1"`
	SlippageRate   float64 `yaml:"slippage_rate" validate:"gte=0,lt=1"`
	Strategy       string  `yaml:"strategy" validate:"required"`
	StrategyConfig string  `yaml:"strategy_config"`
}

// Validate checks the configuration against its constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	return nil
}

// OnProgress is invoked after each processed bar.
type OnProgress func(current int, total int)

// Result is the outcome of a completed run.
type Result struct {
	InitialCapital  float64                   `json:"initial_capital" yaml:"initial_capital"`
	FinalCash       float64                   `json:"final_cash" yaml:"final_cash"`
	Trades          []types.Trade             `json:"trades" yaml:"trades"`
	ValuationSeries []types.ValuationPoint    `json:"valuation_series" yaml:"valuation_series"`
	Positions       map[string]types.Position `json:"positions" yaml:"positions"`
	Metrics         types.Metrics             `json:"metrics" yaml:"metrics"`
}

// Runner executes one backtest configuration. Initialize must succeed
// before Run. A Runner is not safe for concurrent use, but independent
// Runners share no state.
type Runner struct {
	config     Config
	strategy   strategy.Strategy
	registry   *strategy.Registry
	logger     *logger.Logger
	onProgress optional.Option[OnProgress]
}

// NewRunner creates a runner resolving strategies from the given registry.
func NewRunner(registry *strategy.Registry, log *logger.Logger) *Runner {
	return &Runner{
		registry:   registry,
		logger:     log,
		onProgress: optional.None[OnProgress](),
	}
}

// Initialize parses and validates the YAML config and resolves the
// strategy from the registry.
func (r *Runner) Initialize(config string) error {
	cfg := Config{}
	if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse backtest config", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	s, err := r.registry.Create(cfg.Strategy, cfg.StrategyConfig)
	if err != nil {
		return errors.Wrap(errors.ErrCodeBacktestInitFailed, "failed to resolve strategy", err)
	}

	r.config = cfg
	r.strategy = s

	return nil
}

// SetProgressCallback registers a per-bar progress callback.
func (r *Runner) SetProgressCallback(callback OnProgress) {
	r.onProgress = optional.Some(callback)
}

// Run consumes every bar from the source in time order, executing the
// strategy's signals at each bar's closing price. Signals rejected by
// the ledger (insufficient capital, nothing held to sell) are dropped
// without aborting the run.
func (r *Runner) Run(ctx context.Context, source datasource.BarSource) (*Result, error) {
	if r.strategy == nil {
		return nil, errors.New(errors.ErrCodeBacktestInitFailed, "runner not initialized")
	}

	total, err := source.Count(optional.None[time.Time](), optional.None[time.Time]())
	if err != nil {
		return nil, err
	}

	if total == 0 {
		return nil, errors.New(errors.ErrCodeBacktestNoBars, "data source contains no bars")
	}

	book := ledger.New(r.config.InitialCapital, r.config.CommissionRate, r.config.SlippageRate, r.logger)
	series := make([]types.ValuationPoint, 0, total)
	lastClose := make(map[string]float64)
	current := 0

	for bar, err := range source.ReadAll(optional.None[time.Time](), optional.None[time.Time]()) {
		if err != nil {
			return nil, err
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lastClose[bar.Symbol] = bar.Close

		signal := r.strategy.GenerateSignal(bar, book)
		if signal.IsActionable() {
			r.execute(book, signal, bar.Close)
		}

		series = append(series, types.ValuationPoint{
			Time:  bar.Time,
			Value: book.MarkValue(lastClose),
		})

		current++
		if r.onProgress.IsSome() {
			r.onProgress.Unwrap()(current, total)
		}
	}

	result := &Result{
		InitialCapital:  r.config.InitialCapital,
		FinalCash:       book.Cash(),
		Trades:          book.Trades(),
		ValuationSeries: series,
		Positions:       book.Positions(),
		Metrics:         metrics.Compute(r.config.InitialCapital, series, book.Trades()),
	}

	return result, nil
}

func (r *Runner) execute(book *ledger.Ledger, signal types.Signal, closePrice float64) {
	var err error

	switch signal.Action {
	case types.SignalActionBuy:
		_, err = book.Buy(signal.Symbol, signal.Quantity, closePrice)
	case types.SignalActionSell:
		_, err = book.Sell(signal.Symbol, signal.Quantity, closePrice)
	}

	// A rejected signal is dropped, never retried: a strategy can miss
	// trades without failing the run.
	if err != nil {
		r.logger.Debug("signal dropped",
			zap.String("symbol", signal.Symbol),
			zap.String("action", string(signal.Action)),
			zap.Int64("quantity", signal.Quantity),
			zap.Error(err),
		)
	}
}
