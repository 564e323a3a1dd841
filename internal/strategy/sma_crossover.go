package strategy

import (
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/paper-trading/internal/types"
	"github.com/rxtech-lab/paper-trading/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SMACrossoverName is the registry name of the built-in moving-average
// crossover strategy.
const SMACrossoverName = "sma_crossover"

// SMACrossoverConfig tunes the crossover strategy. Allocation is the
// fraction of cash deployed on each buy signal.
type SMACrossoverConfig struct {
	FastPeriod int     `yaml:"fast_period" validate:"gt=0"`
	SlowPeriod int     `yaml:"slow_period" validate:"gt=0,gtfield=FastPeriod"`
	Allocation float64 `yaml:"allocation" validate:"gt=0,lte=1"`
}

type crossState int

const (
	crossUnknown crossState = iota
	crossBelow
	crossAbove
)

// SMACrossover buys a cash-proportional lot when the fast moving
// average crosses above the slow one and liquidates the position on
// the cross back below. One independent state per symbol.
type SMACrossover struct {
	config SMACrossoverConfig
	closes map[string][]float64
	state  map[string]crossState
}

// NewSMACrossover builds the strategy from a YAML config string.
// An empty config selects 5/20 periods and a 10% allocation.
func NewSMACrossover(config string) (Strategy, error) {
	cfg := SMACrossoverConfig{
		FastPeriod: 5,
		SlowPeriod: 20,
		Allocation: 0.10,
	}

	if config != "" {
		if err := yaml.Unmarshal([]byte(config), &cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse sma_crossover config", err)
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid sma_crossover config", err)
	}

	return &SMACrossover{
		config: cfg,
		closes: make(map[string][]float64),
		state:  make(map[string]crossState),
	}, nil
}

// Name implements Strategy.
func (s *SMACrossover) Name() string {
	return SMACrossoverName
}

// GenerateSignal implements Strategy.
func (s *SMACrossover) GenerateSignal(bar types.Bar, view PortfolioView) types.Signal {
	hold := types.Signal{Action: types.SignalActionHold, Symbol: bar.Symbol}

	window := append(s.closes[bar.Symbol], bar.Close)
	if len(window) > s.config.SlowPeriod {
		window = window[len(window)-s.config.SlowPeriod:]
	}
	s.closes[bar.Symbol] = window

	if len(window) < s.config.SlowPeriod {
		return hold
	}

	fast := mean(window[len(window)-s.config.FastPeriod:])
	slow := mean(window)

	current := crossBelow
	if fast > slow {
		current = crossAbove
	}

	previous := s.state[bar.Symbol]
	s.state[bar.Symbol] = current

	// The first full window only establishes the baseline.
	if previous == crossUnknown || current == previous {
		return hold
	}

	if current == crossAbove {
		qty := int64(math.Floor(view.Cash() * s.config.Allocation / bar.Close))
		if qty <= 0 {
			return hold
		}

		return types.Signal{Action: types.SignalActionBuy, Symbol: bar.Symbol, Quantity: qty}
	}

	position, ok := view.Position(bar.Symbol)
	if !ok || position.Quantity <= 0 {
		return hold
	}

	return types.Signal{Action: types.SignalActionSell, Symbol: bar.Symbol, Quantity: position.Quantity}
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
