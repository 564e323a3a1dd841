package strategy

import (
	"testing"
	"time"

	"github.com/rxtech-lab/paper-trading/internal/types"
	"github.com/rxtech-lab/paper-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type fakePortfolio struct {
	cash      float64
	positions map[string]types.Position
}

func (f *fakePortfolio) Cash() float64 { return f.cash }

func (f *fakePortfolio) Position(symbol string) (types.Position, bool) {
	p, ok := f.positions[symbol]
	return p, ok
}

type StrategyTestSuite struct {
	suite.Suite
	registry *Registry
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func (suite *StrategyTestSuite) SetupTest() {
	suite.registry = NewRegistry()
}

func (suite *StrategyTestSuite) TestRegisterAndCreate() {
	suite.Require().NoError(suite.registry.Register(SMACrossoverName, NewSMACrossover))

	s, err := suite.registry.Create(SMACrossoverName, "")
	suite.Require().NoError(err)
	suite.Equal(SMACrossoverName, s.Name())
}

func (suite *StrategyTestSuite) TestRegisterDuplicateFails() {
	suite.Require().NoError(suite.registry.Register(SMACrossoverName, NewSMACrossover))

	err := suite.registry.Register(SMACrossoverName, NewSMACrossover)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyAlreadyExists))
}

func (suite *StrategyTestSuite) TestCreateUnknownNameFails() {
	_, err := suite.registry.Create("momentum", "")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))
}

func (suite *StrategyTestSuite) TestCreateBadConfigFails() {
	suite.Require().NoError(suite.registry.Register(SMACrossoverName, NewSMACrossover))

	_, err := suite.registry.Create(SMACrossoverName, "fast_period: 20\nslow_period: 5\n")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyConfigError))
}

func (suite *StrategyTestSuite) TestList() {
	suite.Require().NoError(suite.registry.Register(SMACrossoverName, NewSMACrossover))
	suite.Equal([]string{SMACrossoverName}, suite.registry.List())
}

func (suite *StrategyTestSuite) TestDefaultRegistryHasBuiltins() {
	suite.Contains(DefaultRegistry.List(), SMACrossoverName)
}

type SMACrossoverTestSuite struct {
	suite.Suite
	strategy  Strategy
	portfolio *fakePortfolio
}

func TestSMACrossoverSuite(t *testing.T) {
	suite.Run(t, new(SMACrossoverTestSuite))
}

func (suite *SMACrossoverTestSuite) SetupTest() {
	s, err := NewSMACrossover("fast_period: 2\nslow_period: 3\nallocation: 0.10\n")
	suite.Require().NoError(err)
	suite.strategy = s
	suite.portfolio = &fakePortfolio{cash: 100000, positions: make(map[string]types.Position)}
}

func (suite *SMACrossoverTestSuite) feed(closes ...float64) []types.Signal {
	base := time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC)
	signals := make([]types.Signal, 0, len(closes))

	for i, c := range closes {
		bar := types.Bar{
			Symbol: "AAPL",
			Time:   base.AddDate(0, 0, i),
			Open:   c, High: c, Low: c, Close: c,
			Volume: 1000,
		}
		signals = append(signals, suite.strategy.GenerateSignal(bar, suite.portfolio))
	}

	return signals
}

func (suite *SMACrossoverTestSuite) TestHoldsUntilWindowFull() {
	signals := suite.feed(100, 101)
	for _, s := range signals {
		suite.Equal(types.SignalActionHold, s.Action)
	}
}

func (suite *SMACrossoverTestSuite) TestBuysOnCrossAbove() {
	// Downtrend establishes fast<slow, then a sharp rally crosses up.
	signals := suite.feed(100, 98, 96, 94, 120)

	last := signals[len(signals)-1]
	suite.Equal(types.SignalActionBuy, last.Action)
	suite.Equal("AAPL", last.Symbol)
	// 10% of 100000 cash at close 120 buys 83 whole shares.
	suite.Equal(int64(83), last.Quantity)
}

func (suite *SMACrossoverTestSuite) TestSellsWholePositionOnCrossBelow() {
	suite.portfolio.positions["AAPL"] = types.Position{Symbol: "AAPL", Quantity: 50, AvgPrice: 100, TotalCost: 5000}

	// Uptrend establishes fast>slow, then a collapse crosses down.
	signals := suite.feed(100, 102, 104, 106, 80)

	last := signals[len(signals)-1]
	suite.Equal(types.SignalActionSell, last.Action)
	suite.Equal(int64(50), last.Quantity)
}

func (suite *SMACrossoverTestSuite) TestCrossBelowWithoutPositionHolds() {
	signals := suite.feed(100, 102, 104, 106, 80)
	suite.Equal(types.SignalActionHold, signals[len(signals)-1].Action)
}

func (suite *SMACrossoverTestSuite) TestNoRepeatSignalWhileAboveStays() {
	signals := suite.feed(100, 98, 96, 94, 120, 121, 122)

	var buys int
	for _, s := range signals {
		if s.Action == types.SignalActionBuy {
			buys++
		}
	}
	suite.Equal(1, buys, "a sustained uptrend must signal the entry once")
}

func (suite *SMACrossoverTestSuite) TestDefaultsApplied() {
	s, err := NewSMACrossover("")
	suite.Require().NoError(err)

	crossover, ok := s.(*SMACrossover)
	suite.Require().True(ok)
	suite.Equal(5, crossover.config.FastPeriod)
	suite.Equal(20, crossover.config.SlowPeriod)
	suite.InDelta(0.10, crossover.config.Allocation, 1e-9)
}
