package orderbook

import (
	"testing"

	"github.com/rxtech-lab/paper-trading/internal/ledger"
	"github.com/rxtech-lab/paper-trading/internal/logger"
	"github.com/rxtech-lab/paper-trading/internal/types"
	"github.com/rxtech-lab/paper-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BookTestSuite struct {
	suite.Suite
	book   *Book
	ledger *ledger.Ledger
}

func TestBookSuite(t *testing.T) {
	suite.Run(t, new(BookTestSuite))
}

func (suite *BookTestSuite) SetupTest() {
	log := logger.NewNopLogger()
	suite.book = New(log)
	suite.ledger = ledger.New(100000, 0, 0, log)
}

func (suite *BookTestSuite) TestSubmitAssignsSequentialIDs() {
	first, err := suite.book.Submit("AAPL", types.SideBuy, 10, 150)
	suite.Require().NoError(err)
	suite.Equal("ORD_000001", first.ID)
	suite.Equal(types.OrderStatusPending, first.Status)
	suite.Equal(types.OrderTypeLimit, first.Type)

	second, err := suite.book.Submit("MSFT", types.SideSell, 5, 300)
	suite.Require().NoError(err)
	suite.Equal("ORD_000002", second.ID)
}

func (suite *BookTestSuite) TestSubmitRejectsInvalidOrder() {
	_, err := suite.book.Submit("AAPL", types.SideBuy, 0, 150)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))

	_, err = suite.book.Submit("AAPL", "short", 10, 150)
	suite.Require().Error(err)

	suite.Empty(suite.book.All())
}

func (suite *BookTestSuite) TestCancelIsIdempotent() {
	order, err := suite.book.Submit("AAPL", types.SideBuy, 10, 150)
	suite.Require().NoError(err)

	suite.True(suite.book.Cancel(order.ID))
	// Second cancel of the same order is "already resolved", not an error.
	suite.False(suite.book.Cancel(order.ID))
	suite.False(suite.book.Cancel("ORD_999999"))

	got := suite.book.Get(order.ID)
	suite.Require().True(got.IsSome())
	suite.Equal(types.OrderStatusCancelled, got.Unwrap().Status)
}

func (suite *BookTestSuite) TestCancelAfterFillReturnsFalse() {
	order, err := suite.book.Submit("AAPL", types.SideBuy, 10, 150)
	suite.Require().NoError(err)

	filled := suite.book.Match("AAPL", 149, suite.ledger)
	suite.Require().Equal([]string{order.ID}, filled)

	suite.False(suite.book.Cancel(order.ID))

	got := suite.book.Get(order.ID)
	suite.Require().True(got.IsSome())
	suite.Equal(types.OrderStatusFilled, got.Unwrap().Status)
}

func (suite *BookTestSuite) TestMatchBuyAndSellConditions() {
	buy, err := suite.book.Submit("AAPL", types.SideBuy, 10, 150)
	suite.Require().NoError(err)

	// Market above the buy limit: no fill.
	suite.Empty(suite.book.Match("AAPL", 151, suite.ledger))

	// Market at the limit fills at the order's limit price, not the tick.
	filled := suite.book.Match("AAPL", 150, suite.ledger)
	suite.Require().Equal([]string{buy.ID}, filled)

	trades := suite.ledger.Trades()
	suite.Require().Len(trades, 1)
	suite.Equal(150.0, trades[0].Price)
	suite.Equal(buy.ID, trades[0].OrderID)

	sell, err := suite.book.Submit("AAPL", types.SideSell, 10, 155)
	suite.Require().NoError(err)

	suite.Empty(suite.book.Match("AAPL", 154, suite.ledger))

	filled = suite.book.Match("AAPL", 156, suite.ledger)
	suite.Require().Equal([]string{sell.ID}, filled)
}

func (suite *BookTestSuite) TestMatchProcessesAscendingIDOrder() {
	first, err := suite.book.Submit("AAPL", types.SideBuy, 10, 150)
	suite.Require().NoError(err)
	second, err := suite.book.Submit("AAPL", types.SideBuy, 10, 152)
	suite.Require().NoError(err)

	// Both limits are satisfied at 149; fills must come back in ID order.
	filled := suite.book.Match("AAPL", 149, suite.ledger)
	suite.Equal([]string{first.ID, second.ID}, filled)
}

func (suite *BookTestSuite) TestMatchIgnoresOtherSymbols() {
	_, err := suite.book.Submit("MSFT", types.SideBuy, 10, 300)
	suite.Require().NoError(err)

	suite.Empty(suite.book.Match("AAPL", 1, suite.ledger))
	suite.Len(suite.book.Pending(), 1)
}

func (suite *BookTestSuite) TestRejectedFillStaysPending() {
	order, err := suite.book.Submit("AAPL", types.SideBuy, 1000000, 150)
	suite.Require().NoError(err)

	suite.Empty(suite.book.Match("AAPL", 149, suite.ledger))

	got := suite.book.Get(order.ID)
	suite.Require().True(got.IsSome())
	suite.Equal(types.OrderStatusPending, got.Unwrap().Status)
	suite.Empty(suite.ledger.Trades())
}

func (suite *BookTestSuite) TestSymbols() {
	_, err := suite.book.Submit("AAPL", types.SideBuy, 10, 150)
	suite.Require().NoError(err)
	_, err = suite.book.Submit("MSFT", types.SideBuy, 10, 300)
	suite.Require().NoError(err)
	_, err = suite.book.Submit("AAPL", types.SideSell, 5, 160)
	suite.Require().NoError(err)

	suite.ElementsMatch([]string{"AAPL", "MSFT"}, suite.book.Symbols())
}

func (suite *BookTestSuite) TestRestoreAdvancesIDCounter() {
	history := []types.Order{
		{ID: "ORD_000001", Symbol: "AAPL", Side: types.SideBuy, Quantity: 10, Price: 150, Type: types.OrderTypeLimit, Status: types.OrderStatusFilled},
		{ID: "ORD_000003", Symbol: "AAPL", Side: types.SideSell, Quantity: 10, Price: 160, Type: types.OrderTypeLimit, Status: types.OrderStatusCancelled},
		{ID: "ORD_000007", Symbol: "MSFT", Side: types.SideBuy, Quantity: 5, Price: 300, Type: types.OrderTypeLimit, Status: types.OrderStatusPending},
	}

	suite.Require().NoError(suite.book.Restore(history))
	suite.Len(suite.book.All(), 3)
	suite.Len(suite.book.Pending(), 1)

	next, err := suite.book.Submit("AAPL", types.SideBuy, 1, 100)
	suite.Require().NoError(err)
	suite.Equal("ORD_000008", next.ID, "new IDs must never collide with or precede restored IDs")
}

func (suite *BookTestSuite) TestRestoredPendingOrderStillFills() {
	history := []types.Order{
		{ID: "ORD_000002", Symbol: "AAPL", Side: types.SideBuy, Quantity: 10, Price: 150, Type: types.OrderTypeLimit, Status: types.OrderStatusPending},
	}
	suite.Require().NoError(suite.book.Restore(history))

	filled := suite.book.Match("AAPL", 148, suite.ledger)
	suite.Equal([]string{"ORD_000002"}, filled)
}

func (suite *BookTestSuite) TestRestoreRejectsCorruptHistory() {
	err := suite.book.Restore([]types.Order{{ID: "bogus", Symbol: "AAPL"}})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSnapshotCorrupt))

	err = suite.book.Restore([]types.Order{
		{ID: "ORD_000001", Symbol: "AAPL"},
		{ID: "ORD_000001", Symbol: "AAPL"},
	})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSnapshotCorrupt))
}
