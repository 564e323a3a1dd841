package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/paper-trading/internal/logger"
	"github.com/rxtech-lab/paper-trading/internal/types"
	"github.com/rxtech-lab/paper-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type FileStoreTestSuite struct {
	suite.Suite
	store *FileStore
	dir   string
}

func TestFileStoreSuite(t *testing.T) {
	suite.Run(t, new(FileStoreTestSuite))
}

func (suite *FileStoreTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()

	store, err := NewFileStore(suite.dir, logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.store = store
}

func (suite *FileStoreTestSuite) sampleState() types.AccountState {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	return types.AccountState{
		ID:             "acct-1",
		Name:           "demo",
		InitialCapital: 100000,
		CommissionRate: 0.001,
		SlippageRate:   0.0005,
		Cash:           84977.4925,
		Positions: map[string]types.Position{
			"AAPL": {Symbol: "AAPL", Quantity: 100, AvgPrice: 150.075, TotalCost: 15007.5},
		},
		Trades: []types.Trade{
			{ID: "t1", Symbol: "AAPL", Side: types.SideBuy, Quantity: 100, Price: 150.075, Commission: 15.0075, Timestamp: now},
		},
		Orders: []types.Order{
			{ID: "ORD_000001", Symbol: "AAPL", Side: types.SideBuy, Quantity: 100, Price: 150, Type: types.OrderTypeLimit, Status: types.OrderStatusFilled},
			{ID: "ORD_000002", Symbol: "AAPL", Side: types.SideSell, Quantity: 100, Price: 170, Type: types.OrderTypeLimit, Status: types.OrderStatusPending},
		},
		Status:     types.AccountStatusStopped,
		CreatedAt:  now,
		LastUpdate: now,
	}
}

func (suite *FileStoreTestSuite) TestSaveAndLoadRoundTrip() {
	state := suite.sampleState()
	suite.Require().NoError(suite.store.Save(state))

	loaded, err := suite.store.Load("acct-1")
	suite.Require().NoError(err)

	suite.Equal(state.ID, loaded.ID)
	suite.Equal(state.Cash, loaded.Cash)
	suite.Equal(state.Positions["AAPL"], loaded.Positions["AAPL"])
	suite.Len(loaded.Trades, 1)
	suite.Len(loaded.Orders, 2)
	suite.Equal(types.OrderStatusPending, loaded.Orders[1].Status)
}

func (suite *FileStoreTestSuite) TestSaveReplacesPrevious() {
	state := suite.sampleState()
	suite.Require().NoError(suite.store.Save(state))

	state.Cash = 90000
	suite.Require().NoError(suite.store.Save(state))

	loaded, err := suite.store.Load("acct-1")
	suite.Require().NoError(err)
	suite.Equal(90000.0, loaded.Cash)
}

func (suite *FileStoreTestSuite) TestSaveEmptyIDFails() {
	err := suite.store.Save(types.AccountState{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *FileStoreTestSuite) TestLoadMissingIsNotFound() {
	_, err := suite.store.Load("nope")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSnapshotNotFound))
}

func (suite *FileStoreTestSuite) TestLoadCorruptJSON() {
	path := filepath.Join(suite.dir, "acct-1.json")
	suite.Require().NoError(os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := suite.store.Load("acct-1")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSnapshotCorrupt))
}

func (suite *FileStoreTestSuite) TestLoadMismatchedIDIsCorrupt() {
	state := suite.sampleState()
	suite.Require().NoError(suite.store.Save(state))

	data, err := os.ReadFile(filepath.Join(suite.dir, "acct-1.json"))
	suite.Require().NoError(err)
	suite.Require().NoError(os.WriteFile(filepath.Join(suite.dir, "acct-2.json"), data, 0o644))

	_, err = suite.store.Load("acct-2")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSnapshotCorrupt))
}

func (suite *FileStoreTestSuite) TestDeleteIsIdempotent() {
	suite.Require().NoError(suite.store.Save(suite.sampleState()))
	suite.Require().NoError(suite.store.Delete("acct-1"))
	suite.Require().NoError(suite.store.Delete("acct-1"))

	_, err := suite.store.Load("acct-1")
	suite.True(errors.HasCode(err, errors.ErrCodeSnapshotNotFound))
}

func (suite *FileStoreTestSuite) TestList() {
	state := suite.sampleState()
	suite.Require().NoError(suite.store.Save(state))

	state.ID = "acct-2"
	suite.Require().NoError(suite.store.Save(state))

	ids, err := suite.store.List()
	suite.Require().NoError(err)
	suite.ElementsMatch([]string{"acct-1", "acct-2"}, ids)
}
