package feed

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/paper-trading/internal/logger"
	"github.com/rxtech-lab/paper-trading/internal/types"
	"github.com/rxtech-lab/paper-trading/pkg/errors"
	"go.uber.org/zap"
)

const binanceTickBuffer = 256

// AggTradeServeFunc matches binance.WsAggTradeServe and is injectable
// for testing with a mock websocket service.
type AggTradeServeFunc func(symbol string, handler binance.WsAggTradeHandler, errHandler binance.ErrHandler) (doneC chan struct{}, stopC chan struct{}, err error)

type binanceStream struct {
	doneC chan struct{}
	stopC chan struct{}
}

// BinanceFeed streams aggregate trades from the Binance websocket API,
// one stream per subscribed symbol, fanned into a single tick channel.
type BinanceFeed struct {
	serve     AggTradeServeFunc
	logger    *logger.Logger
	ticks     chan types.Tick
	done      chan struct{}
	streams   map[string]binanceStream
	mu        sync.Mutex
	connected bool
	closed    bool
}

// NewBinanceFeed creates a feed backed by the real Binance websocket.
func NewBinanceFeed(log *logger.Logger) *BinanceFeed {
	return NewBinanceFeedWithServe(binance.WsAggTradeServe, log)
}

// NewBinanceFeedWithServe creates a feed with a custom websocket serve
// function. Used by tests to avoid a network connection.
func NewBinanceFeedWithServe(serve AggTradeServeFunc, log *logger.Logger) *BinanceFeed {
	return &BinanceFeed{
		serve:   serve,
		logger:  log,
		ticks:   make(chan types.Tick, binanceTickBuffer),
		done:    make(chan struct{}),
		streams: make(map[string]binanceStream),
	}
}

// Connect implements Feed.
func (f *BinanceFeed) Connect(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return errors.New(errors.ErrCodeFeedClosed, "feed is closed")
	}

	f.connected = true

	return nil
}

// Subscribe implements Feed. Each symbol gets its own websocket stream;
// a stream that fails to start fails the whole call.
func (f *BinanceFeed) Subscribe(symbols ...string) error {
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
		if _, exists := f.streams[symbol]; exists {
			continue
		}

		doneC, stopC, err := f.serve(symbol, f.handleAggTrade, f.handleError)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeFeedConnectFailed, err, "failed to open stream for %s", symbol)
		}

		f.streams[symbol] = binanceStream{doneC: doneC, stopC: stopC}
		f.logger.Info("subscribed to binance stream", zap.String("symbol", symbol))
	}

	return nil
}

// Ticks implements Feed.
func (f *BinanceFeed) Ticks() <-chan types.Tick {
	return f.ticks
}

// Close implements Feed. Safe to call more than once.
func (f *BinanceFeed) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()

		return nil
	}

	f.closed = true
	streams := f.streams
	f.streams = make(map[string]binanceStream)
	f.mu.Unlock()

	close(f.done)

	for symbol, stream := range streams {
		close(stream.stopC)
		<-stream.doneC
		f.logger.Debug("binance stream stopped", zap.String("symbol", symbol))
	}

	// All handlers have returned; nobody can send anymore.
	close(f.ticks)

	return nil
}

func (f *BinanceFeed) handleAggTrade(event *binance.WsAggTradeEvent) {
	price, err := strconv.ParseFloat(event.Price, 64)
	if err != nil {
		f.logger.Warn("unparsable trade price",
			zap.String("symbol", event.Symbol),
			zap.String("price", event.Price),
		)

		return
	}

	volume, _ := strconv.ParseFloat(event.Quantity, 64)

	tick := types.Tick{
		Symbol:    event.Symbol,
		Price:     price,
		Volume:    volume,
		Timestamp: time.UnixMilli(event.TradeTime),
	}

	select {
	case <-f.done:
	case f.ticks <- tick:
	}
}

func (f *BinanceFeed) handleError(err error) {
	f.logger.Error("binance stream error", zap.Error(err))
}

var _ Feed = (*BinanceFeed)(nil)
