package paper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/pulse-trading/internal/event"
	"github.com/rxtech-lab/pulse-trading/internal/logger"
	"github.com/rxtech-lab/pulse-trading/internal/types"
	"github.com/stretchr/testify/suite"
)

type capture struct {
	mu     sync.Mutex
	orders []types.Order
	trades []types.Trade
}

func (c *capture) ProcessEvent(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch data := e.Data.(type) {
	case types.Order:
		c.orders = append(c.orders, data)
	case types.Trade:
		c.trades = append(c.trades, data)
	}
}

func (c *capture) orderCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.orders)
}

func (c *capture) tradeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.trades)
}

func (c *capture) lastOrder() types.Order {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.orders[len(c.orders)-1]
}

type PaperGatewayTestSuite struct {
	suite.Suite

	events  *event.Engine
	gateway *Gateway
	capture *capture
}

func TestPaperGatewaySuite(t *testing.T) {
	suite.Run(t, new(PaperGatewayTestSuite))
}

func (suite *PaperGatewayTestSuite) SetupTest() {
	suite.events = event.NewEngine(event.Config{DisableTimer: true}, logger.NewNopLogger())
	suite.gateway = New(suite.events, logger.NewNopLogger())
	suite.capture = &capture{}
	suite.events.Register(event.TypeOrder, suite.capture)
	suite.events.Register(event.TypeTrade, suite.capture)
	suite.events.Start()

	suite.NoError(suite.gateway.Connect(context.Background()))
}

func (suite *PaperGatewayTestSuite) TearDownTest() {
	suite.events.Stop()
}

func (suite *PaperGatewayTestSuite) tick(symbol string, bid, ask float64) types.Tick {
	tick := types.Tick{
		Symbol:    symbol,
		Timestamp: time.Now(),
		LastPrice: (bid + ask) / 2,
	}
	tick.BidPrices[0] = bid
	tick.AskPrices[0] = ask

	return tick
}

func (suite *PaperGatewayTestSuite) TestSendOrderRequiresConnection() {
	disconnected := New(event.NewEngine(event.Config{DisableTimer: true}, logger.NewNopLogger()), logger.NewNopLogger())

	_, err := disconnected.SendOrder(types.OrderRequest{
		Symbol:    "BTCUSDT",
		Direction: types.DirectionLong,
		Offset:    types.OffsetOpen,
		PriceType: types.PriceTypeLimit,
		Price:     100,
		Volume:    1,
	})
	suite.Error(err)
}

func (suite *PaperGatewayTestSuite) TestLimitOrderRestsUntilCrossed() {
	id, err := suite.gateway.SendOrder(types.OrderRequest{
		Symbol:    "BTCUSDT",
		Direction: types.DirectionLong,
		Offset:    types.OffsetOpen,
		PriceType: types.PriceTypeLimit,
		Price:     100,
		Volume:    2,
	})
	suite.NoError(err)
	suite.Equal("paper.1", id)

	// Ask above the limit: no fill.
	suite.gateway.PushTick(suite.tick("BTCUSDT", 100.5, 101))
	suite.Eventually(func() bool { return suite.capture.orderCount() >= 1 }, time.Second, time.Millisecond)
	suite.Equal(0, suite.capture.tradeCount())

	// Ask crosses the limit: full fill at the ask.
	suite.gateway.PushTick(suite.tick("BTCUSDT", 99, 99.5))
	suite.Eventually(func() bool { return suite.capture.tradeCount() == 1 }, time.Second, time.Millisecond)

	suite.Eventually(func() bool {
		return suite.capture.orderCount() >= 2 && suite.capture.lastOrder().Status == types.OrderStatusAllTraded
	}, time.Second, time.Millisecond)

	suite.capture.mu.Lock()
	defer suite.capture.mu.Unlock()
	suite.Equal(99.5, suite.capture.trades[0].Price)
	suite.Equal(2.0, suite.capture.trades[0].Volume)
	suite.Equal("1", suite.capture.trades[0].OrderID)
}

func (suite *PaperGatewayTestSuite) TestCancelPreventsLaterFill() {
	_, err := suite.gateway.SendOrder(types.OrderRequest{
		Symbol:    "BTCUSDT",
		Direction: types.DirectionShort,
		Offset:    types.OffsetOpen,
		PriceType: types.PriceTypeLimit,
		Price:     100,
		Volume:    1,
	})
	suite.NoError(err)

	suite.NoError(suite.gateway.CancelOrder(types.CancelRequest{
		Symbol:  "BTCUSDT",
		OrderID: "1",
	}))

	// Bid above the limit would have filled the short.
	suite.gateway.PushTick(suite.tick("BTCUSDT", 101, 101.5))

	suite.Eventually(func() bool {
		return suite.capture.orderCount() >= 2 && suite.capture.lastOrder().Status == types.OrderStatusCancelled
	}, time.Second, time.Millisecond)
	suite.Equal(0, suite.capture.tradeCount())
}

func (suite *PaperGatewayTestSuite) TestCancelUnknownOrder() {
	err := suite.gateway.CancelOrder(types.CancelRequest{
		Symbol:  "BTCUSDT",
		OrderID: "404",
	})
	suite.Error(err)
}

func (suite *PaperGatewayTestSuite) TestMarketOrderFillsOnKnownTick() {
	suite.gateway.PushTick(suite.tick("ETHUSDT", 2000, 2001))

	_, err := suite.gateway.SendOrder(types.OrderRequest{
		Symbol:    "ETHUSDT",
		Direction: types.DirectionLong,
		Offset:    types.OffsetOpen,
		PriceType: types.PriceTypeMarket,
		Volume:    1,
	})
	suite.NoError(err)

	suite.Eventually(func() bool { return suite.capture.tradeCount() == 1 }, time.Second, time.Millisecond)

	suite.capture.mu.Lock()
	defer suite.capture.mu.Unlock()
	suite.Equal(2001.0, suite.capture.trades[0].Price)
}
