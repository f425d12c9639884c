package cta

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/pulse-trading/internal/event"
	"github.com/rxtech-lab/pulse-trading/internal/logger"
	"github.com/rxtech-lab/pulse-trading/internal/types"
	"github.com/rxtech-lab/pulse-trading/internal/version"
	"github.com/rxtech-lab/pulse-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// fakeRouter records routed orders instead of touching a gateway.
type fakeRouter struct {
	events  *event.Engine
	orders  []types.OrderRequest
	cancels []string
	nextID  int
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{events: event.NewEngine(event.DefaultConfig(), logger.NewNopLogger())}
}

func (r *fakeRouter) SendOrder(req types.OrderRequest, gatewayName string) (string, error) {
	r.orders = append(r.orders, req)
	r.nextID++

	return gatewayName + "." + strconv.Itoa(r.nextID), nil
}

func (r *fakeRouter) CancelByQualifiedID(symbol, qualifiedID string) error {
	r.cancels = append(r.cancels, qualifiedID)

	return nil
}

func (r *fakeRouter) Subscribe(req types.SubscribeRequest, gatewayName string) error {
	return nil
}

func (r *fakeRouter) WriteLog(level types.LogLevel, message string) {}

func (r *fakeRouter) Events() *event.Engine { return r.events }

// fakeStore records sync writes and serves canned bars.
type fakeStore struct {
	bars      []types.Bar
	savedPos  map[string]float64
	loadedPos map[string]float64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		savedPos:  make(map[string]float64),
		loadedPos: make(map[string]float64),
	}
}

func (s *fakeStore) LoadBars(symbol string, interval types.BarInterval, days int) ([]types.Bar, error) {
	return s.bars, nil
}

func (s *fakeStore) SaveStrategySync(name string, pos float64) error {
	s.savedPos[name] = pos

	return nil
}

func (s *fakeStore) LoadStrategySync(name string) (optional.Option[float64], error) {
	if pos, ok := s.loadedPos[name]; ok {
		return optional.Some(pos), nil
	}

	return optional.None[float64](), nil
}

// scriptStrategy records callbacks and runs an optional hook per tick.
type scriptStrategy struct {
	calls      []string
	ticks      []types.Tick
	trades     []types.Trade
	stopOrders []StopOrder
	onTick     func(ctx Context, tick types.Tick)
}

func (s *scriptStrategy) OnInit(ctx Context)  { s.calls = append(s.calls, "init") }
func (s *scriptStrategy) OnStart(ctx Context) { s.calls = append(s.calls, "start") }
func (s *scriptStrategy) OnStop(ctx Context)  { s.calls = append(s.calls, "stop") }

func (s *scriptStrategy) OnTick(ctx Context, tick types.Tick) {
	s.calls = append(s.calls, "tick")
	s.ticks = append(s.ticks, tick)

	if s.onTick != nil {
		s.onTick(ctx, tick)
	}
}

func (s *scriptStrategy) OnBar(ctx Context, bar types.Bar) {
	s.calls = append(s.calls, "bar")
}

func (s *scriptStrategy) OnOrder(ctx Context, order types.Order) {
	s.calls = append(s.calls, "order:"+string(order.Status))
}

func (s *scriptStrategy) OnTrade(ctx Context, trade types.Trade) {
	s.calls = append(s.calls, "trade")
	s.trades = append(s.trades, trade)
}

func (s *scriptStrategy) OnStopOrder(ctx Context, stopOrder StopOrder) {
	s.calls = append(s.calls, "stop_order:"+string(stopOrder.Status))
	s.stopOrders = append(s.stopOrders, stopOrder)
}

// versionedStrategy declares an explicit API version on top of the script
// strategy, standing in for an externally built strategy.
type versionedStrategy struct {
	scriptStrategy
	apiVersion string
}

func (s *versionedStrategy) APIVersion() string { return s.apiVersion }

type StrategyEngineTestSuite struct {
	suite.Suite
	router *fakeRouter
	store  *fakeStore
	engine *StrategyEngine
}

func TestStrategyEngineSuite(t *testing.T) {
	suite.Run(t, new(StrategyEngineTestSuite))
}

func (s *StrategyEngineTestSuite) SetupTest() {
	s.router = newFakeRouter()
	s.store = newFakeStore()
	s.engine = NewStrategyEngine(s.router, s.store, EngineTypeLive, "paper", logger.NewNopLogger())
}

func (s *StrategyEngineTestSuite) tick(symbol string, price float64) {
	s.engine.processTickEvent(event.New(event.TypeTick, types.Tick{
		Symbol:    symbol,
		LastPrice: price,
		Timestamp: time.Now(),
	}))
}

func (s *StrategyEngineTestSuite) addRunning(name string, strategy Strategy) {
	s.Require().NoError(s.engine.AddStrategy(name, "BTCUSDT", strategy))
	s.Require().NoError(s.engine.InitStrategy(name))
	s.Require().NoError(s.engine.StartStrategy(name))
}

func (s *StrategyEngineTestSuite) TestDuplicateStrategyName() {
	s.Require().NoError(s.engine.AddStrategy("double-ma", "BTCUSDT", &scriptStrategy{}))

	err := s.engine.AddStrategy("double-ma", "ETHUSDT", &scriptStrategy{})
	s.Require().Error(err)
}

func (s *StrategyEngineTestSuite) TestIncompatibleStrategyVersionRejected() {
	restore := version.Version
	version.Version = "1.2.0"

	defer func() { version.Version = restore }()

	err := s.engine.AddStrategy("stale", "BTCUSDT", &versionedStrategy{apiVersion: "1.1.3"})
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeVersionMismatch))

	// Patch-level drift is fine.
	s.Require().NoError(s.engine.AddStrategy("current", "BTCUSDT", &versionedStrategy{apiVersion: "1.2.9"}))
}

func (s *StrategyEngineTestSuite) TestStartRequiresInit() {
	s.Require().NoError(s.engine.AddStrategy("double-ma", "BTCUSDT", &scriptStrategy{}))

	err := s.engine.StartStrategy("double-ma")
	s.Require().Error(err)
}

func (s *StrategyEngineTestSuite) TestLifecycleCallbacks() {
	strategy := &scriptStrategy{}
	s.addRunning("double-ma", strategy)
	s.Require().NoError(s.engine.StopStrategy("double-ma"))

	s.Equal([]string{"init", "start", "stop"}, strategy.calls)
}

func (s *StrategyEngineTestSuite) TestTickRoutingRequiresInit() {
	strategy := &scriptStrategy{}
	s.Require().NoError(s.engine.AddStrategy("double-ma", "BTCUSDT", strategy))

	s.tick("BTCUSDT", 100)
	s.Empty(strategy.ticks)

	s.Require().NoError(s.engine.InitStrategy("double-ma"))
	s.tick("BTCUSDT", 101)
	s.tick("ETHUSDT", 50)

	s.Require().Len(strategy.ticks, 1)
	s.Equal(101.0, strategy.ticks[0].LastPrice)
}

func (s *StrategyEngineTestSuite) TestIntentsAreInertWhileNotTrading() {
	strategy := &scriptStrategy{
		onTick: func(ctx Context, tick types.Tick) {
			s.Empty(ctx.Buy(tick.LastPrice, 1, false))
			s.Empty(ctx.Short(tick.LastPrice, 1, true))
		},
	}
	s.Require().NoError(s.engine.AddStrategy("double-ma", "BTCUSDT", strategy))
	s.Require().NoError(s.engine.InitStrategy("double-ma"))

	s.tick("BTCUSDT", 100)

	s.Empty(s.router.orders)
	s.Empty(s.engine.stopOrders)
}

func (s *StrategyEngineTestSuite) TestOrderAndTradeRouting() {
	strategy := &scriptStrategy{}
	strategy.onTick = func(ctx Context, tick types.Tick) {
		if len(s.router.orders) == 0 {
			ids := ctx.Buy(tick.LastPrice, 2, false)
			s.Require().Equal([]string{"paper.1"}, ids)
		}
	}
	s.addRunning("double-ma", strategy)

	s.tick("BTCUSDT", 100)
	s.Require().Len(s.router.orders, 1)
	s.Equal(types.DirectionLong, s.router.orders[0].Direction)
	s.Equal(types.OffsetOpen, s.router.orders[0].Offset)

	s.engine.processOrderEvent(event.New(event.TypeOrder, types.Order{
		GatewayName: "paper", OrderID: "1", Symbol: "BTCUSDT",
		Status: types.OrderStatusAllTraded, TotalVolume: 2, TradedVolume: 2,
	}))
	s.engine.processTradeEvent(event.New(event.TypeTrade, types.Trade{
		GatewayName: "paper", OrderID: "1", TradeID: "t1", Symbol: "BTCUSDT",
		Direction: types.DirectionLong, Price: 100, Volume: 2,
	}))

	s.Contains(strategy.calls, "order:ALL_TRADED")
	s.Contains(strategy.calls, "trade")
	s.Equal(2.0, s.store.savedPos["double-ma"])

	statuses := s.engine.Statuses()
	s.Require().Len(statuses, 1)
	s.Equal(2.0, statuses[0].Pos)
}

func (s *StrategyEngineTestSuite) TestForeignOrderEventsIgnored() {
	strategy := &scriptStrategy{}
	s.addRunning("double-ma", strategy)

	s.engine.processOrderEvent(event.New(event.TypeOrder, types.Order{
		GatewayName: "paper", OrderID: "99", Symbol: "BTCUSDT",
		Status: types.OrderStatusAllTraded,
	}))

	s.NotContains(strategy.calls, "order:ALL_TRADED")
}

func (s *StrategyEngineTestSuite) TestPersistedPositionRestoredOnInit() {
	s.store.loadedPos["double-ma"] = -3

	strategy := &scriptStrategy{}
	s.Require().NoError(s.engine.AddStrategy("double-ma", "BTCUSDT", strategy))
	s.Require().NoError(s.engine.InitStrategy("double-ma"))

	statuses := s.engine.Statuses()
	s.Require().Len(statuses, 1)
	s.Equal(-3.0, statuses[0].Pos)
}

func (s *StrategyEngineTestSuite) TestStopOrderTriggersAtThreshold() {
	var stopIDs []string

	strategy := &scriptStrategy{}
	strategy.onTick = func(ctx Context, tick types.Tick) {
		if len(stopIDs) == 0 {
			stopIDs = ctx.Buy(105, 1, true)
		}
	}
	s.addRunning("breakout", strategy)

	s.tick("BTCUSDT", 100)
	s.Require().Len(stopIDs, 1)
	s.True(IsStopOrderID(stopIDs[0]))
	s.Require().Len(strategy.stopOrders, 1)
	s.Equal(StopOrderStatusWaiting, strategy.stopOrders[0].Status)

	// Below the trigger price nothing happens.
	s.tick("BTCUSDT", 104.99)
	s.Empty(s.router.orders)

	// At the threshold the stop fires once and is gone.
	s.tick("BTCUSDT", 105)
	s.Require().Len(s.router.orders, 1)
	s.Equal(105.0, s.router.orders[0].Price)
	s.Equal(types.DirectionLong, s.router.orders[0].Direction)

	last := strategy.stopOrders[len(strategy.stopOrders)-1]
	s.Equal(StopOrderStatusTriggered, last.Status)

	s.tick("BTCUSDT", 110)
	s.Len(s.router.orders, 1)
}

func (s *StrategyEngineTestSuite) TestSellStopTriggersDownward() {
	var stopIDs []string

	strategy := &scriptStrategy{}
	strategy.onTick = func(ctx Context, tick types.Tick) {
		if len(stopIDs) == 0 {
			stopIDs = ctx.Sell(95, 1, true)
		}
	}
	s.addRunning("trailing", strategy)

	s.tick("BTCUSDT", 100)
	s.tick("BTCUSDT", 96)
	s.Empty(s.router.orders)

	s.tick("BTCUSDT", 94)
	s.Require().Len(s.router.orders, 1)
	s.Equal(types.DirectionShort, s.router.orders[0].Direction)
	s.Equal(types.OffsetClose, s.router.orders[0].Offset)
}

func (s *StrategyEngineTestSuite) TestCancelledStopNeverFires() {
	var stopIDs []string

	strategy := &scriptStrategy{}
	strategy.onTick = func(ctx Context, tick types.Tick) {
		switch {
		case len(stopIDs) == 0:
			stopIDs = ctx.Buy(105, 1, true)
		case tick.LastPrice == 101:
			ctx.CancelOrder(stopIDs[0])
		}
	}
	s.addRunning("breakout", strategy)

	s.tick("BTCUSDT", 100)
	s.tick("BTCUSDT", 101)

	last := strategy.stopOrders[len(strategy.stopOrders)-1]
	s.Equal(StopOrderStatusCancelled, last.Status)

	s.tick("BTCUSDT", 106)
	s.Empty(s.router.orders)
}

func (s *StrategyEngineTestSuite) TestOCOSiblingCancelledOnTrigger() {
	var bracket []string

	strategy := &scriptStrategy{}
	strategy.onTick = func(ctx Context, tick types.Tick) {
		if len(bracket) == 0 {
			up := ctx.Buy(105, 1, true)
			down := ctx.Sell(95, 1, true)
			bracket = append(up, down...)
			ctx.LinkOCO(bracket...)
		}
	}
	s.addRunning("bracket", strategy)

	s.tick("BTCUSDT", 100)
	s.Require().Len(bracket, 2)

	s.tick("BTCUSDT", 105)

	s.Require().Len(s.router.orders, 1)
	s.Equal(types.DirectionLong, s.router.orders[0].Direction)
	s.Empty(s.engine.stopOrders)

	// The sibling is cancelled, not triggered, so a later breach of its
	// price emits nothing.
	s.tick("BTCUSDT", 90)
	s.Len(s.router.orders, 1)
}

func (s *StrategyEngineTestSuite) TestStopStrategyCancelsEverything() {
	strategy := &scriptStrategy{}
	strategy.onTick = func(ctx Context, tick types.Tick) {
		if len(s.router.orders) == 0 {
			ctx.Buy(99, 1, false)
			ctx.Sell(95, 1, true)
		}
	}
	s.addRunning("breakout", strategy)

	s.tick("BTCUSDT", 100)
	s.Require().Len(s.router.orders, 1)
	s.Require().Len(s.engine.stopOrders, 1)

	s.Require().NoError(s.engine.StopStrategy("breakout"))

	s.Equal([]string{"paper.1"}, s.router.cancels)
	s.Empty(s.engine.stopOrders)
}

func (s *StrategyEngineTestSuite) TestStatusesSafeDuringTradeEvents() {
	strategy := &scriptStrategy{}
	strategy.onTick = func(ctx Context, tick types.Tick) {
		if len(s.router.orders) == 0 {
			ctx.Buy(tick.LastPrice, 1, false)
		}
	}
	s.addRunning("double-ma", strategy)
	s.tick("BTCUSDT", 100)

	// Admin snapshots run concurrently with fills applied on the dispatch
	// path; the race detector flags any unguarded instance state.
	done := make(chan struct{})

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for {
			select {
			case <-done:
				return
			default:
				s.engine.Statuses()
			}
		}
	}()

	for i := 0; i < 200; i++ {
		s.engine.processTradeEvent(event.New(event.TypeTrade, types.Trade{
			GatewayName: "paper", OrderID: "1", TradeID: "t" + strconv.Itoa(i),
			Symbol: "BTCUSDT", Direction: types.DirectionLong, Price: 100, Volume: 1,
		}))
	}

	close(done)
	wg.Wait()

	statuses := s.engine.Statuses()
	s.Require().Len(statuses, 1)
	s.Equal(200.0, statuses[0].Pos)
}

func (s *StrategyEngineTestSuite) TestPanicIsIsolatedPerStrategy() {
	faulty := &scriptStrategy{
		onTick: func(Context, types.Tick) { panic("boom") },
	}
	healthy := &scriptStrategy{}

	s.addRunning("faulty", faulty)
	s.addRunning("healthy", healthy)

	s.tick("BTCUSDT", 100)

	s.Len(healthy.ticks, 1)

	// The faulty strategy stays registered and keeps receiving events.
	s.tick("BTCUSDT", 101)
	s.Len(faulty.ticks, 2)
}
