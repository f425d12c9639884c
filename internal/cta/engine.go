package cta

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/pulse-trading/internal/event"
	"github.com/rxtech-lab/pulse-trading/internal/logger"
	"github.com/rxtech-lab/pulse-trading/internal/types"
	"github.com/rxtech-lab/pulse-trading/internal/version"
	"github.com/rxtech-lab/pulse-trading/pkg/errors"
	"go.uber.org/zap"
)

// OrderRouter is the slice of the main engine the strategy engine needs:
// order routing, cancellation, subscription, and the shared event engine.
type OrderRouter interface {
	SendOrder(req types.OrderRequest, gatewayName string) (string, error)
	CancelByQualifiedID(symbol, qualifiedID string) error
	Subscribe(req types.SubscribeRequest, gatewayName string) error
	WriteLog(level types.LogLevel, message string)
	Events() *event.Engine
}

// DataStore is the persistence surface used at strategy init and sync points.
// It is never called on the tick hot path.
type DataStore interface {
	LoadBars(symbol string, interval types.BarInterval, days int) ([]types.Bar, error)
	SaveStrategySync(name string, pos float64) error
	LoadStrategySync(name string) (optional.Option[float64], error)
}

// Status is the UI-facing snapshot published whenever a strategy instance's
// state changes.
type Status struct {
	Name    string  `json:"name"`
	Symbol  string  `json:"symbol"`
	Inited  bool    `json:"inited"`
	Trading bool    `json:"trading"`
	Pos     float64 `json:"pos"`
}

// StrategyEngine owns strategy instances and is the sole router of events to
// them and of their order intents to gateways. All strategy callbacks run on
// the event engine's dispatch goroutine; the engine's maps and each instance's
// lifecycle state carry their own mutexes only because the administrative API
// (add/init/start/stop/statuses) may be called from other goroutines.
type StrategyEngine struct {
	router      OrderRouter
	store       DataStore
	log         *logger.Logger
	engineType  EngineType
	gatewayName string

	mu           sync.Mutex
	strategies   map[string]*instance
	symbolIndex  map[string][]*instance
	orderIndex   map[string]*instance
	stopOrders   map[string]*StopOrder
	stopOrderIDs []string
	stopCount    int64
	ocoCount     int64

	tickHandler  *event.HandlerFunc
	orderHandler *event.HandlerFunc
	tradeHandler *event.HandlerFunc
}

// NewStrategyEngine creates a strategy engine routing orders through the
// given gateway. store may be nil when no persistence is configured.
func NewStrategyEngine(router OrderRouter, store DataStore, engineType EngineType, gatewayName string, log *logger.Logger) *StrategyEngine {
	e := &StrategyEngine{
		router:      router,
		store:       store,
		log:         log,
		engineType:  engineType,
		gatewayName: gatewayName,
		strategies:  make(map[string]*instance),
		symbolIndex: make(map[string][]*instance),
		orderIndex:  make(map[string]*instance),
		stopOrders:  make(map[string]*StopOrder),
	}

	e.tickHandler = event.NewHandlerFunc("cta-ticks", e.processTickEvent)
	e.orderHandler = event.NewHandlerFunc("cta-orders", e.processOrderEvent)
	e.tradeHandler = event.NewHandlerFunc("cta-trades", e.processTradeEvent)

	return e
}

// Start subscribes the engine to the event stream.
func (e *StrategyEngine) Start() {
	events := e.router.Events()
	events.Register(event.TypeTick, e.tickHandler)
	events.Register(event.TypeOrder, e.orderHandler)
	events.Register(event.TypeTrade, e.tradeHandler)
}

// Stop stops every trading strategy and detaches from the event stream.
func (e *StrategyEngine) Stop() {
	e.StopAll()

	events := e.router.Events()
	events.Unregister(event.TypeTick, e.tickHandler)
	events.Unregister(event.TypeOrder, e.orderHandler)
	events.Unregister(event.TypeTrade, e.tradeHandler)
}

// EngineType reports the running environment.
func (e *StrategyEngine) EngineType() EngineType {
	return e.engineType
}

// AddStrategy registers a strategy instance under a unique name and
// subscribes market data for its symbol. A strategy declaring an API version
// is rejected when that version is incompatible with this build.
func (e *StrategyEngine) AddStrategy(name, symbol string, strategy Strategy) error {
	if name == "" || symbol == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "strategy name and symbol are required")
	}

	if v, ok := strategy.(Versioned); ok {
		if err := version.CheckStrategyCompatibility(version.GetVersion(), v.APIVersion()); err != nil {
			return err
		}
	}

	inst := &instance{
		engine:       e,
		name:         name,
		symbol:       symbol,
		strategy:     strategy,
		activeOrders: make(map[string]struct{}),
	}

	e.mu.Lock()
	if _, exists := e.strategies[name]; exists {
		e.mu.Unlock()

		return errors.Newf(errors.ErrCodeDuplicateStrategy, "strategy %s already added", name)
	}

	e.strategies[name] = inst
	e.symbolIndex[symbol] = append(e.symbolIndex[symbol], inst)
	e.mu.Unlock()

	if err := e.router.Subscribe(types.SubscribeRequest{Symbol: symbol}, e.gatewayName); err != nil {
		e.log.Warn("market data subscription failed",
			zap.String("strategy", name),
			zap.String("symbol", symbol),
			zap.Error(err),
		)
	}

	return nil
}

// InitStrategy runs a strategy's one-time initialization: persisted position
// is restored first, then OnInit replays history, then the inited flag flips.
func (e *StrategyEngine) InitStrategy(name string) error {
	inst, err := e.strategy(name)
	if err != nil {
		return err
	}

	if inst.Inited() {
		return nil
	}

	if e.store != nil {
		if pos, err := e.store.LoadStrategySync(name); err != nil {
			e.log.Warn("failed to load strategy sync data", zap.String("strategy", name), zap.Error(err))
		} else if pos.IsSome() {
			inst.setPos(pos.Unwrap())
		}
	}

	e.safeCall(inst, "OnInit", func() { inst.strategy.OnInit(inst) })
	inst.setInited()
	e.publishStatus(inst)

	return nil
}

// StartStrategy switches a strategy's order intents live.
func (e *StrategyEngine) StartStrategy(name string) error {
	inst, err := e.strategy(name)
	if err != nil {
		return err
	}

	if !inst.Inited() {
		return errors.Newf(errors.ErrCodeStrategyNotInited, "strategy %s is not initialized", name)
	}

	if inst.Trading() {
		return nil
	}

	inst.setTrading(true)
	e.safeCall(inst, "OnStart", func() { inst.strategy.OnStart(inst) })
	e.publishStatus(inst)

	return nil
}

// StopStrategy switches order intents off and cancels everything the
// strategy has outstanding. A stopped strategy can be started again without
// re-initialization.
func (e *StrategyEngine) StopStrategy(name string) error {
	inst, err := e.strategy(name)
	if err != nil {
		return err
	}

	if !inst.Trading() {
		return nil
	}

	inst.setTrading(false)
	e.safeCall(inst, "OnStop", func() { inst.strategy.OnStop(inst) })
	e.cancelAll(inst)
	e.publishStatus(inst)

	return nil
}

// InitAll initializes every registered strategy.
func (e *StrategyEngine) InitAll() {
	for _, name := range e.strategyNames() {
		if err := e.InitStrategy(name); err != nil {
			e.log.Error("strategy init failed", zap.String("strategy", name), zap.Error(err))
		}
	}
}

// StartAll starts every initialized strategy.
func (e *StrategyEngine) StartAll() {
	for _, name := range e.strategyNames() {
		if err := e.StartStrategy(name); err != nil {
			e.log.Error("strategy start failed", zap.String("strategy", name), zap.Error(err))
		}
	}
}

// StopAll stops every trading strategy.
func (e *StrategyEngine) StopAll() {
	for _, name := range e.strategyNames() {
		if err := e.StopStrategy(name); err != nil {
			e.log.Error("strategy stop failed", zap.String("strategy", name), zap.Error(err))
		}
	}
}

// Statuses returns a snapshot of every registered strategy.
func (e *StrategyEngine) Statuses() []Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	statuses := make([]Status, 0, len(e.strategies))
	for _, inst := range e.strategies {
		statuses = append(statuses, inst.status())
	}

	return statuses
}

func (e *StrategyEngine) strategy(name string) (*instance, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	inst, ok := e.strategies[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", name)
	}

	return inst, nil
}

func (e *StrategyEngine) strategyNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.strategies))
	for name := range e.strategies {
		names = append(names, name)
	}

	return names
}

// sendOrder forwards one intent as a real order and records ownership.
// Routing failures surface as log events; the intent then yields no IDs.
func (e *StrategyEngine) sendOrder(inst *instance, orderType OrderType, price, volume float64) []string {
	direction, offset := orderType.DirectionOffset()

	req := types.OrderRequest{
		Symbol:    inst.symbol,
		Direction: direction,
		Offset:    offset,
		PriceType: types.PriceTypeLimit,
		Price:     price,
		Volume:    volume,
		Reference: inst.name,
	}

	qualifiedID, err := e.router.SendOrder(req, e.gatewayName)
	if err != nil {
		e.log.Error("order intent failed",
			zap.String("strategy", inst.name),
			zap.String("order_type", string(orderType)),
			zap.Error(err),
		)

		return nil
	}

	e.mu.Lock()
	e.orderIndex[qualifiedID] = inst
	inst.activeOrders[qualifiedID] = struct{}{}
	e.mu.Unlock()

	return []string{qualifiedID}
}

// sendStopOrder registers one intent as a local stop order in the Waiting
// state. The owning strategy is notified immediately.
func (e *StrategyEngine) sendStopOrder(inst *instance, orderType OrderType, price, volume float64) []string {
	direction, offset := orderType.DirectionOffset()

	e.mu.Lock()
	e.stopCount++
	stopOrderID := StopOrderPrefix + strconv.FormatInt(e.stopCount, 10)

	so := &StopOrder{
		Symbol:       inst.symbol,
		OrderType:    orderType,
		Direction:    direction,
		Offset:       offset,
		Price:        price,
		Volume:       volume,
		StrategyName: inst.name,
		StopOrderID:  stopOrderID,
		Status:       StopOrderStatusWaiting,
	}
	e.stopOrders[stopOrderID] = so
	e.stopOrderIDs = append(e.stopOrderIDs, stopOrderID)
	e.mu.Unlock()

	e.notifyStopOrder(inst, *so)

	return []string{stopOrderID}
}

// cancelOrder cancels one order by ID, dispatching on the ID's prefix.
func (e *StrategyEngine) cancelOrder(inst *instance, orderID string) {
	if orderID == "" {
		return
	}

	if IsStopOrderID(orderID) {
		e.cancelStopOrder(orderID)

		return
	}

	if err := e.router.CancelByQualifiedID(inst.symbol, orderID); err != nil {
		e.log.Warn("cancel failed",
			zap.String("strategy", inst.name),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

// cancelStopOrder cancels a waiting stop order. Once cancelled it can never
// emit an order, regardless of later ticks.
func (e *StrategyEngine) cancelStopOrder(stopOrderID string) {
	e.mu.Lock()

	so, ok := e.stopOrders[stopOrderID]
	if !ok {
		e.mu.Unlock()

		return
	}

	so.Status = StopOrderStatusCancelled
	e.removeStopOrderLocked(stopOrderID)
	inst := e.strategies[so.StrategyName]
	snapshot := *so
	e.mu.Unlock()

	if inst != nil {
		e.notifyStopOrder(inst, snapshot)
	}
}

// cancelAll cancels every outstanding exchange order and stop order owned by
// the instance.
func (e *StrategyEngine) cancelAll(inst *instance) {
	e.mu.Lock()
	orderIDs := make([]string, 0, len(inst.activeOrders))

	for id := range inst.activeOrders {
		orderIDs = append(orderIDs, id)
	}

	stopIDs := make([]string, 0)

	for _, id := range e.stopOrderIDs {
		if e.stopOrders[id].StrategyName == inst.name {
			stopIDs = append(stopIDs, id)
		}
	}
	e.mu.Unlock()

	for _, id := range orderIDs {
		e.cancelOrder(inst, id)
	}

	for _, id := range stopIDs {
		e.cancelStopOrder(id)
	}
}

// linkOCO assigns the given waiting stop orders to one fresh OCO group.
func (e *StrategyEngine) linkOCO(stopOrderIDs []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ocoCount++
	group := "OCO-" + strconv.FormatInt(e.ocoCount, 10)

	for _, id := range stopOrderIDs {
		if so, ok := e.stopOrders[id]; ok {
			so.OCOGroup = group
		}
	}
}

func (e *StrategyEngine) processTickEvent(ev event.Event) {
	tick, ok := ev.Data.(types.Tick)
	if !ok {
		return
	}

	e.checkStopOrders(tick)

	e.mu.Lock()
	insts := make([]*instance, len(e.symbolIndex[tick.Symbol]))
	copy(insts, e.symbolIndex[tick.Symbol])
	e.mu.Unlock()

	for _, inst := range insts {
		if inst.Inited() {
			e.safeCall(inst, "OnTick", func() { inst.strategy.OnTick(inst, tick) })
		}
	}
}

func (e *StrategyEngine) processOrderEvent(ev event.Event) {
	order, ok := ev.Data.(types.Order)
	if !ok {
		return
	}

	qualifiedID := order.QualifiedID()

	e.mu.Lock()
	inst := e.orderIndex[qualifiedID]
	if inst != nil && order.Status.IsFinished() {
		delete(inst.activeOrders, qualifiedID)
	}
	e.mu.Unlock()

	if inst == nil {
		return
	}

	e.safeCall(inst, "OnOrder", func() { inst.strategy.OnOrder(inst, order) })
}

func (e *StrategyEngine) processTradeEvent(ev event.Event) {
	trade, ok := ev.Data.(types.Trade)
	if !ok {
		return
	}

	e.mu.Lock()
	inst := e.orderIndex[trade.QualifiedOrderID()]
	e.mu.Unlock()

	if inst == nil {
		return
	}

	pos := inst.applyFill(trade.PositionChange())

	if e.store != nil {
		if err := e.store.SaveStrategySync(inst.name, pos); err != nil {
			e.log.Warn("failed to save strategy sync data", zap.String("strategy", inst.name), zap.Error(err))
		}
	}

	e.safeCall(inst, "OnTrade", func() { inst.strategy.OnTrade(inst, trade) })
	e.publishStatus(inst)
}

// checkStopOrders triggers every waiting stop order crossed by the tick. OCO
// siblings of a triggering stop are cancelled before its real order is
// forwarded; since triggering runs on the single dispatch goroutine, two legs
// of one group can never both fire.
func (e *StrategyEngine) checkStopOrders(tick types.Tick) {
	e.mu.Lock()
	candidates := make([]string, 0)

	for _, id := range e.stopOrderIDs {
		so := e.stopOrders[id]
		if so.Symbol == tick.Symbol && so.triggered(tick) {
			candidates = append(candidates, id)
		}
	}
	e.mu.Unlock()

	for _, id := range candidates {
		e.triggerStopOrder(id)
	}
}

func (e *StrategyEngine) triggerStopOrder(stopOrderID string) {
	e.mu.Lock()

	so, ok := e.stopOrders[stopOrderID]
	if !ok {
		// Cancelled meanwhile, possibly by an OCO sibling earlier in the
		// same tick.
		e.mu.Unlock()

		return
	}

	so.Status = StopOrderStatusTriggered
	e.removeStopOrderLocked(stopOrderID)

	var siblings []string

	if so.OCOGroup != "" {
		for _, id := range e.stopOrderIDs {
			if e.stopOrders[id].OCOGroup == so.OCOGroup {
				siblings = append(siblings, id)
			}
		}
	}

	inst := e.strategies[so.StrategyName]
	snapshot := *so
	e.mu.Unlock()

	for _, id := range siblings {
		e.cancelStopOrder(id)
	}

	if inst == nil {
		return
	}

	e.sendOrder(inst, snapshot.OrderType, snapshot.Price, snapshot.Volume)
	e.notifyStopOrder(inst, snapshot)
}

func (e *StrategyEngine) removeStopOrderLocked(stopOrderID string) {
	delete(e.stopOrders, stopOrderID)

	for i, id := range e.stopOrderIDs {
		if id == stopOrderID {
			e.stopOrderIDs = append(e.stopOrderIDs[:i], e.stopOrderIDs[i+1:]...)

			break
		}
	}
}

func (e *StrategyEngine) notifyStopOrder(inst *instance, so StopOrder) {
	e.safeCall(inst, "OnStopOrder", func() { inst.strategy.OnStopOrder(inst, so) })
	e.router.Events().Put(event.New(event.TypeStopOrder, so))
}

func (e *StrategyEngine) publishStatus(inst *instance) {
	e.router.Events().Put(event.New(event.TypeStrategy, inst.status()))
}

// safeCall invokes one strategy callback, isolating panics so a faulty
// strategy is left in its last-known state while the rest keep running.
func (e *StrategyEngine) safeCall(inst *instance, callback string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("strategy callback panicked",
				zap.String("strategy", inst.name),
				zap.String("callback", callback),
				zap.Any("panic", r),
			)
			e.router.WriteLog(types.LogLevelError,
				fmt.Sprintf("strategy %s panicked in %s: %v", inst.name, callback, r))
		}
	}()

	fn()
}

// instance binds one Strategy to its engine-managed state and implements the
// Context the strategy acts through. The lifecycle flags and position are
// written on the dispatch goroutine but read by the administrative API from
// other goroutines, so they sit behind the instance's own mutex.
type instance struct {
	engine   *StrategyEngine
	name     string
	symbol   string
	strategy Strategy

	mu      sync.Mutex
	inited  bool
	trading bool
	pos     float64

	activeOrders map[string]struct{}
}

func (i *instance) status() Status {
	i.mu.Lock()
	defer i.mu.Unlock()

	return Status{
		Name:    i.name,
		Symbol:  i.symbol,
		Inited:  i.inited,
		Trading: i.trading,
		Pos:     i.pos,
	}
}

func (i *instance) setInited() {
	i.mu.Lock()
	i.inited = true
	i.mu.Unlock()
}

func (i *instance) setTrading(trading bool) {
	i.mu.Lock()
	i.trading = trading
	i.mu.Unlock()
}

func (i *instance) setPos(pos float64) {
	i.mu.Lock()
	i.pos = pos
	i.mu.Unlock()
}

// applyFill adjusts the position by a signed fill and returns the new value.
func (i *instance) applyFill(change float64) float64 {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.pos += change

	return i.pos
}

// Name implements Context.
func (i *instance) Name() string { return i.name }

// Symbol implements Context.
func (i *instance) Symbol() string { return i.symbol }

// Pos implements Context.
func (i *instance) Pos() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.pos
}

// Inited implements Context.
func (i *instance) Inited() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.inited
}

// Trading implements Context.
func (i *instance) Trading() bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	return i.trading
}

// EngineType implements Context.
func (i *instance) EngineType() EngineType { return i.engine.engineType }

// Buy implements Context.
func (i *instance) Buy(price, volume float64, stop bool) []string {
	return i.sendIntent(OrderTypeBuy, price, volume, stop)
}

// Sell implements Context.
func (i *instance) Sell(price, volume float64, stop bool) []string {
	return i.sendIntent(OrderTypeSell, price, volume, stop)
}

// Short implements Context.
func (i *instance) Short(price, volume float64, stop bool) []string {
	return i.sendIntent(OrderTypeShort, price, volume, stop)
}

// Cover implements Context.
func (i *instance) Cover(price, volume float64, stop bool) []string {
	return i.sendIntent(OrderTypeCover, price, volume, stop)
}

func (i *instance) sendIntent(orderType OrderType, price, volume float64, stop bool) []string {
	if !i.Trading() {
		return nil
	}

	if stop {
		return i.engine.sendStopOrder(i, orderType, price, volume)
	}

	return i.engine.sendOrder(i, orderType, price, volume)
}

// CancelOrder implements Context.
func (i *instance) CancelOrder(orderID string) {
	i.engine.cancelOrder(i, orderID)
}

// CancelAll implements Context.
func (i *instance) CancelAll() {
	i.engine.cancelAll(i)
}

// LinkOCO implements Context.
func (i *instance) LinkOCO(stopOrderIDs ...string) {
	i.engine.linkOCO(stopOrderIDs)
}

// LoadBars implements Context.
func (i *instance) LoadBars(days int) []types.Bar {
	if i.engine.store == nil {
		return nil
	}

	bars, err := i.engine.store.LoadBars(i.symbol, types.BarIntervalMinute, days)
	if err != nil {
		i.engine.log.Warn("failed to load bars",
			zap.String("strategy", i.name),
			zap.String("symbol", i.symbol),
			zap.Error(err),
		)

		return nil
	}

	return bars
}

// WriteLog implements Context.
func (i *instance) WriteLog(message string) {
	i.engine.router.WriteLog(types.LogLevelInfo, i.name+": "+message)
}

// NotifyChange implements Context.
func (i *instance) NotifyChange() {
	i.engine.publishStatus(i)
}
