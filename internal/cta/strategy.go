// Package cta implements the strategy engine: it drives strategy instances
// through their lifecycle, routes market and order events to them, turns
// their trading intents into gateway order requests, and simulates local stop
// orders on top of live ticks.
package cta

import "github.com/rxtech-lab/pulse-trading/internal/types"

// EngineType distinguishes live trading from backtesting. Some order policies
// differ between the two: a backtest fills immediately and enforces no
// position limits, so reversals can be merged into a single order.
type EngineType string

const (
	EngineTypeLive     EngineType = "live"
	EngineTypeBacktest EngineType = "backtest"
)

// OrderType is one of the four canonical trading intents.
type OrderType string

const (
	// OrderTypeBuy opens a long position.
	OrderTypeBuy OrderType = "BUY"
	// OrderTypeSell closes a long position.
	OrderTypeSell OrderType = "SELL"
	// OrderTypeShort opens a short position.
	OrderTypeShort OrderType = "SHORT"
	// OrderTypeCover closes a short position.
	OrderTypeCover OrderType = "COVER"
)

// DirectionOffset maps the intent onto the exchange-facing direction/offset
// pair.
func (t OrderType) DirectionOffset() (types.Direction, types.Offset) {
	switch t {
	case OrderTypeBuy:
		return types.DirectionLong, types.OffsetOpen
	case OrderTypeSell:
		return types.DirectionShort, types.OffsetClose
	case OrderTypeShort:
		return types.DirectionShort, types.OffsetOpen
	case OrderTypeCover:
		return types.DirectionLong, types.OffsetClose
	}

	return types.DirectionNet, types.OffsetNone
}

// Strategy is the capability interface a trading algorithm implements. The
// engine invokes every callback on its single event-dispatch goroutine, so
// strategy state needs no locking as long as all mutation happens inside
// callbacks. Callbacks must be safe to call in any state and are expected to
// be economically inert before the instance is initialized.
type Strategy interface {
	// OnInit runs once, before trading; typically replays historical bars
	// through OnBar to warm up indicators.
	OnInit(ctx Context)
	// OnStart is invoked when trading is switched on.
	OnStart(ctx Context)
	// OnStop is invoked when trading is switched off.
	OnStop(ctx Context)
	// OnTick receives market data snapshots for the strategy's symbol.
	OnTick(ctx Context, tick types.Tick)
	// OnBar receives aggregated bars.
	OnBar(ctx Context, bar types.Bar)
	// OnOrder receives status updates for orders this strategy placed.
	// Rejections arrive here as terminal statuses; they are informational,
	// not exceptional.
	OnOrder(ctx Context, order types.Order)
	// OnTrade receives fills attributed to this strategy's orders. The
	// engine has already applied the fill to the strategy position.
	OnTrade(ctx Context, trade types.Trade)
	// OnStopOrder receives local stop-order state changes.
	OnStopOrder(ctx Context, stopOrder StopOrder)
}

// Versioned is implemented by strategies that declare the engine API version
// they were built against. The engine refuses to register a strategy whose
// declared version is incompatible with the running build; strategies that do
// not implement it are assumed to be built in-tree.
type Versioned interface {
	APIVersion() string
}

// Context is the engine-facing handle a strategy uses to act. Order-intent
// calls return the IDs of the orders they produced; while the instance is not
// trading they are no-ops returning an empty list, so strategy logic need not
// special-case the stopped state.
type Context interface {
	// Name returns the strategy instance name, unique within the engine.
	Name() string
	// Symbol returns the instrument this instance trades.
	Symbol() string
	// Pos returns the running position. It is mutated only by fills
	// attributed to this strategy's orders.
	Pos() float64
	// Inited reports whether OnInit has completed.
	Inited() bool
	// Trading reports whether order intents are live.
	Trading() bool
	// EngineType reports the running environment.
	EngineType() EngineType

	// Buy opens long, Sell closes long, Short opens short, Cover closes
	// short. With stop=true the intent is registered as a local stop order
	// and only forwarded as a real order once triggered.
	Buy(price, volume float64, stop bool) []string
	Sell(price, volume float64, stop bool) []string
	Short(price, volume float64, stop bool) []string
	Cover(price, volume float64, stop bool) []string

	// CancelOrder cancels one order by ID; the ID's textual prefix decides
	// whether a local stop order or a live exchange order is cancelled.
	CancelOrder(orderID string)
	// CancelAll cancels every outstanding order and stop order of this
	// instance.
	CancelAll()
	// LinkOCO groups waiting stop orders so that triggering any one of them
	// cancels the others before its real order is forwarded.
	LinkOCO(stopOrderIDs ...string)

	// LoadBars loads warm-up history for the instance symbol, oldest first.
	LoadBars(days int) []types.Bar
	// WriteLog publishes a log entry attributed to this instance.
	WriteLog(message string)
	// NotifyChange publishes a strategy-state-changed event for UI
	// consumers.
	NotifyChange()
}
