// Package gateway defines the exchange adapter contract and the event
// publication helpers shared by all adapters. A gateway turns vendor pushes
// into events on the process-wide event engine and turns order/cancel requests
// into vendor API calls. All adapter state is owned by the gateway instance;
// nothing is shared at package scope.
package gateway

import (
	"context"
	"time"

	"github.com/rxtech-lab/pulse-trading/internal/event"
	"github.com/rxtech-lab/pulse-trading/internal/types"
)

// Gateway is the per-exchange connectivity adapter.
type Gateway interface {
	// Name returns the unique gateway name used to qualify order IDs.
	Name() string
	// Connect establishes connectivity to the exchange. Configuration errors
	// are detected here and reported once.
	Connect(ctx context.Context) error
	// Subscribe requests market data for one instrument.
	Subscribe(req types.SubscribeRequest) error
	// SendOrder submits an order and returns its gateway-qualified ID.
	SendOrder(req types.OrderRequest) (string, error)
	// CancelOrder requests cancellation of a live order.
	CancelOrder(req types.CancelRequest) error
	// QueryAccount requests a fresh account snapshot; the result arrives as
	// an account event.
	QueryAccount(ctx context.Context) error
	// Close tears the connection down.
	Close() error
}

// BaseGateway provides the event publication half of the adapter contract.
// Concrete gateways embed it and call the On* methods for every vendor push.
type BaseGateway struct {
	name   string
	events *event.Engine
}

// NewBaseGateway creates the shared adapter core.
func NewBaseGateway(name string, events *event.Engine) BaseGateway {
	return BaseGateway{
		name:   name,
		events: events,
	}
}

// Name returns the gateway name.
func (g *BaseGateway) Name() string {
	return g.name
}

// OnTick publishes a market data snapshot, both unscoped and scoped to the
// tick's symbol. The tick is passed by value: each publication is an
// independent immutable copy, so consumers may retain it without copying.
func (g *BaseGateway) OnTick(tick types.Tick) {
	tick.GatewayName = g.name
	g.events.Put(event.New(event.TypeTick, tick))
	g.events.Put(event.New(event.TypeTick.Scoped(tick.Symbol), tick))
}

// OnOrder publishes an order update, both unscoped and scoped to the order's
// qualified ID.
func (g *BaseGateway) OnOrder(order types.Order) {
	order.GatewayName = g.name
	g.events.Put(event.New(event.TypeOrder, order))
	g.events.Put(event.New(event.TypeOrder.Scoped(order.QualifiedID()), order))
}

// OnTrade publishes a fill.
func (g *BaseGateway) OnTrade(trade types.Trade) {
	trade.GatewayName = g.name
	g.events.Put(event.New(event.TypeTrade, trade))
}

// OnAccount publishes an account snapshot.
func (g *BaseGateway) OnAccount(account types.Account) {
	account.GatewayName = g.name
	g.events.Put(event.New(event.TypeAccount, account))
}

// OnPosition publishes a position snapshot.
func (g *BaseGateway) OnPosition(position types.Position) {
	position.GatewayName = g.name
	g.events.Put(event.New(event.TypePosition, position))
}

// OnContract publishes an instrument definition.
func (g *BaseGateway) OnContract(contract types.Contract) {
	contract.GatewayName = g.name
	g.events.Put(event.New(event.TypeContract, contract))
}

// WriteLog publishes a log entry attributed to this gateway.
func (g *BaseGateway) WriteLog(level types.LogLevel, message string) {
	g.events.Put(event.New(event.TypeLog, types.LogEntry{
		GatewayName: g.name,
		Time:        time.Now(),
		Level:       level,
		Message:     message,
	}))
}

// OnError publishes a recoverable error. Errors are never fatal to the core;
// the gateway retries or reconnects on its own.
func (g *BaseGateway) OnError(code, message string) {
	g.events.Put(event.New(event.TypeError, types.ErrorEntry{
		GatewayName: g.name,
		Time:        time.Now(),
		Code:        code,
		Message:     message,
	}))
}
