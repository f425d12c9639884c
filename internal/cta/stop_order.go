package cta

import (
	"strings"

	"github.com/rxtech-lab/pulse-trading/internal/types"
)

// StopOrderPrefix prefixes every locally generated stop-order ID. Exchange
// order IDs are qualified as "<gateway>.<id>" and no gateway is registered
// under this name, so the two ID spaces stay textually disjoint forever.
const StopOrderPrefix = "CtaStopOrder."

// StopOrderStatus is the lifecycle state of a local stop order.
type StopOrderStatus string

const (
	// StopOrderStatusWaiting means the stop is armed and watching ticks.
	StopOrderStatusWaiting StopOrderStatus = "WAITING"
	// StopOrderStatusCancelled is terminal; no order was or will be emitted.
	StopOrderStatusCancelled StopOrderStatus = "CANCELLED"
	// StopOrderStatusTriggered is terminal; exactly one real order was
	// forwarded.
	StopOrderStatusTriggered StopOrderStatus = "TRIGGERED"
)

// StopOrder is a software-simulated stop order. It exists only inside the
// strategy engine: the exchange never sees it until it triggers.
type StopOrder struct {
	// Symbol is the watched instrument.
	Symbol string
	// OrderType is the intent forwarded on trigger.
	OrderType OrderType
	// Direction and Offset mirror OrderType for display purposes.
	Direction types.Direction
	Offset    types.Offset
	// Price is the trigger level.
	Price float64
	// Volume is the quantity of the forwarded order.
	Volume float64
	// StrategyName identifies the owning strategy instance.
	StrategyName string
	// StopOrderID is the locally generated identifier, always carrying
	// StopOrderPrefix.
	StopOrderID string
	// Status is the current lifecycle state.
	Status StopOrderStatus
	// OCOGroup links stops that cancel each other; empty means unlinked.
	OCOGroup string
}

// IsStopOrderID reports whether an order ID denotes a local stop order rather
// than a live exchange order.
func IsStopOrderID(orderID string) bool {
	return strings.HasPrefix(orderID, StopOrderPrefix)
}

// triggered reports whether a tick crosses the stop's trigger level. Buy and
// cover stops trigger at or above the level, sell and short stops at or
// below.
func (s *StopOrder) triggered(tick types.Tick) bool {
	switch s.OrderType {
	case OrderTypeBuy, OrderTypeCover:
		return tick.LastPrice >= s.Price
	case OrderTypeSell, OrderTypeShort:
		return tick.LastPrice <= s.Price
	}

	return false
}
