package types

import "time"

// Trade is an immutable fill record referencing its originating order.
type Trade struct {
	// GatewayName is the name of the gateway that reported the fill.
	GatewayName string `json:"gateway_name" yaml:"gateway_name"`
	// Symbol is the instrument symbol.
	Symbol string `json:"symbol" yaml:"symbol"`
	// Exchange is the exchange the fill happened on.
	Exchange string `json:"exchange" yaml:"exchange"`
	// TradeID is the gateway-local fill identifier.
	TradeID string `json:"trade_id" yaml:"trade_id"`
	// OrderID is the gateway-local identifier of the originating order.
	OrderID string `json:"order_id" yaml:"order_id"`

	Direction Direction `json:"direction" yaml:"direction"`
	Offset    Offset    `json:"offset" yaml:"offset"`
	Price     float64   `json:"price" yaml:"price"`
	Volume    float64   `json:"volume" yaml:"volume"`
	// TradeTime is the exchange timestamp of the fill.
	TradeTime time.Time `json:"trade_time" yaml:"trade_time"`
}

// QualifiedID returns the process-wide unique identifier of the trade.
func (t Trade) QualifiedID() string {
	return QualifiedID(t.GatewayName, t.TradeID)
}

// QualifiedOrderID returns the qualified identifier of the originating order.
func (t Trade) QualifiedOrderID() string {
	return QualifiedID(t.GatewayName, t.OrderID)
}

// PositionChange returns the signed position delta this fill applies to the
// holder: positive for long fills, negative for short fills.
func (t Trade) PositionChange() float64 {
	if t.Direction == DirectionShort {
		return -t.Volume
	}

	return t.Volume
}
