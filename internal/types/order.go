package types

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/pulse-trading/pkg/errors"
)

// Direction is the trade direction of an order or position.
type Direction string

// Offset distinguishes position-opening from position-closing orders. It is
// only meaningful on markets with explicit position-side accounting; spot
// gateways report OffsetNone.
type Offset string

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// PriceType selects how an order is priced.
type PriceType string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionNet   Direction = "NET"
)

const (
	OffsetOpen  Offset = "OPEN"
	OffsetClose Offset = "CLOSE"
	OffsetNone  Offset = "NONE"
)

const (
	OrderStatusSubmitting OrderStatus = "SUBMITTING"
	OrderStatusNotTraded  OrderStatus = "NOT_TRADED"
	OrderStatusPartTraded OrderStatus = "PART_TRADED"
	OrderStatusAllTraded  OrderStatus = "ALL_TRADED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRejected   OrderStatus = "REJECTED"
)

const (
	PriceTypeLimit  PriceType = "LIMIT"
	PriceTypeMarket PriceType = "MARKET"
)

// qualifiedIDSeparator joins a gateway name and a gateway-local ID into a
// process-wide unique identifier.
const qualifiedIDSeparator = "."

// QualifiedID composes a gateway name and a gateway-local ID into an
// identifier unique across all gateways for its lifetime.
func QualifiedID(gatewayName, localID string) string {
	return gatewayName + qualifiedIDSeparator + localID
}

// SplitQualifiedID splits a qualified ID back into its gateway name and
// gateway-local ID.
func SplitQualifiedID(qualifiedID string) (gatewayName, localID string, err error) {
	idx := strings.Index(qualifiedID, qualifiedIDSeparator)
	if idx <= 0 || idx == len(qualifiedID)-1 {
		return "", "", errors.Newf(errors.ErrCodeInvalidParameter, "malformed qualified ID %q", qualifiedID)
	}

	return qualifiedID[:idx], qualifiedID[idx+1:], nil
}

// IsFinished reports whether the status is terminal. A finished order never
// receives further updates.
func (s OrderStatus) IsFinished() bool {
	switch s {
	case OrderStatusAllTraded, OrderStatusCancelled, OrderStatusRejected:
		return true
	case OrderStatusSubmitting, OrderStatusNotTraded, OrderStatusPartTraded:
		return false
	}

	return false
}

// Order is the internal representation of an exchange order. It is created on
// submission and updated in place by subsequent gateway pushes until it
// reaches a terminal status.
type Order struct {
	// GatewayName is the name of the owning gateway.
	GatewayName string `json:"gateway_name" yaml:"gateway_name"`
	// Symbol is the instrument symbol.
	Symbol string `json:"symbol" yaml:"symbol"`
	// Exchange is the exchange the order was routed to.
	Exchange string `json:"exchange" yaml:"exchange"`
	// OrderID is the gateway-local order identifier.
	OrderID string `json:"order_id" yaml:"order_id"`

	Direction Direction `json:"direction" yaml:"direction"`
	Offset    Offset    `json:"offset" yaml:"offset"`
	Price     float64   `json:"price" yaml:"price"`
	// TotalVolume is the requested volume; TradedVolume is the filled part.
	TotalVolume  float64     `json:"total_volume" yaml:"total_volume"`
	TradedVolume float64     `json:"traded_volume" yaml:"traded_volume"`
	Status       OrderStatus `json:"status" yaml:"status"`

	// OrderTime is when the order was accepted; CancelTime is when it was
	// cancelled (zero otherwise).
	OrderTime  time.Time `json:"order_time" yaml:"order_time"`
	CancelTime time.Time `json:"cancel_time" yaml:"cancel_time"`
}

// QualifiedID returns the process-wide unique identifier of the order.
func (o Order) QualifiedID() string {
	return QualifiedID(o.GatewayName, o.OrderID)
}

// IsActive reports whether the order can still trade or be cancelled.
func (o Order) IsActive() bool {
	return !o.Status.IsFinished()
}

// OrderRequest is a request to place an order through a gateway.
type OrderRequest struct {
	Symbol    string    `json:"symbol" yaml:"symbol" validate:"required"`
	Exchange  string    `json:"exchange" yaml:"exchange"`
	Direction Direction `json:"direction" yaml:"direction" validate:"required,oneof=LONG SHORT"`
	Offset    Offset    `json:"offset" yaml:"offset" validate:"required,oneof=OPEN CLOSE NONE"`
	PriceType PriceType `json:"price_type" yaml:"price_type" validate:"required,oneof=LIMIT MARKET"`
	Price     float64   `json:"price" yaml:"price" validate:"gte=0"`
	Volume    float64   `json:"volume" yaml:"volume" validate:"required,gt=0"`
	// Reference identifies the originator of the request (e.g., a strategy
	// instance name) for attribution in logs and UI.
	Reference string `json:"reference" yaml:"reference"`
}

// Validate validates the OrderRequest struct.
func (r *OrderRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrderRequest, "invalid order request", err)
	}

	if r.PriceType == PriceTypeLimit && r.Price <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPrice, "limit order requires a positive price, got %v", r.Price)
	}

	return nil
}

// CancelRequest is a request to cancel a live exchange order.
type CancelRequest struct {
	Symbol   string `json:"symbol" yaml:"symbol" validate:"required"`
	Exchange string `json:"exchange" yaml:"exchange"`
	// OrderID is the gateway-local identifier of the order to cancel.
	OrderID string `json:"order_id" yaml:"order_id" validate:"required"`
}

// Validate validates the CancelRequest struct.
func (r *CancelRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest, "invalid cancel request", err)
	}

	return nil
}

// SubscribeRequest is a request for market data on one instrument.
type SubscribeRequest struct {
	Symbol   string `json:"symbol" yaml:"symbol" validate:"required"`
	Exchange string `json:"exchange" yaml:"exchange"`
}

// Validate validates the SubscribeRequest struct.
func (r *SubscribeRequest) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidRequest, "invalid subscribe request", err)
	}

	return nil
}
