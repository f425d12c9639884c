package types

import "time"

// Account is a snapshot of a trading account's funds as reported by a gateway.
type Account struct {
	// GatewayName is the name of the reporting gateway.
	GatewayName string `json:"gateway_name" yaml:"gateway_name"`
	// AccountID is the gateway-local account identifier.
	AccountID string `json:"account_id" yaml:"account_id"`
	// Balance is the total account balance.
	Balance float64 `json:"balance" yaml:"balance"`
	// Frozen is the part of the balance locked by open orders.
	Frozen float64 `json:"frozen" yaml:"frozen"`
	// Available is the balance available for new orders.
	Available float64 `json:"available" yaml:"available"`
}

// QualifiedID returns the process-wide unique identifier of the account.
func (a Account) QualifiedID() string {
	return QualifiedID(a.GatewayName, a.AccountID)
}

// Position is a snapshot of a held position for one instrument and direction.
type Position struct {
	// GatewayName is the name of the reporting gateway.
	GatewayName string `json:"gateway_name" yaml:"gateway_name"`
	// Symbol is the instrument symbol.
	Symbol string `json:"symbol" yaml:"symbol"`
	// Exchange is the exchange the position is held on.
	Exchange string `json:"exchange" yaml:"exchange"`
	// Direction is the side of the position.
	Direction Direction `json:"direction" yaml:"direction"`
	// Volume is the held quantity; Frozen is the part locked by closing orders.
	Volume float64 `json:"volume" yaml:"volume"`
	Frozen float64 `json:"frozen" yaml:"frozen"`
	// AveragePrice is the volume-weighted entry price.
	AveragePrice float64 `json:"average_price" yaml:"average_price"`
}

// LogLevel is the severity of a log entry flowing through the event stream.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry is a log record published as an event for the UI log monitor.
type LogEntry struct {
	// GatewayName identifies the producer; empty for core components.
	GatewayName string `json:"gateway_name" yaml:"gateway_name"`
	// Time is when the entry was created.
	Time time.Time `json:"time" yaml:"time"`
	// Level is the severity of the entry.
	Level LogLevel `json:"level" yaml:"level"`
	// Message is the log content.
	Message string `json:"message" yaml:"message"`
}

// ErrorEntry is a recoverable error surfaced through the event stream. Errors
// are informational to the core; gateways retry or reconnect on their own.
type ErrorEntry struct {
	// GatewayName identifies the producer; empty for core components.
	GatewayName string `json:"gateway_name" yaml:"gateway_name"`
	// Time is when the error occurred.
	Time time.Time `json:"time" yaml:"time"`
	// Code is a vendor or internal error code.
	Code string `json:"code" yaml:"code"`
	// Message describes the error.
	Message string `json:"message" yaml:"message"`
}
