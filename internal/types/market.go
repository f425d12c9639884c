package types

import "time"

// MarketDepthLevels is the number of bid/ask levels carried on a tick snapshot.
const MarketDepthLevels = 5

// Tick is a point-in-time market data snapshot for one instrument.
// A Tick is published by value and must never be mutated after publication;
// gateways construct a fresh Tick per update so consumers may retain them
// without copying.
type Tick struct {
	// GatewayName is the name of the gateway that produced this tick.
	GatewayName string `json:"gateway_name" yaml:"gateway_name"`
	// Symbol is the instrument symbol (e.g., "BTCUSDT").
	Symbol string `json:"symbol" yaml:"symbol"`
	// Exchange is the exchange the instrument trades on.
	Exchange string `json:"exchange" yaml:"exchange"`
	// Timestamp is the exchange timestamp of the snapshot.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	// LastPrice is the price of the most recent trade.
	LastPrice float64 `json:"last_price" yaml:"last_price"`
	// LastVolume is the volume of the most recent trade.
	LastVolume float64 `json:"last_volume" yaml:"last_volume"`
	// Volume is the cumulative traded volume for the day.
	Volume float64 `json:"volume" yaml:"volume"`

	// OpenPrice, HighPrice and LowPrice are the day's session values.
	OpenPrice float64 `json:"open_price" yaml:"open_price"`
	HighPrice float64 `json:"high_price" yaml:"high_price"`
	LowPrice  float64 `json:"low_price" yaml:"low_price"`

	// UpperLimit and LowerLimit are the price-limit band when the exchange
	// enforces one; zero means no bound is known.
	UpperLimit float64 `json:"upper_limit" yaml:"upper_limit"`
	LowerLimit float64 `json:"lower_limit" yaml:"lower_limit"`

	// BidPrices/BidVolumes and AskPrices/AskVolumes are the top depth levels,
	// best price first. Unpopulated levels are zero.
	BidPrices  [MarketDepthLevels]float64 `json:"bid_prices" yaml:"bid_prices"`
	BidVolumes [MarketDepthLevels]float64 `json:"bid_volumes" yaml:"bid_volumes"`
	AskPrices  [MarketDepthLevels]float64 `json:"ask_prices" yaml:"ask_prices"`
	AskVolumes [MarketDepthLevels]float64 `json:"ask_volumes" yaml:"ask_volumes"`
}

// BestBid returns the best bid price, falling back to the last price when no
// depth is populated.
func (t Tick) BestBid() float64 {
	if t.BidPrices[0] > 0 {
		return t.BidPrices[0]
	}

	return t.LastPrice
}

// BestAsk returns the best ask price, falling back to the last price when no
// depth is populated.
func (t Tick) BestAsk() float64 {
	if t.AskPrices[0] > 0 {
		return t.AskPrices[0]
	}

	return t.LastPrice
}

// BarInterval identifies the aggregation window of a bar.
type BarInterval string

const (
	BarIntervalMinute BarInterval = "1m"
	BarIntervalHour   BarInterval = "1h"
	BarIntervalDaily  BarInterval = "1d"
)

// Bar is an OHLCV aggregate over a fixed time window, derived from ticks.
type Bar struct {
	// GatewayName is the name of the gateway that produced the source ticks.
	GatewayName string `json:"gateway_name" yaml:"gateway_name"`
	// Symbol is the instrument symbol.
	Symbol string `json:"symbol" yaml:"symbol"`
	// Exchange is the exchange the instrument trades on.
	Exchange string `json:"exchange" yaml:"exchange"`
	// Interval is the aggregation window of the bar.
	Interval BarInterval `json:"interval" yaml:"interval"`
	// Timestamp is the opening time of the bar window.
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`

	Open   float64 `json:"open" yaml:"open"`
	High   float64 `json:"high" yaml:"high"`
	Low    float64 `json:"low" yaml:"low"`
	Close  float64 `json:"close" yaml:"close"`
	Volume float64 `json:"volume" yaml:"volume"`
}

// Contract describes a tradeable instrument as reported by a gateway.
type Contract struct {
	// GatewayName is the name of the gateway that reported the contract.
	GatewayName string `json:"gateway_name" yaml:"gateway_name"`
	// Symbol is the instrument symbol.
	Symbol string `json:"symbol" yaml:"symbol"`
	// Exchange is the exchange the instrument trades on.
	Exchange string `json:"exchange" yaml:"exchange"`
	// Name is the human-readable instrument name.
	Name string `json:"name" yaml:"name"`
	// PriceTick is the minimum price increment.
	PriceTick float64 `json:"price_tick" yaml:"price_tick"`
	// Size is the contract multiplier.
	Size float64 `json:"size" yaml:"size"`
	// MinVolume is the minimum order volume.
	MinVolume float64 `json:"min_volume" yaml:"min_volume"`
}
