// Package simdata generates reproducible synthetic market data for tests,
// benchmarks and demo runs against the paper gateway.
package simdata

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/pulse-trading/internal/types"
)

// Generator produces synthetic ticks and bars following a geometric Brownian
// motion price path. Use a fixed seed for reproducible results.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Config controls the shape of the generated series.
type Config struct {
	// Symbol is the instrument symbol.
	Symbol string
	// Exchange tags the generated data.
	Exchange string
	// StartTime is the timestamp of the first data point.
	StartTime time.Time
	// Interval is the spacing between data points.
	Interval time.Duration
	// Count is the number of data points.
	Count int
	// InitialPrice is the starting price.
	InitialPrice float64
	// Volatility controls per-step price movement (0.002 = 0.2%).
	Volatility float64
	// Trend is the total drift distributed across the series.
	Trend float64
	// VolumeBase is the average volume per step.
	VolumeBase float64
	// Spread is the bid/ask half-width as a fraction of price.
	Spread float64
}

// DefaultConfig returns a neutral minute series on a test symbol.
func DefaultConfig() Config {
	return Config{
		Symbol:       "TESTUSDT",
		Exchange:     "SIM",
		StartTime:    time.Date(2026, 1, 5, 9, 30, 0, 0, time.UTC),
		Interval:     time.Minute,
		Count:        1000,
		InitialPrice: 100.0,
		Volatility:   0.002,
		Trend:        0.0,
		VolumeBase:   10000,
		Spread:       0.0002,
	}
}

// step draws one normally distributed price step via Box-Muller.
func (g *Generator) step(cfg Config, price float64) float64 {
	u1 := g.rng.Float64()
	u2 := g.rng.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

	next := price * (1 + cfg.Volatility*z + cfg.Trend/float64(cfg.Count))
	if next <= 0 {
		next = price * 0.99
	}

	return next
}

// Bars generates cfg.Count bars along one random price path.
func (g *Generator) Bars(cfg Config) []types.Bar {
	bars := make([]types.Bar, cfg.Count)
	price := cfg.InitialPrice
	ts := cfg.StartTime

	for i := range bars {
		open := price
		close := g.step(cfg, open)

		highExt := g.rng.Float64() * cfg.Volatility * open * 0.5
		lowExt := g.rng.Float64() * cfg.Volatility * open * 0.5

		high := math.Max(open, close) + highExt

		low := math.Min(open, close) - lowExt
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volume := cfg.VolumeBase * (0.7 + g.rng.Float64()*0.6)

		bars[i] = types.Bar{
			Symbol:    cfg.Symbol,
			Exchange:  cfg.Exchange,
			Interval:  types.BarIntervalMinute,
			Timestamp: ts,
			Open:      round(open, 4),
			High:      round(high, 4),
			Low:       round(low, 4),
			Close:     round(close, 4),
			Volume:    round(volume, 2),
		}

		price = close
		ts = ts.Add(cfg.Interval)
	}

	return bars
}

// Ticks generates cfg.Count tick snapshots with a quote straddling the last
// price and a monotonically increasing cumulative volume.
func (g *Generator) Ticks(cfg Config) []types.Tick {
	ticks := make([]types.Tick, cfg.Count)
	price := cfg.InitialPrice
	ts := cfg.StartTime

	var cumVolume float64

	for i := range ticks {
		price = g.step(cfg, price)
		cumVolume += cfg.VolumeBase * g.rng.Float64() / float64(cfg.Count)

		half := price * cfg.Spread

		tick := types.Tick{
			Symbol:    cfg.Symbol,
			Exchange:  cfg.Exchange,
			Timestamp: ts,
			LastPrice: round(price, 4),
			Volume:    round(cumVolume, 2),
		}
		tick.BidPrices[0] = round(price-half, 4)
		tick.AskPrices[0] = round(price+half, 4)
		tick.BidVolumes[0] = round(cfg.VolumeBase*g.rng.Float64()*0.01, 2)
		tick.AskVolumes[0] = round(cfg.VolumeBase*g.rng.Float64()*0.01, 2)

		ticks[i] = tick
		ts = ts.Add(cfg.Interval)
	}

	return ticks
}

func round(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
