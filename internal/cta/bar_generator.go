package cta

import (
	"time"

	"github.com/rxtech-lab/pulse-trading/internal/types"
)

// BarGenerator aggregates ticks into one-minute bars and, optionally, those
// into window-minute bars. A bar is considered finished when the first tick
// of the next period arrives, so the callbacks fire with completed bars only.
type BarGenerator struct {
	onBar       func(types.Bar)
	window      int
	onWindowBar func(types.Bar)

	bar       types.Bar
	hasBar    bool
	winBar    types.Bar
	hasWinBar bool
	lastTick  types.Tick
	hasTick   bool
}

// NewBarGenerator creates a generator emitting one-minute bars through
// onBar. With window > 1 and a non-nil onWindowBar, every window finished
// minutes are additionally merged into one bar and emitted through
// onWindowBar.
func NewBarGenerator(onBar func(types.Bar), window int, onWindowBar func(types.Bar)) *BarGenerator {
	return &BarGenerator{
		onBar:       onBar,
		window:      window,
		onWindowBar: onWindowBar,
	}
}

// UpdateTick folds one tick into the current minute bar, finishing the
// previous bar when the minute rolls over. Ticks with zero LastPrice are
// ignored.
func (g *BarGenerator) UpdateTick(tick types.Tick) {
	if tick.LastPrice == 0 {
		return
	}

	newMinute := false

	if !g.hasBar {
		newMinute = true
	} else if g.bar.Timestamp.Minute() != tick.Timestamp.Minute() ||
		g.bar.Timestamp.Truncate(time.Hour) != tick.Timestamp.Truncate(time.Hour) {
		finished := g.bar
		finished.Timestamp = finished.Timestamp.Truncate(time.Minute)

		if g.onBar != nil {
			g.onBar(finished)
		}

		g.UpdateBar(finished)
		newMinute = true
	}

	if newMinute {
		g.bar = types.Bar{
			Symbol:    tick.Symbol,
			Exchange:  tick.Exchange,
			Interval:  types.BarIntervalMinute,
			Timestamp: tick.Timestamp,
			Open:      tick.LastPrice,
			High:      tick.LastPrice,
			Low:       tick.LastPrice,
			Close:     tick.LastPrice,
		}
		g.hasBar = true
	} else {
		if tick.LastPrice > g.bar.High {
			g.bar.High = tick.LastPrice
		}

		if tick.LastPrice < g.bar.Low {
			g.bar.Low = tick.LastPrice
		}

		g.bar.Close = tick.LastPrice
	}

	// Cumulative tick volume is turned into per-bar volume by differencing
	// consecutive snapshots.
	if g.hasTick {
		delta := tick.Volume - g.lastTick.Volume
		if delta > 0 {
			g.bar.Volume += delta
		}
	}

	g.lastTick = tick
	g.hasTick = true
}

// UpdateBar folds one finished minute bar into the window aggregation.
func (g *BarGenerator) UpdateBar(bar types.Bar) {
	if g.window <= 1 || g.onWindowBar == nil {
		return
	}

	if !g.hasWinBar {
		g.winBar = bar
		g.winBar.Interval = types.BarIntervalMinute
		g.hasWinBar = true
	} else {
		if bar.High > g.winBar.High {
			g.winBar.High = bar.High
		}

		if bar.Low < g.winBar.Low {
			g.winBar.Low = bar.Low
		}

		g.winBar.Close = bar.Close
		g.winBar.Volume += bar.Volume
	}

	if (bar.Timestamp.Minute()+1)%g.window == 0 {
		g.onWindowBar(g.winBar)
		g.hasWinBar = false
	}
}
