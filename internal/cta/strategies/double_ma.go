// Package strategies ships ready-made strategy implementations built on the
// strategy engine. They double as usage references for the Strategy and
// Context interfaces.
package strategies

import (
	"fmt"

	"github.com/rxtech-lab/pulse-trading/internal/cta"
	"github.com/rxtech-lab/pulse-trading/internal/types"
	"github.com/rxtech-lab/pulse-trading/internal/version"
)

// DoubleMAConfig holds the tunables of the moving average crossover
// strategy.
type DoubleMAConfig struct {
	FastWindow int     `yaml:"fast_window" validate:"gt=0"`
	SlowWindow int     `yaml:"slow_window" validate:"gt=0"`
	Volume     float64 `yaml:"volume" validate:"gt=0"`
	WarmupDays int     `yaml:"warmup_days" validate:"gte=0"`
}

// DefaultDoubleMAConfig returns the classic 10/60 crossover setup.
func DefaultDoubleMAConfig() DoubleMAConfig {
	return DoubleMAConfig{
		FastWindow: 10,
		SlowWindow: 60,
		Volume:     1,
		WarmupDays: 10,
	}
}

// DoubleMA trades moving average crossovers: a golden cross (fast rising
// through slow) goes long, a death cross goes short, each crossing reversing
// any opposite position first.
type DoubleMA struct {
	cfg DoubleMAConfig

	series *cta.BarSeries
	bg     *cta.BarGenerator

	fastPrev float64
	slowPrev float64
	primed   bool

	// pending carries bars from the generator callback into OnTick's
	// Context scope.
	pending []types.Bar
}

// NewDoubleMA creates the strategy with the given config.
func NewDoubleMA(cfg DoubleMAConfig) *DoubleMA {
	s := &DoubleMA{
		cfg:    cfg,
		series: cta.NewBarSeries(cfg.SlowWindow + 1),
	}
	s.bg = cta.NewBarGenerator(s.queueBar, 0, nil)

	return s
}

func (s *DoubleMA) queueBar(bar types.Bar) {
	s.pending = append(s.pending, bar)
}

// OnInit implements cta.Strategy.
func (s *DoubleMA) OnInit(ctx cta.Context) {
	ctx.WriteLog("double MA strategy initializing")

	for _, bar := range ctx.LoadBars(s.cfg.WarmupDays) {
		s.warmup(bar)
	}
}

// OnStart implements cta.Strategy.
func (s *DoubleMA) OnStart(ctx cta.Context) {
	ctx.WriteLog("double MA strategy started")
}

// OnStop implements cta.Strategy.
func (s *DoubleMA) OnStop(ctx cta.Context) {
	ctx.WriteLog("double MA strategy stopped")
}

// OnTick implements cta.Strategy.
func (s *DoubleMA) OnTick(ctx cta.Context, tick types.Tick) {
	s.bg.UpdateTick(tick)

	for _, bar := range s.pending {
		s.OnBar(ctx, bar)
	}

	s.pending = s.pending[:0]
}

// OnBar implements cta.Strategy.
func (s *DoubleMA) OnBar(ctx cta.Context, bar types.Bar) {
	s.series.Push(bar)
	if !s.series.Inited() {
		return
	}

	fast := s.series.SMA(s.cfg.FastWindow)
	slow := s.series.SMA(s.cfg.SlowWindow)

	if !s.primed {
		s.fastPrev, s.slowPrev = fast, slow
		s.primed = true

		return
	}

	goldenCross := fast > slow && s.fastPrev <= s.slowPrev
	deathCross := fast < slow && s.fastPrev >= s.slowPrev
	s.fastPrev, s.slowPrev = fast, slow

	switch {
	case goldenCross:
		if ctx.Pos() < 0 {
			ctx.Cover(bar.Close, -ctx.Pos(), false)
		}

		ctx.Buy(bar.Close, s.cfg.Volume, false)
		ctx.WriteLog(fmt.Sprintf("golden cross at %.2f", bar.Close))
	case deathCross:
		if ctx.Pos() > 0 {
			ctx.Sell(bar.Close, ctx.Pos(), false)
		}

		ctx.Short(bar.Close, s.cfg.Volume, false)
		ctx.WriteLog(fmt.Sprintf("death cross at %.2f", bar.Close))
	}
}

// warmup replays one historical bar without trading side effects.
func (s *DoubleMA) warmup(bar types.Bar) {
	s.series.Push(bar)
	if !s.series.Inited() {
		return
	}

	s.fastPrev = s.series.SMA(s.cfg.FastWindow)
	s.slowPrev = s.series.SMA(s.cfg.SlowWindow)
	s.primed = true
}

// OnOrder implements cta.Strategy.
func (s *DoubleMA) OnOrder(ctx cta.Context, order types.Order) {}

// OnTrade implements cta.Strategy.
func (s *DoubleMA) OnTrade(ctx cta.Context, trade types.Trade) {
	ctx.NotifyChange()
}

// OnStopOrder implements cta.Strategy.
func (s *DoubleMA) OnStopOrder(ctx cta.Context, stopOrder cta.StopOrder) {}

// APIVersion implements cta.Versioned. Bundled strategies are built in-tree
// and track the engine version.
func (s *DoubleMA) APIVersion() string { return version.GetVersion() }
