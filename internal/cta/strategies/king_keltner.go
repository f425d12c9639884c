package strategies

import (
	"fmt"
	"math"

	"github.com/rxtech-lab/pulse-trading/internal/cta"
	"github.com/rxtech-lab/pulse-trading/internal/types"
	"github.com/rxtech-lab/pulse-trading/internal/version"
)

// KingKeltnerConfig holds the tunables of the Keltner channel breakout
// strategy.
type KingKeltnerConfig struct {
	KKWindow        int     `yaml:"kk_window" validate:"gt=0"`
	KKDev           float64 `yaml:"kk_dev" validate:"gt=0"`
	TrailingPercent float64 `yaml:"trailing_percent" validate:"gt=0"`
	Volume          float64 `yaml:"volume" validate:"gt=0"`
	WarmupDays      int     `yaml:"warmup_days" validate:"gte=0"`
}

// DefaultKingKeltnerConfig returns the classic 11-period channel at 1.6
// average true ranges with a 0.8 percent trailing stop.
func DefaultKingKeltnerConfig() KingKeltnerConfig {
	return KingKeltnerConfig{
		KKWindow:        11,
		KKDev:           1.6,
		TrailingPercent: 0.8,
		Volume:          1,
		WarmupDays:      10,
	}
}

// KingKeltner trades channel breakouts on five-minute bars. Flat, it brackets
// the market with a buy stop at the upper band and a sell stop at the lower
// band, linked so that triggering one cancels the other. In a position it
// trails a stop behind the extreme price seen since entry.
type KingKeltner struct {
	cfg KingKeltnerConfig

	series *cta.BarSeries
	bg     *cta.BarGenerator

	kkUp   float64
	kkDown float64

	intraTradeHigh float64
	intraTradeLow  float64

	orderIDs []string

	// pending carries five-minute bars from the generator callback into the
	// callers' Context scope.
	pending []types.Bar
}

// NewKingKeltner creates the strategy with the given config.
func NewKingKeltner(cfg KingKeltnerConfig) *KingKeltner {
	s := &KingKeltner{
		cfg:    cfg,
		series: cta.NewBarSeries(cfg.KKWindow + 1),
	}
	s.bg = cta.NewBarGenerator(nil, 5, s.queueFiveBar)

	return s
}

func (s *KingKeltner) queueFiveBar(bar types.Bar) {
	s.pending = append(s.pending, bar)
}

// OnInit implements cta.Strategy.
func (s *KingKeltner) OnInit(ctx cta.Context) {
	ctx.WriteLog("king keltner strategy initializing")

	for _, bar := range ctx.LoadBars(s.cfg.WarmupDays) {
		s.warmup(bar)
	}
}

// OnStart implements cta.Strategy.
func (s *KingKeltner) OnStart(ctx cta.Context) {
	ctx.WriteLog("king keltner strategy started")
}

// OnStop implements cta.Strategy.
func (s *KingKeltner) OnStop(ctx cta.Context) {
	ctx.WriteLog("king keltner strategy stopped")
}

// OnTick implements cta.Strategy.
func (s *KingKeltner) OnTick(ctx cta.Context, tick types.Tick) {
	s.bg.UpdateTick(tick)
	s.drain(ctx)
}

// OnBar implements cta.Strategy.
func (s *KingKeltner) OnBar(ctx cta.Context, bar types.Bar) {
	s.bg.UpdateBar(bar)
	s.drain(ctx)
}

func (s *KingKeltner) drain(ctx cta.Context) {
	for _, bar := range s.pending {
		s.onFiveBar(ctx, bar)
	}

	s.pending = s.pending[:0]
}

func (s *KingKeltner) onFiveBar(ctx cta.Context, bar types.Bar) {
	// Each window starts clean: whatever bracket or trailing stop the last
	// window left behind is cancelled and re-placed at the fresh levels.
	for _, id := range s.orderIDs {
		ctx.CancelOrder(id)
	}

	s.orderIDs = s.orderIDs[:0]

	s.series.Push(bar)
	if !s.series.Inited() {
		return
	}

	s.kkUp, s.kkDown = s.series.Keltner(s.cfg.KKWindow, s.cfg.KKDev)

	pos := ctx.Pos()

	switch {
	case pos == 0:
		s.intraTradeHigh = bar.High
		s.intraTradeLow = bar.Low
		s.sendBracket(ctx)
	case pos > 0:
		s.intraTradeHigh = math.Max(s.intraTradeHigh, bar.High)
		s.intraTradeLow = bar.Low

		stopPrice := s.intraTradeHigh * (1 - s.cfg.TrailingPercent/100)
		s.orderIDs = append(s.orderIDs, ctx.Sell(stopPrice, pos, true)...)
	default:
		s.intraTradeHigh = bar.High
		s.intraTradeLow = math.Min(s.intraTradeLow, bar.Low)

		stopPrice := s.intraTradeLow * (1 + s.cfg.TrailingPercent/100)
		s.orderIDs = append(s.orderIDs, ctx.Cover(stopPrice, -pos, true)...)
	}

	ctx.NotifyChange()
}

// sendBracket places the two-sided breakout entry: a buy stop at the upper
// band and a sell stop at the lower band, linked so the first trigger cancels
// the other leg.
func (s *KingKeltner) sendBracket(ctx cta.Context) {
	bracket := ctx.Buy(s.kkUp, s.cfg.Volume, true)
	bracket = append(bracket, ctx.Short(s.kkDown, s.cfg.Volume, true)...)

	if len(bracket) == 0 {
		return
	}

	ctx.LinkOCO(bracket...)
	s.orderIDs = append(s.orderIDs, bracket...)
	ctx.WriteLog(fmt.Sprintf("bracket placed at %.2f / %.2f", s.kkUp, s.kkDown))
}

// warmup replays one historical bar without trading side effects.
func (s *KingKeltner) warmup(bar types.Bar) {
	s.series.Push(bar)
	if !s.series.Inited() {
		return
	}

	s.kkUp, s.kkDown = s.series.Keltner(s.cfg.KKWindow, s.cfg.KKDev)
}

// OnOrder implements cta.Strategy.
func (s *KingKeltner) OnOrder(ctx cta.Context, order types.Order) {}

// OnTrade implements cta.Strategy.
func (s *KingKeltner) OnTrade(ctx cta.Context, trade types.Trade) {
	ctx.NotifyChange()
}

// OnStopOrder implements cta.Strategy.
func (s *KingKeltner) OnStopOrder(ctx cta.Context, stopOrder cta.StopOrder) {}

// APIVersion implements cta.Versioned.
func (s *KingKeltner) APIVersion() string { return version.GetVersion() }
