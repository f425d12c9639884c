package strategies

import (
	"fmt"

	"github.com/rxtech-lab/pulse-trading/internal/cta"
	"github.com/rxtech-lab/pulse-trading/internal/types"
	"github.com/rxtech-lab/pulse-trading/internal/version"
)

// RSISignal votes long when RSI leaves the oversold band and short when it
// leaves the overbought band, one unit either way.
type RSISignal struct {
	cta.SignalBase

	window    int
	overbuy   float64
	oversell  float64
	series    *cta.BarSeries
	generator *cta.BarGenerator
}

// NewRSISignal creates the signal on one-minute bars.
func NewRSISignal(window int, overbuy, oversell float64) *RSISignal {
	s := &RSISignal{
		window:   window,
		overbuy:  overbuy,
		oversell: oversell,
		series:   cta.NewBarSeries(window + 1),
	}
	s.generator = cta.NewBarGenerator(s.onFinishedBar, 0, nil)

	return s
}

// OnTick implements cta.Signal.
func (s *RSISignal) OnTick(tick types.Tick) {
	s.generator.UpdateTick(tick)
}

// OnBar implements cta.Signal.
func (s *RSISignal) OnBar(bar types.Bar) {
	s.onFinishedBar(bar)
}

func (s *RSISignal) onFinishedBar(bar types.Bar) {
	s.series.Push(bar)
	if !s.series.Inited() {
		return
	}

	rsi := s.series.RSI(s.window)

	switch {
	case rsi >= s.overbuy:
		s.SetPos(-1)
	case rsi <= s.oversell:
		s.SetPos(1)
	default:
		s.SetPos(0)
	}
}

// CCISignal votes with the commodity channel index: above the positive level
// it argues long, below the negative level short, otherwise flat.
type CCISignal struct {
	cta.SignalBase

	window    int
	level     float64
	series    *cta.BarSeries
	generator *cta.BarGenerator
}

// NewCCISignal creates the signal on one-minute bars.
func NewCCISignal(window int, level float64) *CCISignal {
	s := &CCISignal{
		window: window,
		level:  level,
		series: cta.NewBarSeries(window + 1),
	}
	s.generator = cta.NewBarGenerator(s.onFinishedBar, 0, nil)

	return s
}

// OnTick implements cta.Signal.
func (s *CCISignal) OnTick(tick types.Tick) {
	s.generator.UpdateTick(tick)
}

// OnBar implements cta.Signal.
func (s *CCISignal) OnBar(bar types.Bar) {
	s.onFinishedBar(bar)
}

func (s *CCISignal) onFinishedBar(bar types.Bar) {
	s.series.Push(bar)
	if !s.series.Inited() {
		return
	}

	cci := s.series.CCI(s.window)

	switch {
	case cci >= s.level:
		s.SetPos(1)
	case cci <= -s.level:
		s.SetPos(-1)
	default:
		s.SetPos(0)
	}
}

// MASignal votes with a moving average crossover on five-minute bars.
type MASignal struct {
	cta.SignalBase

	fastWindow int
	slowWindow int
	series     *cta.BarSeries
	generator  *cta.BarGenerator
}

// NewMASignal creates the signal on five-minute bars.
func NewMASignal(fastWindow, slowWindow int) *MASignal {
	s := &MASignal{
		fastWindow: fastWindow,
		slowWindow: slowWindow,
		series:     cta.NewBarSeries(slowWindow + 1),
	}
	s.generator = cta.NewBarGenerator(nil, 5, s.onFinishedBar)

	return s
}

// OnTick implements cta.Signal.
func (s *MASignal) OnTick(tick types.Tick) {
	s.generator.UpdateTick(tick)
}

// OnBar implements cta.Signal.
func (s *MASignal) OnBar(bar types.Bar) {
	s.generator.UpdateBar(bar)
}

func (s *MASignal) onFinishedBar(bar types.Bar) {
	s.series.Push(bar)
	if !s.series.Inited() {
		return
	}

	fast := s.series.SMA(s.fastWindow)
	slow := s.series.SMA(s.slowWindow)

	switch {
	case fast > slow:
		s.SetPos(1)
	case fast < slow:
		s.SetPos(-1)
	default:
		s.SetPos(0)
	}
}

// MultiSignalConfig holds the tunables of the signal-combining strategy.
type MultiSignalConfig struct {
	RSIWindow   int     `yaml:"rsi_window" validate:"gt=0"`
	RSIOverbuy  float64 `yaml:"rsi_overbuy" validate:"gt=0"`
	RSIOversell float64 `yaml:"rsi_oversell" validate:"gt=0"`
	CCIWindow   int     `yaml:"cci_window" validate:"gt=0"`
	CCILevel    float64 `yaml:"cci_level" validate:"gt=0"`
	FastWindow  int     `yaml:"fast_window" validate:"gt=0"`
	SlowWindow  int     `yaml:"slow_window" validate:"gt=0"`
	TickAdd     float64 `yaml:"tick_add"`
	WarmupDays  int     `yaml:"warmup_days" validate:"gte=0"`
}

// DefaultMultiSignalConfig mirrors the classic RSI 14 / CCI 30 / MA 5-20
// composition.
func DefaultMultiSignalConfig() MultiSignalConfig {
	return MultiSignalConfig{
		RSIWindow:   14,
		RSIOverbuy:  70,
		RSIOversell: 30,
		CCIWindow:   30,
		CCILevel:    10,
		FastWindow:  5,
		SlowWindow:  20,
		TickAdd:     cta.DefaultTickAdd,
		WarmupDays:  10,
	}
}

// MultiSignal composes independent signals and trades their summed desired
// position through a target position reconciler. Agreeing signals stack into
// a larger target, disagreeing ones offset toward flat.
type MultiSignal struct {
	cfg MultiSignalConfig

	signals []cta.Signal
	orderer *cta.TargetPosOrderer
}

// NewMultiSignal creates the strategy with the given config.
func NewMultiSignal(cfg MultiSignalConfig) *MultiSignal {
	return &MultiSignal{
		cfg: cfg,
		signals: []cta.Signal{
			NewRSISignal(cfg.RSIWindow, cfg.RSIOverbuy, cfg.RSIOversell),
			NewCCISignal(cfg.CCIWindow, cfg.CCILevel),
			NewMASignal(cfg.FastWindow, cfg.SlowWindow),
		},
	}
}

// OnInit implements cta.Strategy.
func (s *MultiSignal) OnInit(ctx cta.Context) {
	ctx.WriteLog("multi signal strategy initializing")

	s.orderer = cta.NewTargetPosOrderer(ctx, s.cfg.TickAdd)

	for _, bar := range ctx.LoadBars(s.cfg.WarmupDays) {
		for _, sig := range s.signals {
			sig.OnBar(bar)
		}
	}
}

// OnStart implements cta.Strategy.
func (s *MultiSignal) OnStart(ctx cta.Context) {
	ctx.WriteLog("multi signal strategy started")
}

// OnStop implements cta.Strategy.
func (s *MultiSignal) OnStop(ctx cta.Context) {
	ctx.WriteLog("multi signal strategy stopped")
}

// OnTick implements cta.Strategy.
func (s *MultiSignal) OnTick(ctx cta.Context, tick types.Tick) {
	s.orderer.OnTick(tick)

	for _, sig := range s.signals {
		sig.OnTick(tick)
	}

	if target := cta.CombinedPos(s.signals...); target != s.orderer.Target() {
		ctx.WriteLog(fmt.Sprintf("target position moved to %.0f", target))
		s.orderer.SetTarget(target)
	}
}

// OnBar implements cta.Strategy.
func (s *MultiSignal) OnBar(ctx cta.Context, bar types.Bar) {
	s.orderer.OnBar(bar)

	for _, sig := range s.signals {
		sig.OnBar(bar)
	}

	if target := cta.CombinedPos(s.signals...); target != s.orderer.Target() {
		s.orderer.SetTarget(target)
	}
}

// OnOrder implements cta.Strategy.
func (s *MultiSignal) OnOrder(ctx cta.Context, order types.Order) {
	s.orderer.OnOrder(order)
}

// OnTrade implements cta.Strategy.
func (s *MultiSignal) OnTrade(ctx cta.Context, trade types.Trade) {
	ctx.NotifyChange()
}

// OnStopOrder implements cta.Strategy.
func (s *MultiSignal) OnStopOrder(ctx cta.Context, stopOrder cta.StopOrder) {}

// APIVersion implements cta.Versioned.
func (s *MultiSignal) APIVersion() string { return version.GetVersion() }
