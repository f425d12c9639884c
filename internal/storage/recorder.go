package storage

import (
	"github.com/rxtech-lab/pulse-trading/internal/cta"
	"github.com/rxtech-lab/pulse-trading/internal/event"
	"github.com/rxtech-lab/pulse-trading/internal/logger"
	"github.com/rxtech-lab/pulse-trading/internal/types"
	"go.uber.org/zap"
)

// Recorder subscribes to tick events and persists both the raw ticks and
// their one-minute aggregation. Recording while live is what fills the
// warm-up history that strategies load on their next start.
type Recorder struct {
	store   *Store
	log     *logger.Logger
	handler *event.HandlerFunc

	// generators aggregate per symbol. The recorder runs on the event
	// dispatch goroutine only, so the map needs no lock.
	generators map[string]*cta.BarGenerator
}

// NewRecorder creates a recorder writing through store. It is inert until
// Start registers it with an event engine.
func NewRecorder(store *Store, log *logger.Logger) *Recorder {
	r := &Recorder{
		store:      store,
		log:        log,
		generators: make(map[string]*cta.BarGenerator),
	}
	r.handler = event.NewHandlerFunc("recorder-ticks", r.onTick)

	return r
}

// Start subscribes the recorder to tick events.
func (r *Recorder) Start(events *event.Engine) {
	events.Register(event.TypeTick, r.handler)
}

// Stop unsubscribes the recorder. Partially aggregated minutes are dropped;
// the next start opens a fresh bar on the first tick.
func (r *Recorder) Stop(events *event.Engine) {
	events.Unregister(event.TypeTick, r.handler)
}

func (r *Recorder) onTick(ev event.Event) {
	tick, ok := ev.Data.(types.Tick)
	if !ok {
		return
	}

	if err := r.store.InsertTick(tick); err != nil {
		r.log.Warn("failed to record tick",
			zap.String("symbol", tick.Symbol), zap.Error(err))
	}

	gen, ok := r.generators[tick.Symbol]
	if !ok {
		gen = cta.NewBarGenerator(r.onBar, 0, nil)
		r.generators[tick.Symbol] = gen
	}

	gen.UpdateTick(tick)
}

func (r *Recorder) onBar(bar types.Bar) {
	if err := r.store.InsertBar(bar); err != nil {
		r.log.Warn("failed to record bar",
			zap.String("symbol", bar.Symbol), zap.Error(err))
	}
}
