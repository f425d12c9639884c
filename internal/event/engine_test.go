package event

import (
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/pulse-trading/internal/logger"
	"github.com/stretchr/testify/suite"
)

// recorder accumulates every event it receives, in order.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) ProcessEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}

func (r *recorder) types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}

	return out
}

type EngineTestSuite struct {
	suite.Suite

	engine *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	suite.engine = NewEngine(Config{DisableTimer: true}, logger.NewNopLogger())
}

func (suite *EngineTestSuite) TearDownTest() {
	suite.engine.Stop()
}

func (suite *EngineTestSuite) TestTypedDelivery() {
	rec := &recorder{}
	suite.engine.Register(TypeTick, rec)
	suite.engine.Start()

	suite.engine.Put(New(TypeTick, 1))
	suite.engine.Put(New(TypeOrder, 2))
	suite.engine.Put(New(TypeTick, 3))

	suite.Eventually(func() bool { return rec.count() == 2 }, time.Second, time.Millisecond)
	suite.Equal([]Type{TypeTick, TypeTick}, rec.types())

	suite.engine.Unregister(TypeTick, rec)
	suite.engine.Put(New(TypeTick, 4))

	suite.Eventually(func() bool { return suite.engine.QueueLen() == 0 }, time.Second, time.Millisecond)
	suite.Equal(2, rec.count())
}

func (suite *EngineTestSuite) TestDuplicateRegistrationIsNoOp() {
	rec := &recorder{}
	suite.engine.Register(TypeTick, rec)
	suite.engine.Register(TypeTick, rec)
	suite.engine.Start()

	suite.engine.Put(New(TypeTick, nil))

	suite.Eventually(func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)

	// Give a second invocation a chance to surface before asserting.
	time.Sleep(10 * time.Millisecond)
	suite.Equal(1, rec.count())
}

func (suite *EngineTestSuite) TestDispatchOrdering() {
	var (
		mu  sync.Mutex
		log []string
	)

	record := func(name string) func(Event) {
		return func(e Event) {
			mu.Lock()
			defer mu.Unlock()

			log = append(log, name+":"+e.Data.(string))
		}
	}

	suite.engine.Register(TypeTick, NewHandlerFunc("typed1", record("typed1")))
	suite.engine.Register(TypeTick, NewHandlerFunc("typed2", record("typed2")))
	suite.engine.RegisterGeneral(NewHandlerFunc("general", record("general")))
	suite.engine.Start()

	suite.engine.Put(New(TypeTick, "e1"))
	suite.engine.Put(New(TypeTick, "e2"))

	suite.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(log) == 6
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	suite.Equal([]string{
		"typed1:e1", "typed2:e1", "general:e1",
		"typed1:e2", "typed2:e2", "general:e2",
	}, log)
}

func (suite *EngineTestSuite) TestGeneralHandlerSeesAllTypes() {
	rec := &recorder{}
	suite.engine.RegisterGeneral(rec)
	suite.engine.Start()

	suite.engine.Put(New(TypeTick, nil))
	suite.engine.Put(New(TypeOrder, nil))
	suite.engine.Put(New(TypeLog, nil))

	suite.Eventually(func() bool { return rec.count() == 3 }, time.Second, time.Millisecond)
	suite.Equal([]Type{TypeTick, TypeOrder, TypeLog}, rec.types())

	suite.engine.UnregisterGeneral(rec)
	suite.engine.Put(New(TypeTick, nil))

	suite.Eventually(func() bool { return suite.engine.QueueLen() == 0 }, time.Second, time.Millisecond)
	suite.Equal(3, rec.count())
}

func (suite *EngineTestSuite) TestStopStartResumesWithoutLossOrReplay() {
	rec := &recorder{}
	suite.engine.Register(TypeTick, rec)
	suite.engine.Start()

	suite.engine.Put(New(TypeTick, "before"))
	suite.Eventually(func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)

	suite.engine.Stop()

	// Enqueued while stopped: kept, not delivered.
	suite.engine.Put(New(TypeTick, "during1"))
	suite.engine.Put(New(TypeTick, "during2"))
	suite.Equal(1, rec.count())
	suite.Equal(2, suite.engine.QueueLen())

	suite.engine.Start()

	suite.Eventually(func() bool { return rec.count() == 3 }, time.Second, time.Millisecond)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	suite.Equal("before", rec.events[0].Data)
	suite.Equal("during1", rec.events[1].Data)
	suite.Equal("during2", rec.events[2].Data)
}

func (suite *EngineTestSuite) TestStartIsIdempotent() {
	rec := &recorder{}
	suite.engine.Register(TypeTick, rec)
	suite.engine.Start()
	suite.engine.Start()

	suite.engine.Put(New(TypeTick, nil))

	suite.Eventually(func() bool { return rec.count() == 1 }, time.Second, time.Millisecond)

	// A duplicated dispatch goroutine would deliver the event twice.
	time.Sleep(10 * time.Millisecond)
	suite.Equal(1, rec.count())
}

func (suite *EngineTestSuite) TestHandlerPanicIsIsolated() {
	rec := &recorder{}
	suite.engine.Register(TypeTick, NewHandlerFunc("bad", func(Event) {
		panic("boom")
	}))
	suite.engine.Register(TypeTick, rec)
	suite.engine.Start()

	suite.engine.Put(New(TypeTick, 1))
	suite.engine.Put(New(TypeTick, 2))

	// The panicking handler must not stop delivery to the other handler or
	// to later events.
	suite.Eventually(func() bool { return rec.count() == 2 }, time.Second, time.Millisecond)
}

func (suite *EngineTestSuite) TestUnregisterPrunesEmptyType() {
	rec := &recorder{}
	suite.engine.Register(TypeTick, rec)
	suite.engine.Unregister(TypeTick, rec)

	suite.engine.mu.Lock()
	defer suite.engine.mu.Unlock()
	_, exists := suite.engine.handlers[TypeTick]
	suite.False(exists)
}

func (suite *EngineTestSuite) TestTimerEvents() {
	engine := NewEngine(Config{TimerInterval: 5 * time.Millisecond}, logger.NewNopLogger())
	defer engine.Stop()

	rec := &recorder{}
	engine.Register(TypeTimer, rec)
	engine.Start()

	suite.Eventually(func() bool { return rec.count() >= 2 }, time.Second, time.Millisecond)
}

func (suite *EngineTestSuite) TestScopedType() {
	suite.Equal(Type("eTick.BTCUSDT"), TypeTick.Scoped("BTCUSDT"))
}
