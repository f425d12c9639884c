package event

import (
	"sync"
	"time"

	"github.com/rxtech-lab/pulse-trading/internal/logger"
	"go.uber.org/zap"
)

const (
	// DefaultTimerInterval is the period of the synthetic timer event.
	DefaultTimerInterval = time.Second

	// queueWaitTimeout bounds how long the dispatch loop blocks on an empty
	// queue, so a stop signal is observed promptly even when idle.
	queueWaitTimeout = time.Second
)

// Config configures an event Engine.
type Config struct {
	// TimerInterval is the period of the injected timer event. Zero selects
	// DefaultTimerInterval.
	TimerInterval time.Duration `yaml:"timer_interval"`
	// DisableTimer turns off the periodic timer event entirely.
	DisableTimer bool `yaml:"disable_timer"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		TimerInterval: DefaultTimerInterval,
		DisableTimer:  false,
	}
}

// Engine is the central dispatcher. It owns an unbounded queue drained by a
// single goroutine, a registry mapping event type to an ordered handler list,
// an unordered-in-spirit but registration-ordered general handler list, and a
// periodic timer that injects TypeTimer events into the same queue, so timer
// events are interleaved with, never concurrent with, regular dispatch.
//
// All delivery happens on the dispatch goroutine: handlers for event N finish
// before any handler of event N+1 starts, and handlers for an event's exact
// type run before the general handlers, each group in registration order. A
// handler that blocks stalls delivery; that is the accepted trade-off for
// strict ordering. Consumers that mutate state only inside handlers need no
// further locking.
type Engine struct {
	cfg Config
	log *logger.Logger

	mu       sync.Mutex
	queue    []Event
	wake     chan struct{}
	handlers map[Type][]Handler
	general  []Handler
	running  bool
	stop     chan struct{}
	wg       sync.WaitGroup
}

// NewEngine creates a stopped engine with the given configuration.
func NewEngine(cfg Config, log *logger.Logger) *Engine {
	if cfg.TimerInterval <= 0 {
		cfg.TimerInterval = DefaultTimerInterval
	}

	return &Engine{
		cfg:      cfg,
		log:      log,
		queue:    nil,
		wake:     make(chan struct{}, 1),
		handlers: make(map[Type][]Handler),
		general:  nil,
		running:  false,
		stop:     nil,
	}
}

// Start begins asynchronous processing. Calling Start on a running engine is
// a no-op; worker goroutines are never duplicated. Events enqueued while the
// engine was stopped are delivered once it starts.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return
	}

	e.running = true
	e.stop = make(chan struct{})

	e.wg.Add(1)
	go e.run(e.stop)

	if !e.cfg.DisableTimer {
		e.wg.Add(1)
		go e.runTimer(e.stop)
	}
}

// Stop signals the dispatch loop and timer to terminate and waits for both to
// fully exit: no handler is in flight once Stop returns. Put may still enqueue
// afterwards; queued events are kept and delivered after the next Start.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()

		return
	}

	e.running = false
	close(e.stop)
	e.mu.Unlock()

	e.wg.Wait()
}

// Put enqueues an event. It never blocks and never fails; the queue is
// unbounded.
func (e *Engine) Put(ev Event) {
	e.mu.Lock()
	e.queue = append(e.queue, ev)
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Register adds handler to the ordered list for eventType. Registering an
// already-registered handler is a no-op.
func (e *Engine) Register(eventType Type, handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	list := e.handlers[eventType]
	for _, h := range list {
		if h == handler {
			return
		}
	}

	e.handlers[eventType] = append(list, handler)
}

// Unregister removes handler from eventType's list. The type entry is pruned
// once its list becomes empty. Unknown handlers are ignored.
func (e *Engine) Unregister(eventType Type, handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	list := e.handlers[eventType]
	for i, h := range list {
		if h == handler {
			list = append(list[:i], list[i+1:]...)

			break
		}
	}

	if len(list) == 0 {
		delete(e.handlers, eventType)

		return
	}

	e.handlers[eventType] = list
}

// RegisterGeneral adds a handler invoked for every event regardless of type,
// after the type-specific handlers. Duplicate registrations are no-ops.
func (e *Engine) RegisterGeneral(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, h := range e.general {
		if h == handler {
			return
		}
	}

	e.general = append(e.general, handler)
}

// UnregisterGeneral removes a general handler. Unknown handlers are ignored.
func (e *Engine) UnregisterGeneral(handler Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, h := range e.general {
		if h == handler {
			e.general = append(e.general[:i], e.general[i+1:]...)

			return
		}
	}
}

// QueueLen returns the number of undelivered events. Intended for diagnostics.
func (e *Engine) QueueLen() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return len(e.queue)
}

func (e *Engine) run(stop chan struct{}) {
	defer e.wg.Done()

	for {
		select {
		case <-stop:
			return
		default:
		}

		if ev, ok := e.pop(); ok {
			e.process(ev)

			continue
		}

		select {
		case <-e.wake:
		case <-stop:
			return
		case <-time.After(queueWaitTimeout):
		}
	}
}

func (e *Engine) runTimer(stop chan struct{}) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.TimerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.Put(New(TypeTimer, nil))
		}
	}
}

func (e *Engine) pop() (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) == 0 {
		return Event{}, false
	}

	ev := e.queue[0]
	e.queue = e.queue[1:]

	return ev, true
}

// process delivers one event: first the handlers registered for its exact
// type, then the general handlers, each in registration order. The handler
// lists are snapshotted under the lock so registry mutation from other
// goroutines cannot race the iteration.
func (e *Engine) process(ev Event) {
	e.mu.Lock()
	typed := make([]Handler, len(e.handlers[ev.Type]))
	copy(typed, e.handlers[ev.Type])
	general := make([]Handler, len(e.general))
	copy(general, e.general)
	e.mu.Unlock()

	for _, h := range typed {
		e.invoke(h, ev)
	}

	for _, h := range general {
		e.invoke(h, ev)
	}
}

// invoke runs one handler, isolating panics so a misbehaving subscriber
// cannot take down delivery to the rest.
func (e *Engine) invoke(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			name := ""
			if hf, ok := h.(*HandlerFunc); ok {
				name = hf.Name()
			}

			e.log.Error("event handler panicked",
				zap.String("event_type", string(ev.Type)),
				zap.String("handler", name),
				zap.Any("panic", r),
			)
		}
	}()

	h.ProcessEvent(ev)
}
