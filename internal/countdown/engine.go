package countdown

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Engine drives a Clock from a real ticker and hands each event to a
// sink. One engine runs per in-progress attempt; the websocket handler
// owns its lifecycle.
type Engine struct {
	clock    *Clock
	interval time.Duration
	now      func() time.Time
	sink     func(Event)
	log      zerolog.Logger

	startOnce sync.Once
	started   atomic.Bool
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func NewEngine(clock *Clock, interval time.Duration, sink func(Event), log zerolog.Logger) *Engine {
	return &Engine{
		clock:    clock,
		interval: interval,
		now:      time.Now,
		sink:     sink,
		log:      log.With().Str("component", "countdown").Logger(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the tick loop. It returns immediately; the loop ends
// when the clock expires or Stop is called. Starting twice is a no-op.
func (e *Engine) Start() {
	e.startOnce.Do(func() {
		e.started.Store(true)
		go e.run()
	})
}

// Stop halts the tick loop and waits for it to exit. Safe to call more
// than once, and safe on an engine that was never started.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stop) })
	if e.started.Load() {
		<-e.done
	}
}

func (e *Engine) run() {
	defer close(e.done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			ev := e.clock.Tick(e.now())
			e.sink(ev)
			if ev.Expired {
				e.log.Info().Msg("attempt timer expired")
				return
			}
		}
	}
}
