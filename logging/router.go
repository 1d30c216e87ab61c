package logging

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

type Sink interface {
	Write(Event) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}

const (
	minRetryDelay = time.Second
	maxRetryDelay = 30 * time.Second
)

// Router is the event bus behind every Publisher in the server. Publish only
// ever does a non-blocking send; a dispatcher goroutine stamps events and
// offers a copy to each sink's backlog, and every sink drains its backlog on
// its own goroutine.
type Router struct {
	cfg      Config
	clock    Clock
	fallback *log.Logger
	workers  []*sinkWorker

	queue    chan Event
	stop     chan struct{}
	stopOnce sync.Once
	closed   atomic.Bool
	wg       sync.WaitGroup

	routed     atomic.Uint64
	dropped    atomic.Uint64
	nextWarnAt atomic.Int64
}

type SinkStats struct {
	Name    string `json:"name"`
	Written uint64 `json:"written"`
	Failed  uint64 `json:"failed"`
	Dropped uint64 `json:"dropped"`
}

type RouterStats struct {
	EventsTotal  uint64      `json:"eventsTotal"`
	DroppedTotal uint64      `json:"droppedTotal"`
	Sinks        []SinkStats `json:"sinks,omitempty"`
}

// NewRouter starts the dispatcher and one worker per sink. Entries with a nil
// Sink are skipped. Sink failures and drops are reported on fallback.
func NewRouter(clock Clock, cfg Config, fallback *log.Logger, sinks []NamedSink) *Router {
	if clock == nil {
		clock = SystemClock{}
	}
	if fallback == nil {
		fallback = log.New(os.Stderr, "[logging] ", log.LstdFlags)
	}
	cfg = cfg.normalized()
	r := &Router{
		cfg:      cfg,
		clock:    clock,
		fallback: fallback,
		queue:    make(chan Event, cfg.QueueSize),
		stop:     make(chan struct{}),
	}
	for _, named := range sinks {
		if named.Sink == nil {
			continue
		}
		r.workers = append(r.workers, &sinkWorker{
			name:     named.Name,
			sink:     named.Sink,
			backlog:  make(chan Event, cfg.SinkBacklog),
			fallback: fallback,
		})
	}

	r.wg.Add(1 + len(r.workers))
	go r.dispatch()
	for _, w := range r.workers {
		go func(w *sinkWorker) {
			defer r.wg.Done()
			w.run()
		}(w)
	}
	return r
}

// Publish enqueues the event without blocking. Untyped events, events below
// the configured severity and events published after Close are discarded.
func (r *Router) Publish(_ context.Context, event Event) {
	if r == nil || event.Type == "" || event.Severity < r.cfg.MinimumSeverity {
		return
	}
	if r.closed.Load() {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.noteDrop(event)
	}
}

func (r *Router) dispatch() {
	defer r.wg.Done()
	defer func() {
		for _, w := range r.workers {
			close(w.backlog)
		}
	}()
	for {
		select {
		case event := <-r.queue:
			r.route(event)
		case <-r.stop:
			for {
				select {
				case event := <-r.queue:
					r.route(event)
				default:
					return
				}
			}
		}
	}
}

func (r *Router) route(event Event) {
	if event.Time.IsZero() {
		event.Time = r.clock.Now()
	}
	event = mergeFields(event, r.cfg.Fields)
	r.routed.Add(1)
	for _, w := range r.workers {
		w.offer(cloneEvent(event))
	}
}

func (r *Router) noteDrop(event Event) {
	r.dropped.Add(1)
	now := r.clock.Now().UnixNano()
	next := r.nextWarnAt.Load()
	if now < next {
		return
	}
	if r.nextWarnAt.CompareAndSwap(next, now+r.cfg.DropWarnInterval.Nanoseconds()) {
		r.fallback.Printf("queue full, dropping event type=%s tick=%d (dropped=%d)", event.Type, event.Tick, r.dropped.Load())
	}
}

// Close stops accepting events, delivers whatever is queued and closes every
// sink. It returns ctx.Err() if the backlog does not drain in time.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.stopOnce.Do(func() { close(r.stop) })

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		return ctx.Err()
	}

	var firstErr error
	for _, w := range r.workers {
		if err := w.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	if r == nil {
		return RouterStats{}
	}
	stats := RouterStats{
		EventsTotal:  r.routed.Load(),
		DroppedTotal: r.dropped.Load(),
	}
	for _, w := range r.workers {
		stats.Sinks = append(stats.Sinks, SinkStats{
			Name:    w.name,
			Written: w.written.Load(),
			Failed:  w.failed.Load(),
			Dropped: w.dropped.Load(),
		})
	}
	return stats
}

type sinkWorker struct {
	name     string
	sink     Sink
	backlog  chan Event
	fallback *log.Logger

	written atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64

	// Owned by run.
	delay   time.Duration
	retryAt time.Time
}

func (w *sinkWorker) offer(event Event) {
	select {
	case w.backlog <- event:
	default:
		// Report the 1st, 2nd, 4th, 8th... drop.
		if n := w.dropped.Add(1); n&(n-1) == 0 {
			w.fallback.Printf("sink %s backlog full, %d events dropped", w.name, n)
		}
	}
}

func (w *sinkWorker) run() {
	for event := range w.backlog {
		if wait := time.Until(w.retryAt); wait > 0 {
			time.Sleep(wait)
		}
		if err := w.sink.Write(event); err != nil {
			w.failed.Add(1)
			w.delay = min(max(w.delay*2, minRetryDelay), maxRetryDelay)
			w.retryAt = time.Now().Add(w.delay)
			w.fallback.Printf("sink %s failed: %v (retry in %s)", w.name, err, w.delay)
			continue
		}
		w.written.Add(1)
		w.delay = 0
		w.retryAt = time.Time{}
	}
}
