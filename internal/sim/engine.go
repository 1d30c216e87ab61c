package sim

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/hardchor/frog-pond/internal/telemetry"
	"github.com/hardchor/frog-pond/internal/world"
	"github.com/hardchor/frog-pond/logging"
	"github.com/hardchor/frog-pond/logging/lifecycle"
	"github.com/hardchor/frog-pond/logging/simulation"
)

const (
	// CommandRejectQueueLimit indicates a request was dropped because one of
	// the frogs already has too many requests queued this tick.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
	// CommandRejectInvalidPair indicates an empty or self-referencing pair.
	CommandRejectInvalidPair = "invalid_pair"
)

// TickObserver is invoked after every tick, outside the engine lock.
type TickObserver func(TickResult)

// Deps carries shared infrastructure dependencies required by the engine.
type Deps struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	Observer  TickObserver
}

// TickResult summarises one executed tick.
type TickResult struct {
	Tick     uint64
	Events   []Event
	Stats    Stats
	Exchange world.Exchange
	Births   int
	Deaths   int
	Eligible int
	Ages     []int
	Duration time.Duration
}

type subscription struct {
	id   uint64
	sink Subscriber
}

// Engine is the single authority over the pond. Every mutation of frogs and
// the pool happens while mu is held; renderers only ever see snapshots.
type Engine struct {
	cfg         Config
	deps        Deps
	buffer      *CommandBuffer
	coordinator *Coordinator

	mu          sync.Mutex
	pool        *world.Pool
	frogs       []*world.Frog
	index       map[string]*world.Frog
	schedule    *Schedule
	tick        uint64
	rng         *rand.Rand
	subscribers []subscription
	nextSubID   uint64

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewEngine(cfg Config, deps Deps) *Engine {
	cfg = cfg.normalized()
	if deps.Logger == nil {
		deps.Logger = telemetry.DiscardLogger()
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NopMetrics()
	}
	if deps.Clock == nil {
		deps.Clock = logging.SystemClock{}
	}
	rng := world.NewDeterministicRNG(cfg.Seed, "pond")
	return &Engine{
		cfg:         cfg,
		deps:        deps,
		buffer:      NewCommandBuffer(cfg.CommandCapacity, cfg.PerActorLimit, deps.Metrics),
		coordinator: NewCoordinator(cfg, rng),
		pool:        world.NewPool(cfg.Pool),
		index:       make(map[string]*world.Frog),
		schedule:    NewSchedule(),
		rng:         rng,
	}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Start seeds the initial population when the pond is empty and launches the
// tick loop. It returns false if the engine was already running.
func (e *Engine) Start(period time.Duration) bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.running {
		return false
	}
	if period <= 0 {
		period = e.cfg.TickPeriod
	}

	e.mu.Lock()
	e.coordinator.SetPeriod(period)
	if len(e.frogs) == 0 {
		e.seedLocked()
	}
	population := len(e.frogs)
	tick := e.tick
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	e.running = true

	loop := NewLoop(e, LoopConfig{
		Period:          period,
		CatchupMaxTicks: e.cfg.CatchupMaxTicks,
		BudgetWarnRatio: e.cfg.BudgetWarnRatio,
	})
	go func(done chan struct{}) {
		defer close(done)
		loop.Run(ctx)
	}(e.done)

	lifecycle.SessionStarted(context.Background(), e.deps.Publisher, tick, lifecycle.SessionPayload{
		PeriodMillis: period.Milliseconds(),
		Population:   population,
	}, nil)
	e.deps.Logger.Printf("[sim] session started period=%s population=%d", period, population)
	return true
}

// Stop halts the loop and returns the pond to its initial state. Calling it
// on a stopped engine still resets.
func (e *Engine) Stop() {
	e.runMu.Lock()
	wasRunning := e.running
	if e.running {
		e.cancel()
		<-e.done
		e.running = false
		e.cancel = nil
		e.done = nil
	}
	e.runMu.Unlock()

	e.buffer.Drain()

	e.mu.Lock()
	population := len(e.frogs)
	tick := e.tick
	e.schedule.Reset()
	e.frogs = nil
	clear(e.index)
	e.pool.Reset()
	e.tick = 0
	e.coordinator.SetPeriod(e.cfg.TickPeriod)
	e.mu.Unlock()

	e.deps.Metrics.Store("population", 0)
	if wasRunning {
		lifecycle.SessionStopped(context.Background(), e.deps.Publisher, tick, lifecycle.SessionPayload{
			Population: population,
		}, nil)
		e.deps.Logger.Printf("[sim] session stopped at tick=%d population=%d", tick, population)
	}
}

func (e *Engine) Running() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.running
}

// SubmitMateRequest queues a pairing for the next tick. Eligibility is not
// checked here; the tick decides.
func (e *Engine) SubmitMateRequest(a, b string) (bool, string) {
	if a == "" || b == "" || a == b {
		return false, CommandRejectInvalidPair
	}
	cmd := Command{
		ActorID:  a,
		Type:     CommandMate,
		IssuedAt: e.deps.Clock.Now(),
		Mate:     &MateCommand{PartnerID: b},
	}

	if reason := e.buffer.Offer(cmd); reason != "" {
		e.deps.Metrics.Add("mate_requests_rejected_total", 1)
		if reason == CommandRejectQueueFull {
			e.deps.Logger.Printf("[backpressure] dropping mate request a=%s b=%s capacity=%d", a, b, e.buffer.Capacity())
		}
		return false, reason
	}
	e.deps.Metrics.Add("mate_requests_total", 1)
	return true, ""
}

// ReportPosition records a renderer-reported position. It returns false when
// the frog no longer exists.
func (e *Engine) ReportPosition(id string, pos world.Position) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	frog, ok := e.index[id]
	if !ok {
		return false
	}
	frog.Position = pos.Clamp()
	return true
}

// Subscribe registers sink and returns the state it starts from. No event is
// delivered to sink that is already reflected in the snapshot.
func (e *Engine) Subscribe(sink Subscriber) ([]world.FrogSnapshot, Stats, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextSubID++
	id := e.nextSubID
	e.subscribers = append(e.subscribers, subscription{id: id, sink: sink})
	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.unsubscribeLocked(id)
	}
	return e.snapshotLocked(), e.statsLocked(), cancel
}

func (e *Engine) Snapshot() []world.FrogSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statsLocked()
}

func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Pending reports queued mate requests.
func (e *Engine) Pending() int {
	return e.buffer.Len()
}

// Subscribers reports the number of registered sinks.
func (e *Engine) Subscribers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subscribers)
}

// Step runs exactly one tick.
func (e *Engine) Step() TickResult {
	start := e.deps.Clock.Now()
	ctx := context.Background()

	e.mu.Lock()
	e.tick++
	tick := e.tick

	exchange := e.pool.Advance()

	survivors := make([]*world.Frog, 0, len(e.frogs))
	var dead []*world.Frog
	for _, frog := range e.frogs {
		e.pool.Draw(e.cfg.FeedPerTick)
		frog.Grow(tick)
		if frog.Dead() {
			dead = append(dead, frog)
			continue
		}
		survivors = append(survivors, frog)
	}

	for _, id := range e.schedule.Due(tick) {
		if frog, ok := e.index[id]; ok && !frog.Dead() {
			frog.RecomputeEligibility(tick)
		}
	}

	births := e.applyMateRequestsLocked(ctx, tick)

	for _, frog := range dead {
		e.removeLocked(frog.ID)
		e.schedule.Cancel(frog.ID)
		e.pool.Credit(e.cfg.DeathCredit)
		lifecycle.FrogDied(ctx, e.deps.Publisher, tick, logging.FrogRef(frog.ID), lifecycle.FrogDiedPayload{
			Age:    frog.Age,
			Credit: e.cfg.DeathCredit,
		}, nil)
	}

	events := make([]Event, 0, len(survivors)+len(births)+len(dead)+1)
	for _, frog := range survivors {
		events = append(events, updateEvent(tick, frog.Snapshot()))
	}
	for _, child := range births {
		events = append(events, createEvent(tick, child.Snapshot()))
	}
	for _, frog := range dead {
		events = append(events, removeEvent(tick, frog.ID))
	}
	stats := e.statsLocked()
	events = append(events, statsEvent(tick, stats))

	result := TickResult{
		Tick:     tick,
		Events:   events,
		Stats:    stats,
		Exchange: exchange,
		Births:   len(births),
		Deaths:   len(dead),
		Ages:     make([]int, 0, len(e.frogs)),
	}
	for _, frog := range e.frogs {
		result.Ages = append(result.Ages, frog.Age)
		if frog.CanMate {
			result.Eligible++
		}
	}

	e.deliverLocked(events)
	e.mu.Unlock()

	simulation.PoolExchange(ctx, e.deps.Publisher, tick, simulation.PoolExchangePayload{
		Growth:      exchange.Growth,
		Consumption: exchange.Consumption,
		Algae:       stats.Algae,
		Nitrogen:    stats.Nitrogen,
		Oxygen:      stats.Oxygen,
	})
	e.recordMetrics(result)

	result.Duration = e.deps.Clock.Now().Sub(start)
	if e.deps.Observer != nil {
		e.deps.Observer(result)
	}
	return result
}

func (e *Engine) applyMateRequestsLocked(ctx context.Context, tick uint64) []*world.Frog {
	commands := e.buffer.Drain()

	var births []*world.Frog
	seen := make(map[string]struct{}, len(commands))
	for _, cmd := range commands {
		if cmd.Type != CommandMate || cmd.Mate == nil {
			continue
		}
		key := pairKey(cmd.ActorID, cmd.Mate.PartnerID)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		a, okA := e.index[cmd.ActorID]
		b, okB := e.index[cmd.Mate.PartnerID]
		if !okA || !okB {
			continue
		}
		child, ok := e.coordinator.Attempt(tick, a, b)
		if !ok {
			continue
		}
		e.addLocked(child)
		e.schedule.Set(a.ID, a.CooldownUntil)
		e.schedule.Set(b.ID, b.CooldownUntil)
		births = append(births, child)

		lifecycle.FrogsMated(ctx, e.deps.Publisher, tick, logging.FrogRef(a.ID), logging.FrogRef(b.ID), lifecycle.FrogsMatedPayload{
			OffspringID:   child.ID,
			CooldownUntil: a.CooldownUntil,
		}, nil)
		lifecycle.FrogBorn(ctx, e.deps.Publisher, tick, logging.FrogRef(child.ID), lifecycle.FrogBornPayload{
			Gender: string(child.Gender),
			MaxAge: child.MaxAge,
			X:      child.Position.X,
			Y:      child.Position.Y,
		}, nil)
	}
	return births
}

func (e *Engine) seedLocked() {
	events := make([]Event, 0, e.cfg.InitialPopulation)
	for i := 0; i < e.cfg.InitialPopulation; i++ {
		frog := &world.Frog{
			ID:       world.NewID(e.rng),
			Gender:   world.RandomGender(e.rng),
			MaxAge:   e.cfg.MaxAge,
			Position: world.RandomPosition(e.rng),
		}
		e.addLocked(frog)
		events = append(events, createEvent(e.tick, frog.Snapshot()))
		lifecycle.FrogBorn(context.Background(), e.deps.Publisher, e.tick, logging.FrogRef(frog.ID), lifecycle.FrogBornPayload{
			Gender:  string(frog.Gender),
			MaxAge:  frog.MaxAge,
			X:       frog.Position.X,
			Y:       frog.Position.Y,
			Initial: true,
		}, nil)
	}
	if len(events) > 0 {
		events = append(events, statsEvent(e.tick, e.statsLocked()))
		e.deliverLocked(events)
	}
}

func (e *Engine) addLocked(frog *world.Frog) {
	e.frogs = append(e.frogs, frog)
	e.index[frog.ID] = frog
}

func (e *Engine) removeLocked(id string) {
	if _, ok := e.index[id]; !ok {
		return
	}
	delete(e.index, id)
	for i, frog := range e.frogs {
		if frog.ID == id {
			e.frogs = append(e.frogs[:i], e.frogs[i+1:]...)
			return
		}
	}
}

func (e *Engine) snapshotLocked() []world.FrogSnapshot {
	snaps := make([]world.FrogSnapshot, 0, len(e.frogs))
	for _, frog := range e.frogs {
		snaps = append(snaps, frog.Snapshot())
	}
	return snaps
}

func (e *Engine) statsLocked() Stats {
	return Stats{
		Population: len(e.frogs),
		Algae:      e.pool.Algae,
		Oxygen:     e.pool.Oxygen,
		Nitrogen:   e.pool.Nitrogen,
	}
}

func (e *Engine) deliverLocked(events []Event) {
	if len(e.subscribers) == 0 {
		return
	}
	kept := e.subscribers[:0]
	for _, sub := range e.subscribers {
		if sub.sink.Deliver(events) {
			kept = append(kept, sub)
			continue
		}
		e.deps.Logger.Printf("[sim] dropping subscriber %d", sub.id)
	}
	for i := len(kept); i < len(e.subscribers); i++ {
		e.subscribers[i] = subscription{}
	}
	e.subscribers = kept
}

func (e *Engine) unsubscribeLocked(id uint64) {
	for i, sub := range e.subscribers {
		if sub.id == id {
			e.subscribers = append(e.subscribers[:i], e.subscribers[i+1:]...)
			return
		}
	}
}

func (e *Engine) recordMetrics(result TickResult) {
	m := e.deps.Metrics
	m.Add("ticks_total", 1)
	if result.Births > 0 {
		m.Add("births_total", uint64(result.Births))
	}
	if result.Deaths > 0 {
		m.Add("deaths_total", uint64(result.Deaths))
	}
	m.Store("population", uint64(result.Stats.Population))
	m.Store("algae", uint64(max(result.Stats.Algae, 0)))
	m.Store("nitrogen", uint64(max(result.Stats.Nitrogen, 0)))
	m.Store("oxygen", uint64(max(result.Stats.Oxygen, 0)))
}

// Deps returns the injected dependencies.
func (e *Engine) Deps() Deps {
	return e.deps
}
