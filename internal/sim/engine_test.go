package sim

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hardchor/frog-pond/internal/world"
	"github.com/hardchor/frog-pond/logging/lifecycle"
	"github.com/hardchor/frog-pond/logging/sinks"
)

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *sinks.Memory) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Seed = "engine-test"
	// Steps are driven by hand; ten ticks of cooldown.
	cfg.TickPeriod = time.Second
	cfg.MatingCooldown = 10 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}
	mem := sinks.NewMemory()
	engine := NewEngine(cfg, Deps{Publisher: mem})
	t.Cleanup(engine.Stop)
	return engine, mem
}

func placeFrog(e *Engine, frog *world.Frog) *world.Frog {
	if frog.MaxAge == 0 {
		frog.MaxAge = 100
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	frog.RecomputeEligibility(e.tick)
	e.addLocked(frog)
	return frog
}

func frogByID(t *testing.T, e *Engine, id string) world.FrogSnapshot {
	t.Helper()
	for _, snap := range e.Snapshot() {
		if snap.ID == id {
			return snap
		}
	}
	t.Fatalf("expected frog %s to exist", id)
	return world.FrogSnapshot{}
}

func eventsOfKind(events []Event, kind EventKind) []Event {
	var out []Event
	for _, event := range events {
		if event.Kind == kind {
			out = append(out, event)
		}
	}
	return out
}

type recordingSubscriber struct {
	mu      sync.Mutex
	batches [][]Event
	refuse  bool
}

func (r *recordingSubscriber) Deliver(batch []Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]Event(nil), batch...))
	return !r.refuse
}

func (r *recordingSubscriber) events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, batch := range r.batches {
		out = append(out, batch...)
	}
	return out
}

func TestStepAdvancesPoolAndFeeds(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	require.True(t, engine.Start(time.Hour))
	require.Len(t, engine.Snapshot(), 20)

	result := engine.Step()

	assert.Equal(t, uint64(1), result.Tick)
	assert.Equal(t, 1.5, result.Exchange.Growth)
	assert.Equal(t, 150, result.Exchange.Consumption)
	assert.Equal(t, Stats{Population: 20, Algae: 130, Nitrogen: 9850, Oxygen: 250}, result.Stats)
	assert.Len(t, eventsOfKind(result.Events, EventUpdate), 20)

	last := result.Events[len(result.Events)-1]
	assert.Equal(t, EventStats, last.Kind)
	assert.Equal(t, result.Stats, last.Stats)
}

func TestEligibilityBoundaryAfterTwentyTicks(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	frog := placeFrog(engine, &world.Frog{ID: "tadpole", Gender: world.GenderMale})

	for i := 0; i < 20; i++ {
		engine.Step()
	}
	assert.Equal(t, 20, frog.Age)
	assert.False(t, frogByID(t, engine, "tadpole").CanMate)

	engine.Step()
	assert.True(t, frogByID(t, engine, "tadpole").CanMate)
}

func TestMutualMateRequestProducesOneOffspring(t *testing.T) {
	engine, mem := newTestEngine(t, nil)
	a := placeFrog(engine, &world.Frog{ID: "a", Gender: world.GenderMale, Age: 30, Position: world.Position{X: 0.25, Y: 0.75}})
	b := placeFrog(engine, &world.Frog{ID: "b", Gender: world.GenderFemale, Age: 30})

	ok, reason := engine.SubmitMateRequest("a", "b")
	require.True(t, ok, reason)
	ok, reason = engine.SubmitMateRequest("b", "a")
	require.True(t, ok, reason)

	result := engine.Step()

	creates := eventsOfKind(result.Events, EventCreate)
	require.Len(t, creates, 1)
	child := creates[0].Frog
	assert.Equal(t, 0, child.Age)
	assert.Equal(t, 100, child.MaxAge)
	assert.False(t, child.CanMate)
	assert.Equal(t, world.Position{X: 0.25, Y: 0.75}, child.Position)
	assert.Equal(t, 3, result.Stats.Population)
	assert.Equal(t, 1, result.Births)

	assert.False(t, a.CanMate)
	assert.False(t, b.CanMate)
	assert.Equal(t, uint64(11), a.CooldownUntil)
	assert.Len(t, mem.OfType(lifecycle.EventFrogsMated), 1)

	for _, update := range eventsOfKind(result.Events, EventUpdate) {
		if update.Frog.ID == "a" || update.Frog.ID == "b" {
			assert.False(t, update.Frog.CanMate, "parents report cooldown in the same tick")
		}
	}
}

func TestCooldownRestoresEligibilityAfterPeriod(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	placeFrog(engine, &world.Frog{ID: "a", Gender: world.GenderMale, Age: 30})
	placeFrog(engine, &world.Frog{ID: "b", Gender: world.GenderFemale, Age: 30})

	_, _ = engine.SubmitMateRequest("a", "b")
	engine.Step()
	assert.Equal(t, 2, engine.schedule.Len())

	for tick := 2; tick <= 10; tick++ {
		engine.Step()
		require.Falsef(t, frogByID(t, engine, "a").CanMate, "tick %d still cooling down", tick)
	}

	result := engine.Step()
	assert.Equal(t, uint64(11), result.Tick)
	assert.True(t, frogByID(t, engine, "a").CanMate)
	assert.True(t, frogByID(t, engine, "b").CanMate)
	assert.Zero(t, engine.schedule.Len())

	restored := 0
	for _, update := range eventsOfKind(result.Events, EventUpdate) {
		if (update.Frog.ID == "a" || update.Frog.ID == "b") && update.Frog.CanMate {
			restored++
		}
	}
	assert.Equal(t, 2, restored)
}

func TestCooldownFollowsStartPeriod(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.MatingCooldown = 3 * time.Hour
	})
	placeFrog(engine, &world.Frog{ID: "a", Gender: world.GenderMale, Age: 30})
	placeFrog(engine, &world.Frog{ID: "b", Gender: world.GenderFemale, Age: 30})
	assert.Equal(t, uint64(10800), engine.coordinator.CooldownTicks())

	require.True(t, engine.Start(time.Hour))
	engine.mu.Lock()
	ticks := engine.coordinator.CooldownTicks()
	engine.mu.Unlock()
	assert.Equal(t, uint64(3), ticks, "three hours at one tick per hour")

	_, _ = engine.SubmitMateRequest("a", "b")
	result := engine.Step()
	assert.Equal(t, result.Tick+3, frogByID(t, engine, "a").CooldownUntil)

	engine.Stop()
	assert.Equal(t, uint64(10800), engine.coordinator.CooldownTicks())
}

func TestFastPeriodStretchesCooldownInTicks(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	placeFrog(engine, &world.Frog{ID: "a", Gender: world.GenderMale, Age: 30})
	placeFrog(engine, &world.Frog{ID: "b", Gender: world.GenderFemale, Age: 30})
	engine.mu.Lock()
	engine.coordinator.SetPeriod(2 * time.Millisecond)
	engine.mu.Unlock()

	_, _ = engine.SubmitMateRequest("a", "b")
	engine.Step()
	for i := 0; i < 20; i++ {
		engine.Step()
	}
	assert.False(t, frogByID(t, engine, "a").CanMate, "10s at 2ms per tick is 5000 ticks")
	assert.Equal(t, uint64(1+5000), frogByID(t, engine, "a").CooldownUntil)
}

func TestCooldownDoesNotRestoreOutsideFertileWindow(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	placeFrog(engine, &world.Frog{ID: "a", Gender: world.GenderMale, Age: 75})
	placeFrog(engine, &world.Frog{ID: "b", Gender: world.GenderFemale, Age: 30})

	_, _ = engine.SubmitMateRequest("a", "b")
	for i := 0; i < 11; i++ {
		engine.Step()
	}
	assert.False(t, frogByID(t, engine, "a").CanMate, "aged out while cooling down")
	assert.True(t, frogByID(t, engine, "b").CanMate)
}

func TestMateRequestWithIneligibleFrogIsNoop(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	placeFrog(engine, &world.Frog{ID: "young", Gender: world.GenderMale, Age: 5})
	placeFrog(engine, &world.Frog{ID: "adult", Gender: world.GenderFemale, Age: 40})

	ok, _ := engine.SubmitMateRequest("young", "adult")
	require.True(t, ok)
	result := engine.Step()

	assert.Empty(t, eventsOfKind(result.Events, EventCreate))
	assert.Equal(t, 2, result.Stats.Population)
	assert.True(t, frogByID(t, engine, "adult").CanMate)
}

func TestMateRequestForUnknownFrogIsIgnored(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	placeFrog(engine, &world.Frog{ID: "a", Gender: world.GenderMale, Age: 40})

	ok, _ := engine.SubmitMateRequest("a", "ghost")
	require.True(t, ok)
	result := engine.Step()

	assert.Zero(t, result.Births)
	assert.True(t, frogByID(t, engine, "a").CanMate)
}

func TestFrogDiesAtMaxAgeAndCreditsNitrogen(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	placeFrog(engine, &world.Frog{ID: "elder", Gender: world.GenderMale, Age: 99})
	placeFrog(engine, &world.Frog{ID: "young", Gender: world.GenderFemale, Age: 10})

	result := engine.Step()

	require.Len(t, eventsOfKind(result.Events, EventRemove), 1)
	assert.Equal(t, "elder", eventsOfKind(result.Events, EventRemove)[0].ID)
	for _, update := range eventsOfKind(result.Events, EventUpdate) {
		assert.NotEqual(t, "elder", update.Frog.ID)
	}
	assert.Equal(t, 1, result.Deaths)
	assert.Equal(t, 1, result.Stats.Population)
	assert.Equal(t, 9850+100, result.Stats.Nitrogen)

	next := engine.Step()
	for _, event := range next.Events {
		assert.NotEqual(t, "elder", event.Frog.ID)
		assert.NotEqual(t, "elder", event.ID)
	}
}

func TestDeadFrogCooldownIsCancelled(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) { cfg.MaxAge = 10 })
	placeFrog(engine, &world.Frog{ID: "a", Gender: world.GenderMale, Age: 5, MaxAge: 10})
	placeFrog(engine, &world.Frog{ID: "b", Gender: world.GenderFemale, Age: 3, MaxAge: 10})

	_, _ = engine.SubmitMateRequest("a", "b")
	engine.Step()
	require.Equal(t, 2, engine.schedule.Len())

	for i := 0; i < 4; i++ {
		engine.Step()
	}
	for _, snap := range engine.Snapshot() {
		assert.NotEqual(t, "a", snap.ID)
	}
	assert.Equal(t, 1, engine.schedule.Len(), "only the surviving parent keeps a cooldown")
}

func TestNitrogenOxygenConservedExceptDeathCredit(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) { cfg.InitialPopulation = 30 })
	require.True(t, engine.Start(time.Hour))

	prev := engine.Stats()
	for i := 0; i < 250; i++ {
		snaps := engine.Snapshot()
		for j := 0; j+1 < len(snaps); j += 2 {
			_, _ = engine.SubmitMateRequest(snaps[j].ID, snaps[j+1].ID)
		}
		result := engine.Step()
		want := prev.Nitrogen + prev.Oxygen + result.Deaths*engine.Config().DeathCredit
		require.Equalf(t, want, result.Stats.Nitrogen+result.Stats.Oxygen, "tick %d", result.Tick)
		require.GreaterOrEqual(t, result.Stats.Algae, 0)
		prev = result.Stats
	}
}

func TestCanMateInvariantHoldsAfterEveryTick(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) { cfg.InitialPopulation = 12 })
	require.True(t, engine.Start(time.Hour))

	for i := 0; i < 120; i++ {
		snaps := engine.Snapshot()
		for j := 0; j+1 < len(snaps); j++ {
			_, _ = engine.SubmitMateRequest(snaps[j].ID, snaps[len(snaps)-1-j].ID)
		}
		result := engine.Step()

		engine.mu.Lock()
		for _, frog := range engine.frogs {
			want := world.Fertile(frog.Age, frog.MaxAge) && frog.CooldownUntil <= result.Tick
			if frog.CanMate != want {
				engine.mu.Unlock()
				t.Fatalf("tick %d frog %s age %d cooldown %d canMate %v", result.Tick, frog.ID, frog.Age, frog.CooldownUntil, frog.CanMate)
			}
			if frog.Dead() {
				engine.mu.Unlock()
				t.Fatalf("dead frog %s survived tick %d", frog.ID, result.Tick)
			}
		}
		engine.mu.Unlock()
	}
}

func TestSubmitMateRequestRejections(t *testing.T) {
	engine, _ := newTestEngine(t, func(cfg *Config) {
		cfg.CommandCapacity = 2
		cfg.PerActorLimit = 1
	})

	ok, reason := engine.SubmitMateRequest("a", "a")
	assert.False(t, ok)
	assert.Equal(t, CommandRejectInvalidPair, reason)

	ok, reason = engine.SubmitMateRequest("", "b")
	assert.False(t, ok)
	assert.Equal(t, CommandRejectInvalidPair, reason)

	ok, _ = engine.SubmitMateRequest("a", "b")
	require.True(t, ok)
	ok, reason = engine.SubmitMateRequest("b", "c")
	assert.False(t, ok)
	assert.Equal(t, CommandRejectQueueLimit, reason)

	ok, _ = engine.SubmitMateRequest("c", "d")
	require.True(t, ok)
	ok, reason = engine.SubmitMateRequest("e", "f")
	assert.False(t, ok)
	assert.Equal(t, CommandRejectQueueFull, reason)

	engine.Step()
	assert.Zero(t, engine.Pending())
	ok, _ = engine.SubmitMateRequest("b", "c")
	assert.True(t, ok, "per-frog limit resets every tick")
}

func TestReportPosition(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	placeFrog(engine, &world.Frog{ID: "a", Gender: world.GenderMale})

	assert.True(t, engine.ReportPosition("a", world.Position{X: 0.4, Y: 1.7}))
	assert.Equal(t, world.Position{X: 0.4, Y: 1}, frogByID(t, engine, "a").Position)
	assert.False(t, engine.ReportPosition("gone", world.Position{X: 0.1, Y: 0.1}))
}

func TestSubscribeReturnsSnapshotThenLiveEvents(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	require.True(t, engine.Start(time.Hour))
	engine.Step()

	sub := &recordingSubscriber{}
	snapshot, stats, cancel := engine.Subscribe(sub)
	require.Len(t, snapshot, 20)
	assert.Equal(t, 20, stats.Population)
	assert.Empty(t, sub.events())

	engine.Step()
	events := sub.events()
	require.NotEmpty(t, events)
	assert.Len(t, eventsOfKind(events, EventUpdate), 20)
	assert.Equal(t, uint64(2), events[0].Tick)

	cancel()
	engine.Step()
	assert.Len(t, sub.events(), len(events))
}

func TestSubscriberRefusingDeliveryIsDropped(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	placeFrog(engine, &world.Frog{ID: "a", Gender: world.GenderMale})
	sub := &recordingSubscriber{refuse: true}
	_, _, _ = engine.Subscribe(sub)
	require.Equal(t, 1, engine.Subscribers())

	engine.Step()
	assert.Zero(t, engine.Subscribers())
}

func TestStartIsIdempotentAndStopResets(t *testing.T) {
	engine, mem := newTestEngine(t, nil)
	require.True(t, engine.Start(time.Hour))
	assert.False(t, engine.Start(time.Hour))
	assert.True(t, engine.Running())

	_, _ = engine.SubmitMateRequest("x", "y")
	engine.Step()
	engine.Stop()

	assert.False(t, engine.Running())
	assert.Empty(t, engine.Snapshot())
	assert.Zero(t, engine.Tick())
	assert.Zero(t, engine.Pending())
	assert.Equal(t, Stats{Algae: 100, Nitrogen: 10000, Oxygen: 100}, engine.Stats())
	assert.Len(t, mem.OfType(lifecycle.EventSessionStarted), 1)
	assert.Len(t, mem.OfType(lifecycle.EventSessionStopped), 1)

	engine.Stop()
	assert.Len(t, mem.OfType(lifecycle.EventSessionStopped), 1)

	require.True(t, engine.Start(time.Hour))
	assert.Len(t, engine.Snapshot(), 20)
}

func TestLoopDrivesTicks(t *testing.T) {
	observed := make(chan TickResult, 8)
	cfg := DefaultConfig()
	cfg.InitialPopulation = 2
	engine := NewEngine(cfg, Deps{Observer: func(result TickResult) {
		select {
		case observed <- result:
		default:
		}
	}})
	defer engine.Stop()

	require.True(t, engine.Start(5*time.Millisecond))
	select {
	case result := <-observed:
		assert.Equal(t, uint64(1), result.Tick)
	case <-time.After(2 * time.Second):
		t.Fatal("expected the loop to tick")
	}
}

func TestSeededRunsAreReproducible(t *testing.T) {
	run := func() []world.FrogSnapshot {
		cfg := DefaultConfig()
		cfg.Seed = "replay"
		engine := NewEngine(cfg, Deps{})
		engine.mu.Lock()
		engine.seedLocked()
		engine.mu.Unlock()
		for i := 0; i < 30; i++ {
			snaps := engine.Snapshot()
			if len(snaps) >= 2 {
				_, _ = engine.SubmitMateRequest(snaps[0].ID, snaps[1].ID)
			}
			engine.Step()
		}
		return engine.Snapshot()
	}
	assert.Equal(t, run(), run())
}
