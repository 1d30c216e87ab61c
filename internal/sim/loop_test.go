package sim

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hardchor/frog-pond/internal/telemetry"
	"github.com/hardchor/frog-pond/logging"
	"github.com/hardchor/frog-pond/logging/simulation"
	"github.com/hardchor/frog-pond/logging/sinks"
)

type slowCore struct {
	deps     Deps
	tick     atomic.Uint64
	duration time.Duration
}

func (c *slowCore) Step() TickResult {
	return TickResult{Tick: c.tick.Add(1), Duration: c.duration}
}

func (c *slowCore) Deps() Deps {
	return c.deps
}

func TestLoopReportsBudgetOverruns(t *testing.T) {
	mem := sinks.NewMemory()
	core := &slowCore{
		deps: Deps{
			Publisher: mem,
			Logger:    telemetry.DiscardLogger(),
			Metrics:   telemetry.NopMetrics(),
			Clock:     logging.SystemClock{},
		},
		duration: 10 * time.Millisecond,
	}
	steps := make(chan LoopStepResult, 4)
	loop := NewLoop(core, LoopConfig{Period: 5 * time.Millisecond, BudgetWarnRatio: 0.8}).WithHooks(LoopHooks{
		AfterStep: func(result LoopStepResult) {
			select {
			case steps <- result:
			default:
			}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		loop.Run(ctx)
	}()

	for i := 0; i < 2; i++ {
		select {
		case result := <-steps:
			if result.Budget != 5*time.Millisecond {
				t.Fatalf("expected 5ms budget, got %s", result.Budget)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("expected loop to step")
		}
	}
	cancel()
	<-done

	overruns := mem.OfType(simulation.EventTickBudgetOverrun)
	if len(overruns) < 2 {
		t.Fatalf("expected at least 2 overrun events, got %d", len(overruns))
	}
	payload, ok := overruns[1].Payload.(simulation.TickBudgetOverrunPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", overruns[1].Payload)
	}
	if payload.Streak != 2 {
		t.Fatalf("expected streak 2, got %d", payload.Streak)
	}
}

func TestCooldownTicksRoundsUp(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.CooldownTicks(); got != 10 {
		t.Fatalf("expected 10 ticks, got %d", got)
	}
	cfg.TickPeriod = 3 * time.Second
	if got := cfg.CooldownTicks(); got != 4 {
		t.Fatalf("expected 4 ticks, got %d", got)
	}
	cfg.TickPeriod = time.Minute
	if got := cfg.CooldownTicks(); got != 1 {
		t.Fatalf("expected at least one tick, got %d", got)
	}
	if got := cfg.CooldownTicksAt(250 * time.Millisecond); got != 40 {
		t.Fatalf("expected 40 ticks at 250ms, got %d", got)
	}
	if got := cfg.CooldownTicksAt(0); got != 1 {
		t.Fatalf("expected fallback to the configured period, got %d", got)
	}
}
