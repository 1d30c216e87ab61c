package sim

import (
	"context"
	"time"

	"github.com/hardchor/frog-pond/logging/simulation"
)

// EngineCore is the part of the engine the loop drives.
type EngineCore interface {
	Step() TickResult
	Deps() Deps
}

// LoopConfig tunes the fixed-period runner.
type LoopConfig struct {
	Period          time.Duration
	CatchupMaxTicks int
	BudgetWarnRatio float64
}

// LoopStepResult extends a tick with the timing the loop observed.
type LoopStepResult struct {
	TickResult
	Now          time.Time
	Delta        float64
	Budget       time.Duration
	ClampedDelta bool
	MaxDelta     float64
}

// LoopHooks lets callers observe loop timing.
type LoopHooks struct {
	AfterStep func(LoopStepResult)
}

// Loop runs the engine at a fixed period until its context is cancelled.
type Loop struct {
	core   EngineCore
	config LoopConfig
	hooks  LoopHooks

	overrunStreak uint64
}

func NewLoop(core EngineCore, cfg LoopConfig) *Loop {
	if cfg.Period <= 0 {
		cfg.Period = DefaultConfig().TickPeriod
	}
	if cfg.CatchupMaxTicks <= 0 {
		cfg.CatchupMaxTicks = 1
	}
	return &Loop{core: core, config: cfg}
}

// WithHooks installs timing callbacks.
func (l *Loop) WithHooks(hooks LoopHooks) *Loop {
	l.hooks = hooks
	return l
}

func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.config.Period)
	defer ticker.Stop()

	deps := l.core.Deps()
	clock := deps.Clock
	last := clock.Now()
	budgetSeconds := l.config.Period.Seconds()
	maxDt := budgetSeconds * float64(l.config.CatchupMaxTicks)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now

			result := LoopStepResult{
				TickResult:   l.core.Step(),
				Now:          now,
				Delta:        dt,
				Budget:       l.config.Period,
				ClampedDelta: clamped,
				MaxDelta:     maxDt,
			}
			l.checkBudget(ctx, result)
			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

// checkBudget reports ticks whose duration exceeded the warning share of the
// period and tracks consecutive overruns.
func (l *Loop) checkBudget(ctx context.Context, result LoopStepResult) {
	if result.Budget <= 0 {
		return
	}
	ratio := float64(result.Duration) / float64(result.Budget)
	warnAt := l.config.BudgetWarnRatio
	if warnAt <= 0 {
		warnAt = 1
	}
	if ratio < warnAt {
		l.overrunStreak = 0
		return
	}
	l.overrunStreak++
	deps := l.core.Deps()
	simulation.TickBudgetOverrun(ctx, deps.Publisher, result.Tick, simulation.TickBudgetOverrunPayload{
		DurationMillis: result.Duration.Milliseconds(),
		BudgetMillis:   result.Budget.Milliseconds(),
		Ratio:          ratio,
		Streak:         l.overrunStreak,
	}, nil)
	if deps.Logger != nil {
		deps.Logger.Printf("[tick] budget overrun tick=%d duration=%s budget=%s streak=%d", result.Tick, result.Duration, result.Budget, l.overrunStreak)
	}
	if deps.Metrics != nil {
		deps.Metrics.Add("tick_budget_overrun_total", 1)
	}
}
