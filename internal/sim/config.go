package sim

import (
	"time"

	"github.com/hardchor/frog-pond/internal/world"
)

// Config tunes the simulation. Zero values fall back to DefaultConfig.
type Config struct {
	TickPeriod        time.Duration
	InitialPopulation int
	MaxAge            int
	DeathCredit       int
	FeedPerTick       int
	MatingCooldown    time.Duration
	Pool              world.PoolConfig
	Seed              string
	CommandCapacity   int
	// PerActorLimit caps queued mate requests naming the same frog within a
	// tick. Zero disables the cap.
	PerActorLimit   int
	CatchupMaxTicks int
	BudgetWarnRatio float64
}

func DefaultConfig() Config {
	return Config{
		TickPeriod:        time.Second,
		InitialPopulation: 20,
		MaxAge:            100,
		DeathCredit:       100,
		FeedPerTick:       1,
		MatingCooldown:    10 * time.Second,
		Pool:              world.DefaultPoolConfig(),
		Seed:              world.DefaultSeed,
		CommandCapacity:   1024,
		PerActorLimit:     8,
		CatchupMaxTicks:   1,
		BudgetWarnRatio:   0.8,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.TickPeriod <= 0 {
		c.TickPeriod = def.TickPeriod
	}
	if c.InitialPopulation < 0 {
		c.InitialPopulation = 0
	}
	if c.MaxAge <= 0 {
		c.MaxAge = def.MaxAge
	}
	if c.DeathCredit < 0 {
		c.DeathCredit = 0
	}
	if c.FeedPerTick < 0 {
		c.FeedPerTick = 0
	}
	if c.MatingCooldown <= 0 {
		c.MatingCooldown = def.MatingCooldown
	}
	if c.Pool == (world.PoolConfig{}) {
		c.Pool = def.Pool
	}
	if c.Seed == "" {
		c.Seed = def.Seed
	}
	if c.CommandCapacity <= 0 {
		c.CommandCapacity = def.CommandCapacity
	}
	if c.PerActorLimit < 0 {
		c.PerActorLimit = 0
	}
	if c.CatchupMaxTicks <= 0 {
		c.CatchupMaxTicks = def.CatchupMaxTicks
	}
	if c.BudgetWarnRatio <= 0 {
		c.BudgetWarnRatio = def.BudgetWarnRatio
	}
	return c
}

// CooldownTicks converts the mating cooldown into whole ticks of the
// configured period, rounding up.
func (c Config) CooldownTicks() uint64 {
	return c.CooldownTicksAt(c.TickPeriod)
}

// CooldownTicksAt converts the mating cooldown into whole ticks of period,
// rounding up. A non-positive period falls back to the configured one.
func (c Config) CooldownTicksAt(period time.Duration) uint64 {
	if period <= 0 {
		period = c.TickPeriod
	}
	if period <= 0 {
		period = DefaultConfig().TickPeriod
	}
	cooldown := c.MatingCooldown
	if cooldown <= 0 {
		cooldown = DefaultConfig().MatingCooldown
	}
	return max(uint64((cooldown+period-1)/period), 1)
}
