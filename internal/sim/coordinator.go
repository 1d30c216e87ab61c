package sim

import (
	"math/rand"
	"time"

	"github.com/hardchor/frog-pond/internal/world"
)

// Coordinator applies mate requests. It holds no locks of its own; the engine
// calls it from inside the tick.
type Coordinator struct {
	cfg           Config
	cooldownTicks uint64
	rng           *rand.Rand
}

func NewCoordinator(cfg Config, rng *rand.Rand) *Coordinator {
	return &Coordinator{
		cfg:           cfg,
		cooldownTicks: cfg.CooldownTicks(),
		rng:           rng,
	}
}

// SetPeriod re-derives the cooldown length for the period ticks actually run
// at, so the cooldown lasts the same simulated time at any speed.
func (c *Coordinator) SetPeriod(period time.Duration) {
	c.cooldownTicks = c.cfg.CooldownTicksAt(period)
}

// Attempt pairs a and b at tick. When both are eligible it returns the
// offspring, placed at a's position, and puts both parents into cooldown.
// Otherwise nothing changes.
func (c *Coordinator) Attempt(tick uint64, a, b *world.Frog) (*world.Frog, bool) {
	if a == nil || b == nil || a == b || a.ID == b.ID {
		return nil, false
	}
	if !a.CanMate || !b.CanMate || a.Dead() || b.Dead() {
		return nil, false
	}

	child := &world.Frog{
		ID:       world.NewID(c.rng),
		Gender:   world.RandomGender(c.rng),
		MaxAge:   c.cfg.MaxAge,
		Position: a.Position,
	}

	until := tick + c.cooldownTicks
	for _, parent := range []*world.Frog{a, b} {
		parent.CanMate = false
		parent.CooldownUntil = until
	}
	return child, true
}

func (c *Coordinator) CooldownTicks() uint64 {
	return c.cooldownTicks
}
