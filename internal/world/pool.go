package world

import "math"

const (
	minGrowthRate = 0.9
	maxGrowthRate = 1.5
)

// PoolConfig holds the values a pool starts from and returns to on Reset.
type PoolConfig struct {
	Algae    int `yaml:"algae"`
	Nitrogen int `yaml:"nitrogen"`
	Oxygen   int `yaml:"oxygen"`
}

func DefaultPoolConfig() PoolConfig {
	return PoolConfig{Algae: 100, Nitrogen: 10000, Oxygen: 100}
}

// Pool is the shared resource environment. Algae is food, nitrogen is the
// algae's nutrient and oxygen accumulates as algae consume nitrogen.
type Pool struct {
	Algae    int
	Nitrogen int
	Oxygen   int

	initial PoolConfig
}

// Exchange describes a single Advance step.
type Exchange struct {
	Growth      float64
	Consumption int
}

func NewPool(cfg PoolConfig) *Pool {
	p := &Pool{initial: cfg}
	p.Reset()
	return p
}

// Advance grows algae proportionally to the nitrogen available per unit and
// then lets the algae convert nitrogen into oxygen.
func (p *Pool) Advance() Exchange {
	growth := minGrowthRate
	if p.Algae > 0 {
		growth = float64(p.Nitrogen) / float64(p.Algae)
		growth = math.Max(minGrowthRate, math.Min(maxGrowthRate, growth))
	}
	p.Algae = int(math.Round(float64(p.Algae) * growth))

	consumption := min(p.Algae, p.Nitrogen)
	if consumption < 0 {
		consumption = 0
	}
	p.Nitrogen -= consumption
	p.Oxygen += consumption
	return Exchange{Growth: growth, Consumption: consumption}
}

// Draw removes up to units algae and returns how many were available.
func (p *Pool) Draw(units int) int {
	if units <= 0 || p.Algae <= 0 {
		return 0
	}
	drawn := min(units, p.Algae)
	p.Algae -= drawn
	return drawn
}

// Credit returns nitrogen to the pool.
func (p *Pool) Credit(amount int) {
	if amount <= 0 {
		return
	}
	p.Nitrogen += amount
}

func (p *Pool) Reset() {
	p.Algae = p.initial.Algae
	p.Nitrogen = p.initial.Nitrogen
	p.Oxygen = p.initial.Oxygen
}
