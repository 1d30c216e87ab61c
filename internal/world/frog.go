package world

import "fmt"

// Gender is fixed at birth and travels on the wire as "m" or "f".
type Gender string

const (
	GenderMale   Gender = "m"
	GenderFemale Gender = "f"
)

func ParseGender(value string) (Gender, error) {
	switch Gender(value) {
	case GenderMale, GenderFemale:
		return Gender(value), nil
	default:
		return "", fmt.Errorf("unknown gender %q", value)
	}
}

// Opposite reports whether two genders differ.
func (g Gender) Opposite(other Gender) bool {
	return g != other
}

type Stage int

const (
	StageGrowing Stage = iota
	StageFertile
	StageSenescent
	StageDead
)

func (s Stage) String() string {
	switch s {
	case StageGrowing:
		return "growing"
	case StageFertile:
		return "fertile"
	case StageSenescent:
		return "senescent"
	case StageDead:
		return "dead"
	default:
		return "unknown"
	}
}

// StageOf places an age inside the lifecycle. The fertile window is exclusive
// on both ends.
func StageOf(age, maxAge int) Stage {
	switch {
	case age >= maxAge:
		return StageDead
	case Fertile(age, maxAge):
		return StageFertile
	case float64(age) <= 0.2*float64(maxAge):
		return StageGrowing
	default:
		return StageSenescent
	}
}

// Fertile reports whether age lies strictly inside (0.2*maxAge, 0.8*maxAge).
func Fertile(age, maxAge int) bool {
	lower := 0.2 * float64(maxAge)
	upper := 0.8 * float64(maxAge)
	return float64(age) > lower && float64(age) < upper
}

// Position is normalized to the unit square so renderers of any size agree.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Position) Clamp() Position {
	return Position{X: clampUnit(p.X), Y: clampUnit(p.Y)}
}

func clampUnit(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Frog is the authoritative agent record. Only the engine mutates it.
type Frog struct {
	ID            string
	Gender        Gender
	Age           int
	MaxAge        int
	CanMate       bool
	Position      Position
	CooldownUntil uint64
}

// InCooldown reports whether a mating cooldown is still running at tick.
func (f *Frog) InCooldown(tick uint64) bool {
	return f.CooldownUntil > tick
}

// RecomputeEligibility applies canMate = fertile && !cooldown and reports
// whether the flag changed.
func (f *Frog) RecomputeEligibility(tick uint64) bool {
	next := Fertile(f.Age, f.MaxAge) && !f.InCooldown(tick)
	changed := next != f.CanMate
	f.CanMate = next
	return changed
}

// Grow ages the frog by one tick and refreshes eligibility.
func (f *Frog) Grow(tick uint64) {
	f.Age++
	f.RecomputeEligibility(tick)
}

func (f *Frog) Dead() bool {
	return f.Age >= f.MaxAge
}

func (f *Frog) Stage() Stage {
	return StageOf(f.Age, f.MaxAge)
}

// FrogSnapshot is the value copy handed to subscribers and encoded on the wire.
type FrogSnapshot struct {
	ID       string   `json:"id"`
	Gender   Gender   `json:"gender"`
	CanMate  bool     `json:"canMate"`
	MaxAge   int      `json:"maxAge"`
	Age      int      `json:"age"`
	Position Position `json:"position"`
}

func (f *Frog) Snapshot() FrogSnapshot {
	return FrogSnapshot{
		ID:       f.ID,
		Gender:   f.Gender,
		CanMate:  f.CanMate,
		MaxAge:   f.MaxAge,
		Age:      f.Age,
		Position: f.Position,
	}
}
