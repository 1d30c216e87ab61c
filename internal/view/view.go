package view

import (
	"math"
	"math/rand"

	"github.com/hardchor/frog-pond/internal/net/proto"
	"github.com/hardchor/frog-pond/internal/world"
)

const (
	DefaultMaxSize       = 10.0
	DefaultSmoothing     = 100.0
	DefaultArrivalRadius = 5.0
	growthBase           = 1.01
)

// Motion tunes how a frog drifts around the viewport.
type Motion struct {
	MaxSize       float64
	Smoothing     float64
	ArrivalRadius float64
}

func DefaultMotion() Motion {
	return Motion{MaxSize: DefaultMaxSize, Smoothing: DefaultSmoothing, ArrivalRadius: DefaultArrivalRadius}
}

func (m Motion) normalized() Motion {
	def := DefaultMotion()
	if m.MaxSize <= 0 {
		m.MaxSize = def.MaxSize
	}
	if m.Smoothing < 1 {
		m.Smoothing = def.Smoothing
	}
	if m.ArrivalRadius <= 0 {
		m.ArrivalRadius = def.ArrivalRadius
	}
	return m
}

// FrogView mirrors one server frog and owns its on-screen shape. Position is
// local to the renderer; the server only learns it through position reports.
type FrogView struct {
	ID      string
	Gender  world.Gender
	CanMate bool
	MaxAge  int
	Age     int

	canvas      Canvas
	shape       Shape
	destination Vec
	motion      Motion
	rng         *rand.Rand
}

func NewFrogView(canvas Canvas, rng *rand.Rand, motion Motion, snap world.FrogSnapshot) *FrogView {
	size := canvas.Size()
	var start Vec
	if snap.Position.X != 0 || snap.Position.Y != 0 {
		p := snap.Position.Clamp()
		start = Vec{X: p.X * size.X, Y: p.Y * size.Y}
	} else {
		start = randomPoint(rng, size)
	}
	f := &FrogView{
		ID:     snap.ID,
		canvas: canvas,
		shape:  canvas.CreateShape(start, 1),
		motion: motion.normalized(),
		rng:    rng,
	}
	f.shape.SetStroke(ColorBlack)
	f.Depart()
	f.Update(snap)
	return f
}

func (f *FrogView) Update(snap world.FrogSnapshot) {
	f.Merge(snap, proto.AllFrogFields)
}

// Merge applies only the fields a partial frame carried and restyles.
func (f *FrogView) Merge(snap world.FrogSnapshot, fields proto.FrogFields) {
	if fields.Has(proto.FieldGender) {
		f.Gender = snap.Gender
	}
	if fields.Has(proto.FieldCanMate) {
		f.CanMate = snap.CanMate
	}
	if fields.Has(proto.FieldMaxAge) {
		f.MaxAge = snap.MaxAge
	}
	if fields.Has(proto.FieldAge) {
		f.Age = snap.Age
	}

	fill := ColorYellow
	if f.Gender == world.GenderMale {
		fill = ColorGreen
	}
	fill.A = opacity(f.Age, f.MaxAge)
	f.shape.SetFill(fill)

	if f.CanMate {
		f.shape.SetStroke(ColorRed)
	} else {
		f.shape.SetStroke(ColorBlack)
	}

	if f.shape.Bounds().Width() < f.motion.MaxSize {
		f.shape.Scale(math.Pow(growthBase, float64(f.Age)))
	}
}

func opacity(age, maxAge int) float64 {
	if age <= 0 {
		return 1
	}
	return math.Min(1, float64(maxAge)/float64(age))
}

// Animate moves the frog a fraction of the way to its destination and picks a
// new one once it is close enough.
func (f *FrogView) Animate() {
	pos := f.shape.Position()
	vector := f.destination.Sub(pos)
	f.shape.TranslateTo(pos.Add(vector.Scale(1 / f.motion.Smoothing)))
	if vector.Len() < f.motion.ArrivalRadius {
		f.Depart()
	}
}

// Touches reports whether other's anchor lies within this frog's bounds grown
// by tolerance. A non-positive tolerance means the frog's own width.
func (f *FrogView) Touches(other *FrogView, tolerance float64) bool {
	if other == nil || other == f {
		return false
	}
	if tolerance <= 0 {
		tolerance = f.shape.Bounds().Width()
	}
	return f.canvas.HitTest(f.shape, other.shape.Position(), tolerance)
}

func (f *FrogView) NormalizedPosition() world.Position {
	size := f.canvas.Size()
	if size.X <= 0 || size.Y <= 0 {
		return world.Position{}
	}
	pos := f.shape.Position()
	return world.Position{X: pos.X / size.X, Y: pos.Y / size.Y}.Clamp()
}

func (f *FrogView) Depart() {
	f.destination = randomPoint(f.rng, f.canvas.Size())
}

func (f *FrogView) Destination() Vec { return f.destination }

func (f *FrogView) Shape() Shape { return f.shape }

// Snapshot is the reference sent back with intents.
func (f *FrogView) Snapshot() world.FrogSnapshot {
	return world.FrogSnapshot{
		ID:       f.ID,
		Gender:   f.Gender,
		CanMate:  f.CanMate,
		MaxAge:   f.MaxAge,
		Age:      f.Age,
		Position: f.NormalizedPosition(),
	}
}

func (f *FrogView) remove() {
	f.shape.Remove()
}

func randomPoint(rng *rand.Rand, size Vec) Vec {
	return Vec{X: rng.Float64() * size.X, Y: rng.Float64() * size.Y}
}
