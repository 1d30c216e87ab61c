package view

import (
	"fmt"
	"math/rand"

	"github.com/hardchor/frog-pond/internal/net/proto"
	"github.com/hardchor/frog-pond/internal/world"
)

const (
	DefaultHitEvery = 10
	algaeSize       = 10.0
)

// Outbox carries intents from a renderer back to the server.
type Outbox interface {
	Mate(a, b world.FrogSnapshot) error
	Position(id string, pos world.Position) error
}

type PondConfig struct {
	Motion   Motion
	HitEvery int
	Seed     string
}

func DefaultPondConfig() PondConfig {
	return PondConfig{Motion: DefaultMotion(), HitEvery: DefaultHitEvery}
}

// Readout holds the latest stats frames as shown to the viewer.
type Readout struct {
	Frogs    int
	Algae    int
	Oxygen   int
	Nitrogen int
}

// Pond is one renderer's mirror of the server population. It is not safe for
// concurrent use; the renderer drives it from a single goroutine.
type Pond struct {
	cfg     PondConfig
	canvas  Canvas
	outbox  Outbox
	rng     *rand.Rand
	frogs   []*FrogView
	index   map[string]*FrogView
	algae   []Shape
	readout Readout
}

func NewPond(canvas Canvas, outbox Outbox, cfg PondConfig) *Pond {
	if cfg.HitEvery <= 0 {
		cfg.HitEvery = DefaultHitEvery
	}
	cfg.Motion = cfg.Motion.normalized()
	return &Pond{
		cfg:    cfg,
		canvas: canvas,
		outbox: outbox,
		rng:    world.NewDeterministicRNG(cfg.Seed, "pondview"),
		index:  make(map[string]*FrogView),
	}
}

// Apply folds one server message into the mirror. Updates and destroys for
// unknown ids are ignored.
func (p *Pond) Apply(msg proto.ServerMessage) error {
	switch msg.Type {
	case proto.TypeFrogCreate:
		if existing, ok := p.index[msg.ID]; ok {
			existing.Merge(msg.Frog, frogFields(msg))
			return nil
		}
		frog := NewFrogView(p.canvas, p.rng, p.cfg.Motion, msg.Frog)
		p.frogs = append(p.frogs, frog)
		p.index[frog.ID] = frog
	case proto.TypeFrogUpdate:
		if frog, ok := p.index[msg.ID]; ok {
			frog.Merge(msg.Frog, frogFields(msg))
		}
	case proto.TypeFrogDestroy:
		p.remove(msg.ID)
	case proto.TypeFrogsStats:
		p.readout.Frogs = msg.Num
	case proto.TypeAlgaeStats:
		p.readout.Algae = msg.Num
		p.syncAlgae(msg.Num)
	case proto.TypeOxygenStats:
		p.readout.Oxygen = msg.Num
	case proto.TypeNitrogenStats:
		p.readout.Nitrogen = msg.Num
	default:
		return fmt.Errorf("unsupported message type %q", msg.Type)
	}
	return nil
}

func (p *Pond) remove(id string) {
	frog, ok := p.index[id]
	if !ok {
		return
	}
	frog.remove()
	delete(p.index, id)
	for i, candidate := range p.frogs {
		if candidate == frog {
			p.frogs = append(p.frogs[:i], p.frogs[i+1:]...)
			break
		}
	}
}

// syncAlgae keeps one decoration per unit of algae. Oldest decorations go
// first when the count shrinks.
func (p *Pond) syncAlgae(n int) {
	if n < 0 {
		n = 0
	}
	for len(p.algae) < n {
		shape := p.canvas.CreateShape(randomPoint(p.rng, p.canvas.Size()), algaeSize)
		shape.SetFill(ColorAlgae)
		p.algae = append(p.algae, shape)
	}
	for len(p.algae) > n {
		p.algae[0].Remove()
		p.algae = p.algae[1:]
	}
}

// Frame advances animation by one frame. Every HitEvery frames it also runs
// the proximity sweep and reports each frog's position.
func (p *Pond) Frame(count int) error {
	sweep := count%p.cfg.HitEvery == 0
	for _, frog := range p.frogs {
		frog.Animate()
		if !sweep {
			continue
		}
		for _, other := range p.frogs {
			if other == frog || !mateable(frog, other) || !frog.Touches(other, 0) {
				continue
			}
			if p.outbox != nil {
				if err := p.outbox.Mate(frog.Snapshot(), other.Snapshot()); err != nil {
					return fmt.Errorf("sending mate intent: %w", err)
				}
			}
			frog.Depart()
			other.Depart()
		}
		if p.outbox != nil {
			if err := p.outbox.Position(frog.ID, frog.NormalizedPosition()); err != nil {
				return fmt.Errorf("sending position: %w", err)
			}
		}
	}
	return nil
}

func mateable(a, b *FrogView) bool {
	return a.CanMate && b.CanMate && a.Gender.Opposite(b.Gender)
}

// Clear drops every mirrored frog and decoration, as on disconnect.
func (p *Pond) Clear() {
	for _, frog := range p.frogs {
		frog.remove()
	}
	for _, shape := range p.algae {
		shape.Remove()
	}
	p.frogs = nil
	p.algae = nil
	p.index = make(map[string]*FrogView)
	p.readout = Readout{}
}

func (p *Pond) Frog(id string) (*FrogView, bool) {
	frog, ok := p.index[id]
	return frog, ok
}

func (p *Pond) Len() int { return len(p.frogs) }

func (p *Pond) AlgaeDecorations() int { return len(p.algae) }

func (p *Pond) Readout() Readout { return p.readout }

func frogFields(msg proto.ServerMessage) proto.FrogFields {
	if msg.Fields == 0 {
		return proto.AllFrogFields
	}
	return msg.Fields
}
