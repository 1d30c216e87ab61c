package sim

import "github.com/hardchor/frog-pond/internal/world"

type EventKind string

const (
	EventCreate EventKind = "create"
	EventUpdate EventKind = "update"
	EventRemove EventKind = "remove"
	EventStats  EventKind = "stats"
)

// Stats is the per-tick aggregate broadcast after every tick.
type Stats struct {
	Population int `json:"population"`
	Algae      int `json:"algae"`
	Oxygen     int `json:"oxygen"`
	Nitrogen   int `json:"nitrogen"`
}

// Event is one state change delivered to subscribers. Frog is set for create
// and update, ID for remove and Stats for stats.
type Event struct {
	Kind  EventKind          `json:"kind"`
	Tick  uint64             `json:"tick"`
	Frog  world.FrogSnapshot `json:"frog,omitempty"`
	ID    string             `json:"id,omitempty"`
	Stats Stats              `json:"stats,omitempty"`
}

// Subscriber receives event batches in tick order. Deliver runs while the
// engine holds its lock and must not block; returning false unsubscribes.
type Subscriber interface {
	Deliver(batch []Event) bool
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(batch []Event) bool

func (f SubscriberFunc) Deliver(batch []Event) bool {
	return f(batch)
}

func createEvent(tick uint64, snap world.FrogSnapshot) Event {
	return Event{Kind: EventCreate, Tick: tick, Frog: snap}
}

func updateEvent(tick uint64, snap world.FrogSnapshot) Event {
	return Event{Kind: EventUpdate, Tick: tick, Frog: snap}
}

func removeEvent(tick uint64, id string) Event {
	return Event{Kind: EventRemove, Tick: tick, ID: id}
}

func statsEvent(tick uint64, stats Stats) Event {
	return Event{Kind: EventStats, Tick: tick, Stats: stats}
}
