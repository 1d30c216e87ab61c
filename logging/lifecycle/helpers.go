package lifecycle

import (
	"context"

	"github.com/hardchor/frog-pond/logging"
)

const (
	// EventFrogBorn is emitted when a frog enters the pond, either as part of
	// the initial population or as offspring.
	EventFrogBorn logging.EventType = "lifecycle.frog_born"
	// EventFrogDied is emitted when a frog reaches its maximum age.
	EventFrogDied logging.EventType = "lifecycle.frog_died"
	// EventFrogsMated is emitted when a mate request produces offspring.
	EventFrogsMated logging.EventType = "lifecycle.frogs_mated"
	// EventSessionStarted is emitted when the simulation begins ticking.
	EventSessionStarted logging.EventType = "lifecycle.session_started"
	// EventSessionStopped is emitted when the simulation is torn down.
	EventSessionStopped logging.EventType = "lifecycle.session_stopped"
)

// FrogBornPayload captures where and how a frog was created.
type FrogBornPayload struct {
	Gender  string  `json:"gender"`
	MaxAge  int     `json:"maxAge"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Initial bool    `json:"initial,omitempty"`
}

// FrogDiedPayload captures the age at death and the nitrogen returned.
type FrogDiedPayload struct {
	Age    int `json:"age"`
	Credit int `json:"credit"`
}

// FrogsMatedPayload identifies the offspring and the cooldown applied.
type FrogsMatedPayload struct {
	OffspringID   string `json:"offspringId"`
	CooldownUntil uint64 `json:"cooldownUntil"`
}

// SessionPayload describes the session boundary.
type SessionPayload struct {
	PeriodMillis int64 `json:"periodMillis,omitempty"`
	Population   int   `json:"population"`
}

// FrogBorn publishes a birth event.
func FrogBorn(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload FrogBornPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	severity := logging.SeverityInfo
	if payload.Initial {
		severity = logging.SeverityDebug
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFrogBorn,
		Tick:     tick,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

// FrogDied publishes a death event.
func FrogDied(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload FrogDiedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFrogDied,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

// FrogsMated publishes a successful mating. The actor is the first parent and
// the second parent is recorded as the target.
func FrogsMated(ctx context.Context, pub logging.Publisher, tick uint64, actor, partner logging.EntityRef, payload FrogsMatedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventFrogsMated,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{partner},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

// SessionStarted publishes the start of ticking.
func SessionStarted(ctx context.Context, pub logging.Publisher, tick uint64, payload SessionPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionStarted,
		Tick:     tick,
		Actor:    logging.PondRef(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}

// SessionStopped publishes a full session reset.
func SessionStopped(ctx context.Context, pub logging.Publisher, tick uint64, payload SessionPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventSessionStopped,
		Tick:     tick,
		Actor:    logging.PondRef(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
		Extra:    extra,
	})
}
