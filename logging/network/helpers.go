package network

import (
	"context"

	"github.com/hardchor/frog-pond/logging"
)

const (
	// EventChannelConnected is emitted when a renderer attaches to the session.
	EventChannelConnected logging.EventType = "network.channel_connected"
	// EventChannelDisconnected is emitted when a renderer leaves.
	EventChannelDisconnected logging.EventType = "network.channel_disconnected"
	// EventStaleReference is emitted when a renderer addresses a frog the
	// server has already removed.
	EventStaleReference logging.EventType = "network.stale_reference"
	// EventInboundThrottled is emitted when a renderer exceeds its inbound
	// message budget.
	EventInboundThrottled logging.EventType = "network.inbound_throttled"
	// EventOutboundOverflow is emitted when a renderer cannot keep up with the
	// event stream and is cut off.
	EventOutboundOverflow logging.EventType = "network.outbound_overflow"
)

// ConnectedPayload captures the replay size sent to a new renderer.
type ConnectedPayload struct {
	Snapshot int `json:"snapshot"`
	Channels int `json:"channels"`
}

// DisconnectedPayload captures why a renderer left.
type DisconnectedPayload struct {
	Reason   string `json:"reason"`
	Channels int    `json:"channels"`
}

// StaleReferencePayload names the operation that hit a removed frog.
type StaleReferencePayload struct {
	Operation string `json:"operation"`
}

// ThrottledPayload counts dropped inbound frames.
type ThrottledPayload struct {
	MessageType string `json:"messageType"`
	Dropped     uint64 `json:"dropped"`
}

// OverflowPayload records the queue depth at the time of the cut-off.
type OverflowPayload struct {
	Capacity int `json:"capacity"`
}

func ChannelConnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ConnectedPayload, extra map[string]any) {
	publish(ctx, pub, EventChannelConnected, logging.SeverityInfo, tick, actor, nil, payload, extra)
}

func ChannelDisconnected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DisconnectedPayload, extra map[string]any) {
	publish(ctx, pub, EventChannelDisconnected, logging.SeverityInfo, tick, actor, nil, payload, extra)
}

// StaleReference publishes a debug event; stale references are routine while
// a renderer catches up with removals.
func StaleReference(ctx context.Context, pub logging.Publisher, tick uint64, actor, frog logging.EntityRef, payload StaleReferencePayload, extra map[string]any) {
	publish(ctx, pub, EventStaleReference, logging.SeverityDebug, tick, actor, []logging.EntityRef{frog}, payload, extra)
}

func InboundThrottled(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ThrottledPayload, extra map[string]any) {
	publish(ctx, pub, EventInboundThrottled, logging.SeverityWarn, tick, actor, nil, payload, extra)
}

func OutboundOverflow(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload OverflowPayload, extra map[string]any) {
	publish(ctx, pub, EventOutboundOverflow, logging.SeverityWarn, tick, actor, nil, payload, extra)
}

func publish(ctx context.Context, pub logging.Publisher, eventType logging.EventType, severity logging.Severity, tick uint64, actor logging.EntityRef, targets []logging.EntityRef, payload any, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     eventType,
		Tick:     tick,
		Actor:    actor,
		Targets:  targets,
		Severity: severity,
		Category: logging.CategoryNetwork,
		Payload:  payload,
		Extra:    extra,
	})
}
