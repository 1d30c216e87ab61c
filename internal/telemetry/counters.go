package telemetry

import (
	"sync/atomic"
	"time"
)

// Counters accumulates transport and tick figures for the diagnostics endpoint.
type Counters struct {
	ticks              atomic.Uint64
	tickDurationMicros atomic.Int64
	framesSent         atomic.Uint64
	bytesSent          atomic.Uint64
	inboundFrames      atomic.Uint64
	inboundThrottled   atomic.Uint64
	inboundMalformed   atomic.Uint64
	staleReferences    atomic.Uint64
	births             atomic.Uint64
	deaths             atomic.Uint64
}

type CountersSnapshot struct {
	Ticks              uint64 `json:"ticks"`
	TickDurationMicros int64  `json:"tickDurationMicros"`
	FramesSent         uint64 `json:"framesSent"`
	BytesSent          uint64 `json:"bytesSent"`
	InboundFrames      uint64 `json:"inboundFrames"`
	InboundThrottled   uint64 `json:"inboundThrottled"`
	InboundMalformed   uint64 `json:"inboundMalformed"`
	StaleReferences    uint64 `json:"staleReferences"`
	Births             uint64 `json:"births"`
	Deaths             uint64 `json:"deaths"`
}

func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) RecordTick(duration time.Duration, births, deaths int) {
	if c == nil {
		return
	}
	c.ticks.Add(1)
	c.tickDurationMicros.Store(max(duration.Microseconds(), 0))
	if births > 0 {
		c.births.Add(uint64(births))
	}
	if deaths > 0 {
		c.deaths.Add(uint64(deaths))
	}
}

func (c *Counters) RecordFrame(bytes int) {
	if c == nil {
		return
	}
	c.framesSent.Add(1)
	if bytes > 0 {
		c.bytesSent.Add(uint64(bytes))
	}
}

func (c *Counters) RecordInbound() {
	if c == nil {
		return
	}
	c.inboundFrames.Add(1)
}

func (c *Counters) RecordThrottled() {
	if c == nil {
		return
	}
	c.inboundThrottled.Add(1)
}

func (c *Counters) RecordMalformed() {
	if c == nil {
		return
	}
	c.inboundMalformed.Add(1)
}

func (c *Counters) RecordStaleReference() {
	if c == nil {
		return
	}
	c.staleReferences.Add(1)
}

func (c *Counters) Snapshot() CountersSnapshot {
	if c == nil {
		return CountersSnapshot{}
	}
	return CountersSnapshot{
		Ticks:              c.ticks.Load(),
		TickDurationMicros: c.tickDurationMicros.Load(),
		FramesSent:         c.framesSent.Load(),
		BytesSent:          c.bytesSent.Load(),
		InboundFrames:      c.inboundFrames.Load(),
		InboundThrottled:   c.inboundThrottled.Load(),
		InboundMalformed:   c.inboundMalformed.Load(),
		StaleReferences:    c.staleReferences.Load(),
		Births:             c.births.Load(),
		Deaths:             c.deaths.Load(),
	}
}
