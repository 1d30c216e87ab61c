package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hardchor/frog-pond/internal/net/proto"
	"github.com/hardchor/frog-pond/internal/sim"
	"github.com/hardchor/frog-pond/logging"
	"github.com/hardchor/frog-pond/logging/network"
)

// Transport is the outbound half of a renderer connection.
type Transport interface {
	Send(frame []byte) error
	Close() error
}

// Channel is one renderer's link to the session. Engine events are encoded
// into frames and queued; a writer goroutine drains the queue so a slow
// renderer never stalls the tick.
type Channel struct {
	id        string
	hub       *Hub
	transport Transport

	outbound chan []byte
	replay   [][]byte
	done     chan struct{}
	writerWG sync.WaitGroup

	mu        sync.Mutex
	cancelSub func()
	closed    bool

	throttled atomic.Uint64
}

func newChannel(id string, hub *Hub, transport Transport, buffer int) *Channel {
	if buffer < 1 {
		buffer = 1
	}
	return &Channel{
		id:        id,
		hub:       hub,
		transport: transport,
		outbound:  make(chan []byte, buffer),
		done:      make(chan struct{}),
	}
}

func (c *Channel) ID() string {
	return c.id
}

// Deliver implements sim.Subscriber. It never blocks; a full queue cuts the
// renderer off.
func (c *Channel) Deliver(batch []sim.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	for _, event := range batch {
		frames, err := encodeEvent(event)
		if err != nil {
			c.hub.logger.Printf("[session] failed to encode %s event for %s: %v", event.Kind, c.id, err)
			continue
		}
		for _, frame := range frames {
			if !c.enqueue(frame) {
				c.overflow(event.Tick)
				return false
			}
		}
	}
	return true
}

func (c *Channel) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.outbound <- frame:
		return true
	default:
		return false
	}
}

func (c *Channel) overflow(tick uint64) {
	network.OutboundOverflow(context.Background(), c.hub.publisher, tick, logging.ChannelRef(c.id), network.OverflowPayload{
		Capacity: cap(c.outbound),
	}, nil)
	c.hub.metrics.Add("outbound_overflow_total", 1)
	// Deliver runs under the engine lock and Disconnect may stop the engine.
	go c.hub.Disconnect(c, "outbound_overflow")
}

// start launches the writer. Replay frames are written before anything
// queued by Deliver.
func (c *Channel) start(replay [][]byte) {
	c.replay = replay
	c.writerWG.Add(1)
	go c.writeLoop()
}

func (c *Channel) writeLoop() {
	defer c.writerWG.Done()
	for _, frame := range c.replay {
		if !c.write(frame) {
			return
		}
	}
	c.replay = nil
	for {
		select {
		case <-c.done:
			return
		case frame := <-c.outbound:
			if !c.write(frame) {
				return
			}
		}
	}
}

func (c *Channel) write(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	if err := c.transport.Send(frame); err != nil {
		select {
		case <-c.done:
		default:
			c.hub.logger.Printf("[session] write to %s failed: %v", c.id, err)
			go c.hub.Disconnect(c, "write_error")
		}
		return false
	}
	c.hub.counters.RecordFrame(len(frame))
	c.hub.metrics.Add("frames_sent_total", 1)
	return true
}

// Handle processes one inbound renderer frame.
func (c *Channel) Handle(payload []byte) {
	h := c.hub
	h.counters.RecordInbound()
	if !h.allow(c.id) {
		dropped := c.throttled.Add(1)
		h.counters.RecordThrottled()
		h.metrics.Add("inbound_throttled_total", 1)
		if dropped&(dropped-1) == 0 {
			network.InboundThrottled(context.Background(), h.publisher, h.engine.Tick(), logging.ChannelRef(c.id), network.ThrottledPayload{
				Dropped: dropped,
			}, nil)
		}
		return
	}

	msg, err := proto.DecodeClientMessage(payload)
	if err != nil {
		h.counters.RecordMalformed()
		h.logger.Printf("discarding malformed message from %s: %v", c.id, err)
		return
	}

	switch msg.Type {
	case proto.TypeFrogMate:
		req, err := proto.DecodeMate(msg)
		if err != nil {
			h.counters.RecordMalformed()
			h.logger.Printf("discarding %s from %s: %v", msg.Type, c.id, err)
			return
		}
		if ok, reason := h.engine.SubmitMateRequest(req.A, req.B); !ok {
			h.logger.Printf("[session] mate request %s+%s from %s rejected: %s", req.A, req.B, c.id, reason)
		}
	case proto.TypeFrogPosition:
		report, err := proto.DecodePosition(msg)
		if err != nil {
			h.counters.RecordMalformed()
			h.logger.Printf("discarding %s from %s: %v", msg.Type, c.id, err)
			return
		}
		if h.engine.ReportPosition(report.ID, report.Position) {
			return
		}
		h.counters.RecordStaleReference()
		network.StaleReference(context.Background(), h.publisher, h.engine.Tick(), logging.ChannelRef(c.id), logging.FrogRef(report.ID), network.StaleReferencePayload{
			Operation: msg.Type,
		}, nil)
		frame, err := proto.EncodeDestroy(report.ID)
		if err != nil {
			return
		}
		if !c.enqueue(frame) {
			c.overflow(h.engine.Tick())
		}
	default:
		h.counters.RecordMalformed()
		h.logger.Printf("unknown message type %q from %s", msg.Type, c.id)
	}
}

func (c *Channel) setCancel(cancel func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		cancel()
		return
	}
	c.cancelSub = cancel
	c.mu.Unlock()
}

// Close unsubscribes, waits for the writer to finish its current frame and
// then closes the transport, so nothing is sent on a closed transport. Safe to
// call more than once; it must not be called from the writer goroutine.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel := c.cancelSub
	c.cancelSub = nil
	close(c.done)
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.writerWG.Wait()
	return c.transport.Close()
}

// Throttled reports how many inbound frames were dropped.
func (c *Channel) Throttled() uint64 {
	return c.throttled.Load()
}
