package sim

import (
	"sync"

	"github.com/hardchor/frog-pond/internal/telemetry"
)

const (
	commandBufferOccupancyMetricKey = "mate_queue_occupancy"
	commandBufferOverflowMetricKey  = "mate_queue_overflow_total"
	commandBufferLimitedMetricKey   = "mate_queue_limited_total"
)

// CommandBuffer holds the intents submitted between two ticks. It is bounded
// twice: by total capacity and by how many pending commands may name the same
// frog. Any goroutine may Offer; the tick Drains.
type CommandBuffer struct {
	mu       sync.Mutex
	pending  []Command
	capacity int
	perActor int
	involved map[string]int
	metrics  telemetry.Metrics
}

// NewCommandBuffer builds a buffer for capacity commands. perActor <= 0
// disables the per-frog bound.
func NewCommandBuffer(capacity, perActor int, metrics telemetry.Metrics) *CommandBuffer {
	if capacity < 1 {
		capacity = 1
	}
	if metrics == nil {
		metrics = telemetry.NopMetrics()
	}
	return &CommandBuffer{
		pending:  make([]Command, 0, capacity),
		capacity: capacity,
		perActor: perActor,
		involved: make(map[string]int),
		metrics:  metrics,
	}
}

func (b *CommandBuffer) Capacity() int {
	return b.capacity
}

// Offer stages cmd and returns "" on success, or the reject reason.
func (b *CommandBuffer) Offer(cmd Command) string {
	actors := cmd.actors()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.perActor > 0 {
		for _, id := range actors {
			if b.involved[id] >= b.perActor {
				b.metrics.Add(commandBufferLimitedMetricKey, 1)
				return CommandRejectQueueLimit
			}
		}
	}
	if len(b.pending) >= b.capacity {
		b.metrics.Add(commandBufferOverflowMetricKey, 1)
		return CommandRejectQueueFull
	}
	b.pending = append(b.pending, cmd)
	for _, id := range actors {
		b.involved[id]++
	}
	b.metrics.Store(commandBufferOccupancyMetricKey, uint64(len(b.pending)))
	return ""
}

// Drain hands over everything staged, in submission order, and resets the
// per-frog counts.
func (b *CommandBuffer) Drain() []Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	out := b.pending
	b.pending = make([]Command, 0, b.capacity)
	clear(b.involved)
	b.metrics.Store(commandBufferOccupancyMetricKey, 0)
	return out
}

func (b *CommandBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (c Command) actors() []string {
	if c.Mate != nil && c.Mate.PartnerID != c.ActorID {
		return []string{c.ActorID, c.Mate.PartnerID}
	}
	return []string{c.ActorID}
}
