package sim

import "testing"

type recordingMetrics struct {
	added  map[string]uint64
	stored map[string]uint64
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{added: make(map[string]uint64), stored: make(map[string]uint64)}
}

func (m *recordingMetrics) Add(key string, delta uint64)   { m.added[key] += delta }
func (m *recordingMetrics) Store(key string, value uint64) { m.stored[key] = value }

func mate(a, b string) Command {
	return Command{ActorID: a, Type: CommandMate, Mate: &MateCommand{PartnerID: b}}
}

func TestCommandBufferDrainsInSubmissionOrder(t *testing.T) {
	buffer := NewCommandBuffer(3, 0, nil)
	cmds := []Command{mate("a", "x"), mate("b", "y"), mate("c", "z")}
	for _, cmd := range cmds {
		if reason := buffer.Offer(cmd); reason != "" {
			t.Fatalf("offer %+v rejected: %s", cmd, reason)
		}
	}
	if reason := buffer.Offer(mate("overflow", "w")); reason != CommandRejectQueueFull {
		t.Fatalf("expected %s, got %q", CommandRejectQueueFull, reason)
	}
	drained := buffer.Drain()
	if len(drained) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(drained))
	}
	for i, cmd := range drained {
		if cmd.ActorID != cmds[i].ActorID {
			t.Fatalf("expected drain order %v, got %v", cmds[i].ActorID, cmd.ActorID)
		}
	}
	if buffer.Len() != 0 || buffer.Drain() != nil {
		t.Fatalf("expected empty buffer after drain")
	}
	if reason := buffer.Offer(mate("d", "e")); reason != "" {
		t.Fatalf("expected room after drain, got %q", reason)
	}
}

func TestCommandBufferLimitsCommandsPerFrog(t *testing.T) {
	metrics := newRecordingMetrics()
	buffer := NewCommandBuffer(10, 2, metrics)

	if reason := buffer.Offer(mate("a", "b")); reason != "" {
		t.Fatalf("first offer rejected: %s", reason)
	}
	if reason := buffer.Offer(mate("c", "a")); reason != "" {
		t.Fatalf("second offer rejected: %s", reason)
	}
	if reason := buffer.Offer(mate("a", "d")); reason != CommandRejectQueueLimit {
		t.Fatalf("expected %s for third request naming a, got %q", CommandRejectQueueLimit, reason)
	}
	if reason := buffer.Offer(mate("d", "b")); reason != "" {
		t.Fatalf("b has one pending request, expected accept, got %q", reason)
	}
	if metrics.added[commandBufferLimitedMetricKey] != 1 {
		t.Fatalf("expected one limited request, got %d", metrics.added[commandBufferLimitedMetricKey])
	}

	buffer.Drain()
	if reason := buffer.Offer(mate("a", "d")); reason != "" {
		t.Fatalf("expected per-frog counts to reset on drain, got %q", reason)
	}
}

func TestCommandBufferReportsOccupancyAndOverflow(t *testing.T) {
	metrics := newRecordingMetrics()
	buffer := NewCommandBuffer(1, 0, metrics)
	if reason := buffer.Offer(mate("one", "two")); reason != "" {
		t.Fatalf("expected initial offer to succeed, got %q", reason)
	}
	if metrics.stored[commandBufferOccupancyMetricKey] != 1 {
		t.Fatalf("expected occupancy 1, got %d", metrics.stored[commandBufferOccupancyMetricKey])
	}
	if reason := buffer.Offer(mate("two", "one")); reason != CommandRejectQueueFull {
		t.Fatalf("expected offer to fail when capacity exceeded, got %q", reason)
	}
	if metrics.added[commandBufferOverflowMetricKey] != 1 {
		t.Fatalf("expected one overflow, got %d", metrics.added[commandBufferOverflowMetricKey])
	}
	if drained := buffer.Drain(); len(drained) != 1 || drained[0].ActorID != "one" {
		t.Fatalf("unexpected drained commands: %+v", drained)
	}
	if metrics.stored[commandBufferOccupancyMetricKey] != 0 {
		t.Fatalf("expected occupancy reset after drain")
	}
}
