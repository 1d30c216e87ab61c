package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/yasserelgammal/rate-limiter/limiter"
	"github.com/yasserelgammal/rate-limiter/store"

	"github.com/hardchor/frog-pond/internal/net/proto"
	"github.com/hardchor/frog-pond/internal/sim"
	"github.com/hardchor/frog-pond/internal/telemetry"
	"github.com/hardchor/frog-pond/internal/world"
	"github.com/hardchor/frog-pond/logging"
	"github.com/hardchor/frog-pond/logging/network"
)

// Engine is the simulation surface a session drives. *sim.Engine satisfies it.
type Engine interface {
	Start(period time.Duration) bool
	Stop()
	Running() bool
	SubmitMateRequest(a, b string) (bool, string)
	ReportPosition(id string, pos world.Position) bool
	Subscribe(sink sim.Subscriber) ([]world.FrogSnapshot, sim.Stats, func())
	Snapshot() []world.FrogSnapshot
	Stats() sim.Stats
	Tick() uint64
}

// Config tunes per-channel buffering and inbound throttling.
type Config struct {
	TickPeriod     time.Duration
	OutboundBuffer int
	// InboundRate is the sustained number of frames per second a renderer may
	// send; zero disables throttling.
	InboundRate  int64
	InboundBurst int64
}

func DefaultConfig() Config {
	return Config{
		TickPeriod:     time.Second,
		OutboundBuffer: 1024,
		InboundRate:    120,
		InboundBurst:   240,
	}
}

type Deps struct {
	Logger    telemetry.Logger
	Publisher logging.Publisher
	Metrics   telemetry.Metrics
	Counters  *telemetry.Counters
}

// Hub is the session: one authoritative engine and the renderers attached to
// it. The first connect starts the engine and the last disconnect stops it.
type Hub struct {
	engine    Engine
	cfg       Config
	logger    telemetry.Logger
	publisher logging.Publisher
	metrics   telemetry.Metrics
	counters  *telemetry.Counters
	limiter   *limiter.TokenBucket

	mu       sync.Mutex
	channels map[string]*Channel
	nextID   uint64
}

func NewHub(engine Engine, cfg Config, deps Deps) *Hub {
	def := DefaultConfig()
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = def.TickPeriod
	}
	if cfg.OutboundBuffer <= 0 {
		cfg.OutboundBuffer = def.OutboundBuffer
	}
	if deps.Logger == nil {
		deps.Logger = telemetry.DiscardLogger()
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NopMetrics()
	}
	if deps.Counters == nil {
		deps.Counters = telemetry.NewCounters()
	}
	h := &Hub{
		engine:    engine,
		cfg:       cfg,
		logger:    deps.Logger,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		counters:  deps.Counters,
		channels:  make(map[string]*Channel),
	}
	if cfg.InboundRate > 0 {
		burst := cfg.InboundBurst
		if burst < cfg.InboundRate {
			burst = cfg.InboundRate
		}
		bucket, err := limiter.NewTokenBucket(limiter.Config{
			Rate:     cfg.InboundRate,
			Duration: time.Second,
			Burst:    burst,
		}, store.NewMemoryStore(time.Minute))
		if err != nil {
			h.logger.Printf("[session] inbound throttling disabled: %v", err)
		} else {
			h.limiter = bucket
		}
	}
	return h
}

func (h *Hub) allow(channelID string) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(channelID)
}

// Connect attaches a renderer. The current population is queued as
// frog.create frames followed by the aggregate stats, ahead of any live event.
func (h *Hub) Connect(transport Transport) *Channel {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	ch := newChannel("channel-"+strconv.FormatUint(h.nextID, 10), h, transport, h.cfg.OutboundBuffer)
	h.channels[ch.id] = ch
	if len(h.channels) == 1 {
		h.engine.Start(h.cfg.TickPeriod)
	}

	snapshot, stats, cancel := h.engine.Subscribe(ch)
	ch.setCancel(cancel)

	replay := make([][]byte, 0, len(snapshot)+4)
	for _, snap := range snapshot {
		frame, err := proto.EncodeFrog(proto.TypeFrogCreate, snap)
		if err != nil {
			h.logger.Printf("[session] failed to encode replay for %s: %v", ch.id, err)
			continue
		}
		replay = append(replay, frame)
	}
	if frames, err := statsFrames(stats); err == nil {
		replay = append(replay, frames...)
	}
	ch.start(replay)

	h.metrics.Store("channels", uint64(len(h.channels)))
	network.ChannelConnected(context.Background(), h.publisher, h.engine.Tick(), logging.ChannelRef(ch.id), network.ConnectedPayload{
		Snapshot: len(snapshot),
		Channels: len(h.channels),
	}, nil)
	return ch
}

// Disconnect detaches a renderer. Unknown or already removed channels are
// ignored. Removing the last channel ends the session.
func (h *Hub) Disconnect(ch *Channel, reason string) {
	if ch == nil {
		return
	}
	h.mu.Lock()
	if _, ok := h.channels[ch.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.channels, ch.id)
	remaining := len(h.channels)
	tick := h.engine.Tick()
	if remaining == 0 {
		h.engine.Stop()
	}
	h.metrics.Store("channels", uint64(remaining))
	h.mu.Unlock()

	// Close joins the writer, which may sit in a slow Send.
	if err := ch.Close(); err != nil {
		h.logger.Printf("[session] closing %s: %v", ch.id, err)
	}

	network.ChannelDisconnected(context.Background(), h.publisher, tick, logging.ChannelRef(ch.id), network.DisconnectedPayload{
		Reason:   reason,
		Channels: remaining,
	}, nil)
}

// Close disconnects every renderer.
func (h *Hub) Close() {
	h.mu.Lock()
	channels := make([]*Channel, 0, len(h.channels))
	for _, ch := range h.channels {
		channels = append(channels, ch)
	}
	h.mu.Unlock()
	for _, ch := range channels {
		h.Disconnect(ch, "shutdown")
	}
	h.engine.Stop()
}

func (h *Hub) Channels() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.channels)
}

func (h *Hub) Engine() Engine {
	return h.engine
}

func (h *Hub) Counters() *telemetry.Counters {
	return h.counters
}

// Diagnostics is the session summary served on /diagnostics.
type Diagnostics struct {
	Channels   int                        `json:"channels"`
	Running    bool                       `json:"running"`
	Tick       uint64                     `json:"tick"`
	Stats      sim.Stats                  `json:"stats"`
	Ages       telemetry.Distribution     `json:"ages"`
	Eligible   int                        `json:"eligible"`
	Telemetry  telemetry.CountersSnapshot `json:"telemetry"`
	TickPeriod int64                      `json:"tickPeriodMillis"`
}

func (h *Hub) Diagnostics() Diagnostics {
	snapshot := h.engine.Snapshot()
	ages := make([]int, 0, len(snapshot))
	eligible := 0
	for _, snap := range snapshot {
		ages = append(ages, snap.Age)
		if snap.CanMate {
			eligible++
		}
	}
	return Diagnostics{
		Channels:   h.Channels(),
		Running:    h.engine.Running(),
		Tick:       h.engine.Tick(),
		Stats:      h.engine.Stats(),
		Ages:       telemetry.AgeDistribution(ages),
		Eligible:   eligible,
		Telemetry:  h.counters.Snapshot(),
		TickPeriod: h.cfg.TickPeriod.Milliseconds(),
	}
}
