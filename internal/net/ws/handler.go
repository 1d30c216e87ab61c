package ws

import (
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hardchor/frog-pond/internal/net/session"
	"github.com/hardchor/frog-pond/internal/telemetry"
)

const (
	defaultWriteWait = 10 * time.Second
	defaultPongWait  = 60 * time.Second
	defaultReadLimit = 64 * 1024
)

type HandlerConfig struct {
	Logger    telemetry.Logger
	WriteWait time.Duration
	PongWait  time.Duration
	ReadLimit int64
}

// Handler binds websocket connections to session channels.
type Handler struct {
	hub      *session.Hub
	logger   telemetry.Logger
	cfg      HandlerConfig
	upgrader websocket.Upgrader
}

func NewHandler(hub *session.Hub, cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.DiscardLogger()
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = defaultReadLimit
	}
	return &Handler{
		hub:    hub,
		logger: cfg.Logger,
		cfg:    cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	transport := newConnTransport(conn, h.cfg.WriteWait, pingPeriod(h.cfg.PongWait))
	ch := h.hub.Connect(transport)
	h.logger.Printf("renderer %s connected from %s", ch.ID(), r.RemoteAddr)

	conn.SetReadLimit(h.cfg.ReadLimit)
	conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})
	go transport.keepalive()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			reason := "read_error"
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				reason = "closed"
			}
			h.hub.Disconnect(ch, reason)
			h.logger.Printf("renderer %s disconnected: %s", ch.ID(), reason)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
		ch.Handle(payload)
	}
}

func pingPeriod(pongWait time.Duration) time.Duration {
	return pongWait * 9 / 10
}

// connTransport serialises writes to a websocket connection.
type connTransport struct {
	conn       *websocket.Conn
	writeWait  time.Duration
	pingPeriod time.Duration

	mu        sync.Mutex
	stop      chan struct{}
	closeOnce sync.Once
}

func newConnTransport(conn *websocket.Conn, writeWait, pingPeriod time.Duration) *connTransport {
	return &connTransport{
		conn:       conn,
		writeWait:  writeWait,
		pingPeriod: pingPeriod,
		stop:       make(chan struct{}),
	}
}

func (t *connTransport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(t.writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, frame)
}

func (t *connTransport) keepalive() {
	ticker := time.NewTicker(t.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			deadline := time.Now().Add(t.writeWait)
			if err := t.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (t *connTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stop)
		deadline := time.Now().Add(t.writeWait)
		t.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		err = t.conn.Close()
	})
	return err
}
