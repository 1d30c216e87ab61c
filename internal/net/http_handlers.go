package net

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/hardchor/frog-pond/internal/net/session"
	"github.com/hardchor/frog-pond/internal/net/ws"
	"github.com/hardchor/frog-pond/internal/observability"
	"github.com/hardchor/frog-pond/internal/telemetry"
	"github.com/hardchor/frog-pond/logging"
)

// HTTPHandlerConfig collects what the server mux exposes besides the
// websocket endpoint. Nil Metrics and an empty ClientDir leave /metrics and
// the static client unmounted.
type HTTPHandlerConfig struct {
	ClientDir     string
	Logger        telemetry.Logger
	Metrics       nethttp.Handler
	Router        *logging.Router
	Observability observability.Config
	WebSocket     ws.HandlerConfig
}

type diagnosticsResponse struct {
	Status     string              `json:"status"`
	ServerTime int64               `json:"serverTime"`
	Session    session.Diagnostics `json:"session"`
	Logging    logging.RouterStats `json:"logging"`
}

type pondHandlers struct {
	hub    *session.Hub
	router *logging.Router
	logger telemetry.Logger
}

// NewHTTPHandler routes /health, /diagnostics, /metrics, /ws, the optional
// pprof endpoints and the static renderer.
func NewHTTPHandler(hub *session.Hub, cfg HTTPHandlerConfig) nethttp.Handler {
	h := &pondHandlers{hub: hub, router: cfg.Router, logger: cfg.Logger}
	if h.logger == nil {
		h.logger = telemetry.DiscardLogger()
	}

	mux := nethttp.NewServeMux()
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/diagnostics", h.diagnostics)
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	wsCfg := cfg.WebSocket
	if wsCfg.Logger == nil {
		wsCfg.Logger = h.logger
	}
	mux.HandleFunc("/ws", ws.NewHandler(hub, wsCfg).Handle)

	if observability.Mount(mux, cfg.Observability) {
		h.logger.Printf("pprof handlers mounted under /debug/pprof/")
	}
	if cfg.ClientDir != "" {
		mux.Handle("/", nethttp.FileServer(nethttp.Dir(cfg.ClientDir)))
	}
	return mux
}

func (h *pondHandlers) health(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func (h *pondHandlers) diagnostics(w nethttp.ResponseWriter, _ *nethttp.Request) {
	h.writeJSON(w, diagnosticsResponse{
		Status:     "ok",
		ServerTime: time.Now().UnixMilli(),
		Session:    h.hub.Diagnostics(),
		Logging:    h.router.Stats(),
	})
}

func (h *pondHandlers) writeJSON(w nethttp.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Printf("failed to encode response: %v", err)
		nethttp.Error(w, "failed to encode", nethttp.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
