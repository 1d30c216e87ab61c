package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hardchor/frog-pond/internal/config"
	servernet "github.com/hardchor/frog-pond/internal/net"
	"github.com/hardchor/frog-pond/internal/net/session"
	"github.com/hardchor/frog-pond/internal/sim"
	"github.com/hardchor/frog-pond/internal/telemetry"
	"github.com/hardchor/frog-pond/logging"
	loggingSinks "github.com/hardchor/frog-pond/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Logger   telemetry.Logger
	Settings *config.Config
	// Listener overrides Settings.Server.Addr when set.
	Listener net.Listener
}

// Run wires the pond server together and blocks until ctx is cancelled or the
// listener fails.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	settings := cfg.Settings
	if settings == nil {
		loaded, err := config.Load("", telemetryLogger)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		settings = loaded
	}

	logConfig := settings.LoggingConfig()
	sinks, err := buildSinks(logConfig)
	if err != nil {
		return fmt.Errorf("failed to construct logging sinks: %w", err)
	}
	router := logging.NewRouter(logging.SystemClock{}, logConfig, fallbackLogger, sinks)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	metrics := telemetry.NewPrometheusMetrics(nil, settings.Telemetry.MetricsPrefix)
	counters := telemetry.NewCounters()

	csvWriter, err := telemetry.OpenCSV(settings.Telemetry.CSVPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := csvWriter.Close(); cerr != nil {
			telemetryLogger.Printf("failed to close telemetry csv: %v", cerr)
		}
	}()
	if csvWriter != nil {
		telemetryLogger.Printf("writing tick telemetry to %s", settings.Telemetry.CSVPath)
	}
	recorder := newTickRecorder(counters, csvWriter, telemetryLogger)

	engine := sim.NewEngine(settings.Sim(), sim.Deps{
		Logger:    telemetryLogger,
		Publisher: router,
		Metrics:   metrics,
		Observer:  recorder.Observe,
	})

	hub := session.NewHub(engine, settings.SessionConfig(), session.Deps{
		Logger:    telemetryLogger,
		Publisher: router,
		Metrics:   metrics,
		Counters:  counters,
	})
	defer hub.Close()

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir:     filepath.Clean(settings.Server.ClientDir),
		Logger:        telemetryLogger,
		Metrics:       metrics.Handler(),
		Router:        router,
		Observability: settings.ObservabilityConfig(),
	})

	listener := cfg.Listener
	if listener == nil {
		listener, err = net.Listen("tcp", settings.Server.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", settings.Server.Addr, err)
		}
	}

	srv := &http.Server{Handler: handler}
	telemetryLogger.Printf("server listening on %s", listener.Addr())

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return err
	}
	telemetryLogger.Printf("server stopped")
	return nil
}

func buildSinks(cfg logging.Config) ([]logging.NamedSink, error) {
	sinks := []logging.NamedSink{
		{Name: logging.SinkConsole, Sink: loggingSinks.NewConsole(os.Stdout)},
	}
	if cfg.HasSink(logging.SinkJSON) {
		// Stdout must outlive the sink.
		var out io.Writer = struct{ io.Writer }{os.Stdout}
		if cfg.JSONPath != "" {
			f, err := os.OpenFile(cfg.JSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("opening %s: %w", cfg.JSONPath, err)
			}
			out = f
		}
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkJSON, Sink: loggingSinks.NewJSON(out, cfg.FlushInterval)})
	}
	return sinks, nil
}
