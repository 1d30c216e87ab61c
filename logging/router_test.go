package logging_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/hardchor/frog-pond/logging"
	"github.com/hardchor/frog-pond/logging/sinks"
)

type failingSink struct{}

func (failingSink) Write(logging.Event) error { return errors.New("disk full") }
func (failingSink) Close(context.Context) error { return nil }

func fixedClock() logging.Clock {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return logging.ClockFunc(func() time.Time { return at })
}

func closeRouter(t *testing.T, router *logging.Router) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := router.Close(ctx); err != nil {
		t.Fatalf("close router: %v", err)
	}
}

func TestRouterFansOutToEverySink(t *testing.T) {
	first := sinks.NewMemory()
	second := sinks.NewMemory()
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"pond": "main"}
	router := logging.NewRouter(fixedClock(), cfg, nil, []logging.NamedSink{
		{Name: "first", Sink: first},
		{Name: "second", Sink: second},
		{Name: "nil"},
	})

	router.Publish(context.Background(), logging.Event{
		Type:     "lifecycle.frog_born",
		Tick:     3,
		Severity: logging.SeverityInfo,
		Extra:    map[string]any{"pond": "override"},
	})
	closeRouter(t, router)

	for name, sink := range map[string]*sinks.Memory{"first": first, "second": second} {
		events := sink.Events()
		if len(events) != 1 {
			t.Fatalf("%s: expected 1 event, got %d", name, len(events))
		}
		if !events[0].Time.Equal(fixedClock().Now()) {
			t.Fatalf("%s: expected clock time, got %v", name, events[0].Time)
		}
		if events[0].Extra["pond"] != "override" {
			t.Fatalf("%s: router fields must not overwrite event extras, got %v", name, events[0].Extra)
		}
	}
	stats := router.Stats()
	if stats.EventsTotal != 1 || stats.DroppedTotal != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(stats.Sinks) != 2 || stats.Sinks[0].Name != "first" || stats.Sinks[1].Written != 1 {
		t.Fatalf("unexpected sink stats %+v", stats.Sinks)
	}
}

func TestRouterAddsConfiguredFields(t *testing.T) {
	mem := sinks.NewMemory()
	cfg := logging.DefaultConfig()
	cfg.Fields = map[string]any{"pond": "main"}
	router := logging.NewRouter(fixedClock(), cfg, nil, []logging.NamedSink{{Name: "memory", Sink: mem}})

	router.Publish(context.Background(), logging.Event{Type: "network.channel_connected", Severity: logging.SeverityInfo})
	closeRouter(t, router)

	events := mem.Events()
	if len(events) != 1 || events[0].Extra["pond"] != "main" {
		t.Fatalf("expected pond field on event, got %+v", events)
	}
}

func TestRouterDropsBelowMinimumSeverity(t *testing.T) {
	mem := sinks.NewMemory()
	cfg := logging.DefaultConfig()
	cfg.MinimumSeverity = logging.SeverityWarn
	router := logging.NewRouter(fixedClock(), cfg, nil, []logging.NamedSink{{Name: "memory", Sink: mem}})

	router.Publish(context.Background(), logging.Event{Type: "simulation.pool_exchange", Severity: logging.SeverityDebug})
	router.Publish(context.Background(), logging.Event{Type: "simulation.tick_budget_overrun", Severity: logging.SeverityWarn})
	router.Publish(context.Background(), logging.Event{Severity: logging.SeverityError})
	closeRouter(t, router)

	events := mem.Events()
	if len(events) != 1 || events[0].Type != "simulation.tick_budget_overrun" {
		t.Fatalf("expected only the warning, got %+v", events)
	}
}

func TestRouterIgnoresPublishAfterClose(t *testing.T) {
	mem := sinks.NewMemory()
	router := logging.NewRouter(fixedClock(), logging.DefaultConfig(), nil, []logging.NamedSink{{Name: "memory", Sink: mem}})
	closeRouter(t, router)
	closeRouter(t, router)

	router.Publish(context.Background(), logging.Event{Type: "late", Severity: logging.SeverityError})
	if got := len(mem.Events()); got != 0 {
		t.Fatalf("expected no events after close, got %d", got)
	}
}

func TestRouterReportsSinkFailures(t *testing.T) {
	var buf bytes.Buffer
	fallback := log.New(&buf, "", 0)
	router := logging.NewRouter(fixedClock(), logging.DefaultConfig(), fallback, []logging.NamedSink{{Name: "broken", Sink: failingSink{}}})

	router.Publish(context.Background(), logging.Event{Type: "lifecycle.frog_died", Severity: logging.SeverityInfo})
	closeRouter(t, router)

	if !strings.Contains(buf.String(), "sink broken failed: disk full") {
		t.Fatalf("expected failure to reach fallback logger, got %q", buf.String())
	}
	stats := router.Stats()
	if len(stats.Sinks) != 1 || stats.Sinks[0].Failed != 1 || stats.Sinks[0].Written != 0 {
		t.Fatalf("unexpected sink stats %+v", stats.Sinks)
	}
}

func TestNilRouterIsInert(t *testing.T) {
	var router *logging.Router
	router.Publish(context.Background(), logging.Event{Type: "x"})
	if stats := router.Stats(); stats.EventsTotal != 0 || len(stats.Sinks) != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestWithFieldsKeepsExistingExtras(t *testing.T) {
	mem := sinks.NewMemory()
	pub := logging.WithFields(mem, map[string]any{"channel": "channel-1", "pond": "main"})

	pub.Publish(context.Background(), logging.Event{Type: "network.stale_reference", Extra: map[string]any{"channel": "channel-9"}})

	events := mem.Events()
	if len(events) != 1 {
		t.Fatalf("expected one event, got %d", len(events))
	}
	if events[0].Extra["channel"] != "channel-9" || events[0].Extra["pond"] != "main" {
		t.Fatalf("unexpected extras %v", events[0].Extra)
	}
	if logging.WithFields(nil, nil) == nil {
		t.Fatalf("expected nop publisher for nil input")
	}
}

func TestParseSeverity(t *testing.T) {
	cases := map[string]logging.Severity{
		"debug":   logging.SeverityDebug,
		"warning": logging.SeverityWarn,
		"error":   logging.SeverityError,
		"":        logging.SeverityInfo,
		"loud":    logging.SeverityInfo,
	}
	for input, want := range cases {
		if got := logging.ParseSeverity(input); got != want {
			t.Fatalf("ParseSeverity(%q) = %v, want %v", input, got, want)
		}
	}
}
