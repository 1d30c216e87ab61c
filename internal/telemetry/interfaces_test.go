package telemetry

import (
	"bytes"
	"log"
	"testing"
)

func TestWrapLogger(t *testing.T) {
	t.Run("nil logger", func(t *testing.T) {
		logger := WrapLogger(nil)
		logger.Printf("ignored %d", 42)
	})

	t.Run("forwards and exposes the standard logger", func(t *testing.T) {
		var buf bytes.Buffer
		base := log.New(&buf, "", 0)
		logger := WrapLogger(base)
		logger.Printf("pond %s", "ready")
		if got := buf.String(); got != "pond ready\n" {
			t.Fatalf("unexpected log output: %q", got)
		}
		provider, ok := logger.(interface{ StandardLogger() *log.Logger })
		if !ok || provider.StandardLogger() != base {
			t.Fatalf("expected wrapped logger to expose its base")
		}
	})
}

func TestDiscardLoggerAndNopMetrics(t *testing.T) {
	DiscardLogger().Printf("dropped %d", 1)

	var fn LoggerFunc
	fn.Printf("nil func is safe")

	metrics := NopMetrics()
	metrics.Add("ignored", 1)
	metrics.Store("ignored", 1)
}
