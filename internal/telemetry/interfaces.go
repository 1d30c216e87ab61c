package telemetry

import "log"

// Logger is the free-form operational log used next to the structured event
// router: connection notices, rejected requests and startup messages.
type Logger interface {
	Printf(format string, args ...any)
}

type LoggerFunc func(format string, args ...any)

func (f LoggerFunc) Printf(format string, args ...any) {
	if f == nil {
		return
	}
	f(format, args...)
}

// DiscardLogger drops every message.
func DiscardLogger() Logger {
	return LoggerFunc(nil)
}

// WrapLogger adapts a standard library logger.
func WrapLogger(logger *log.Logger) Logger {
	return &stdLogger{logger: logger}
}

type stdLogger struct {
	logger *log.Logger
}

func (l *stdLogger) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Printf(format, args...)
}

// StandardLogger exposes the wrapped logger, e.g. as the logging router's
// fallback.
func (l *stdLogger) StandardLogger() *log.Logger {
	if l == nil {
		return nil
	}
	return l.logger
}

// Metrics receives named samples. Add feeds monotonically increasing
// counters and Store sets gauges.
type Metrics interface {
	Add(key string, delta uint64)
	Store(key string, value uint64)
}

type nopMetrics struct{}

func (nopMetrics) Add(string, uint64)   {}
func (nopMetrics) Store(string, uint64) {}

func NopMetrics() Metrics {
	return nopMetrics{}
}
