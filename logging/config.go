package logging

import "time"

const (
	SinkConsole = "console"
	SinkJSON    = "json"
)

// Config shapes the router. Zero fields fall back to DefaultConfig values.
type Config struct {
	Sinks           []string
	QueueSize       int
	SinkBacklog     int
	MinimumSeverity Severity
	Fields          map[string]any

	JSONPath      string
	FlushInterval time.Duration

	DropWarnInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Sinks:            []string{SinkConsole},
		QueueSize:        512,
		SinkBacklog:      256,
		MinimumSeverity:  SeverityInfo,
		FlushInterval:    2 * time.Second,
		DropWarnInterval: 5 * time.Second,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.SinkBacklog <= 0 {
		c.SinkBacklog = def.SinkBacklog
	}
	if c.DropWarnInterval <= 0 {
		c.DropWarnInterval = def.DropWarnInterval
	}
	c.Fields = copyFields(c.Fields)
	return c
}

// HasSink reports whether name is among the enabled sinks.
func (c Config) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if s == name {
			return true
		}
	}
	return false
}

func copyFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
