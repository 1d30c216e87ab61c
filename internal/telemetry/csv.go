package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"
)

// TickRow is one line of the per-tick telemetry CSV.
type TickRow struct {
	Tick       uint64  `csv:"tick"`
	Population int     `csv:"population"`
	Algae      int     `csv:"algae"`
	Nitrogen   int     `csv:"nitrogen"`
	Oxygen     int     `csv:"oxygen"`
	Births     int     `csv:"births"`
	Deaths     int     `csv:"deaths"`
	MeanAge    float64 `csv:"mean_age"`
	Eligible   int     `csv:"eligible"`
}

// CSVWriter appends TickRows to a CSV stream, writing the header once.
type CSVWriter struct {
	mu            sync.Mutex
	w             io.Writer
	closer        io.Closer
	headerWritten bool
}

// NewCSVWriter wraps an arbitrary writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	out := &CSVWriter{w: w}
	if closer, ok := w.(io.Closer); ok {
		out.closer = closer
	}
	return out
}

// OpenCSV creates (or truncates) the file at path. An empty path disables
// output and returns nil.
func OpenCSV(path string) (*CSVWriter, error) {
	if path == "" {
		return nil, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating telemetry directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating telemetry csv: %w", err)
	}
	return NewCSVWriter(f), nil
}

// Write appends one row.
func (c *CSVWriter) Write(row TickRow) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	records := []TickRow{row}
	if !c.headerWritten {
		if err := gocsv.Marshal(records, c.w); err != nil {
			return fmt.Errorf("writing telemetry: %w", err)
		}
		c.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, c.w); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

func (c *CSVWriter) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closer.Close()
}
