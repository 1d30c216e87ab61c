package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hardchor/frog-pond/logging"
)

const consoleTimeLayout = "2006/01/02 15:04:05.000"

// Console writes one line per event:
//
//	2024/05/01 12:00:00.000 [lifecycle.frogs_mated] tick=42 actor=frog:a severity=info targets=frog:b payload={...}
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (s *Console) Write(event logging.Event) error {
	if s == nil || s.w == nil {
		return nil
	}
	var b strings.Builder
	stamp := event.Time
	if stamp.IsZero() {
		stamp = time.Now()
	}
	b.WriteString(stamp.Format(consoleTimeLayout))
	fmt.Fprintf(&b, " [%s] tick=%d actor=%s severity=%s", event.Type, event.Tick, formatEntity(event.Actor), event.Severity)
	b.WriteString(formatTargets(event.Targets))
	b.WriteString(formatPayload(event.Payload))
	b.WriteString(formatExtra(event.Extra))
	b.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.w, b.String())
	return err
}

func (s *Console) Close(context.Context) error {
	return nil
}

func formatEntity(ref logging.EntityRef) string {
	switch {
	case ref.ID == "":
		return string(ref.Kind)
	case ref.Kind == "":
		return ref.ID
	default:
		return string(ref.Kind) + ":" + ref.ID
	}
}

func formatTargets(targets []logging.EntityRef) string {
	if len(targets) == 0 {
		return ""
	}
	names := make([]string, len(targets))
	for i, target := range targets {
		names[i] = formatEntity(target)
	}
	return " targets=" + strings.Join(names, ",")
}

func formatPayload(payload any) string {
	if payload == nil {
		return ""
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf(" payload=%v", payload)
	}
	return " payload=" + string(data)
}

// formatExtra renders extra fields sorted by key so lines diff cleanly.
func formatExtra(extra map[string]any) string {
	if len(extra) == 0 {
		return ""
	}
	keys := make([]string, 0, len(extra))
	for key := range extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, extra[key])
	}
	return b.String()
}
