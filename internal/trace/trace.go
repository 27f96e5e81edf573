// Package trace records an append-only, per-job event log for forensic
// diagnosis. The trace is distinct from the job record and from process
// logging: once written, events are never rewritten or pruned by the
// pipeline.
package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event types recorded during a job run.
const (
	EventInput            = "input"
	EventStage            = "stage"
	EventAttempt          = "attempt"
	EventRetry            = "retry"
	EventRetryExhausted   = "retry_exhausted"
	EventProviderResponse = "provider_response"
	EventOutput           = "output"
	EventError            = "error"
)

// FileName is the trace log file name inside a job's trace directory.
const FileName = "trace.jsonl"

// Event is one line of the trace log.
type Event struct {
	Timestamp time.Time      `json:"ts"`
	Type      string         `json:"event"`
	Data      map[string]any `json:"data,omitempty"`
}

// Tracer appends events to a job's trace log. A nil Tracer is a no-op, so
// callers can trace unconditionally.
type Tracer struct {
	mu   sync.Mutex
	file *os.File
}

// Open creates or appends to the trace log in dir.
func Open(dir string) (*Tracer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("trace: ensure dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("trace: open log: %w", err)
	}
	return &Tracer{file: f}, nil
}

// Record appends one event. Errors are swallowed: tracing must never fail
// the job it is diagnosing.
func (t *Tracer) Record(event string, data map[string]any) {
	if t == nil {
		return
	}
	line, err := json.Marshal(Event{
		Timestamp: time.Now().UTC(),
		Type:      event,
		Data:      data,
	})
	if err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return
	}
	t.file.Write(append(line, '\n'))
}

// Close releases the underlying file.
func (t *Tracer) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}

// Read loads all events from a trace log, primarily for tests and
// operational tooling.
func Read(dir string) ([]Event, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	var events []Event
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var ev Event
		if err := dec.Decode(&ev); err != nil {
			return events, fmt.Errorf("trace: decode event: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}
