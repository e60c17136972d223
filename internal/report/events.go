package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventRun       EventType = "run"
	EventScan      EventType = "scan"
	EventPrune     EventType = "prune"
	EventDuplicate EventType = "duplicate"
	EventError     EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event of a run
type Event struct {
	Timestamp time.Time         `json:"ts"`
	RunID     string            `json:"run_id"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	Path      string            `json:"path,omitempty"`
	Digest    string            `json:"digest,omitempty"`
	SizeBytes int64             `json:"size_bytes,omitempty"`
	Outcome   string            `json:"outcome,omitempty"`
	Paths     []string          `json:"paths,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level.
// Every event carries a fresh run id.
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	runID := uuid.NewString()
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s-%s.jsonl", timestamp, runID[:8])
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		runID:    runID,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.RunID = l.runID

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogRun logs the start or end of a run
func (l *EventLogger) LogRun(phase string, extra map[string]string) error {
	return l.Log(&Event{
		Level:   LevelInfo,
		Event:   EventRun,
		Outcome: phase,
		Extra:   extra,
	})
}

// LogScan logs the outcome of applying an update policy to one file
func (l *EventLogger) LogScan(path, outcome string) error {
	level := LevelDebug
	if outcome != "unchanged" {
		level = LevelInfo
	}
	if outcome == "failed" {
		level = LevelWarning
	}

	return l.Log(&Event{
		Level:   level,
		Event:   EventScan,
		Path:    path,
		Outcome: outcome,
	})
}

// LogPrune logs removal of a record whose file is gone
func (l *EventLogger) LogPrune(path string) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventPrune,
		Path:  path,
	})
}

// LogDuplicate logs a duplicate group
func (l *EventLogger) LogDuplicate(digest string, paths []string, reclaimable int64) error {
	return l.Log(&Event{
		Level:     LevelWarning,
		Event:     EventDuplicate,
		Digest:    digest,
		Paths:     paths,
		SizeBytes: reclaimable,
	})
}

// LogError logs an error event
func (l *EventLogger) LogError(event EventType, path string, err error) error {
	return l.Log(&Event{
		Level: LevelError,
		Event: event,
		Path:  path,
		Error: err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// RunID returns the id stamped on every event
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
