package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventLoad            EventType = "load"
	EventSave            EventType = "save"
	EventSkipRow         EventType = "skip_row"
	EventRefuseOverwrite EventType = "refuse_overwrite"
	EventMigrate         EventType = "migrate"
	EventMutate          EventType = "mutate"
	EventExport          EventType = "export"
	EventError           EventType = "error"
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

// ParseLevel maps a level name to an EventLevel, defaulting to info
func ParseLevel(s string) EventLevel {
	level := EventLevel(s)
	if _, ok := levelPriority[level]; ok {
		return level
	}
	return LevelInfo
}

// Event represents a single audit log entry
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	Kind      string            `json:"kind,omitempty"`
	Path      string            `json:"path,omitempty"`
	DestPath  string            `json:"dest_path,omitempty"`
	Line      int               `json:"line,omitempty"`
	ID        int               `json:"id,omitempty"`
	Action    string            `json:"action,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Rows      int               `json:"rows,omitempty"`
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
// minLevel determines which events are written (e.g., LevelInfo skips LevelDebug)
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	// several commands may run within the same second
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
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

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogLoad logs a file load with its row and skip counts
func (l *EventLogger) LogLoad(path, kind string, rows, skipped int) error {
	level := LevelInfo
	if skipped > 0 {
		level = LevelWarning
	}
	return l.Log(&Event{
		Level: level,
		Event: EventLoad,
		Kind:  kind,
		Path:  path,
		Rows:  rows,
		Extra: map[string]string{
			"skipped": fmt.Sprintf("%d", skipped),
		},
	})
}

// LogSkip logs a row skipped while loading
func (l *EventLogger) LogSkip(path string, line int, reason string) error {
	return l.Log(&Event{
		Level:  LevelWarning,
		Event:  EventSkipRow,
		Path:   path,
		Line:   line,
		Reason: reason,
	})
}

// LogSave logs a completed file write
func (l *EventLogger) LogSave(path, kind string, rows int) error {
	return l.Log(&Event{
		Level: LevelInfo,
		Event: EventSave,
		Kind:  kind,
		Path:  path,
		Rows:  rows,
	})
}

// LogRefuse logs a save refused by the overwrite guard
func (l *EventLogger) LogRefuse(path, kind string, rowsOnDisk int) error {
	return l.Log(&Event{
		Level:  LevelWarning,
		Event:  EventRefuseOverwrite,
		Kind:   kind,
		Path:   path,
		Rows:   rowsOnDisk,
		Reason: "empty collection would replace existing rows",
	})
}

// LogMigrate logs a legacy data migration
func (l *EventLogger) LogMigrate(from, to string, pieces, setlists int) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventMigrate,
		Path:     from,
		DestPath: to,
		Extra: map[string]string{
			"pieces":   fmt.Sprintf("%d", pieces),
			"setlists": fmt.Sprintf("%d", setlists),
		},
	})
}

// LogMutate logs a user edit such as "add", "edit", "delete" or "move"
func (l *EventLogger) LogMutate(action, kind string, id int, detail string) error {
	return l.Log(&Event{
		Level:  LevelInfo,
		Event:  EventMutate,
		Kind:   kind,
		ID:     id,
		Action: action,
		Reason: detail,
	})
}

// LogExport logs a database snapshot export
func (l *EventLogger) LogExport(dbPath string, rows int, duration time.Duration) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventExport,
		DestPath: dbPath,
		Rows:     rows,
		Extra: map[string]string{
			"duration_ms": fmt.Sprintf("%d", duration.Milliseconds()),
		},
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

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
