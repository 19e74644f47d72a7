// Package logging provides leveled logging and trial tracing for smdsim.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A TrialLogger for structured JSONL traces of completed trials (trials.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level every
// timestep of every trial is logged.
const LevelTrace = slog.LevelDebug - 4

// TrialFile is the name of the JSONL trace written by TrialLogger.
const TrialFile = "trials.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace", "warn", "error" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled text slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, handlerOptions(level)))
}

// NewJSONLogger creates a leveled JSON slog.Logger writing to w.
func NewJSONLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, handlerOptions(level)))
}

func handlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
}

// TrialRecord is one line of the trial trace.
type TrialRecord struct {
	RunID    string    `json:"run_id,omitempty"`
	Pass     string    `json:"pass"`
	Label    string    `json:"label"`
	X        float64   `json:"x"`
	Seed     uint64    `json:"seed"`
	Outcome  []float64 `json:"outcome"`
	Duration string    `json:"duration,omitempty"`
}

// TrialLogger appends completed trials to a JSONL file.
// It is safe for concurrent use. A nil TrialLogger is safe to use;
// all methods are no-ops on nil receiver.
type TrialLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewTrialLogger creates a trial logger writing to dir/trials.jsonl.
// At "info" level (the default) or above, returns nil and no file is created.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewTrialLogger(dir string, level string) *TrialLogger {
	if ParseLevel(level) >= slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	f, err := os.OpenFile(filepath.Join(dir, TrialFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &TrialLogger{file: f}
}

// Log writes rec as a single JSONL line with a "time" field added.
// Safe to call on nil receiver.
func (tl *TrialLogger) Log(rec TrialRecord) {
	if tl == nil {
		return
	}

	entry := struct {
		Time string `json:"time"`
		TrialRecord
	}{
		Time:        time.Now().UTC().Format(time.RFC3339Nano),
		TrialRecord: rec,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	tl.mu.Lock()
	defer tl.mu.Unlock()
	if tl.file == nil {
		return
	}
	_, _ = tl.file.Write(data)
}

// Close closes the underlying file. Safe to call on nil receiver.
func (tl *TrialLogger) Close() {
	if tl == nil {
		return
	}

	tl.mu.Lock()
	defer tl.mu.Unlock()

	if tl.file != nil {
		tl.file.Close()
		tl.file = nil
	}
}
