package testsupport

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// LogRecorder is an slog.Handler that keeps every record for assertions.
type LogRecorder struct {
	mu      sync.Mutex
	records []slog.Record
	attrs   []slog.Attr
	root    *LogRecorder
}

// NewLogRecorder returns an empty recorder and a logger writing to it.
func NewLogRecorder() (*LogRecorder, *slog.Logger) {
	rec := &LogRecorder{}
	return rec, slog.New(rec)
}

func (r *LogRecorder) owner() *LogRecorder {
	if r.root != nil {
		return r.root
	}
	return r
}

func (r *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (r *LogRecorder) Handle(_ context.Context, record slog.Record) error {
	clone := record.Clone()
	if len(r.attrs) > 0 {
		clone.AddAttrs(r.attrs...)
	}
	root := r.owner()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.records = append(root.records, clone)
	return nil
}

func (r *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	merged = append(merged, r.attrs...)
	merged = append(merged, attrs...)
	return &LogRecorder{attrs: merged, root: r.owner()}
}

func (r *LogRecorder) WithGroup(string) slog.Handler { return r }

// Records returns a snapshot of captured records.
func (r *LogRecorder) Records() []slog.Record {
	root := r.owner()
	root.mu.Lock()
	defer root.mu.Unlock()
	out := make([]slog.Record, len(root.records))
	copy(out, root.records)
	return out
}

// Count returns how many records at level contain substr in their message.
func (r *LogRecorder) Count(level slog.Level, substr string) int {
	n := 0
	for _, rec := range r.Records() {
		if rec.Level == level && strings.Contains(rec.Message, substr) {
			n++
		}
	}
	return n
}

// CountLevel returns how many records were logged at level.
func (r *LogRecorder) CountLevel(level slog.Level) int {
	n := 0
	for _, rec := range r.Records() {
		if rec.Level == level {
			n++
		}
	}
	return n
}

// Attr returns the first value recorded under key for records whose message
// contains substr.
func (r *LogRecorder) Attr(substr, key string) (slog.Value, bool) {
	for _, rec := range r.Records() {
		if !strings.Contains(rec.Message, substr) {
			continue
		}
		var found slog.Value
		ok := false
		rec.Attrs(func(a slog.Attr) bool {
			if a.Key == key {
				found, ok = a.Value, true
				return false
			}
			return true
		})
		if ok {
			return found, true
		}
	}
	return slog.Value{}, false
}

// Reset drops all captured records.
func (r *LogRecorder) Reset() {
	root := r.owner()
	root.mu.Lock()
	defer root.mu.Unlock()
	root.records = nil
}
