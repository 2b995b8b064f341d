package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is one log record as stored in the history ring.
type Entry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Ring is a fixed-capacity circular buffer of log entries. Safe for
// concurrent use.
type Ring struct {
	mu    sync.RWMutex
	slots []Entry
	next  int
	count int
}

// NewRing creates a ring holding at most capacity entries.
func NewRing(capacity int) *Ring {
	return &Ring{slots: make([]Entry, capacity)}
}

// Append stores an entry, evicting the oldest when full.
func (r *Ring) Append(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[r.next] = e
	r.next = (r.next + 1) % len(r.slots)
	if r.count < len(r.slots) {
		r.count++
	}
}

// Snapshot returns the stored entries oldest first.
func (r *Ring) Snapshot() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.count == 0 {
		return nil
	}
	out := make([]Entry, 0, r.count)
	if r.count < len(r.slots) {
		out = append(out, r.slots[:r.count]...)
	} else {
		out = append(out, r.slots[r.next:]...)
		out = append(out, r.slots[:r.next]...)
	}
	return out
}

// Len returns the number of stored entries.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// RingHandler is a slog.Handler that appends records to the package history
// ring and notifies the registered entry callback. The ring is looked up on
// each Handle call so handlers built before Initialize still work.
type RingHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewRingHandler creates a handler writing into the history ring.
func NewRingHandler(level slog.Leveler) *RingHandler {
	return &RingHandler{level: level}
}

func (h *RingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *RingHandler) Handle(_ context.Context, rec slog.Record) error {
	mu.RLock()
	ring := history
	cb := onEntry
	mu.RUnlock()
	if ring == nil {
		return nil
	}

	attrs := make(map[string]any)
	module := "app"
	collect := func(a slog.Attr) {
		if a.Key == "module" {
			module = a.Value.String()
			return
		}
		key := a.Key
		for i := len(h.groups) - 1; i >= 0; i-- {
			key = h.groups[i] + "." + key
		}
		attrs[key] = a.Value.Any()
	}
	for _, a := range h.attrs {
		collect(a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})

	e := Entry{
		Timestamp:  rec.Time,
		Level:      levelString(rec.Level),
		Module:     module,
		Message:    rec.Message,
		Attributes: attrs,
	}
	ring.Append(e)
	if cb != nil {
		cb(e)
	}
	return nil
}

func (h *RingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *RingHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}

func levelString(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
