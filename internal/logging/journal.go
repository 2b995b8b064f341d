package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

const syslogIdentifier = "videoswitch"

// journalReachable reports whether the systemd journal socket accepts writes.
func journalReachable() bool {
	return journal.Enabled()
}

// JournalHandler is a slog.Handler that forwards records to the systemd
// journal with structured fields (MODULE, plus uppercased record attrs).
type JournalHandler struct {
	level  slog.Leveler
	attrs  []slog.Attr
	groups []string
}

// NewJournalHandler creates a journal-backed handler.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, rec slog.Record) error {
	priority := journal.PriInfo
	switch {
	case rec.Level >= slog.LevelError:
		priority = journal.PriErr
	case rec.Level >= slog.LevelWarn:
		priority = journal.PriWarning
	case rec.Level < slog.LevelInfo:
		priority = journal.PriDebug
	}

	fields := map[string]string{
		"SYSLOG_IDENTIFIER": syslogIdentifier,
	}
	for _, a := range h.attrs {
		h.addField(fields, a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		h.addField(fields, a)
		return true
	})

	return journal.Send(rec.Message, priority, fields)
}

// addField converts an attr to a journal field. Journald requires field
// names to be uppercase ASCII with underscores.
func (h *JournalHandler) addField(fields map[string]string, a slog.Attr) {
	name := a.Key
	for i := len(h.groups) - 1; i >= 0; i-- {
		name = h.groups[i] + "_" + name
	}
	name = strings.ToUpper(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name))
	fields[name] = fmt.Sprintf("%v", a.Value.Any())
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(append([]string{}, h.groups...), name)
	return &clone
}
