package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const historySize = 1000

// Logger is the subset of *slog.Logger the rest of the codebase depends on.
// Accepting this interface keeps packages decoupled from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config controls global and per-module log levels and the output format.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mu          sync.RWMutex
	cfg         Config
	initialized bool
	loggers     = make(map[string]*slog.Logger)
	levelVars   = make(map[string]*slog.LevelVar)
	globalLevel = &slog.LevelVar{}
	history     *Ring
	onEntry     EntryCallback
)

// Initialize configures the logging system. Loggers created before
// Initialize are rebuilt so they pick up the ring buffer and journal
// handlers.
func Initialize(c Config) {
	mu.Lock()
	defer mu.Unlock()

	cfg = c
	initialized = true
	history = NewRing(historySize)

	globalLevel.Set(levelFor(c, ""))

	for module, lv := range levelVars {
		lv.Set(levelFor(c, module))
		loggers[module] = slog.New(buildHandler(c.Format, lv)).With("module", module)
	}

	slog.SetDefault(slog.New(buildHandler(c.Format, globalLevel)))
}

// GetLogger returns the logger for a module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	mu.RLock()
	if l, ok := loggers[module]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[module]; ok {
		return l
	}

	lv := &slog.LevelVar{}
	format := "text"
	if initialized {
		lv.Set(levelFor(cfg, module))
		format = cfg.Format
	} else {
		lv.Set(slog.LevelInfo)
	}

	l := slog.New(buildHandler(format, lv)).With("module", module)
	loggers[module] = l
	levelVars[module] = lv
	return l
}

// SetModuleLevel changes a module's level at runtime. Unknown modules are
// created lazily by GetLogger, so this only touches existing ones.
func SetModuleLevel(module, level string) {
	mu.Lock()
	defer mu.Unlock()
	if lv, ok := levelVars[module]; ok {
		if parsed, ok := parseLevel(level); ok {
			lv.Set(parsed)
		}
	}
}

// History returns the ring buffer of recent log entries, nil before Initialize.
func History() *Ring {
	mu.RLock()
	defer mu.RUnlock()
	return history
}

// EntryCallback receives every log entry written to the ring buffer.
type EntryCallback func(Entry)

// OnEntry registers a callback invoked for each new log entry. Used to
// forward logs to SSE subscribers without an import cycle.
func OnEntry(cb EntryCallback) {
	mu.Lock()
	defer mu.Unlock()
	onEntry = cb
}

// buildHandler assembles the handler chain: stdout, journal when reachable,
// and always the ring buffer handler.
func buildHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler
	if format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	handlers := []slog.Handler{stdout}
	if journalReachable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewRingHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewTeeHandler(handlers...)
}

// levelFor resolves the effective level for a module given the config.
// Empty module means the global level.
func levelFor(c Config, module string) slog.Level {
	level := slog.LevelInfo
	if parsed, ok := parseLevel(c.Level); ok {
		level = parsed
	}
	if module != "" {
		if s, ok := c.Modules[module]; ok {
			if parsed, ok := parseLevel(s); ok {
				level = parsed
			}
		}
	}
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
