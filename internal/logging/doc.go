// Package logging provides structured logging with per-module level control.
//
// Built on log/slog. Output is routed automatically: stdout (text or json),
// systemd journal when journald is reachable, and an in-memory ring buffer
// that backs the /api/logs endpoint and the SSE log stream.
//
// Initialize once at startup:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"switcher": "debug",
//			"capture":  "warn",
//		},
//	})
//
// Then obtain module loggers anywhere:
//
//	logger := logging.GetLogger("capture").With("device_id", id)
//	logger.Info("session started")
//
// Module levels override the global level and can be changed at runtime via
// the LevelVar held per module.
//
// When running under systemd:
//
//	journalctl -t videoswitch -f
//	journalctl -t videoswitch MODULE=switcher
package logging
