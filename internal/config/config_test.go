package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testOptions struct {
	Config      string   `doc:"Config file path"`
	Host        string   `toml:"server.host" env:"HOST"`
	Port        int      `toml:"server.port" env:"PORT"`
	Debug       bool     `toml:"debug" env:"DEBUG"`
	TargetRate  float64  `toml:"watchdog.target_fps" env:"TARGET_RATE"`
	VirtualCams []string `toml:"devices.virtual" env:"VIRTUAL_CAMS"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigFromTOML(t *testing.T) {
	path := writeConfig(t, `
debug = true

[server]
host = "0.0.0.0"
port = 9000

[watchdog]
target_fps = 25.0

[devices]
virtual = ["bars", "gradient"]
`)

	opts := testOptions{Config: path, Host: "127.0.0.1", Port: 8080}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	if opts.Host != "0.0.0.0" || opts.Port != 9000 || !opts.Debug {
		t.Errorf("TOML values not applied: %+v", opts)
	}
	if opts.TargetRate != 25.0 {
		t.Errorf("float value not applied: %v", opts.TargetRate)
	}
	if len(opts.VirtualCams) != 2 || opts.VirtualCams[0] != "bars" {
		t.Errorf("slice value not applied: %v", opts.VirtualCams)
	}
}

func TestLoadConfigEnvOverridesTOML(t *testing.T) {
	path := writeConfig(t, `
[server]
port = 9000
`)
	t.Setenv("VIDEOSWITCH_PORT", "7000")
	t.Setenv("VIDEOSWITCH_VIRTUAL_CAMS", "bars, noise")

	opts := testOptions{Config: path}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("load: %v", err)
	}
	if opts.Port != 7000 {
		t.Errorf("env did not override TOML: %d", opts.Port)
	}
	if len(opts.VirtualCams) != 2 || opts.VirtualCams[1] != "noise" {
		t.Errorf("comma-separated env not parsed: %v", opts.VirtualCams)
	}
}

func TestLoadConfigMissingFileIsNotFatal(t *testing.T) {
	opts := testOptions{Config: "/nonexistent/config.toml", Port: 8080}
	if err := LoadConfig(&opts, nil); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if opts.Port != 8080 {
		t.Errorf("defaults clobbered: %d", opts.Port)
	}
}

func TestLoadConfigRejectsBadTOML(t *testing.T) {
	path := writeConfig(t, "this is not toml = [")
	opts := testOptions{Config: path}
	if err := LoadConfig(&opts, nil); err == nil {
		t.Error("expected parse error")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Port", "port"},
		{"LoggingLevel", "logging-level"},
		{"Host", "host"},
	}
	for _, tt := range tests {
		if got := fieldNameToFlag(tt.in); got != tt.want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadLoggingConfig(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "debug"
format = "json"
switcher = "warn"
`)
	cfg := LoadLoggingConfig(path)
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("unexpected logging config: %+v", cfg)
	}
	if cfg.Modules["switcher"] != "warn" {
		t.Errorf("module override missing: %+v", cfg.Modules)
	}
}

func TestLoadLoggingConfigDefaults(t *testing.T) {
	cfg := LoadLoggingConfig("/nonexistent.toml")
	if cfg.Level != "info" || cfg.Format != "text" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadSettingsDefaultsAndRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("missing settings file should not error: %v", err)
	}
	if s != DefaultSettings() {
		t.Errorf("expected defaults, got %+v", s)
	}

	s.TransitionSeconds = 2.5
	s.StudioMode = false
	if err := SaveSettings(path, s); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TransitionSeconds != 2.5 || got.StudioMode {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := SaveSettings(path, DefaultSettings()); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, LoadSettings, WithDebounce[Settings](50*time.Millisecond))
	if err := w.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer w.Stop()

	got := make(chan Settings, 1)
	w.OnReload(func(s Settings) {
		select {
		case got <- s:
		default:
		}
	})

	s := DefaultSettings()
	s.WatchdogTargetFPS = 50
	if err := SaveSettings(path, s); err != nil {
		t.Fatal(err)
	}

	select {
	case loaded := <-got:
		if loaded.WatchdogTargetFPS != 50 {
			t.Errorf("handler got stale settings: %+v", loaded)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("reload handler never fired")
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := SaveSettings(path, DefaultSettings()); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, LoadSettings, WithDebounce[Settings](20*time.Millisecond))
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	fired := make(chan struct{}, 4)
	unsub := w.OnReload(func(Settings) { fired <- struct{}{} })
	unsub()

	if err := SaveSettings(path, DefaultSettings()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-fired:
		t.Error("unsubscribed handler fired")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := SaveSettings(path, DefaultSettings()); err != nil {
		t.Fatal(err)
	}

	errs := make(chan error, 1)
	w := NewWatcher(path, LoadSettings,
		WithDebounce[Settings](20*time.Millisecond),
		WithErrorHandler[Settings](func(err error) {
			select {
			case errs <- err:
			default:
			}
		}))
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("not toml = ["), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-errs:
	case <-time.After(3 * time.Second):
		t.Fatal("error handler never fired")
	}
}
