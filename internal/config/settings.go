package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Settings are the hot-reloadable switcher settings. They live in their own
// TOML file so an operator can tune them while the switcher runs; a Watcher
// applies changes without a restart.
type Settings struct {
	// TransitionSeconds is the default transition duration when a
	// transition request carries none.
	TransitionSeconds float64 `toml:"transition_seconds"`
	// WatchdogTargetFPS is the frame rate below which the program pipeline
	// watchdog raises a warning event. Zero disables the watchdog.
	WatchdogTargetFPS float64 `toml:"watchdog_target_fps"`
	// StudioMode gates preview loads from program. When false, loads to
	// preview route directly to program.
	StudioMode bool `toml:"studio_mode"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		TransitionSeconds: 1.0,
		WatchdogTargetFPS: 24,
		StudioMode:        true,
	}
}

// LoadSettings reads a settings file, filling absent keys with defaults.
// A missing file is not an error; it yields the defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, err
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return s, err
	}
	return s, nil
}

// SaveSettings writes settings to path.
func SaveSettings(path string, s Settings) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
