package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/videoswitch/internal/config"
)

// SettingsData mirrors the persisted runtime settings.
type SettingsData struct {
	TransitionSeconds float64 `json:"transition_seconds" minimum:"0" example:"1.0" doc:"Default transition duration in seconds"`
	WatchdogTargetFPS float64 `json:"watchdog_target_fps" minimum:"0" example:"24" doc:"Watchdog warning threshold in frames per second; 0 disables"`
	StudioMode        bool    `json:"studio_mode" doc:"Whether preview loads are gated from program"`
}

// SettingsResponse wraps the settings payload.
type SettingsResponse struct {
	Body SettingsData
}

// SettingsInput wraps a settings update.
type SettingsInput struct {
	Body SettingsData
}

// registerSettingsRoutes sets up runtime settings endpoints. Updates are
// persisted to the settings file; the file watcher applies them to the
// running engine, so edits through the API and on disk behave the same.
func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/settings",
		Summary:     "Get Settings",
		Description: "Read the current runtime settings",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *struct{}) (*SettingsResponse, error) {
		settings, err := config.LoadSettings(s.options.SettingsPath)
		if err != nil {
			return nil, huma.Error500InternalServerError("Failed to read settings", err)
		}
		return &SettingsResponse{Body: SettingsData{
			TransitionSeconds: settings.TransitionSeconds,
			WatchdogTargetFPS: settings.WatchdogTargetFPS,
			StudioMode:        settings.StudioMode,
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPut,
		Path:        "/api/settings",
		Summary:     "Update Settings",
		Description: "Persist runtime settings and apply them to the running switcher",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, input *SettingsInput) (*SettingsResponse, error) {
		settings := config.Settings{
			TransitionSeconds: input.Body.TransitionSeconds,
			WatchdogTargetFPS: input.Body.WatchdogTargetFPS,
			StudioMode:        input.Body.StudioMode,
		}
		if err := config.SaveSettings(s.options.SettingsPath, settings); err != nil {
			return nil, huma.Error500InternalServerError("Failed to persist settings", err)
		}
		if s.options.OnSettings != nil {
			s.options.OnSettings(settings)
		}
		return &SettingsResponse{Body: input.Body}, nil
	})
}
