package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/videoswitch/internal/media"
	"github.com/smazurov/videoswitch/internal/switcher"
)

// SlotPathInput identifies a slot in the URL path.
type SlotPathInput struct {
	Slot string `path:"slot" enum:"preview,program" example:"preview" doc:"Slot identifier"`
}

// LoadBody names the source to bind.
type LoadBody struct {
	Source string `json:"source" minLength:"1" example:"camera:cam-01" doc:"Source descriptor: camera:<id>, media:<path>, virtual:<id>, or none"`
}

// LoadInput combines the slot path with the load request body.
type LoadInput struct {
	SlotPathInput
	Body LoadBody
}

// TransitionBody sets the transition length.
type TransitionBody struct {
	DurationSeconds float64 `json:"duration_seconds,omitempty" minimum:"0" example:"1.5" doc:"Transition duration in seconds; 0 uses the configured default"`
}

// TransitionInput wraps the transition request body.
type TransitionInput struct {
	Body TransitionBody
}

// StatusResponse is the full switcher snapshot.
type StatusResponse struct {
	Body switcher.Status
}

// SlotStatusResponse is one slot's snapshot.
type SlotStatusResponse struct {
	Body switcher.SlotStatus
}

// parseSource turns a descriptor like "camera:cam-01" into a ContentSource.
// "none" unbinds the slot.
func parseSource(desc string) (media.ContentSource, error) {
	if desc == "none" {
		return media.None(), nil
	}
	kind, ref, ok := strings.Cut(desc, ":")
	if !ok || ref == "" {
		return media.ContentSource{}, fmt.Errorf("malformed source descriptor %q", desc)
	}
	switch kind {
	case "camera":
		return media.Camera(ref), nil
	case "media":
		return media.MediaFile(ref), nil
	case "virtual":
		return media.Virtual(ref), nil
	default:
		return media.ContentSource{}, fmt.Errorf("unknown source kind %q", kind)
	}
}

// loadStatus maps a slot error code to the HTTP status for the load response.
func loadStatus(code string) int {
	switch code {
	case switcher.CodeDeviceNotFound:
		return http.StatusNotFound
	case switcher.CodeDeviceBusy:
		return http.StatusConflict
	case switcher.CodeResourceAccessDenied:
		return http.StatusForbidden
	default:
		return http.StatusUnprocessableEntity
	}
}

// registerSwitcherRoutes sets up status, load, take, and transition endpoints.
func (s *Server) registerSwitcherRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "switcher-status",
		Method:      http.MethodGet,
		Path:        "/api/switcher",
		Summary:     "Switcher Status",
		Description: "Snapshot of both slots, the crossfader, and transition state",
		Tags:        []string{"switcher"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*StatusResponse, error) {
		return &StatusResponse{Body: s.engine.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "slot-status",
		Method:      http.MethodGet,
		Path:        "/api/slots/{slot}",
		Summary:     "Slot Status",
		Description: "Snapshot of a single slot",
		Tags:        []string{"switcher"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *SlotPathInput) (*SlotStatusResponse, error) {
		slot, err := s.engine.Slot(input.Slot)
		if err != nil {
			return nil, huma.Error404NotFound("Unknown slot", err)
		}
		return &SlotStatusResponse{Body: slot.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "slot-load",
		Method:      http.MethodPost,
		Path:        "/api/slots/{slot}/load",
		Summary:     "Load Source",
		Description: "Bind a source to a slot, replacing whatever it held. Loading to preview with studio mode disabled routes to program.",
		Tags:        []string{"switcher"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 403, 404, 409, 422},
	}, func(ctx context.Context, input *LoadInput) (*SlotStatusResponse, error) {
		source, err := parseSource(input.Body.Source)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid source", err)
		}

		var loadErr error
		if input.Slot == switcher.SlotProgram {
			loadErr = s.engine.LoadToProgram(source)
		} else {
			loadErr = s.engine.LoadToPreview(source)
		}
		if loadErr != nil {
			var slotErr *switcher.SlotError
			if errors.As(loadErr, &slotErr) {
				return nil, huma.NewError(loadStatus(slotErr.Code), slotErr.Message, slotErr)
			}
			return nil, huma.Error422UnprocessableEntity("Load failed", loadErr)
		}

		slot, err := s.engine.Slot(input.Slot)
		if err != nil {
			return nil, huma.Error404NotFound("Unknown slot", err)
		}
		return &SlotStatusResponse{Body: slot.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "switcher-take",
		Method:      http.MethodPost,
		Path:        "/api/switcher/take",
		Summary:     "Take",
		Description: "Cut preview to program. The preview binding moves live; playback position and decode state carry over. No-op when preview is empty.",
		Tags:        []string{"switcher"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*StatusResponse, error) {
		s.engine.Take()
		return &StatusResponse{Body: s.engine.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "switcher-transition",
		Method:      http.MethodPost,
		Path:        "/api/switcher/transition",
		Summary:     "Transition",
		Description: "Start a timed crossfade from program to preview, completing with a take. Superseded by any load or take issued before completion.",
		Tags:        []string{"switcher"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *TransitionInput) (*StatusResponse, error) {
		s.engine.Transition(secondsToDuration(input.Body.DurationSeconds))
		return &StatusResponse{Body: s.engine.Status()}, nil
	})
}
