package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/videoswitch/internal/switcher"
)

// SeekBody positions the playhead.
type SeekBody struct {
	PositionSeconds float64 `json:"position_seconds" minimum:"0" example:"12.5" doc:"Target playhead position in seconds"`
}

// SeekInput combines the slot path with the seek body.
type SeekInput struct {
	SlotPathInput
	Body SeekBody
}

// StepBody selects the step direction.
type StepBody struct {
	Direction string `json:"direction" enum:"forward,backward" example:"forward" doc:"Step direction"`
}

// StepInput combines the slot path with the step body.
type StepInput struct {
	SlotPathInput
	Body StepBody
}

// RateBody sets the playback rate.
type RateBody struct {
	Rate float64 `json:"rate" minimum:"0.25" maximum:"4" example:"1.0" doc:"Playback rate multiplier"`
}

// RateInput combines the slot path with the rate body.
type RateInput struct {
	SlotPathInput
	Body RateBody
}

// VolumeBody sets the audio volume.
type VolumeBody struct {
	Volume float64 `json:"volume" minimum:"0" maximum:"1" example:"0.8" doc:"Audio volume in [0,1]"`
}

// VolumeInput combines the slot path with the volume body.
type VolumeInput struct {
	SlotPathInput
	Body VolumeBody
}

// MuteBody toggles audio mute.
type MuteBody struct {
	Muted bool `json:"muted" doc:"Whether audio is muted"`
}

// MuteInput combines the slot path with the mute body.
type MuteInput struct {
	SlotPathInput
	Body MuteBody
}

// LoopBody toggles the end-of-media loop policy.
type LoopBody struct {
	Loop bool `json:"loop" doc:"Restart playback when the media ends"`
}

// LoopInput combines the slot path with the loop body.
type LoopInput struct {
	SlotPathInput
	Body LoopBody
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// slotFor resolves the slot named in the path or returns a 404.
func (s *Server) slotFor(id string) (*switcher.Slot, error) {
	slot, err := s.engine.Slot(id)
	if err != nil {
		return nil, huma.Error404NotFound("Unknown slot", err)
	}
	return slot, nil
}

// registerTransportRoutes sets up per-slot playback control endpoints.
// Transport commands on empty or live slots are accepted and ignored, so
// control surfaces can stay stateless.
func (s *Server) registerTransportRoutes() {
	transport := func(id, path, summary, description string, apply func(*switcher.Slot)) {
		huma.Register(s.api, huma.Operation{
			OperationID: id,
			Method:      http.MethodPost,
			Path:        "/api/slots/{slot}/" + path,
			Summary:     summary,
			Description: description,
			Tags:        []string{"transport"},
			Security:    withAuth(),
			Errors:      []int{401, 404},
		}, func(ctx context.Context, input *SlotPathInput) (*SlotStatusResponse, error) {
			slot, err := s.slotFor(input.Slot)
			if err != nil {
				return nil, err
			}
			apply(slot)
			return &SlotStatusResponse{Body: slot.Status()}, nil
		})
	}

	transport("slot-play", "play", "Play",
		"Resume playback", func(slot *switcher.Slot) { slot.Play() })
	transport("slot-pause", "pause", "Pause",
		"Pause playback, keeping the playhead position", func(slot *switcher.Slot) { slot.Pause() })
	transport("slot-stop", "stop", "Stop",
		"Pause playback and return the playhead to the start", func(slot *switcher.Slot) { slot.Stop() })

	huma.Register(s.api, huma.Operation{
		OperationID: "slot-seek",
		Method:      http.MethodPost,
		Path:        "/api/slots/{slot}/seek",
		Summary:     "Seek",
		Description: "Move the playhead. Position updates are suppressed until the seek settles.",
		Tags:        []string{"transport"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *SeekInput) (*SlotStatusResponse, error) {
		slot, err := s.slotFor(input.Slot)
		if err != nil {
			return nil, err
		}
		slot.Seek(secondsToDuration(input.Body.PositionSeconds))
		return &SlotStatusResponse{Body: slot.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "slot-step",
		Method:      http.MethodPost,
		Path:        "/api/slots/{slot}/step",
		Summary:     "Step Frame",
		Description: "Step the playhead one nominal frame forward or backward",
		Tags:        []string{"transport"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *StepInput) (*SlotStatusResponse, error) {
		slot, err := s.slotFor(input.Slot)
		if err != nil {
			return nil, err
		}
		if input.Body.Direction == "backward" {
			slot.StepBackward()
		} else {
			slot.StepForward()
		}
		return &SlotStatusResponse{Body: slot.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "slot-rate",
		Method:      http.MethodPost,
		Path:        "/api/slots/{slot}/rate",
		Summary:     "Set Rate",
		Description: "Set the playback rate multiplier",
		Tags:        []string{"transport"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *RateInput) (*SlotStatusResponse, error) {
		slot, err := s.slotFor(input.Slot)
		if err != nil {
			return nil, err
		}
		slot.SetRate(input.Body.Rate)
		return &SlotStatusResponse{Body: slot.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "slot-volume",
		Method:      http.MethodPost,
		Path:        "/api/slots/{slot}/volume",
		Summary:     "Set Volume",
		Description: "Set the audio volume",
		Tags:        []string{"transport"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *VolumeInput) (*SlotStatusResponse, error) {
		slot, err := s.slotFor(input.Slot)
		if err != nil {
			return nil, err
		}
		slot.SetVolume(input.Body.Volume)
		return &SlotStatusResponse{Body: slot.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "slot-mute",
		Method:      http.MethodPost,
		Path:        "/api/slots/{slot}/mute",
		Summary:     "Set Mute",
		Description: "Mute or unmute audio",
		Tags:        []string{"transport"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *MuteInput) (*SlotStatusResponse, error) {
		slot, err := s.slotFor(input.Slot)
		if err != nil {
			return nil, err
		}
		slot.SetMuted(input.Body.Muted)
		return &SlotStatusResponse{Body: slot.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "slot-loop",
		Method:      http.MethodPost,
		Path:        "/api/slots/{slot}/loop",
		Summary:     "Set Loop",
		Description: "Control whether media restarts when it reaches the end",
		Tags:        []string{"transport"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *LoopInput) (*SlotStatusResponse, error) {
		slot, err := s.slotFor(input.Slot)
		if err != nil {
			return nil, err
		}
		slot.SetLoop(input.Body.Loop)
		return &SlotStatusResponse{Body: slot.Status()}, nil
	})
}
