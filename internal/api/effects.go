package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/videoswitch/internal/effects"
)

// EffectStageBody describes one effect stage. Kind selects the stage type;
// only the parameters for that kind are read.
type EffectStageBody struct {
	Kind string `json:"kind" enum:"color_balance,opacity,chroma_key" example:"opacity" doc:"Stage type"`

	GainR float64 `json:"gain_r,omitempty" example:"1.1" doc:"Red gain (color_balance)"`
	GainG float64 `json:"gain_g,omitempty" example:"1.0" doc:"Green gain (color_balance)"`
	GainB float64 `json:"gain_b,omitempty" example:"0.9" doc:"Blue gain (color_balance)"`

	Opacity float64 `json:"opacity,omitempty" minimum:"0" maximum:"1" example:"0.5" doc:"Alpha multiplier (opacity)"`

	KeyR      uint8   `json:"key_r,omitempty" example:"0" doc:"Key color red (chroma_key)"`
	KeyG      uint8   `json:"key_g,omitempty" example:"255" doc:"Key color green (chroma_key)"`
	KeyB      uint8   `json:"key_b,omitempty" example:"0" doc:"Key color blue (chroma_key)"`
	Tolerance float64 `json:"tolerance,omitempty" minimum:"0" maximum:"1" example:"0.1" doc:"Channel distance fraction (chroma_key)"`
}

// AddEffectInput combines the slot path with a stage description.
type AddEffectInput struct {
	SlotPathInput
	Body EffectStageBody
}

// EffectIndexInput identifies a stage by position.
type EffectIndexInput struct {
	SlotPathInput
	Index int `path:"index" minimum:"0" example:"0" doc:"Stage position in the chain"`
}

// EffectsEnabledBody gates the whole chain.
type EffectsEnabledBody struct {
	Enabled bool `json:"enabled" doc:"Whether the chain is applied to frames"`
}

// EffectsEnabledInput combines the slot path with the enable body.
type EffectsEnabledInput struct {
	SlotPathInput
	Body EffectsEnabledBody
}

// EffectStageInfo describes one stage in a chain listing.
type EffectStageInfo struct {
	Index int    `json:"index" doc:"Stage position"`
	Kind  string `json:"kind" example:"opacity" doc:"Stage type"`
}

// EffectListData is the chain listing for one slot.
type EffectListData struct {
	Slot    string            `json:"slot" example:"preview" doc:"Slot identifier"`
	Enabled bool              `json:"enabled" doc:"Whether the chain is applied"`
	Stages  []EffectStageInfo `json:"stages" doc:"Stages in application order"`
}

// EffectListResponse wraps the chain listing.
type EffectListResponse struct {
	Body EffectListData
}

// buildStage constructs the concrete stage for a request body.
func buildStage(body EffectStageBody) (effects.Stage, error) {
	switch body.Kind {
	case "color_balance":
		return &effects.ColorBalanceStage{GainR: body.GainR, GainG: body.GainG, GainB: body.GainB}, nil
	case "opacity":
		return &effects.OpacityStage{Opacity: body.Opacity}, nil
	case "chroma_key":
		return &effects.ChromaKeyStage{KeyR: body.KeyR, KeyG: body.KeyG, KeyB: body.KeyB, Tolerance: body.Tolerance}, nil
	default:
		return nil, fmt.Errorf("unknown effect kind %q", body.Kind)
	}
}

// registerEffectRoutes sets up per-slot effect chain endpoints. Chain edits
// apply from the next processed frame; frames already in flight keep the
// chain they were submitted under.
func (s *Server) registerEffectRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "effects-list",
		Method:      http.MethodGet,
		Path:        "/api/slots/{slot}/effects",
		Summary:     "List Effects",
		Description: "List the effect stages on a slot's chain",
		Tags:        []string{"effects"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *SlotPathInput) (*EffectListResponse, error) {
		slot, err := s.slotFor(input.Slot)
		if err != nil {
			return nil, err
		}
		chain := slot.Chain()
		stages := chain.Stages()
		infos := make([]EffectStageInfo, len(stages))
		for i, stage := range stages {
			infos[i] = EffectStageInfo{Index: i, Kind: stage.Kind()}
		}
		return &EffectListResponse{Body: EffectListData{
			Slot:    slot.ID(),
			Enabled: chain.Enabled(),
			Stages:  infos,
		}}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "effects-add",
		Method:      http.MethodPost,
		Path:        "/api/slots/{slot}/effects",
		Summary:     "Add Effect",
		Description: "Append a stage to a slot's effect chain",
		Tags:        []string{"effects"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 404},
	}, func(ctx context.Context, input *AddEffectInput) (*SlotStatusResponse, error) {
		stage, err := buildStage(input.Body)
		if err != nil {
			return nil, huma.Error400BadRequest("Invalid effect", err)
		}
		if err := s.engine.AddEffect(input.Slot, stage); err != nil {
			return nil, huma.Error404NotFound("Unknown slot", err)
		}
		slot, err := s.slotFor(input.Slot)
		if err != nil {
			return nil, err
		}
		return &SlotStatusResponse{Body: slot.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "effects-remove",
		Method:      http.MethodDelete,
		Path:        "/api/slots/{slot}/effects/{index}",
		Summary:     "Remove Effect",
		Description: "Delete the stage at a chain position. Out-of-range indexes are ignored.",
		Tags:        []string{"effects"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *EffectIndexInput) (*SlotStatusResponse, error) {
		if err := s.engine.RemoveEffect(input.Slot, input.Index); err != nil {
			return nil, huma.Error404NotFound("Unknown slot", err)
		}
		slot, err := s.slotFor(input.Slot)
		if err != nil {
			return nil, err
		}
		return &SlotStatusResponse{Body: slot.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "effects-clear",
		Method:      http.MethodDelete,
		Path:        "/api/slots/{slot}/effects",
		Summary:     "Clear Effects",
		Description: "Remove all stages from a slot's chain",
		Tags:        []string{"effects"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *SlotPathInput) (*SlotStatusResponse, error) {
		if err := s.engine.ClearEffects(input.Slot); err != nil {
			return nil, huma.Error404NotFound("Unknown slot", err)
		}
		slot, err := s.slotFor(input.Slot)
		if err != nil {
			return nil, err
		}
		return &SlotStatusResponse{Body: slot.Status()}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "effects-enable",
		Method:      http.MethodPut,
		Path:        "/api/slots/{slot}/effects/enabled",
		Summary:     "Enable Effects",
		Description: "Gate a slot's chain as a whole without discarding its stages",
		Tags:        []string{"effects"},
		Security:    withAuth(),
		Errors:      []int{401, 404},
	}, func(ctx context.Context, input *EffectsEnabledInput) (*SlotStatusResponse, error) {
		if err := s.engine.SetEffectsEnabled(input.Slot, input.Body.Enabled); err != nil {
			return nil, huma.Error404NotFound("Unknown slot", err)
		}
		slot, err := s.slotFor(input.Slot)
		if err != nil {
			return nil, err
		}
		return &SlotStatusResponse{Body: slot.Status()}, nil
	})
}
