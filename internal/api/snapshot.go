package api

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"

	"github.com/chai2010/webp"
	"github.com/danielgtaylor/huma/v2"
)

// SnapshotInput selects the slot and encoding quality.
type SnapshotInput struct {
	SlotPathInput
	Quality float32 `query:"quality" minimum:"1" maximum:"100" default:"85" doc:"WebP encoding quality"`
}

// SnapshotResponse carries the encoded image bytes.
type SnapshotResponse struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// registerSnapshotRoutes sets up the still-frame snapshot endpoint.
func (s *Server) registerSnapshotRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "slot-snapshot",
		Method:      http.MethodGet,
		Path:        "/api/slots/{slot}/snapshot",
		Summary:     "Snapshot",
		Description: "Encode the slot's most recent processed frame as WebP. 404 when the slot has not produced a frame yet.",
		Tags:        []string{"switcher"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(ctx context.Context, input *SnapshotInput) (*SnapshotResponse, error) {
		slot, err := s.slotFor(input.Slot)
		if err != nil {
			return nil, err
		}

		frame, ok := slot.CurrentFrame()
		if !ok {
			return nil, huma.Error404NotFound("Slot has no frame")
		}
		if frame.PixFmt != "rgba" || len(frame.Data) < frame.Width*frame.Height*4 {
			return nil, huma.Error500InternalServerError(
				fmt.Sprintf("Cannot encode %s frame", frame.PixFmt), nil)
		}

		img := &image.NRGBA{
			Pix:    frame.Data,
			Stride: frame.Width * 4,
			Rect:   image.Rect(0, 0, frame.Width, frame.Height),
		}

		var buf bytes.Buffer
		if err := webp.Encode(&buf, img, &webp.Options{Quality: input.Quality}); err != nil {
			return nil, huma.Error500InternalServerError("WebP encoding failed", err)
		}

		return &SnapshotResponse{
			ContentType: "image/webp",
			Body:        buf.Bytes(),
		}, nil
	})
}
