package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/videoswitch/internal/events"
	"github.com/smazurov/videoswitch/internal/switcher"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time event stream: slot state and time updates, takes, transition progress, device changes, and frame-rate warnings",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"slot-state":         events.SlotStateEvent{},
		"slot-time":          events.SlotTimeEvent{},
		"slot-error":         events.SlotErrorEvent{},
		"take":               events.TakeEvent{},
		"transition":         events.TransitionEvent{},
		"device-change":      events.DeviceChangeEvent{},
		"frame-rate-warning": events.FrameRateWarningEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 32)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.SlotStateEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.SlotTimeEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.SlotErrorEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.TakeEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.TransitionEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.DeviceChangeEvent](s.bus, eventCh),
			events.SubscribeToChannel[events.FrameRateWarningEvent](s.bus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Initial snapshot so a client does not have to wait for the next
		// state change to render.
		now := time.Now().UTC().Format(time.RFC3339)
		status := s.engine.Status()
		for _, st := range []switcher.SlotStatus{status.Preview, status.Program} {
			if err := send.Data(events.SlotStateEvent{
				Slot:      st.Slot,
				State:     string(st.State),
				Source:    st.Source,
				IsPlaying: st.IsPlaying,
				Duration:  st.Duration,
				Timestamp: now,
			}); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
