package events

// Event type constants for kelindar/event.
const (
	TypeSlotState uint32 = iota + 1
	TypeSlotTime
	TypeSlotError
	TypeTake
	TypeTransition
	TypeDeviceChange
	TypeFrameRateWarning
	TypeLogEntry
)

// Event is the interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SlotStateEvent is published whenever a slot's binding or transport state
// changes (load, play, pause, stop, clear, error recovery).
type SlotStateEvent struct {
	Slot      string  `json:"slot" example:"preview" doc:"Slot identifier: preview or program"`
	State     string  `json:"state" example:"ready" doc:"Slot state: empty, loading, ready, error"`
	Source    string  `json:"source" example:"camera:cam-01" doc:"Bound source descriptor"`
	IsPlaying bool    `json:"is_playing" doc:"Whether the slot transport is playing"`
	Duration  float64 `json:"duration" doc:"Media duration in seconds, 0 for live sources"`
	Timestamp string  `json:"timestamp" example:"2026-03-01T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SlotStateEvent.
func (e SlotStateEvent) Type() uint32 { return TypeSlotState }

// SlotTimeEvent carries periodic transport position updates for a slot.
// Suppressed while a seek is outstanding.
type SlotTimeEvent struct {
	Slot        string  `json:"slot" example:"program" doc:"Slot identifier"`
	CurrentTime float64 `json:"current_time" doc:"Playhead position in seconds"`
	Duration    float64 `json:"duration" doc:"Media duration in seconds"`
}

// Type returns the event type identifier for SlotTimeEvent.
func (e SlotTimeEvent) Type() uint32 { return TypeSlotTime }

// SlotErrorEvent is published when a load or decode failure puts a slot
// into the error state.
type SlotErrorEvent struct {
	Slot      string `json:"slot" example:"preview" doc:"Slot identifier"`
	Code      string `json:"code" example:"DEVICE_BUSY" doc:"Error code"`
	Reason    string `json:"reason" doc:"Human-readable failure reason"`
	Timestamp string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for SlotErrorEvent.
func (e SlotErrorEvent) Type() uint32 { return TypeSlotError }

// TakeEvent is published after a completed take, manual or transition-driven.
type TakeEvent struct {
	ProgramSource string `json:"program_source" doc:"Source now live on program"`
	Automated     bool   `json:"automated" doc:"True when fired by a transition"`
	Timestamp     string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for TakeEvent.
func (e TakeEvent) Type() uint32 { return TypeTake }

// TransitionEvent reports crossfader progress while a transition runs.
type TransitionEvent struct {
	Progress float64 `json:"progress" doc:"Crossfader value in [0,1]"`
	Running  bool    `json:"running" doc:"False on the final event of a transition"`
}

// Type returns the event type identifier for TransitionEvent.
func (e TransitionEvent) Type() uint32 { return TypeTransition }

// DeviceChangeEvent reports capture device hotplug activity.
type DeviceChangeEvent struct {
	DeviceID   string `json:"device_id" example:"cam-01" doc:"Stable device identifier"`
	DevicePath string `json:"device_path" example:"/dev/video0" doc:"Device node path"`
	Action     string `json:"action" example:"added" doc:"added, removed, or changed"`
	Timestamp  string `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceChangeEvent.
func (e DeviceChangeEvent) Type() uint32 { return TypeDeviceChange }

// FrameRateWarningEvent is the watchdog signal: observed frame rate of a
// pipeline fell below target. Recovery is the consumer's decision.
type FrameRateWarningEvent struct {
	Key       string  `json:"key" example:"program" doc:"Pipeline key"`
	Observed  float64 `json:"observed" doc:"Observed frames per second"`
	Target    float64 `json:"target" doc:"Configured target frames per second"`
	Timestamp string  `json:"timestamp" doc:"Event timestamp"`
}

// Type returns the event type identifier for FrameRateWarningEvent.
func (e FrameRateWarningEvent) Type() uint32 { return TypeFrameRateWarning }

// LogEntryEvent mirrors a log record for SSE streaming.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"switcher" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
