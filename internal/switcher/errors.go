package switcher

import (
	"errors"
	"fmt"

	"github.com/smazurov/videoswitch/internal/capture"
)

// Slot error codes. Capture-level codes pass through unchanged; the rest
// originate at the slot boundary.
const (
	CodeDeviceNotFound       = capture.CodeDeviceNotFound
	CodeDeviceBusy           = capture.CodeDeviceBusy
	CodeCannotAttachInput    = capture.CodeCannotAttachInput
	CodeCannotAttachOutput   = capture.CodeCannotAttachOutput
	CodeResourceAccessDenied = "RESOURCE_ACCESS_DENIED"
	CodeDecodeFailure        = "DECODE_FAILURE"
)

// SlotError is a load or decode failure surfaced as a slot's error state.
// Failures never unwind into the engine; the slot records the error and
// stays recoverable via the next load.
type SlotError struct {
	Code    string
	Message string
	Cause   error
}

func (e *SlotError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *SlotError) Unwrap() error {
	return e.Cause
}

// NewSlotError creates a slot error.
func NewSlotError(code, message string, cause error) *SlotError {
	return &SlotError{Code: code, Message: message, Cause: cause}
}

// slotErrorFrom normalizes an arbitrary failure into a SlotError. Capture
// errors keep their code; anything else becomes a decode failure.
func slotErrorFrom(err error) *SlotError {
	var serr *SlotError
	if errors.As(err, &serr) {
		return serr
	}
	var cerr *capture.Error
	if errors.As(err, &cerr) {
		code := cerr.Code
		if code == capture.CodeSessionStopped {
			code = CodeCannotAttachInput
		}
		return &SlotError{Code: code, Message: cerr.Message, Cause: cerr.Cause}
	}
	return &SlotError{Code: CodeDecodeFailure, Message: err.Error(), Cause: err}
}
