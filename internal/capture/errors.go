package capture

import "fmt"

// Error is a capture-level failure with a stable code. Codes surface
// unchanged in the slot error state so the UI can key retry behavior on
// them.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	CodeDeviceNotFound     = "DEVICE_NOT_FOUND"
	CodeDeviceBusy         = "DEVICE_BUSY"
	CodeCannotAttachInput  = "CANNOT_ATTACH_INPUT"
	CodeCannotAttachOutput = "CANNOT_ATTACH_OUTPUT"
	CodeSessionStopped     = "SESSION_STOPPED"
)

// NewError creates a capture error.
func NewError(code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
