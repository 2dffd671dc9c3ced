package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeInvalidTimestamp   = "invalid_timestamp"
	ErrCodeOversizedPayload   = "oversized_payload"
	ErrCodeDispatchFailure    = "dispatch_failure"
	ErrCodeChannelInterrupted = "channel_interrupted"
	ErrCodeEmptyBody          = "empty_body"
	ErrCodeUnsupportedImage   = "unsupported_image"
	ErrCodeNoActiveGroup      = "no_active_group"
	ErrCodeNotFound           = "not_found"
	ErrCodeBadRequest         = "bad_request"
)

var (
	ErrInvalidTimestamp   = coreError(ErrCodeInvalidTimestamp, "invalid timestamp")
	ErrOversizedPayload   = coreError(ErrCodeOversizedPayload, "This image is too big! Please choose a smaller image.")
	ErrDispatchFailure    = coreError(ErrCodeDispatchFailure, "message could not be sent")
	ErrChannelInterrupted = coreError(ErrCodeChannelInterrupted, "live channel interrupted")
	ErrEmptyBody          = coreError(ErrCodeEmptyBody, "message body is empty")
	ErrUnsupportedImage   = coreError(ErrCodeUnsupportedImage, "only png, gif and jpeg images are supported")
	ErrNoActiveGroup      = coreError(ErrCodeNoActiveGroup, "no group selected")
	ErrNotFound           = coreError(ErrCodeNotFound, "not found")
	ErrBadRequest         = coreError(ErrCodeBadRequest, "bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
	Err     error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CoreError) Unwrap() error {
	return e.Err
}

// Is matches any CoreError carrying the same code, so errors.Is works
// against the package sentinels.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap attaches cause to a new error with the given code.
func Wrap(code, msg string, cause error) *CoreError {
	return &CoreError{Code: code, Message: msg, Err: cause}
}

// CodeOf extracts the code of the first CoreError in err's chain.
func CodeOf(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
