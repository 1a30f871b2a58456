package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for lookups and lifecycle checks.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state for operation")
)

// ValidationError is returned before any state change is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ChannelError covers failures of the private channel itself: timeout,
// broker unavailable, malformed response.
type ChannelError struct {
	Code    string
	Message string
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel error %s: %s", e.Code, e.Message)
}

// TransportError is an SMTP-level failure reported back by the mailer
// in a structured response. The orchestrator treats it the same as a
// ChannelError: the campaign goes to FAILED.
type TransportError struct {
	Code    string
	Message string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error %s: %s", e.Code, e.Message)
}

// Channel error codes.
const (
	CodeTimeout        = "CHANNEL_TIMEOUT"
	CodeConnection     = "CHANNEL_CONNECTION"
	CodeBadResponse    = "CHANNEL_BAD_RESPONSE"
	CodeSendFailed     = "SEND_FAILED"
	CodeInvalidRequest = "INVALID_REQUEST"
	CodeUnknownPattern = "UNKNOWN_PATTERN"
)

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
