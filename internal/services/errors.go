package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSubmission    = errors.New("submission failed")
	ErrJobFailed     = errors.New("transcription job failed")
	ErrResponseShape = errors.New("unexpected response shape")
	ErrTimedOut      = errors.New("timed out")
	ErrTransport     = errors.New("transport error")
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
)

// Kind labels used in history records and JSON output.
const (
	KindSubmission    = "submission"
	KindJobFailed     = "job_failed"
	KindResponseShape = "response_shape"
	KindTimedOut      = "timed_out"
	KindTransport     = "transport"
	KindConfiguration = "configuration"
	KindValidation    = "validation"
	KindUnknown       = "unknown"
)

// Wrap builds an error message that includes provider context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, provider, operation, message string, err error) error {
	detail := buildDetail(provider, operation, message)
	if marker == nil {
		marker = ErrTransport
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to the stable kind label recorded for failed runs.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSubmission):
		return KindSubmission
	case errors.Is(err, ErrJobFailed):
		return KindJobFailed
	case errors.Is(err, ErrResponseShape):
		return KindResponseShape
	case errors.Is(err, ErrTimedOut):
		return KindTimedOut
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindUnknown
	}
}

// PayloadError carries the raw body a provider returned alongside a failure.
// Err, when set, is the underlying client error.
type PayloadError struct {
	StatusCode int
	Payload    string
	Err        error
}

func (e *PayloadError) Error() string {
	body := strings.TrimSpace(e.Payload)
	if body == "" {
		body = "<empty>"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("http %d: %s", e.StatusCode, body)
	}
	return body
}

func (e *PayloadError) Unwrap() error {
	return e.Err
}

// Payload returns the raw provider payload attached to err, if any.
func Payload(err error) (string, bool) {
	var payloadErr *PayloadError
	if errors.As(err, &payloadErr) {
		return payloadErr.Payload, true
	}
	return "", false
}

func buildDetail(provider, operation, message string) string {
	parts := make([]string, 0, 3)
	if provider = strings.TrimSpace(provider); provider != "" {
		parts = append(parts, provider)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "provider failure"
	}
	return strings.Join(parts, ": ")
}
