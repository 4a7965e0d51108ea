package recordstore

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no backend endpoint is configured.
var ErrNotConfigured = errors.New("recordstore: APPSCRIPT_URL belum diset")

const rawPreviewLimit = 512

// TransportError reports a failed round trip to the backend.
type TransportError struct {
	Action string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("recordstore: %s: transport: %v", e.Action, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponse reports a backend body that is not the expected JSON.
type MalformedResponse struct {
	Action string
	Status int
	Raw    string
	Err    error
}

func (e *MalformedResponse) Error() string {
	return fmt.Sprintf("recordstore: %s: response bukan JSON (status %d): %s", e.Action, e.Status, e.Raw)
}

func (e *MalformedResponse) Unwrap() error { return e.Err }

// BusinessRejection reports an explicit failure signalled by the backend.
type BusinessRejection struct {
	Action  string
	Message string
}

func (e *BusinessRejection) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("recordstore: %s ditolak", e.Action)
	}
	return fmt.Sprintf("recordstore: %s ditolak: %s", e.Action, e.Message)
}

// UserMessage returns the text shown to the user for err.
func UserMessage(err error, fallback string) string {
	var rejection *BusinessRejection
	if errors.As(err, &rejection) && rejection.Message != "" {
		return rejection.Message
	}
	var transport *TransportError
	if errors.As(err, &transport) {
		return "Tidak dapat terhubung ke server"
	}
	var malformed *MalformedResponse
	if errors.As(err, &malformed) {
		return "Response bukan JSON dari server"
	}
	return fallback
}

func preview(raw []byte) string {
	if len(raw) <= rawPreviewLimit {
		return string(raw)
	}
	return string(raw[:rawPreviewLimit]) + "..."
}
