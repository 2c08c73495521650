package call

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTransition rejects an event the current state cannot handle.
	ErrInvalidTransition = errors.New("invalid call transition")

	// ErrBusy rejects an incoming offer while another call is in flight.
	ErrBusy = errors.New("already in a call")
)

func invalidTransition(event string, state State) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, event, state)
}

// MediaErrorKind classifies device acquisition failures.
type MediaErrorKind string

const (
	MediaPermissionDenied MediaErrorKind = "permission_denied"
	MediaDeviceBusy       MediaErrorKind = "device_busy"
	MediaDeviceAbsent     MediaErrorKind = "device_absent"
	MediaUnknown          MediaErrorKind = "unknown"
)

// MediaError carries the failure class plus a user-facing remediation hint.
type MediaError struct {
	Kind  MediaErrorKind
	cause error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media %s: %v", e.Kind, e.cause)
}

func (e *MediaError) Unwrap() error { return e.cause }

// Remediation tells the user what to do about the failure.
func (e *MediaError) Remediation() string {
	switch e.Kind {
	case MediaPermissionDenied:
		return "Allow camera and microphone access in your browser settings and try again."
	case MediaDeviceBusy:
		return "Close other applications using your camera or microphone and try again."
	case MediaDeviceAbsent:
		return "Connect a camera and microphone and try again."
	default:
		return "Could not access your camera or microphone. Check your devices and try again."
	}
}

// NewMediaError wraps a device failure with its classification.
func NewMediaError(kind MediaErrorKind, cause error) *MediaError {
	return &MediaError{Kind: kind, cause: cause}
}

// AsMediaError unwraps err to its MediaError, defaulting to MediaUnknown.
func AsMediaError(err error) *MediaError {
	var me *MediaError
	if errors.As(err, &me) {
		return me
	}
	return &MediaError{Kind: MediaUnknown, cause: err}
}
