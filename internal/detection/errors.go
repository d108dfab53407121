package detection

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindNetwork Kind = iota + 1
	KindBackendRejected
	KindMalformedResponse
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindBackendRejected:
		return "backend_rejected"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return "unknown"
	}
}

var (
	ErrNetwork           = &Error{Kind: KindNetwork}
	ErrBackendRejected   = &Error{Kind: KindBackendRejected}
	ErrMalformedResponse = &Error{Kind: KindMalformedResponse}
)

type Error struct {
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("detection %s (status %d): %v", e.Kind, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("detection %s (status %d)", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("detection %s: %v", e.Kind, e.Err)
	default:
		return "detection " + e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can use the sentinels.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Message is the user-facing text for a detection failure.
func Message(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return "An error occurred while detecting waste"
	}
	switch e.Kind {
	case KindNetwork:
		return "The detection service could not be reached"
	case KindBackendRejected:
		return "The detection service rejected the image"
	case KindMalformedResponse:
		return "The detection service returned an unreadable result"
	default:
		return "An error occurred while detecting waste"
	}
}
