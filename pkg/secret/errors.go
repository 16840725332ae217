package secret

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedKind is returned when a value is outside the eight
	// secret kinds.
	ErrUnsupportedKind = errors.New("unsupported kind")

	// ErrEmptyInput is returned when there is no value to wrap.
	ErrEmptyInput = errors.New("empty input")

	// ErrRevealOnNonSecret is returned when reveal, compare or render is
	// attempted on something that is not a live secret.
	ErrRevealOnNonSecret = errors.New("value is not a secret")

	// ErrNotEnvelope is returned when data-channel input is not a secret
	// envelope.
	ErrNotEnvelope = errors.New("input is not a secret envelope")
)

// WrapError reports why a value could not be wrapped. It unwraps to
// ErrUnsupportedKind or ErrEmptyInput.
type WrapError struct {
	// Kind describes the rejected value: a Go type, or "nothing".
	Kind   string
	Reason error
	Detail string
}

func (e *WrapError) Error() string {
	msg := fmt.Sprintf("cannot wrap %s: %v", e.Kind, e.Reason)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *WrapError) Unwrap() error {
	return e.Reason
}
