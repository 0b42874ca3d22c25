package organic

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTaskKind   = errors.New("unknown task kind")
	ErrEmptyMessages     = errors.New("messages are empty")
	ErrUnresolvableModel = errors.New("model cannot be resolved")
	ErrMissingSearchTerm = errors.New("missing search term")
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrNoPeers           = errors.New("uid or chunks are empty")
)

// NormalizationError unwraps to one of the sentinels above.
type NormalizationError struct {
	Kind   error
	Reason string
}

func (e *NormalizationError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Reason)
}

func (e *NormalizationError) Unwrap() error {
	return e.Kind
}

func normErr(kind error, format string, args ...any) error {
	return &NormalizationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
