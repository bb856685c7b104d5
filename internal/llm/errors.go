package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAPIKey means no credential is configured. Callers treat it as a
	// soft skip.
	ErrNoAPIKey = errors.New("llm: api key not set")

	// ErrSkipped means there was nothing to classify.
	ErrSkipped = errors.New("llm: skipped")

	// ErrRequest covers transport failures and non-2xx responses.
	ErrRequest = errors.New("llm: request failed")

	// ErrMalformedResponse means the response did not have the expected shape.
	ErrMalformedResponse = errors.New("llm: malformed response")

	// ErrRejected means the response parsed but failed validation.
	ErrRejected = errors.New("llm: rejected")
)

// reasonError carries a human-readable reason while still matching one of
// the sentinels above with errors.Is.
type reasonError struct {
	kind   error
	reason string
}

func (e *reasonError) Error() string { return e.reason }

func (e *reasonError) Unwrap() error { return e.kind }

func failf(kind error, format string, args ...any) error {
	return &reasonError{kind: kind, reason: fmt.Sprintf(format, args...)}
}
