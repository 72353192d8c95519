package fetcher

import (
	"context"
	"errors"
)

// Fetcher defines the interface for retrieving extracted text for a URL.
type Fetcher interface {
	// Fetch issues a single GET to url and returns the extracted text.
	// Errors returned by implementations in this package are *Error values.
	Fetch(ctx context.Context, url string) (text string, err error)
}

// Kind classifies a fetch failure.
type Kind int

const (
	// TransportFailure covers connection, DNS, timeout and body read errors.
	TransportFailure Kind = iota + 1
	// DecodeFailure means the body was not text of the expected shape.
	DecodeFailure
)

func (k Kind) String() string {
	switch k {
	case TransportFailure:
		return "transport"
	case DecodeFailure:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is a fetch failure. Message is what the user sees, so it is
// returned verbatim by Error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is, or wraps, a fetch *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == kind
}
