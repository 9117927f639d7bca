package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures along the pipeline so callers can decide
// whether to surface, log, or silently degrade.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConfiguration
	KindValidation
	KindTransport
	KindParse
	KindNotFound
	KindCache
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindNotFound:
		return "not_found"
	case KindCache:
		return "cache"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline failure. Op names the operation that failed,
// e.g. "resolve" or "fetch_alerts".
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

// NewError builds a classified error. err may be nil.
func NewError(kind ErrorKind, op, message string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// APIError is returned when the upstream weather API rejects a request or
// reports an application-level error inside a 200 response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("weather api error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("weather api error (status %d): %s", e.StatusCode, e.Message)
}
