package domain

import (
	"errors"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Remote call failures as seen by the client.
	ErrTimeout   = errors.New("request timed out")
	ErrTransport = errors.New("network error")
	ErrRejected  = errors.New("rejected by server")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (note, topic)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// RemoteErrorKind classifies why a remote call failed.
type RemoteErrorKind int

const (
	RemoteTimeout RemoteErrorKind = iota
	RemoteTransport
	RemoteRejected
)

func (k RemoteErrorKind) String() string {
	switch k {
	case RemoteTimeout:
		return "timeout"
	case RemoteTransport:
		return "transport"
	case RemoteRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// RemoteError is returned by the remote API client. Message carries the
// server-provided text when there is one.
type RemoteError struct {
	Kind    RemoteErrorKind
	Status  int    // HTTP status, 0 when no response was received
	Code    string // Server error code, if any
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Is matches the kind sentinel and, for rejections, the sentinel implied by the status.
func (e *RemoteError) Is(target error) bool {
	switch e.Kind {
	case RemoteTimeout:
		return target == ErrTimeout
	case RemoteTransport:
		return target == ErrTransport
	case RemoteRejected:
		if target == ErrRejected {
			return true
		}
		switch e.Status {
		case http.StatusNotFound:
			return target == ErrNotFound
		case http.StatusConflict:
			return target == ErrConflict
		case http.StatusBadRequest:
			return target == ErrValidation
		case http.StatusUnauthorized:
			return target == ErrUnauthorized
		case http.StatusForbidden:
			return target == ErrForbidden
		}
	}
	return false
}

// UserMessage returns the text to show for err: the remote payload message
// when present, otherwise fallback.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		if remoteErr.Message != "" {
			return remoteErr.Message
		}
		if remoteErr.Kind == RemoteTimeout {
			return ErrTimeout.Error()
		}
		return fallback
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) && validationErr.Message != "" {
		return validationErr.Message
	}
	return fallback
}
