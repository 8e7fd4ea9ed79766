// Package apperr defines the failure taxonomy shared by the service client,
// the state store and the presentation layer.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError is a transport failure: the service could not be reached or
// the connection broke before a response arrived.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network failure: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError means the service answered with a body of unexpected shape.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode failure: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ServiceError is a request the service rejected with a non-2xx status.
type ServiceError struct {
	Op      string
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: service status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: service status %d: %s", e.Op, e.Status, e.Message)
}

// ValidationError is a local precondition failure. It is raised before any
// request is issued.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid is shorthand for a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNetwork(err error) bool {
	var n *NetworkError
	return errors.As(err, &n)
}

func IsDecode(err error) bool {
	var d *DecodeError
	return errors.As(err, &d)
}

// ServiceStatus returns the HTTP status of a wrapped ServiceError.
func ServiceStatus(err error) (int, bool) {
	var s *ServiceError
	if errors.As(err, &s) {
		return s.Status, true
	}
	return 0, false
}

// UserMessage renders err as text fit for the shopper.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		v *ValidationError
		s *ServiceError
	)
	switch {
	case errors.As(err, &v):
		return v.Reason
	case errors.As(err, &s):
		if s.Message != "" {
			return s.Message
		}
		return fmt.Sprintf("the shop rejected the request (%d %s)", s.Status, http.StatusText(s.Status))
	case IsNetwork(err):
		return "the shop is unreachable, try again shortly"
	case IsDecode(err):
		return "the shop sent an unexpected response"
	default:
		return err.Error()
	}
}
