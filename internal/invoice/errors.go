package invoice

import (
	"errors"
	"fmt"
)

// InputError is returned when the submitted form cannot produce a Query.
// The model is never called when an InputError is returned.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string {
	return e.Msg
}

// ErrNoFileUploaded is returned when a submit arrives without an image.
var ErrNoFileUploaded = &InputError{Msg: "No File Uploaded"}

// ErrorKind classifies a ServiceError.
type ErrorKind string

const (
	KindUnreachable ErrorKind = "unreachable"
	KindAuth        ErrorKind = "auth"
	KindStatus      ErrorKind = "status"
	KindMalformed   ErrorKind = "malformed"
	KindEmpty       ErrorKind = "empty"
	KindBlocked     ErrorKind = "blocked"
)

// ServiceError reports a failed call to the hosted model.
type ServiceError struct {
	Provider string
	Kind     ErrorKind
	Status   int
	Err      error
}

func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Provider, e.Kind)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err carries an *InputError.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

// AsServiceError extracts the *ServiceError from err, if any.
func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
