package core

import "github.com/pkg/errors"

// FieldError reports a request payload error tied to a single field, keyed
// the way the field appears in JSON.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries the field errors of a rejected request; the API
// layer renders them as a field-to-message map.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown signals an unrecoverable state; the server stops instead of
// answering further requests with it.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown checks the wrapped cause so shutdown errors survive
// errors.Wrap on the way up the stack.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
