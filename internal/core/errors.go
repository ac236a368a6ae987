package core

import (
	"errors"
	"fmt"
)

// ErrorType classifies failures that abort a whole run. Per-case failures
// never show up here; they become verdicts.
type ErrorType string

const (
	ErrConfiguration ErrorType = "configuration"
	ErrBuild         ErrorType = "build"
	ErrProvider      ErrorType = "provider"
)

type RunError struct {
	Type    ErrorType
	Message string
	Cause   error
	Details string // compiler output for build errors
}

func (e *RunError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (type: %s)", e.Message, e.Cause.Error(), e.Type)
	}
	return fmt.Sprintf("%s (type: %s)", e.Message, e.Type)
}

func (e *RunError) Unwrap() error {
	return e.Cause
}

// IsErrorType reports whether err is a RunError of type t.
func IsErrorType(err error, t ErrorType) bool {
	var re *RunError
	return errors.As(err, &re) && re.Type == t
}
