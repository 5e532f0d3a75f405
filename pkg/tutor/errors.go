package tutor

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	// FileReadError: a file could not be read; recoverable by re-uploading.
	FileReadError ErrorKind = "FileReadError"
	// ConfigError: missing or invalid model credential; fatal until fixed externally.
	ConfigError ErrorKind = "ConfigError"
	// ModelCallError: backend or network failure; recoverable by resubmitting the turn.
	ModelCallError ErrorKind = "ModelCallError"
	// DecodeError: malformed structured output; always recovered by the interpreter.
	DecodeError ErrorKind = "DecodeError"
	Timeout     ErrorKind = "Timeout"
)

// Error is a classified pipeline error.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func NewError(kind ErrorKind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the ErrorKind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return "", false
}
