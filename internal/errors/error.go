package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the kind of problem an error reports.
type Category string

const (
	CategoryConfig     Category = "config"
	CategoryManifest   Category = "manifest"
	CategoryNavigation Category = "navigation"
	CategoryCLI        Category = "cli"
)

// ConsoleError is a structured error with a code, an explanation and a hint.
type ConsoleError struct {
	// Code is a unique error identifier (e.g., "E201").
	Code string `json:"code,omitempty"`

	// Category is the error kind.
	Category Category `json:"category"`

	// Message is a short description of the error.
	Message string `json:"message"`

	// Detail is a longer explanation of this occurrence.
	Detail string `json:"detail,omitempty"`

	// Suggestion is a hint on how to fix the error.
	Suggestion string `json:"suggestion,omitempty"`

	// Wrapped is the underlying error, if any.
	Wrapped error `json:"-"`
}

// Error implements the error interface.
func (e *ConsoleError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ConsoleError) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *ConsoleError) WithDetail(d string) *ConsoleError {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with formatting.
func (e *ConsoleError) WithDetailf(format string, args ...any) *ConsoleError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *ConsoleError) WithSuggestion(s string) *ConsoleError {
	e.Suggestion = s
	return e
}

// Wrap wraps another error. The wrapped error's text becomes the detail when
// no detail has been set.
func (e *ConsoleError) Wrap(err error) *ConsoleError {
	e.Wrapped = err
	if e.Detail == "" && err != nil {
		e.Detail = err.Error()
	}
	return e
}

// New creates a ConsoleError from a registered error code.
func New(code string) *ConsoleError {
	template, ok := GetTemplate(code)
	if !ok {
		return &ConsoleError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ConsoleError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
	}
}

// Newf creates a ConsoleError with a formatted message and no code.
func Newf(category Category, format string, args ...any) *ConsoleError {
	return &ConsoleError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError returns err as a ConsoleError, wrapping it under code if it is
// not one already.
func FromError(err error, code string) *ConsoleError {
	if err == nil {
		return nil
	}
	var ce *ConsoleError
	if stderrors.As(err, &ce) {
		return ce
	}
	return New(code).Wrap(err)
}

// HasCode reports whether err is, or wraps, a ConsoleError with the code.
func HasCode(err error, code string) bool {
	var ce *ConsoleError
	for err != nil {
		if !stderrors.As(err, &ce) {
			return false
		}
		if ce.Code == code {
			return true
		}
		err = ce.Wrapped
	}
	return false
}
