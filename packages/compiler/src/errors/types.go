// Package errors classifies the failures the compiler facade and the
// ng2c command report.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"ng2c-go/packages/compiler/src/util"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeParse    ErrorType = "parse"
	ErrorTypeTemplate ErrorType = "template"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeRuntime  ErrorType = "runtime"
	ErrorTypeIO       ErrorType = "io"
)

// CompilerError is a structured error type with a source location.
type CompilerError struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Component string
	FilePath  string
	// Line and Column are one based; zero means unknown.
	Line   int
	Column int
}

// Error implements the error interface.
func (e *CompilerError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *CompilerError) Unwrap() error {
	return e.Cause
}

// Is matches another CompilerError with the same type and code.
func (e *CompilerError) Is(target error) bool {
	var t *CompilerError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithLocation adds file location information.
func (e *CompilerError) WithLocation(filePath string, line, column int) *CompilerError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column
	return e
}

// WithComponent adds component context.
func (e *CompilerError) WithComponent(component string) *CompilerError {
	e.Component = component
	return e
}

// New creates an error without a cause.
func New(errType ErrorType, code, message string) *CompilerError {
	return &CompilerError{Type: errType, Code: code, Message: message}
}

// Wrap creates an error caused by cause. A nil cause gives nil.
func Wrap(cause error, errType ErrorType, code, message string) *CompilerError {
	if cause == nil {
		return nil
	}
	return &CompilerError{Type: errType, Code: code, Message: message, Cause: cause}
}

// FromParseError converts a markup or template parse error, taking the
// location from its span.
func FromParseError(pe *util.ParseError, errType ErrorType, code string) *CompilerError {
	e := &CompilerError{Type: errType, Code: code, Message: pe.ContextualMessage()}
	if pe.Span != nil && pe.Span.Start != nil {
		start := pe.Span.Start
		url := ""
		if start.File != nil {
			url = start.File.URL
		}
		e.WithLocation(url, start.Line+1, start.Col+1)
	}
	return e
}

// IsType reports whether err is, or wraps, a CompilerError of errType.
func IsType(err error, errType ErrorType) bool {
	var ce *CompilerError
	if errors.As(err, &ce) {
		return ce.Type == errType
	}
	return false
}

// TypeOf returns the type of the outermost CompilerError in err's chain,
// or ErrorTypeRuntime when there is none.
func TypeOf(err error) ErrorType {
	var ce *CompilerError
	if errors.As(err, &ce) {
		return ce.Type
	}
	return ErrorTypeRuntime
}
