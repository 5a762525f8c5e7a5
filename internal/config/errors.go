package config

import (
	"errors"
	"fmt"
)

// Errors returned by settings operations.
var (
	// ErrInvalidColor indicates a color value that doesn't parse as hex.
	ErrInvalidColor = errors.New("invalid color")

	// ErrInvalidPlacement indicates an unrecognized placement strategy.
	ErrInvalidPlacement = errors.New("invalid placement")

	// ErrUnknownMode indicates an unrecognized editing mode name.
	ErrUnknownMode = errors.New("unknown mode")

	// ErrUnknownShape indicates an unrecognized cursor shape name.
	ErrUnknownShape = errors.New("unknown shape")

	// ErrOutOfRange indicates a numeric value outside its valid range.
	ErrOutOfRange = errors.New("value out of range")

	// ErrWatcherClosed indicates use of a watcher after Close.
	ErrWatcherClosed = errors.New("watcher closed")

	// ErrInvalidBlob indicates a settings blob that isn't valid JSON.
	ErrInvalidBlob = errors.New("invalid settings blob")
)

// ParseError describes a settings file that failed to parse.
type ParseError struct {
	// Path is the file that failed.
	Path string
	// Message describes the failure.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}
