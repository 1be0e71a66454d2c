package metadata

import "errors"

// StoreError represents a domain error from metadata store operations.
//
// These are business logic errors (folder not found, sibling name taken,
// illegal move destination) as opposed to infrastructure errors. The REST
// boundary translates StoreError codes into structured HTTP responses.
type StoreError struct {
	// Code is the error category.
	Code ErrorCode

	// Message is a human-readable error description.
	Message string

	// Path is the virtual path related to the error, if applicable.
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a store error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested key/folder/file/storage doesn't exist.
	ErrNotFound ErrorCode = iota

	// ErrParentNotFound indicates an operation's parent folder doesn't exist.
	// Distinct from ErrNotFound so callers can report which path was missing.
	ErrParentNotFound

	// ErrAlreadyExists indicates a sibling with the requested name exists.
	ErrAlreadyExists

	// ErrInvalidDestination indicates a move would create a cycle
	// (destination equals the source or lies inside it).
	ErrInvalidDestination

	// ErrInvalidArgument indicates invalid parameters (empty name, mutation
	// of the root folder, non-canonical path).
	ErrInvalidArgument

	// ErrIOError indicates the persistence layer failed.
	ErrIOError
)

// NewError builds a StoreError.
func NewError(code ErrorCode, message, path string) *StoreError {
	return &StoreError{Code: code, Message: message, Path: path}
}

// IsCode reports whether err is a StoreError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Code == code
	}
	return false
}
