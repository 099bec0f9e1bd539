package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeMissingField     ErrorCode = "MISSING_FIELD"
	ErrCodeMissingParameter ErrorCode = "MISSING_PARAMETER"
	ErrCodeInvalidEnum      ErrorCode = "INVALID_ENUM"
	ErrCodeInvalid          ErrorCode = "INVALID"
	ErrCodeBoardNotFound    ErrorCode = "BOARD_NOT_FOUND"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeInternal         ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Field   string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by code and message so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func MissingField(field string) *Error {
	return &Error{Code: ErrCodeMissingField, Field: field, Message: field + " is required"}
}

func MissingParameter(name string) *Error {
	return &Error{Code: ErrCodeMissingParameter, Field: name, Message: name + " parameter is required"}
}

func InvalidEnum[T ~string](field, value string, allowed []T) *Error {
	names := make([]string, 0, len(allowed))
	for _, a := range allowed {
		names = append(names, string(a))
	}
	return &Error{
		Code:    ErrCodeInvalidEnum,
		Field:   field,
		Message: fmt.Sprintf("invalid %s %q: must be one of %s", field, value, strings.Join(names, ", ")),
	}
}

func InvalidField(field, reason string) *Error {
	return &Error{Code: ErrCodeInvalid, Field: field, Message: fmt.Sprintf("invalid %s: %s", field, reason)}
}

func BoardNotFound(id string) *Error {
	return &Error{Code: ErrCodeBoardNotFound, Field: "boardId", Message: fmt.Sprintf("board %s not found", id)}
}

// StoreUnavailable classifies a persistence failure while keeping the cause reachable.
func StoreUnavailable(err error) *Error {
	return WrapError(ErrCodeStoreUnavailable, "record store unavailable", err)
}

// Common domain errors.
var (
	ErrTaskNotFound   = NewError(ErrCodeNotFound, "task not found")
	ErrBoardNotFound  = NewError(ErrCodeNotFound, "board not found")
	ErrInvalidPayload = NewError(ErrCodeInvalid, "invalid payload")
	ErrKeyInFlight    = NewError(ErrCodeConflict, "a request with this idempotency key is still in progress")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the first domain error in the chain, or INTERNAL.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code
	}
	return ErrCodeInternal
}

// AsStoreError leaves domain errors untouched and classifies everything else as STORE_UNAVAILABLE.
func AsStoreError(err error) error {
	if err == nil {
		return nil
	}
	var dErr *Error
	if errors.As(err, &dErr) {
		return err
	}
	return StoreUnavailable(err)
}
