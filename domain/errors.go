package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound            ErrorCode = "NOT_FOUND"
	ErrCodeInvalid             ErrorCode = "INVALID"
	ErrCodeForbidden           ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized        ErrorCode = "UNAUTHORIZED"
	ErrCodeSelfApplication     ErrorCode = "SELF_APPLICATION"
	ErrCodeDuplicate           ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeTaskNotAccepting    ErrorCode = "TASK_NOT_ACCEPTING"
	ErrCodeCapacityExceeded    ErrorCode = "CAPACITY_EXCEEDED"
	ErrCodeTaskResolved        ErrorCode = "TASK_ALREADY_RESOLVED"
	ErrCodeApplicationResolved ErrorCode = "APPLICATION_ALREADY_RESOLVED"
	ErrCodeInvalidTransition   ErrorCode = "INVALID_STATE_TRANSITION"
	ErrCodeInternal            ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
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

// Is lets wrapped errors match their sentinel through errors.Is by code.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e != nil && e.Code == other.Code
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

// Failure taxonomy of the admission and award controllers. Every one of
// these is caller-visible and returned synchronously with no mutation
// performed.
var (
	ErrTaskNotFound           = NewError(ErrCodeNotFound, "task not found")
	ErrApplicationNotFound    = NewError(ErrCodeNotFound, "application not found")
	ErrForbidden              = NewError(ErrCodeForbidden, "actor does not own this task")
	ErrSelfApplication        = NewError(ErrCodeSelfApplication, "cannot apply to your own task")
	ErrDuplicateApplication   = NewError(ErrCodeDuplicate, "already applied to this task")
	ErrTaskNotAccepting       = NewError(ErrCodeTaskNotAccepting, "task is no longer accepting applications")
	ErrCapacityExceeded       = NewError(ErrCodeCapacityExceeded, "task has reached its application limit")
	ErrTaskAlreadyResolved    = NewError(ErrCodeTaskResolved, "task is no longer open")
	ErrApplicationResolved    = NewError(ErrCodeApplicationResolved, "application has already been resolved")
	ErrInvalidStateTransition = NewError(ErrCodeInvalidTransition, "illegal task state transition")
	ErrInvalidPayload         = NewError(ErrCodeInvalid, "invalid payload")
	ErrUnauthorized           = NewError(ErrCodeUnauthorized, "unauthorized")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
