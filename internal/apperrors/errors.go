package apperrors

import (
	"errors"
	"fmt"
)

// RetryableError marks a failure that may succeed if the operation is attempted again.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryable wraps err as a RetryableError prefixed with a formatted message.
func NewRetryable(err error, message string, args ...interface{}) error {
	allArgs := append(args, err)
	return &RetryableError{Err: fmt.Errorf(message+": %w", allArgs...)}
}

// FatalError marks a failure that will not go away by retrying.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatal wraps err as a FatalError prefixed with a formatted message.
func NewFatal(err error, message string, args ...interface{}) error {
	allArgs := append(args, err)
	return &FatalError{Err: fmt.Errorf(message+": %w", allArgs...)}
}

var (
	// ErrNotFound indicates a tenant-scoped lookup found nothing.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation indicates the request refers to data the tenant does not own or is malformed.
	ErrValidation = errors.New("validation failed")
	// ErrConfiguration indicates tenant setup is incomplete (no default funnel, funnel without steps).
	ErrConfiguration = errors.New("configuration error")
	// ErrDispatch indicates the messaging provider rejected or failed a send.
	ErrDispatch = errors.New("dispatch failed")
	// ErrDatabase indicates a general database interaction error.
	ErrDatabase = errors.New("database error")
	// ErrNATS indicates a general NATS communication error.
	ErrNATS = errors.New("nats communication error")
	// ErrUnauthorized indicates a missing or invalid identity.
	ErrUnauthorized = errors.New("unauthorized access")
	// ErrDuplicate indicates a unique constraint hit.
	ErrDuplicate = errors.New("duplicate resource")
	// ErrConflict indicates a general conflict state.
	ErrConflict = errors.New("resource conflict")
	// ErrBadRequest indicates a malformed request from the caller.
	ErrBadRequest = errors.New("bad request")
	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timeout")
)

// IsRetryable checks if the error is a RetryableError or wraps one.
func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}

// IsFatal checks if the error is a FatalError or wraps one.
func IsFatal(err error) bool {
	var target *FatalError
	return errors.As(err, &target)
}

func IsNotFoundError(err error) bool      { return errors.Is(err, ErrNotFound) }
func IsValidationError(err error) bool    { return errors.Is(err, ErrValidation) }
func IsConfigurationError(err error) bool { return errors.Is(err, ErrConfiguration) }
func IsDispatchError(err error) bool      { return errors.Is(err, ErrDispatch) }
func IsDatabaseError(err error) bool      { return errors.Is(err, ErrDatabase) }
func IsNATSError(err error) bool          { return errors.Is(err, ErrNATS) }
func IsUnauthorizedError(err error) bool  { return errors.Is(err, ErrUnauthorized) }
func IsDuplicateError(err error) bool     { return errors.Is(err, ErrDuplicate) }
func IsConflictError(err error) bool      { return errors.Is(err, ErrConflict) }
func IsBadRequestError(err error) bool    { return errors.Is(err, ErrBadRequest) }
func IsTimeoutError(err error) bool       { return errors.Is(err, ErrTimeout) }
