package bridge

import (
	"errors"
	"fmt"
)

// ContractError reports a violation of the handle protocol.
//
// Contract errors never change the state of the unit they refer to.
type ContractError struct {
	// Code identifies the violation.
	Code ContractErrorCode

	// Op is the operation that was rejected (e.g. "record_use").
	Op string

	// Handle is the handle the caller passed.
	Handle Handle

	// Message is a human-readable description.
	Message string
}

// ContractErrorCode categorizes contract errors.
type ContractErrorCode string

const (
	// ErrCodeInvalidHandle indicates a zero, unknown, stale or closed handle.
	ErrCodeInvalidHandle ContractErrorCode = "INVALID_HANDLE"

	// ErrCodeFrozen indicates a fact was recorded after the unit was computed.
	ErrCodeFrozen ContractErrorCode = "FROZEN"

	// ErrCodeConcurrentUse indicates another operation on the same handle was in progress.
	ErrCodeConcurrentUse ContractErrorCode = "CONCURRENT_USE"
)

// Error implements the error interface.
func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s: %s (handle=%s)", e.Code, e.Op, e.Message, e.Handle)
}

// IsInvalidHandle returns true if err is an INVALID_HANDLE contract error.
// Uses errors.As to handle wrapped errors.
func IsInvalidHandle(err error) bool {
	return hasCode(err, ErrCodeInvalidHandle)
}

// IsFrozen returns true if err is a FROZEN contract error.
func IsFrozen(err error) bool {
	return hasCode(err, ErrCodeFrozen)
}

// IsConcurrentUse returns true if err is a CONCURRENT_USE contract error.
func IsConcurrentUse(err error) bool {
	return hasCode(err, ErrCodeConcurrentUse)
}

func hasCode(err error, code ContractErrorCode) bool {
	var ce *ContractError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

func newInvalidHandleError(op string, h Handle) *ContractError {
	msg := "handle is not open"
	if h.IsZero() {
		msg = "zero handle"
	}
	return &ContractError{Code: ErrCodeInvalidHandle, Op: op, Handle: h, Message: msg}
}

func newFrozenError(op string, h Handle) *ContractError {
	return &ContractError{
		Code:    ErrCodeFrozen,
		Op:      op,
		Handle:  h,
		Message: "facts cannot be recorded after compute",
	}
}

func newConcurrentUseError(op string, h Handle) *ContractError {
	return &ContractError{
		Code:    ErrCodeConcurrentUse,
		Op:      op,
		Handle:  h,
		Message: "another operation on this handle is in progress",
	}
}
