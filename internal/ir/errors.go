package ir

import (
	"errors"
	"fmt"
)

// RecordError is a typed failure from address derivation, slot allocation,
// or record encoding. Every failure the record store surfaces carries one of
// the codes below so callers never see a generic error.
type RecordError struct {
	// Code identifies the failure kind.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Address is the slot involved, zero when the failure precedes derivation.
	Address Address

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes record errors.
type ErrorCode string

const (
	// ErrCodePayloadTooLarge indicates the proof exceeds the slot's payload budget.
	// Recoverable by the caller; the slot is left unmodified.
	ErrCodePayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"

	// ErrCodeStorageAllocation indicates the payer cannot fund a new slot.
	// Recoverable by the caller; nothing is allocated.
	ErrCodeStorageAllocation ErrorCode = "STORAGE_ALLOCATION"

	// ErrCodeAddressMismatch indicates existing storage at the derived address
	// was not created with this record layout.
	ErrCodeAddressMismatch ErrorCode = "ADDRESS_MISMATCH"

	// ErrCodeCorruptRecord indicates stored bytes do not decode as a record.
	ErrCodeCorruptRecord ErrorCode = "CORRUPT_RECORD"

	// ErrCodeMalformedIdentity indicates an identity of the wrong shape.
	ErrCodeMalformedIdentity ErrorCode = "MALFORMED_IDENTITY"
)

// Error implements the error interface.
func (e *RecordError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Address != (Address{}) {
		msg = fmt.Sprintf("%s (address=%s)", msg, e.Address)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RecordError) Unwrap() error {
	return e.Err
}

// Recoverable reports whether the caller can fix the failure by changing
// its input (smaller proof, different payer, well-formed identity).
func (e *RecordError) Recoverable() bool {
	switch e.Code {
	case ErrCodePayloadTooLarge, ErrCodeStorageAllocation, ErrCodeMalformedIdentity:
		return true
	default:
		return false
	}
}

// CodeOf extracts the ErrorCode from err, or "" if err carries none.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var re *RecordError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && CodeOf(err) == code
}
