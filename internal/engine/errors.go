package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/proofslot/internal/ir"
)

// SubmissionError is a typed failure returned by Handler.Submit.
//
// Every rejection the record store can produce surfaces as a SubmissionError
// carrying the matching ir.ErrorCode:
//   - PAYLOAD_TOO_LARGE: proof exceeds the slot budget, slot unchanged
//   - STORAGE_ALLOCATION: payer cannot fund a new slot, nothing allocated
//   - ADDRESS_MISMATCH: foreign data at the derived address, nothing written
//   - CORRUPT_RECORD: existing slot bytes do not decode
//   - MALFORMED_IDENTITY: submitter or payer has the wrong shape
//
// Backend and context failures are not SubmissionErrors; they are returned
// wrapped with fmt.Errorf.
type SubmissionError struct {
	// Code identifies the error category.
	Code ir.ErrorCode

	// Submitter is the base58 submitter identity, or hex when the identity
	// itself was malformed.
	Submitter string

	// Address is the target slot, zero when derivation failed.
	Address ir.Address

	// Err is the underlying record error.
	Err error
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	if e.Submitter != "" {
		return fmt.Sprintf("submit (submitter=%s): %v", e.Submitter, e.Err)
	}
	return fmt.Sprintf("submit: %v", e.Err)
}

// Unwrap returns the underlying record error.
func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Recoverable reports whether the caller can succeed by changing its input.
func (e *SubmissionError) Recoverable() bool {
	var re *ir.RecordError
	if errors.As(e.Err, &re) {
		return re.Recoverable()
	}
	return false
}

// IsPayloadTooLarge returns true if err is a PAYLOAD_TOO_LARGE rejection.
// Uses errors.As to handle wrapped errors.
func IsPayloadTooLarge(err error) bool {
	return hasCode(err, ir.ErrCodePayloadTooLarge)
}

// IsStorageAllocation returns true if err is a STORAGE_ALLOCATION rejection.
func IsStorageAllocation(err error) bool {
	return hasCode(err, ir.ErrCodeStorageAllocation)
}

// IsAddressMismatch returns true if err is an ADDRESS_MISMATCH rejection.
func IsAddressMismatch(err error) bool {
	return hasCode(err, ir.ErrCodeAddressMismatch)
}

// IsCorruptRecord returns true if err is a CORRUPT_RECORD failure.
func IsCorruptRecord(err error) bool {
	return hasCode(err, ir.ErrCodeCorruptRecord)
}

// IsMalformedIdentity returns true if err is a MALFORMED_IDENTITY rejection.
func IsMalformedIdentity(err error) bool {
	return hasCode(err, ir.ErrCodeMalformedIdentity)
}

func hasCode(err error, code ir.ErrorCode) bool {
	var se *SubmissionError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// newSubmissionError wraps err in a SubmissionError when it carries a record
// error code, and with a plain "submit" prefix otherwise.
func newSubmissionError(submitter string, addr ir.Address, err error) error {
	code := ir.CodeOf(err)
	if code == "" {
		return fmt.Errorf("submit: %w", err)
	}
	return &SubmissionError{
		Code:      code,
		Submitter: submitter,
		Address:   addr,
		Err:       err,
	}
}
