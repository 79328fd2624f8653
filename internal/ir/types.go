package ir

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
)

// IdentitySize is the byte length of an identity and of a derived address.
const IdentitySize = 32

// Identity is the canonical 32-byte representation of a submitter or payer.
// Its text form is base58, matching what external readers use to reproduce
// slot addresses.
type Identity [IdentitySize]byte

// Address locates a slot. Addresses are derived, never chosen by callers.
type Address [IdentitySize]byte

// IdentityFromBytes validates the byte length and copies b into an Identity.
// Returns a MALFORMED_IDENTITY error for any other length.
func IdentityFromBytes(b []byte) (Identity, error) {
	var id Identity
	if len(b) != IdentitySize {
		return id, &RecordError{
			Code:    ErrCodeMalformedIdentity,
			Message: fmt.Sprintf("identity must be %d bytes, got %d", IdentitySize, len(b)),
		}
	}
	copy(id[:], b)
	return id, nil
}

// ParseIdentity decodes a base58 identity string.
func ParseIdentity(s string) (Identity, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Identity{}, &RecordError{
			Code:    ErrCodeMalformedIdentity,
			Message: fmt.Sprintf("identity %q is not base58", s),
			Err:     err,
		}
	}
	return IdentityFromBytes(raw)
}

// String returns the base58 form.
func (id Identity) String() string {
	return base58.Encode(id[:])
}

// Bytes returns a copy of the identity bytes.
func (id Identity) Bytes() []byte {
	return bytes.Clone(id[:])
}

// IsZero reports whether the identity is all zero bytes.
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// ParseAddress decodes a base58 address string.
func ParseAddress(s string) (Address, error) {
	var addr Address
	raw, err := base58.Decode(s)
	if err != nil {
		return addr, fmt.Errorf("parse address %q: %w", s, err)
	}
	if len(raw) != IdentitySize {
		return addr, fmt.Errorf("parse address %q: want %d bytes, got %d", s, IdentitySize, len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}

// String returns the base58 form.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// Bytes returns a copy of the address bytes.
func (a Address) Bytes() []byte {
	return bytes.Clone(a[:])
}

// Record is the persisted content of a slot.
//
// Proof is opaque; the store never inspects it. EventType is an
// application-defined code with no meaning enforced here. Timestamp is set by
// the record store on every write and is never supplied by callers.
type Record struct {
	Proof     []byte    `json:"proof"`
	EventType EventType `json:"event_type"`
	Timestamp int64     `json:"timestamp"`
}

// Equal reports whether two records hold the same field values.
// A nil and an empty proof compare equal.
func (r Record) Equal(other Record) bool {
	return bytes.Equal(r.Proof, other.Proof) &&
		r.EventType == other.EventType &&
		r.Timestamp == other.Timestamp
}

// IsEmpty reports whether r is the freshly initialized record.
func (r Record) IsEmpty() bool {
	return len(r.Proof) == 0 && r.EventType == 0 && r.Timestamp == 0
}
