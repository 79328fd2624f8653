package ir

import (
	"crypto/sha256"
	"errors"

	"filippo.io/edwards25519"
	"golang.org/x/text/unicode/norm"
)

// Domain prefixes for derived identity.
// Version suffix enables future algorithm migration.
const (
	DomainAddress = "proofslot/address/v1"
	DomainSchema  = "account:ProofRecord"
)

// DefaultNamespace is the namespace tag for proof record slots.
const DefaultNamespace = "proof"

// ErrNoViableBump is returned when every bump value yields an on-curve
// digest. With SHA-256 this has probability 2^-256 per identity.
var ErrNoViableBump = errors.New("no bump yields an off-curve address")

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + parts...)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, parts ...[]byte) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	for _, p := range parts {
		h.Write(p)
	}
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// DeriveAddress computes the slot address for identity under namespace.
//
// The namespace is NFC normalized, then the digest
// SHA256(DomainAddress 0x00 namespace identity bump) is computed for bump
// 255, 254, ... and the first digest that does not decode as an ed25519
// point is returned together with its bump. An off-curve address has no
// private key, so no identity can ever sign for a slot.
//
// The namespace is length-prefixed so ("ab", "c...") and ("a", "bc...")
// never hash the same input.
//
// Returns a MALFORMED_IDENTITY error when identity is not 32 bytes.
func DeriveAddress(namespace string, identity []byte) (Address, uint8, error) {
	if _, err := IdentityFromBytes(identity); err != nil {
		return Address{}, 0, err
	}

	ns := []byte(norm.NFC.String(namespace))
	nsLen := []byte{byte(len(ns) >> 8), byte(len(ns))}

	for bump := 255; bump >= 0; bump-- {
		digest := hashWithDomain(DomainAddress, nsLen, ns, identity, []byte{byte(bump)})
		if isOnCurve(digest[:]) {
			continue
		}
		return Address(digest), uint8(bump), nil
	}
	return Address{}, 0, ErrNoViableBump
}

// CreateAddress recomputes the address for a known bump without searching.
// External readers that stored the bump use this to verify a slot address.
func CreateAddress(namespace string, identity []byte, bump uint8) (Address, error) {
	if _, err := IdentityFromBytes(identity); err != nil {
		return Address{}, err
	}
	ns := []byte(norm.NFC.String(namespace))
	nsLen := []byte{byte(len(ns) >> 8), byte(len(ns))}
	digest := hashWithDomain(DomainAddress, nsLen, ns, identity, []byte{bump})
	if isOnCurve(digest[:]) {
		return Address{}, ErrNoViableBump
	}
	return Address(digest), nil
}

// MustDeriveAddress is like DeriveAddress but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustDeriveAddress(namespace string, identity Identity) Address {
	addr, _, err := DeriveAddress(namespace, identity[:])
	if err != nil {
		panic(err)
	}
	return addr
}

// isOnCurve reports whether b is a valid compressed ed25519 point.
func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// schemaTag is the 8-byte discriminator written at the start of every record.
var schemaTag = func() [TagSize]byte {
	sum := sha256.Sum256([]byte(DomainSchema))
	var tag [TagSize]byte
	copy(tag[:], sum[:TagSize])
	return tag
}()

// SchemaTag returns the discriminator for the proof record layout.
func SchemaTag() [TagSize]byte {
	return schemaTag
}
