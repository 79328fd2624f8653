// Package engine implements the proof submission handler.
//
// Handler.Submit is the only mutating entry point. One call:
//
//  1. Parses the submitter and payer identities (MALFORMED_IDENTITY)
//  2. Derives the submitter's slot address from the record store namespace
//  3. Locks that address so writes to one slot are linearized
//  4. Opens or creates the slot and writes the record in one backend
//     transaction (STORAGE_ALLOCATION, ADDRESS_MISMATCH, PAYLOAD_TOO_LARGE)
//  5. Notifies the configured Notifier with the submitter identity
//
// Record timestamps come from the record store's clock, never from the
// caller. Different submitters never share a lock, so their submissions
// proceed concurrently.
package engine
