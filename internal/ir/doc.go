// Package ir provides the foundational types for proofslot.
//
// This package holds identities, derived slot addresses, the proof record
// and its fixed-capacity binary layout, and the typed record errors. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Address derivation is pure: same namespace and identity, same address
//   - Capacity is fixed per slot (see Capacity); records never grow past it
//   - All JSON tags use snake_case
//   - Timestamps are unix seconds (int64), assigned by the record store
package ir
