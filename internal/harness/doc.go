// Package harness runs YAML submission scenarios against the real handler.
//
// # Scenario Format
//
//	name: first_submission
//	description: "What this scenario validates"
//	rent_per_byte: 1          # optional, default 6960
//	clock: 1700000000         # optional start time (unix seconds)
//	setup:
//	  - fund: U1
//	    lamports: 1000
//	flow:
//	  - submit: U1
//	    proof: "0102"         # hex
//	    event_type: spam      # catalog name or code
//	    expect:
//	      outcome: ok
//	      created: true
//	  - advance: 60s
//	  - submit: U1
//	    proof: "ff"
//	    repeat: 600
//	    expect: { outcome: PAYLOAD_TOO_LARGE }
//	assertions:
//	  - type: record
//	    identity: U1
//	    expect: { proof: "0102", event_type: spam, timestamp: 1700000000 }
//	  - type: balance
//	    identity: U1
//	    lamports: 339
//
// Identity names map to fixed 32-byte identities via testutil.Identity, so
// golden files never contain derived addresses.
//
// # Assertion Types
//
//   - record: a slot holds the expected proof, event type, or timestamp
//   - no_slot: no slot exists for an identity
//   - balance: an identity's payer balance
//   - distinct_slots: each named identity owns its own slot
//   - slot_count: total number of slots
//   - outcome_count: how many submissions ended with an outcome
//
// # Deterministic Testing
//
// Every scenario runs on a fresh memory backend with testutil.FakeClock and
// sequential submission IDs, so traces are identical across runs and can be
// compared against golden snapshots.
package harness
