// Package store provides durable storage for proofslot accounts.
//
// An account is the storage behind one slot: its derived address, the owner
// identity, the payer that funded it, the rent deposit, and exactly
// ir.Capacity bytes of record data. The store also keeps the payer ledger
// (lamport balances per identity) used to charge slot creation.
//
// Three backends implement Backend:
//   - Store: SQLite (default, single file, WAL mode)
//   - BadgerStore: badger key-value store (directory)
//   - Memory: in-process maps for tests and dry runs
//
// # Transactions
//
// All reads and writes happen inside Update or View. Update commits only if
// the callback returns nil; any error rolls back every write made in the
// callback, including a slot allocation and its rent debit. View never
// commits.
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The store never interprets account data; record layout lives in
// internal/ir and slot rules live in internal/record.
package store
