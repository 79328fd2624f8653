// Package record implements slot semantics on top of a store.Backend.
//
// A slot is created lazily by OpenOrCreate: the payer is charged rent for
// exactly ir.Capacity bytes and the account is initialized to the empty
// record. Later calls reuse the account without charging anyone. Write
// replaces the whole record in place and stamps it with the store's clock.
//
// Store methods that take a store.Txn do not commit anything themselves;
// the caller owns the transaction, so a failed Write after a fresh
// OpenOrCreate rolls back the allocation too.
package record
