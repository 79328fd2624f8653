package store

import (
	"bytes"
	"context"
	"errors"

	"github.com/roach88/proofslot/internal/ir"
)

// ErrNotFound is returned by Txn.Account when no account exists at an address.
var ErrNotFound = errors.New("account not found")

// ErrInsufficientFunds is returned by Debit when a balance cannot cover an amount.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Account is the storage behind one slot.
type Account struct {
	Address  ir.Address
	Owner    ir.Identity
	Payer    ir.Identity
	Lamports uint64
	Data     []byte
}

// Clone returns a deep copy so callers never alias backend memory.
func (a Account) Clone() Account {
	a.Data = bytes.Clone(a.Data)
	return a
}

// Backend is a transactional account store.
type Backend interface {
	// Update runs fn in a read-write transaction.
	// The transaction commits only if fn returns nil.
	Update(ctx context.Context, fn func(Txn) error) error

	// View runs fn in a transaction whose writes are always discarded.
	View(ctx context.Context, fn func(Txn) error) error

	// Close releases the backend. Safe to call more than once.
	Close() error
}

// Txn is the view of the store inside one transaction.
type Txn interface {
	// Account returns the account at addr, or ErrNotFound.
	Account(addr ir.Address) (Account, error)

	// PutAccount creates or replaces the account at acc.Address.
	PutAccount(acc Account) error

	// Balance returns the lamport balance of id; unknown identities hold 0.
	Balance(id ir.Identity) (uint64, error)

	// SetBalance replaces the lamport balance of id.
	SetBalance(id ir.Identity, lamports uint64) error

	// CountAccounts returns the number of allocated accounts.
	CountAccounts() (int, error)
}

// Credit adds lamports to id's balance inside txn.
func Credit(txn Txn, id ir.Identity, lamports uint64) (uint64, error) {
	bal, err := txn.Balance(id)
	if err != nil {
		return 0, err
	}
	if bal+lamports < bal {
		return 0, errors.New("credit overflows balance")
	}
	bal += lamports
	if err := txn.SetBalance(id, bal); err != nil {
		return 0, err
	}
	return bal, nil
}

// Debit subtracts lamports from id's balance inside txn.
// Returns ErrInsufficientFunds, leaving the balance unchanged, when short.
func Debit(txn Txn, id ir.Identity, lamports uint64) (uint64, error) {
	bal, err := txn.Balance(id)
	if err != nil {
		return 0, err
	}
	if bal < lamports {
		return bal, ErrInsufficientFunds
	}
	bal -= lamports
	if err := txn.SetBalance(id, bal); err != nil {
		return 0, err
	}
	return bal, nil
}
