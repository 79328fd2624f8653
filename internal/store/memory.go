package store

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/proofslot/internal/ir"
)

// ErrReadOnly is returned by writes inside Memory.View.
var ErrReadOnly = errors.New("write in read-only transaction")

// Memory is an in-process backend.
// Update buffers writes and applies them only when the callback succeeds.
//
// Thread-safety: Update calls are serialized; View calls run concurrently.
type Memory struct {
	mu       sync.RWMutex
	accounts map[ir.Address]Account
	balances map[ir.Identity]uint64
}

var _ Backend = (*Memory)(nil)

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[ir.Address]Account),
		balances: make(map[ir.Identity]uint64),
	}
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

// Update runs fn and commits its buffered writes if fn returns nil.
func (m *Memory) Update(ctx context.Context, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	txn := &memTxn{
		m:        m,
		accounts: make(map[ir.Address]Account),
		balances: make(map[ir.Identity]uint64),
	}
	if err := fn(txn); err != nil {
		return err
	}

	for addr, acc := range txn.accounts {
		m.accounts[addr] = acc
	}
	for id, bal := range txn.balances {
		m.balances[id] = bal
	}
	return nil
}

// View runs fn against a read-only snapshot.
func (m *Memory) View(ctx context.Context, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(&memTxn{m: m, readOnly: true})
}

// memTxn reads through its write buffer to the committed maps.
type memTxn struct {
	m        *Memory
	readOnly bool
	accounts map[ir.Address]Account
	balances map[ir.Identity]uint64
}

func (t *memTxn) Account(addr ir.Address) (Account, error) {
	if acc, ok := t.accounts[addr]; ok {
		return acc.Clone(), nil
	}
	if acc, ok := t.m.accounts[addr]; ok {
		return acc.Clone(), nil
	}
	return Account{}, ErrNotFound
}

func (t *memTxn) PutAccount(acc Account) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.accounts[acc.Address] = acc.Clone()
	return nil
}

func (t *memTxn) Balance(id ir.Identity) (uint64, error) {
	if bal, ok := t.balances[id]; ok {
		return bal, nil
	}
	return t.m.balances[id], nil
}

func (t *memTxn) SetBalance(id ir.Identity, lamports uint64) error {
	if t.readOnly {
		return ErrReadOnly
	}
	t.balances[id] = lamports
	return nil
}

func (t *memTxn) CountAccounts() (int, error) {
	n := len(t.m.accounts)
	for addr := range t.accounts {
		if _, ok := t.m.accounts[addr]; !ok {
			n++
		}
	}
	return n, nil
}
