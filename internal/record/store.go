package record

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/proofslot/internal/ir"
	"github.com/roach88/proofslot/internal/store"
)

// Rent defaults. An account pays for its data plus a fixed per-account
// overhead, once, at creation.
const (
	DefaultRentPerByte     uint64 = 6960
	AccountStorageOverhead uint64 = 128
)

// ErrSlotNotFound is returned by Lookup when no slot exists at an address.
var ErrSlotNotFound = errors.New("slot not found")

// Store owns slot addressing, capacity enforcement, and the record codec.
//
// Thread-safety: Store holds no mutable state and is safe for concurrent
// use. Linearizing writes to one slot is the caller's job (see engine).
type Store struct {
	backend     store.Backend
	clock       Clock
	namespace   string
	rentPerByte uint64
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to stamp records.
func WithClock(c Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithNamespace sets the namespace tag used for address derivation.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		s.namespace = ns
	}
}

// WithRentPerByte sets the lamports charged per allocated byte.
func WithRentPerByte(lamports uint64) Option {
	return func(s *Store) {
		s.rentPerByte = lamports
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates a record Store over backend.
func New(backend store.Backend, opts ...Option) *Store {
	s := &Store{
		backend:     backend,
		clock:       SystemClock{},
		namespace:   ir.DefaultNamespace,
		rentPerByte: DefaultRentPerByte,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying backend.
func (s *Store) Backend() store.Backend {
	return s.backend
}

// Namespace returns the namespace tag used for derivation.
func (s *Store) Namespace() string {
	return s.namespace
}

// RentFor returns the lamports charged to allocate capacity bytes.
func (s *Store) RentFor(capacity int) uint64 {
	return (AccountStorageOverhead + uint64(capacity)) * s.rentPerByte
}

// DeriveAddress returns the slot address and bump for identity.
func (s *Store) DeriveAddress(identity []byte) (ir.Address, uint8, error) {
	return ir.DeriveAddress(s.namespace, identity)
}

// Slot is a handle to one account inside a transaction.
type Slot struct {
	txn     store.Txn
	account store.Account
}

// Address returns the slot address.
func (sl *Slot) Address() ir.Address {
	return sl.account.Address
}

// Account returns a copy of the underlying account.
func (sl *Slot) Account() store.Account {
	return sl.account.Clone()
}

// OpenOrCreate returns the slot at addr, allocating it if absent.
//
// Absent: payer is debited RentFor(ir.Capacity); the account is written
// with the empty record and created is true. A short balance fails with
// STORAGE_ALLOCATION and writes nothing.
//
// Present: the account is returned unchanged after checking it holds a
// proof record of the expected size; otherwise ADDRESS_MISMATCH.
func (s *Store) OpenOrCreate(txn store.Txn, addr ir.Address, owner, payer ir.Identity) (*Slot, bool, error) {
	acc, err := txn.Account(addr)
	switch {
	case err == nil:
		if err := checkLayout(acc); err != nil {
			return nil, false, err
		}
		return &Slot{txn: txn, account: acc}, false, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, false, fmt.Errorf("open slot %s: %w", addr, err)
	}

	rent := s.RentFor(ir.Capacity)
	bal, err := store.Debit(txn, payer, rent)
	if errors.Is(err, store.ErrInsufficientFunds) {
		return nil, false, &ir.RecordError{
			Code:    ir.ErrCodeStorageAllocation,
			Message: fmt.Sprintf("payer %s holds %d lamports, slot needs %d", payer, bal, rent),
			Address: addr,
			Err:     err,
		}
	}
	if err != nil {
		return nil, false, fmt.Errorf("charge payer %s: %w", payer, err)
	}

	acc = store.Account{
		Address:  addr,
		Owner:    owner,
		Payer:    payer,
		Lamports: rent,
		Data:     ir.EmptyRecord(),
	}
	if err := txn.PutAccount(acc); err != nil {
		return nil, false, fmt.Errorf("allocate slot %s: %w", addr, err)
	}

	s.logger.Debug("slot allocated",
		"address", addr.String(),
		"owner", owner.String(),
		"payer", payer.String(),
		"lamports", rent,
	)
	return &Slot{txn: txn, account: acc}, true, nil
}

// Write replaces the slot's record and stamps it with the current time.
//
// The timestamp is max(clock now, previous timestamp), so a slot's
// timestamp never decreases even if the wall clock steps back.
// An oversized proof fails with PAYLOAD_TOO_LARGE before anything changes.
func (s *Store) Write(sl *Slot, proof []byte, eventType ir.EventType) (ir.Record, error) {
	if err := ir.CheckPayload(len(proof)); err != nil {
		return ir.Record{}, withAddress(err, sl.account.Address)
	}

	prev, err := s.Read(sl)
	if err != nil {
		return ir.Record{}, err
	}

	rec := ir.Record{
		Proof:     bytes.Clone(proof),
		EventType: eventType,
		Timestamp: max(s.clock.Now().Unix(), prev.Timestamp),
	}

	next := sl.account.Clone()
	if err := ir.EncodeRecord(next.Data, rec); err != nil {
		return ir.Record{}, withAddress(err, sl.account.Address)
	}
	if err := sl.txn.PutAccount(next); err != nil {
		return ir.Record{}, fmt.Errorf("write slot %s: %w", sl.account.Address, err)
	}
	sl.account = next
	return rec, nil
}

// Read decodes the slot's current record.
func (s *Store) Read(sl *Slot) (ir.Record, error) {
	rec, err := ir.DecodeRecord(sl.account.Data)
	if err != nil {
		return ir.Record{}, withAddress(err, sl.account.Address)
	}
	return rec, nil
}

// Lookup reads the record at addr in its own read-only transaction.
// Returns ErrSlotNotFound when no slot exists and CORRUPT_RECORD when the
// stored bytes do not decode.
func (s *Store) Lookup(ctx context.Context, addr ir.Address) (ir.Record, store.Account, error) {
	var rec ir.Record
	var acc store.Account
	err := s.backend.View(ctx, func(txn store.Txn) error {
		var err error
		acc, err = txn.Account(addr)
		if errors.Is(err, store.ErrNotFound) {
			return ErrSlotNotFound
		}
		if err != nil {
			return err
		}
		rec, err = s.Read(&Slot{txn: txn, account: acc})
		return err
	})
	if err != nil {
		return ir.Record{}, store.Account{}, fmt.Errorf("lookup %s: %w", addr, err)
	}
	return rec, acc, nil
}

// LookupIdentity derives the slot address for identity and reads it.
func (s *Store) LookupIdentity(ctx context.Context, identity ir.Identity) (ir.Record, store.Account, error) {
	addr, _, err := s.DeriveAddress(identity[:])
	if err != nil {
		return ir.Record{}, store.Account{}, err
	}
	return s.Lookup(ctx, addr)
}

// Balance returns the payer ledger balance of id.
func (s *Store) Balance(ctx context.Context, id ir.Identity) (uint64, error) {
	var bal uint64
	err := s.backend.View(ctx, func(txn store.Txn) error {
		var err error
		bal, err = txn.Balance(id)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("balance %s: %w", id, err)
	}
	return bal, nil
}

// Fund credits lamports to id and returns the new balance.
func (s *Store) Fund(ctx context.Context, id ir.Identity, lamports uint64) (uint64, error) {
	var bal uint64
	err := s.backend.Update(ctx, func(txn store.Txn) error {
		var err error
		bal, err = store.Credit(txn, id, lamports)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("fund %s: %w", id, err)
	}
	s.logger.Info("payer funded", "identity", id.String(), "lamports", lamports, "balance", bal)
	return bal, nil
}

// checkLayout rejects accounts not created with the proof record layout.
func checkLayout(acc store.Account) error {
	if len(acc.Data) != ir.Capacity || !ir.HasSchemaTag(acc.Data) {
		return &ir.RecordError{
			Code:    ir.ErrCodeAddressMismatch,
			Message: fmt.Sprintf("account holds %d bytes without the proof record tag", len(acc.Data)),
			Address: acc.Address,
		}
	}
	return nil
}

// withAddress attaches addr to a RecordError that lacks one.
func withAddress(err error, addr ir.Address) error {
	var re *ir.RecordError
	if errors.As(err, &re) && re.Address == (ir.Address{}) {
		re.Address = addr
	}
	return err
}
