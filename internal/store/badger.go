package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/roach88/proofslot/internal/ir"
)

// Key prefixes for the badger keyspace.
//
//	0x00          -> layout version (u16 BE)
//	0x01 address  -> account (owner | payer | lamports u64 BE | data)
//	0x02 identity -> balance (u64 BE)
const (
	prefixVersion byte = iota
	prefixAccount
	prefixBalance
)

// badgerVersion is the keyspace version written on first open.
const badgerVersion uint16 = 1

// accountHeaderSize is owner + payer + lamports.
const accountHeaderSize = ir.IdentitySize*2 + 8

// BadgerStore is the badger backend.
//
// Thread-safety: Update calls are serialized, so badger never reports
// ErrConflict to a caller; View calls run concurrently.
type BadgerStore struct {
	db      *badger.DB
	writeMu sync.Mutex
}

var _ Backend = (*BadgerStore)(nil)

// OpenBadger opens or creates a badger database in dir.
// An empty dir opens an in-memory database.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Compression = options.None
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	s := &BadgerStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database. Safe to call more than once.
func (s *BadgerStore) Close() error {
	if s.db == nil || s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}

// Update runs fn in a badger read-write transaction.
func (s *BadgerStore) Update(ctx context.Context, fn func(Txn) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

// View runs fn in a read-only badger transaction.
// Writes inside View fail with badger.ErrReadOnlyTxn.
func (s *BadgerStore) View(ctx context.Context, fn func(Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTxn{txn: txn})
	})
}

func (s *BadgerStore) runMigrations() error {
	return s.db.Update(func(txn *badger.Txn) error {
		var version uint16
		item, err := txn.Get([]byte{prefixVersion})
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			version = 0
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				if len(val) != 2 {
					return fmt.Errorf("version key holds %d bytes", len(val))
				}
				version = binary.BigEndian.Uint16(val)
				return nil
			}); err != nil {
				return err
			}
		}

		if version > badgerVersion {
			return fmt.Errorf("keyspace version %d is newer than supported version %d", version, badgerVersion)
		}
		if version == badgerVersion {
			return nil
		}
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, badgerVersion)
		return txn.Set([]byte{prefixVersion}, buf)
	})
}

// badgerTxn implements Txn over a badger transaction.
type badgerTxn struct {
	txn *badger.Txn
}

func accountKey(addr ir.Address) []byte {
	return append([]byte{prefixAccount}, addr[:]...)
}

func balanceKey(id ir.Identity) []byte {
	return append([]byte{prefixBalance}, id[:]...)
}

func (t *badgerTxn) Account(addr ir.Address) (Account, error) {
	item, err := t.txn.Get(accountKey(addr))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("read account: %w", err)
	}

	val, err := item.ValueCopy(nil)
	if err != nil {
		return Account{}, fmt.Errorf("read account: %w", err)
	}
	acc, err := decodeAccount(addr, val)
	if err != nil {
		return Account{}, fmt.Errorf("read account: %w", err)
	}
	return acc, nil
}

func (t *badgerTxn) PutAccount(acc Account) error {
	if err := t.txn.Set(accountKey(acc.Address), encodeAccount(acc)); err != nil {
		return fmt.Errorf("write account: %w", err)
	}
	return nil
}

func (t *badgerTxn) Balance(id ir.Identity) (uint64, error) {
	item, err := t.txn.Get(balanceKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	var lamports uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return fmt.Errorf("balance holds %d bytes", len(val))
		}
		lamports = binary.BigEndian.Uint64(val)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return lamports, nil
}

func (t *badgerTxn) SetBalance(id ir.Identity, lamports uint64) error {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, lamports)
	if err := t.txn.Set(balanceKey(id), buf); err != nil {
		return fmt.Errorf("write balance: %w", err)
	}
	return nil
}

func (t *badgerTxn) CountAccounts() (int, error) {
	prefix := []byte{prefixAccount}
	it := t.txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	defer it.Close()

	n := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		n++
	}
	return n, nil
}

func encodeAccount(acc Account) []byte {
	buf := make([]byte, accountHeaderSize+len(acc.Data))
	off := copy(buf, acc.Owner[:])
	off += copy(buf[off:], acc.Payer[:])
	binary.BigEndian.PutUint64(buf[off:], acc.Lamports)
	off += 8
	copy(buf[off:], acc.Data)
	return buf
}

func decodeAccount(addr ir.Address, val []byte) (Account, error) {
	if len(val) < accountHeaderSize {
		return Account{}, fmt.Errorf("account value is %d bytes, header needs %d", len(val), accountHeaderSize)
	}
	acc := Account{Address: addr}
	off := copy(acc.Owner[:], val)
	off += copy(acc.Payer[:], val[off:])
	acc.Lamports = binary.BigEndian.Uint64(val[off:])
	off += 8
	acc.Data = val[off:]
	return acc, nil
}
