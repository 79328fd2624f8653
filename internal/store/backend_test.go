package store

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/roach88/proofslot/internal/ir"
)

var errAbort = errors.New("abort")

func openTestSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testBackends returns one fresh instance of every backend.
func testBackends(t *testing.T) map[string]Backend {
	t.Helper()

	bs, err := OpenBadger(filepath.Join(t.TempDir(), "badger"))
	if err != nil {
		t.Fatalf("OpenBadger() failed: %v", err)
	}
	t.Cleanup(func() { bs.Close() })

	return map[string]Backend{
		KindSQLite: openTestSQLite(t),
		KindBadger: bs,
		KindMemory: NewMemory(),
	}
}

func testIdentity(n byte) ir.Identity {
	var id ir.Identity
	id[0] = n
	id[31] = n
	return id
}

func testAccount(n byte) Account {
	return Account{
		Address:  ir.MustDeriveAddress(ir.DefaultNamespace, testIdentity(n)),
		Owner:    testIdentity(n),
		Payer:    testIdentity(n + 100),
		Lamports: 4242,
		Data:     ir.EmptyRecord(),
	}
}

func TestBackend_AccountNotFound(t *testing.T) {
	for name, b := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			err := b.View(context.Background(), func(txn Txn) error {
				_, err := txn.Account(testAccount(1).Address)
				return err
			})
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Account() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestBackend_PutAndGetAccount(t *testing.T) {
	for name, b := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := testAccount(1)

			if err := b.Update(ctx, func(txn Txn) error {
				return txn.PutAccount(want)
			}); err != nil {
				t.Fatalf("Update() failed: %v", err)
			}

			var got Account
			if err := b.View(ctx, func(txn Txn) error {
				var err error
				got, err = txn.Account(want.Address)
				return err
			}); err != nil {
				t.Fatalf("View() failed: %v", err)
			}

			if got.Address != want.Address || got.Owner != want.Owner || got.Payer != want.Payer {
				t.Errorf("account identity fields = %+v, want %+v", got, want)
			}
			if got.Lamports != want.Lamports {
				t.Errorf("lamports = %d, want %d", got.Lamports, want.Lamports)
			}
			if !bytes.Equal(got.Data, want.Data) {
				t.Error("data mismatch after round trip")
			}
		})
	}
}

func TestBackend_PutAccountReplaces(t *testing.T) {
	for name, b := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			acc := testAccount(1)

			for i := 0; i < 2; i++ {
				acc.Data = bytes.Repeat([]byte{byte(i)}, ir.Capacity)
				if err := b.Update(ctx, func(txn Txn) error {
					return txn.PutAccount(acc)
				}); err != nil {
					t.Fatalf("Update() %d failed: %v", i, err)
				}
			}

			var count int
			var got Account
			if err := b.View(ctx, func(txn Txn) error {
				var err error
				if count, err = txn.CountAccounts(); err != nil {
					return err
				}
				got, err = txn.Account(acc.Address)
				return err
			}); err != nil {
				t.Fatalf("View() failed: %v", err)
			}

			if count != 1 {
				t.Errorf("CountAccounts() = %d, want 1", count)
			}
			if got.Data[0] != 1 {
				t.Errorf("data[0] = %d, want latest write 1", got.Data[0])
			}
		})
	}
}

func TestBackend_UpdateRollsBackOnError(t *testing.T) {
	for name, b := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			acc := testAccount(2)
			payer := testIdentity(7)

			err := b.Update(ctx, func(txn Txn) error {
				if err := txn.PutAccount(acc); err != nil {
					return err
				}
				if err := txn.SetBalance(payer, 99); err != nil {
					return err
				}
				return errAbort
			})
			if !errors.Is(err, errAbort) {
				t.Fatalf("Update() error = %v, want errAbort", err)
			}

			err = b.View(ctx, func(txn Txn) error {
				if _, err := txn.Account(acc.Address); !errors.Is(err, ErrNotFound) {
					t.Errorf("account survived rollback: %v", err)
				}
				bal, err := txn.Balance(payer)
				if err != nil {
					return err
				}
				if bal != 0 {
					t.Errorf("balance = %d after rollback, want 0", bal)
				}
				n, err := txn.CountAccounts()
				if err != nil {
					return err
				}
				if n != 0 {
					t.Errorf("CountAccounts() = %d after rollback, want 0", n)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("View() failed: %v", err)
			}
		})
	}
}

func TestBackend_ReadYourWrites(t *testing.T) {
	for name, b := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			acc := testAccount(3)
			err := b.Update(context.Background(), func(txn Txn) error {
				if err := txn.PutAccount(acc); err != nil {
					return err
				}
				if _, err := txn.Account(acc.Address); err != nil {
					t.Errorf("Account() inside same txn: %v", err)
				}
				n, err := txn.CountAccounts()
				if err != nil {
					return err
				}
				if n != 1 {
					t.Errorf("CountAccounts() inside txn = %d, want 1", n)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("Update() failed: %v", err)
			}
		})
	}
}

func TestBackend_CreditDebit(t *testing.T) {
	for name, b := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := testIdentity(9)

			err := b.Update(ctx, func(txn Txn) error {
				bal, err := Credit(txn, id, 1000)
				if err != nil {
					return err
				}
				if bal != 1000 {
					t.Errorf("Credit() balance = %d, want 1000", bal)
				}
				bal, err = Debit(txn, id, 400)
				if err != nil {
					return err
				}
				if bal != 600 {
					t.Errorf("Debit() balance = %d, want 600", bal)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("Update() failed: %v", err)
			}

			err = b.Update(ctx, func(txn Txn) error {
				_, err := Debit(txn, id, 601)
				return err
			})
			if !errors.Is(err, ErrInsufficientFunds) {
				t.Fatalf("Debit() error = %v, want ErrInsufficientFunds", err)
			}

			err = b.View(ctx, func(txn Txn) error {
				bal, err := txn.Balance(id)
				if err != nil {
					return err
				}
				if bal != 600 {
					t.Errorf("balance = %d after failed debit, want 600", bal)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("View() failed: %v", err)
			}
		})
	}
}

func TestBackend_ConcurrentCreditsOneIdentity(t *testing.T) {
	const writers = 32
	for name, b := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			id := testIdentity(11)

			var wg sync.WaitGroup
			errs := make(chan error, writers)
			for range writers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- b.Update(ctx, func(txn Txn) error {
						_, err := Credit(txn, id, 5)
						return err
					})
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				if err != nil {
					t.Errorf("Update() failed: %v", err)
				}
			}

			err := b.View(ctx, func(txn Txn) error {
				bal, err := txn.Balance(id)
				if err != nil {
					return err
				}
				if bal != writers*5 {
					t.Errorf("balance = %d, want %d", bal, writers*5)
				}
				return nil
			})
			if err != nil {
				t.Fatalf("View() failed: %v", err)
			}
		})
	}
}

func TestBackend_CancelledContext(t *testing.T) {
	for name, b := range testBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := b.Update(ctx, func(txn Txn) error { return nil })
			if err == nil {
				t.Error("Update() with cancelled context should fail")
			}
		})
	}
}

func TestCredit_Overflow(t *testing.T) {
	m := NewMemory()
	id := testIdentity(4)

	err := m.Update(context.Background(), func(txn Txn) error {
		if err := txn.SetBalance(id, ^uint64(0)); err != nil {
			return err
		}
		_, err := Credit(txn, id, 1)
		return err
	})
	if err == nil {
		t.Error("expected overflow error")
	}
}

func TestMemory_ViewIsReadOnly(t *testing.T) {
	m := NewMemory()

	err := m.View(context.Background(), func(txn Txn) error {
		return txn.PutAccount(testAccount(1))
	})
	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("PutAccount() in View error = %v, want ErrReadOnly", err)
	}
}

func TestMemory_AccountsDoNotAlias(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	acc := testAccount(5)

	if err := m.Update(ctx, func(txn Txn) error { return txn.PutAccount(acc) }); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	acc.Data[0] ^= 0xFF

	err := m.View(ctx, func(txn Txn) error {
		got, err := txn.Account(acc.Address)
		if err != nil {
			return err
		}
		if got.Data[0] == acc.Data[0] {
			t.Error("stored data aliases caller slice")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("View() failed: %v", err)
	}
}

func TestBadger_ReopenKeepsData(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")
	ctx := context.Background()
	acc := testAccount(6)

	s1, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger() failed: %v", err)
	}
	if err := s1.Update(ctx, func(txn Txn) error { return txn.PutAccount(acc) }); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	s2, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	err = s2.View(ctx, func(txn Txn) error {
		_, err := txn.Account(acc.Address)
		return err
	})
	if err != nil {
		t.Errorf("account missing after reopen: %v", err)
	}
	if err := s2.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if err := s2.Close(); err != nil {
		t.Errorf("second Close() should be a no-op: %v", err)
	}
}

func TestBadger_InMemory(t *testing.T) {
	s, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger(\"\") failed: %v", err)
	}
	defer s.Close()

	if err := s.Update(context.Background(), func(txn Txn) error {
		return txn.SetBalance(testIdentity(1), 5)
	}); err != nil {
		t.Errorf("Update() failed: %v", err)
	}
}

func TestDecodeAccount_Short(t *testing.T) {
	if _, err := decodeAccount(ir.Address{}, make([]byte, accountHeaderSize-1)); err == nil {
		t.Error("expected error for truncated account value")
	}
}

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		kind    string
		path    string
		wantErr bool
	}{
		{KindSQLite, filepath.Join(dir, "a.db"), false},
		{"", filepath.Join(dir, "b.db"), false},
		{KindSQLite, "", true},
		{KindBadger, filepath.Join(dir, "badger"), false},
		{KindMemory, "", false},
		{"postgres", "", true},
	}

	for _, tt := range tests {
		b, err := OpenBackend(tt.kind, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("OpenBackend(%q, %q) error = %v, wantErr %v", tt.kind, tt.path, err, tt.wantErr)
			continue
		}
		if b != nil {
			b.Close()
		}
	}
}
