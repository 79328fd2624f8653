package engine

import (
	"bytes"
	"slices"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// lockKey names a slot address or a payer identity. Both are 32 bytes and
// live in one table so a submission can order all of its locks.
type lockKey [32]byte

type refLock struct {
	mu   sync.Mutex
	refs int // guarded by the table bucket, changed only inside Compute
}

// lockTable hands out mutexes by key and drops each entry once no goroutine
// holds or waits on it, so the table only holds keys with work in flight.
type lockTable struct {
	m *xsync.MapOf[lockKey, *refLock]
}

func newLockTable() *lockTable {
	return &lockTable{m: xsync.NewMapOf[lockKey, *refLock]()}
}

// acquire locks every distinct key in ascending byte order and returns the
// function that releases them. Callers locking overlapping key sets can
// therefore never deadlock.
func (t *lockTable) acquire(keys ...lockKey) (release func()) {
	ordered := slices.Clone(keys)
	slices.SortFunc(ordered, func(a, b lockKey) int { return bytes.Compare(a[:], b[:]) })
	ordered = slices.Compact(ordered)

	held := make([]*refLock, len(ordered))
	for i, k := range ordered {
		l, _ := t.m.Compute(k, func(old *refLock, loaded bool) (*refLock, bool) {
			if !loaded {
				old = &refLock{}
			}
			old.refs++
			return old, false
		})
		l.mu.Lock()
		held[i] = l
	}

	return func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			t.m.Compute(ordered[i], func(old *refLock, loaded bool) (*refLock, bool) {
				if !loaded {
					return old, true
				}
				old.refs--
				return old, old.refs == 0
			})
		}
	}
}

// size returns the number of keys currently locked or awaited.
func (t *lockTable) size() int {
	return t.m.Size()
}
