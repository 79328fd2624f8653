package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(b byte) lockKey {
	var k lockKey
	k[0] = b
	return k
}

func TestLockTable_OverlappingSetsDoNotDeadlock(t *testing.T) {
	table := newLockTable()
	a, b, c := key(1), key(2), key(3)
	sets := [][]lockKey{{a, b}, {b, a}, {b, c}, {c, a}, {a, a}}

	// counts[k[0]] is only touched while k is held.
	counts := make([]int, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		for i := range 200 {
			wg.Add(1)
			go func(set []lockKey) {
				defer wg.Done()
				release := table.acquire(set...)
				defer release()
				for _, k := range set {
					counts[k[0]]++
				}
			}(sets[i%len(sets)])
		}
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("acquire deadlocked on overlapping key sets")
	}

	assert.Zero(t, table.size())
	assert.Equal(t, []int{0, 200, 120, 80}, counts)
}

func TestLockTable_HoldsUntilRelease(t *testing.T) {
	table := newLockTable()
	release := table.acquire(key(7))
	require.Equal(t, 1, table.size())

	acquired := make(chan struct{})
	go func() {
		r := table.acquire(key(7), key(8))
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire ran while the key was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	<-acquired
	assert.Eventually(t, func() bool { return table.size() == 0 }, time.Second, time.Millisecond)
}
