package locksvc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/juku/core"
)

func TestSortedKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, sortedKeys([]string{"c", "a", "b", "a"}))
	assert.Empty(t, sortedKeys(nil))
}

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("same key twice", func(t *testing.T) {
		l := NewLocalLocker(50 * time.Millisecond)
		unlock, err := l.Lock(ctx, "doc1", "doc1")
		require.NoError(t, err)
		unlock()
		unlock() // idempotent
	})

	t.Run("timeout", func(t *testing.T) {
		l := NewLocalLocker(20 * time.Millisecond)
		unlock, err := l.Lock(ctx, "doc1", "doc2")
		require.NoError(t, err)
		defer unlock()

		_, err = l.Lock(ctx, "doc2", "doc3")
		assert.Equal(t, core.ErrLockTimeout, err)

		// doc3 was released on failure
		unlock3, err := l.Lock(ctx, "doc3")
		require.NoError(t, err)
		unlock3()
	})

	t.Run("cancelled", func(t *testing.T) {
		l := NewLocalLocker(time.Second)
		unlock, err := l.Lock(ctx, "doc1")
		require.NoError(t, err)
		defer unlock()

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = l.Lock(cctx, "doc1")
		assert.Equal(t, context.Canceled, err)
	})

	t.Run("serializes", func(t *testing.T) {
		l := NewLocalLocker(time.Second)
		var (
			wg      sync.WaitGroup
			counter int
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock, err := l.Lock(ctx, "b", "a")
				if err != nil {
					t.Errorf("Lock() error = %v", err)
					return
				}
				c := counter
				time.Sleep(time.Millisecond)
				counter = c + 1
				unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, 20, counter)
	})
}

func TestLocalLocker_evictsSlots(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker(20 * time.Millisecond)

	for _, date := range []string{"2024-05-06", "2024-05-07", "2024-05-08"} {
		unlock, err := l.Lock(ctx, "C1_"+date+"_1", "C1_"+date+"_2")
		require.NoError(t, err)
		assert.Equal(t, 2, l.size())
		unlock()
		assert.Equal(t, 0, l.size())
	}

	unlock, err := l.Lock(ctx, "doc1")
	require.NoError(t, err)
	_, err = l.Lock(ctx, "doc1", "doc2")
	assert.Equal(t, core.ErrLockTimeout, err)
	assert.Equal(t, 1, l.size(), "failed waiters leave no slots behind")
	unlock()
	assert.Equal(t, 0, l.size())
}

func TestReleaseOnce(t *testing.T) {
	calls := 0
	unlock := releaseOnce(func() { calls++ })

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock()
		}()
	}
	wg.Wait()
	unlock()
	assert.Equal(t, 1, calls)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	l, closeFn, err := New(ctx, core.LockConfig{Driver: core.LockLocal, Wait: time.Second}, core.NopLogger{})
	require.NoError(t, err)
	assert.IsType(t, &LocalLocker{}, l)
	closeFn()

	_, _, err = New(ctx, core.LockConfig{Driver: "zookeeper"}, core.NopLogger{})
	assert.EqualError(t, err, `unknown lock driver "zookeeper"`)
}
