package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLocker() *Locker {
	return &Locker{
		PollInterval: 5 * time.Millisecond,
		StaleAfter:   DefaultStaleAfter,
		Timeout:      2 * time.Second,
	}
}

func TestWithLock(t *testing.T) {
	t.Run("runs body and removes marker", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "testing.jsonl")
		ran := false

		err := testLocker().WithLock(context.Background(), path, func() error {
			_, statErr := os.Stat(path + Suffix)
			require.NoError(t, statErr, "marker should exist while body runs")
			ran = true
			return nil
		})

		require.NoError(t, err)
		assert.True(t, ran)
		assert.NoFileExists(t, path+Suffix)
	})

	t.Run("removes marker when body fails", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "testing.jsonl")
		bodyErr := errors.New("boom")

		err := testLocker().WithLock(context.Background(), path, func() error {
			return bodyErr
		})

		require.ErrorIs(t, err, bodyErr)
		assert.NoFileExists(t, path+Suffix)
	})

	t.Run("removes marker when body panics", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "testing.jsonl")

		assert.Panics(t, func() {
			_ = testLocker().WithLock(context.Background(), path, func() error {
				panic("boom")
			})
		})
		assert.NoFileExists(t, path+Suffix)
	})

	t.Run("times out on held lock", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "testing.jsonl")
		require.NoError(t, os.WriteFile(path+Suffix, []byte("1 other\n"), 0644))

		l := testLocker()
		l.Timeout = 100 * time.Millisecond
		called := false

		err := l.WithLock(context.Background(), path, func() error {
			called = true
			return nil
		})

		require.Error(t, err)
		assert.True(t, IsTimeout(err))
		assert.False(t, called)

		var te *TimeoutError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, path, te.Path)
		assert.FileExists(t, path+Suffix, "foreign marker must be left alone")
	})

	t.Run("reaps stale marker", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "testing.jsonl")
		marker := path + Suffix
		require.NoError(t, os.WriteFile(marker, []byte("1 abandoned\n"), 0644))
		old := time.Now().Add(-time.Minute)
		require.NoError(t, os.Chtimes(marker, old, old))

		called := false
		err := testLocker().WithLock(context.Background(), path, func() error {
			called = true
			return nil
		})

		require.NoError(t, err)
		assert.True(t, called)
		assert.NoFileExists(t, marker)
	})

	t.Run("stops waiting when context is cancelled", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "testing.jsonl")
		require.NoError(t, os.WriteFile(path+Suffix, []byte("1 other\n"), 0644))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := testLocker().WithLock(ctx, path, func() error { return nil })
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestWithLock_MutualExclusion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "testing.jsonl")
	l := testLocker()

	var inside, overlaps, completed int32
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLock(context.Background(), path, func() error {
				if atomic.AddInt32(&inside, 1) > 1 {
					atomic.AddInt32(&overlaps, 1)
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&inside, -1)
				atomic.AddInt32(&completed, 1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), overlaps, "critical sections must not overlap")
	assert.Equal(t, int32(4), completed)
	assert.NoFileExists(t, path+Suffix)
}
