// Package lock implements the advisory sidecar lock that serializes
// read-modify-write cycles on an expertise file across mulch processes.
//
// The lock is a marker file at "<path>.lock" created with O_EXCL. It only
// protects cooperating mulch processes; it is not a kernel lock.
package lock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// Suffix is appended to the guarded path to form the marker path.
	Suffix = ".lock"

	// DefaultPollInterval is how often a contended lock is retried.
	DefaultPollInterval = 50 * time.Millisecond

	// DefaultStaleAfter is the marker age after which it is treated as abandoned.
	DefaultStaleAfter = 30 * time.Second

	// DefaultTimeout bounds how long acquisition may wait.
	DefaultTimeout = 5 * time.Second
)

// TimeoutError is returned when the lock could not be acquired in time.
type TimeoutError struct {
	Path    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %v waiting for lock on %s", e.Timeout, e.Path)
}

// IsTimeout checks if an error is a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// Locker acquires sidecar locks. The zero value uses the package defaults.
type Locker struct {
	PollInterval time.Duration
	StaleAfter   time.Duration
	Timeout      time.Duration
	Logger       *slog.Logger
}

// Default returns a Locker with the standard timings.
func Default() *Locker {
	return &Locker{
		PollInterval: DefaultPollInterval,
		StaleAfter:   DefaultStaleAfter,
		Timeout:      DefaultTimeout,
	}
}

// WithLock runs fn while holding the lock for path, using the default Locker.
func WithLock(ctx context.Context, path string, fn func() error) error {
	return Default().WithLock(ctx, path, fn)
}

// WithLock runs fn while holding the lock for path. The marker is removed
// when fn returns, whether it succeeds, fails or panics.
func (l *Locker) WithLock(ctx context.Context, path string, fn func() error) error {
	release, err := l.acquire(ctx, path)
	if err != nil {
		return err
	}
	defer release()

	return fn()
}

func (l *Locker) acquire(ctx context.Context, path string) (func(), error) {
	marker := path + Suffix
	token := uuid.NewString()
	timeout := orDefault(l.Timeout, DefaultTimeout)
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(orDefault(l.PollInterval, DefaultPollInterval))
	defer ticker.Stop()

	for {
		created, err := createMarker(marker, token)
		if err != nil {
			return nil, err
		}
		if created {
			l.logger().Debug("lock acquired", "path", path)
			return func() { l.release(marker, token) }, nil
		}

		if l.isStale(marker) {
			if err := os.Remove(marker); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to remove stale lock %s: %w", marker, err)
			}
			l.logger().Warn("removed stale lock", "path", marker)
			continue
		}

		if !time.Now().Before(deadline) {
			return nil, &TimeoutError{Path: path, Timeout: timeout}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// createMarker reports false without error when the marker already exists.
func createMarker(marker, token string) (bool, error) {
	f, err := os.OpenFile(marker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create lock %s: %w", marker, err)
	}

	_, writeErr := fmt.Fprintf(f, "%d %s\n", os.Getpid(), token)
	closeErr := f.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(marker)
		return false, fmt.Errorf("failed to write lock %s: %w", marker, err)
	}
	return true, nil
}

func (l *Locker) isStale(marker string) bool {
	info, err := os.Stat(marker)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > orDefault(l.StaleAfter, DefaultStaleAfter)
}

// release removes the marker unless another process has since reaped it as
// stale and taken the lock itself.
func (l *Locker) release(marker, token string) {
	data, err := os.ReadFile(marker)
	if err != nil {
		return
	}
	if !strings.Contains(string(data), token) {
		l.logger().Warn("lock was taken over before release", "path", marker)
		return
	}
	if err := os.Remove(marker); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger().Warn("failed to remove lock", "path", marker, "error", err)
	}
}

func (l *Locker) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
