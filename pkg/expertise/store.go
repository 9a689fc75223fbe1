package expertise

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dyluth/mulch/internal/lock"
)

// FileExtension is the extension of every domain store file.
const FileExtension = ".jsonl"

// LineError is a stored line that could not be decoded.
type LineError struct {
	Line int // 1-based physical line number
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error {
	return e.Err
}

// ReadResult holds the records decoded from a store file, in file order,
// plus any lines that failed to decode.
type ReadResult struct {
	Records []Record
	Invalid []LineError
}

// ReadFile reads every record from a store file. A missing file reads as
// empty. Lines that fail to decode are collected in Invalid rather than
// failing the read; only I/O errors are returned.
func ReadFile(path string) (*ReadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &ReadResult{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data), nil
}

// Parse decodes store file content held in memory, such as a file read from
// a git revision. Blank lines are skipped.
func Parse(data []byte) *ReadResult {
	result := &ReadResult{}
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		r, err := DecodeLine(line)
		if err != nil {
			result.Invalid = append(result.Invalid, LineError{Line: i + 1, Err: err})
			continue
		}
		result.Records = append(result.Records, r)
	}
	return result
}

// AppendFile assigns r an ID if it has none and appends it as one line.
// Existing content is never rewritten. A file whose last line lacks its
// newline gets one first.
func AppendFile(path string, r Record) error {
	EnsureID(r)
	line, err := Encode(r)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if size := info.Size(); size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil {
			f.Close()
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if last[0] != '\n' {
			line = append([]byte{'\n'}, line...)
		}
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("failed to append to %s: %w", path, err)
	}
	return f.Close()
}

// RewriteFile replaces the content of path with records. Missing IDs are
// assigned. The new content is written to a temporary file in the same
// directory and renamed over the target, so readers see either the old or
// the new file, never a partial one.
func RewriteFile(path string, records []Record) error {
	var buf bytes.Buffer
	for _, r := range records {
		EnsureID(r)
		line, err := Encode(r)
		if err != nil {
			return err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	committed = true
	return nil
}

// CreateFile creates an empty store file, truncating any existing content.
func CreateFile(path string) error {
	if err := os.WriteFile(path, nil, 0644); err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	return nil
}

// Store reads and writes the per-domain files of one expertise directory.
// Domain names must already be validated by the caller.
type Store struct {
	dir    string
	locker *lock.Locker
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLocker overrides the lock timings used for mutations.
func WithLocker(l *lock.Locker) StoreOption {
	return func(s *Store) { s.locker = l }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates a Store rooted at the given expertise directory.
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{dir: dir, locker: lock.Default(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker.Logger == nil {
		s.locker.Logger = s.logger
	}
	return s
}

// Dir returns the expertise directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the store file for a domain.
func (s *Store) Path(domain string) string {
	return filepath.Join(s.dir, domain+FileExtension)
}

// Exists reports whether the domain's file is present.
func (s *Store) Exists(domain string) bool {
	_, err := os.Stat(s.Path(domain))
	return err == nil
}

// Read returns the records of a domain. It never takes the lock.
func (s *Store) Read(domain string) (*ReadResult, error) {
	result, err := ReadFile(s.Path(domain))
	if err != nil {
		return nil, err
	}
	if len(result.Invalid) > 0 {
		s.logger.Debug("skipped invalid lines", "domain", domain, "count", len(result.Invalid))
	}
	return result, nil
}

// Append appends a record to a domain under the domain lock.
func (s *Store) Append(ctx context.Context, domain string, r Record) error {
	return s.WithLock(ctx, domain, func() error {
		return AppendFile(s.Path(domain), r)
	})
}

// Rewrite atomically replaces a domain's records. Callers that read before
// rewriting must hold the domain lock (see Mutate).
func (s *Store) Rewrite(domain string, records []Record) error {
	if err := RewriteFile(s.Path(domain), records); err != nil {
		return err
	}
	s.logger.Debug("rewrote domain", "domain", domain, "records", len(records))
	return nil
}

// WithLock runs fn while holding the domain's advisory lock.
func (s *Store) WithLock(ctx context.Context, domain string, fn func() error) error {
	return s.locker.WithLock(ctx, s.Path(domain), fn)
}

// MutateFunc transforms a domain's records. It returns the new record list
// and whether anything changed.
type MutateFunc func(records []Record) ([]Record, bool, error)

// Mutate performs a locked read-modify-rewrite of a domain. The file is only
// rewritten when fn reports a change. Domains containing undecodable lines
// are refused so a rewrite never silently drops them.
func (s *Store) Mutate(ctx context.Context, domain string, fn MutateFunc) error {
	return s.WithLock(ctx, domain, func() error {
		result, err := s.Read(domain)
		if err != nil {
			return err
		}
		if len(result.Invalid) > 0 {
			return &CorruptDomainError{Domain: domain, Invalid: result.Invalid}
		}

		updated, changed, err := fn(result.Records)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		return s.Rewrite(domain, updated)
	})
}

// Merge folds incoming records into a domain under its lock (see the
// package-level Merge). When every change is a creation the new records are
// appended and existing lines are left alone; an in-place update rewrites the
// file. Domains containing undecodable lines are refused on both paths so a
// record is never appended after a half-written line.
func (s *Store) Merge(ctx context.Context, domain string, incoming []Record, force bool) (MergeResult, error) {
	var result MergeResult
	err := s.WithLock(ctx, domain, func() error {
		read, err := s.Read(domain)
		if err != nil {
			return err
		}
		if len(read.Invalid) > 0 {
			return &CorruptDomainError{Domain: domain, Invalid: read.Invalid}
		}

		result = Merge(read.Records, incoming, force)
		switch {
		case result.Count(ActionUpdated) > 0:
			return s.Rewrite(domain, result.Records)
		case result.Count(ActionCreated) > 0:
			path := s.Path(domain)
			for i, action := range result.Actions {
				if action != ActionCreated {
					continue
				}
				if err := AppendFile(path, result.Records[result.Indexes[i]]); err != nil {
					return err
				}
			}
			s.logger.Debug("appended to domain", "domain", domain, "records", result.Count(ActionCreated))
		}
		return nil
	})
	return result, err
}

// Create creates an empty file for a domain.
func (s *Store) Create(domain string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.dir, err)
	}
	return CreateFile(s.Path(domain))
}

// Remove deletes a domain's file. A missing file is not an error.
func (s *Store) Remove(domain string) error {
	if err := os.Remove(s.Path(domain)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", s.Path(domain), err)
	}
	return nil
}

// CorruptDomainError is returned by Mutate when a domain file holds lines
// that cannot be decoded.
type CorruptDomainError struct {
	Domain  string
	Invalid []LineError
}

func (e *CorruptDomainError) Error() string {
	return fmt.Sprintf("domain %q has %d invalid line(s), first at %v", e.Domain, len(e.Invalid), e.Invalid[0])
}
