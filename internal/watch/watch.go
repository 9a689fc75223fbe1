// Package watch streams record additions and removals as domain files change.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dyluth/mulch/internal/format"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of filesystem events (a rewrite is a
// create, a write and a rename) into one rescan.
const DefaultDebounce = 100 * time.Millisecond

// OutputFormat selects how StreamEvents renders events.
type OutputFormat string

const (
	// OutputFormatDefault prints one human-readable line per event
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON prints one JSON object per line
	OutputFormatJSON OutputFormat = "json"
)

// Kind is the type of change observed for a record.
type Kind string

const (
	KindAdded   Kind = "added"
	KindRemoved Kind = "removed"
)

// Event is one record change.
type Event struct {
	Time   time.Time        `json:"time"`
	Domain string           `json:"domain"`
	Kind   Kind             `json:"kind"`
	Record expertise.Record `json:"record"`
}

// Watcher tracks the records of every domain file in an expertise directory.
type Watcher struct {
	dir      string
	debounce time.Duration
	logger   *slog.Logger
	now      func() time.Time
	onReady  func()

	snapshot map[string][]expertise.Record
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger for watcher diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) { w.logger = logger }
}

// New creates a watcher over an expertise directory.
func New(dir string, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
		now:      time.Now,
		snapshot: make(map[string][]expertise.Record),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// domainOf maps a store file path to its domain, ignoring lock markers and
// temporary files.
func domainOf(path string) (string, bool) {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || filepath.Ext(base) != expertise.FileExtension {
		return "", false
	}
	return strings.TrimSuffix(base, expertise.FileExtension), true
}

func (w *Watcher) load(domain string) ([]expertise.Record, error) {
	result, err := expertise.ReadFile(filepath.Join(w.dir, domain+expertise.FileExtension))
	if err != nil {
		return nil, err
	}
	if len(result.Invalid) > 0 {
		w.logger.Warn("skipping invalid lines", "domain", domain, "count", len(result.Invalid))
	}
	return result.Records, nil
}

// prime snapshots every existing domain so only later changes are reported.
func (w *Watcher) prime() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", w.dir, err)
	}
	for _, e := range entries {
		domain, ok := domainOf(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		records, err := w.load(domain)
		if err != nil {
			return err
		}
		w.snapshot[domain] = records
	}
	return nil
}

// rescan diffs the given domains against the snapshot, removals first.
func (w *Watcher) rescan(domains []string) ([]Event, error) {
	var events []Event
	for _, domain := range domains {
		records, err := w.load(domain)
		if err != nil {
			return nil, err
		}
		added, removed := expertise.Diff(w.snapshot[domain], records)
		w.snapshot[domain] = records

		at := w.now()
		for _, r := range removed {
			events = append(events, Event{Time: at, Domain: domain, Kind: KindRemoved, Record: r})
		}
		for _, r := range added {
			events = append(events, Event{Time: at, Domain: domain, Kind: KindAdded, Record: r})
		}
	}
	return events, nil
}

// Run watches the directory until ctx is cancelled, calling emit for every
// change. An error from emit stops the watch.
func (w *Watcher) Run(ctx context.Context, emit func(Event) error) error {
	if err := w.prime(); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Debug("watching expertise directory", "dir", w.dir, "domains", len(w.snapshot))
	if w.onReady != nil {
		w.onReady()
	}

	timer := newDebounceTimer()
	defer timer.Stop()
	dirty := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			domain, ok := domainOf(event.Name)
			if !ok {
				continue
			}
			dirty[domain] = true
			resetDebounceTimer(timer, w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			domains := make([]string, 0, len(dirty))
			for d := range dirty {
				domains = append(domains, d)
			}
			sort.Strings(domains)
			dirty = make(map[string]bool)

			events, err := w.rescan(domains)
			if err != nil {
				return err
			}
			for _, e := range events {
				if err := emit(e); err != nil {
					return err
				}
			}
		}
	}
}

// newDebounceTimer creates a stopped timer.
func newDebounceTimer() *time.Timer {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	return timer
}

// resetDebounceTimer restarts the timer, draining a pending fire.
func resetDebounceTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}

// FormatEvent renders an event for the given output format.
func FormatEvent(e Event, outputFormat OutputFormat) (string, error) {
	if outputFormat == OutputFormatJSON {
		data, err := json.Marshal(e)
		if err != nil {
			return "", fmt.Errorf("failed to marshal event: %w", err)
		}
		return string(data), nil
	}

	sign := "+"
	if e.Kind == KindRemoved {
		sign = "-"
	}
	return fmt.Sprintf("[%s] %s %s %s [%s] %s",
		e.Time.Format("15:04:05"), sign, e.Domain, e.Record.Base().ID, e.Record.Type(), format.RecordSummary(e.Record)), nil
}

// StreamEvents runs a watcher over dir and writes each event to out.
func StreamEvents(ctx context.Context, dir string, outputFormat OutputFormat, out io.Writer, opts ...Option) error {
	return New(dir, opts...).Run(ctx, func(e Event) error {
		line, err := FormatEvent(e, outputFormat)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, line)
		return err
	})
}
