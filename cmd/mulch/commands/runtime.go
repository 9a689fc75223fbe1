package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dyluth/mulch/internal/config"
	"github.com/dyluth/mulch/internal/lock"
	"github.com/dyluth/mulch/internal/logging"
	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/internal/resolver"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
)

// now is the clock used for timestamps and relative times. Tests pin it.
var now = time.Now

// runtime is the per-invocation state shared by commands that operate on an
// initialized workspace.
type runtime struct {
	ctx    context.Context
	root   string
	cfg    *config.Config
	store  *expertise.Store
	logger *slog.Logger
}

// projectRoot resolves --dir, defaulting to the working directory.
func projectRoot() (string, error) {
	if workDir != "" {
		return filepath.Abs(workDir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return wd, nil
}

// loadRuntime loads the config and opens the store of the workspace.
func loadRuntime(cmd *cobra.Command) (*runtime, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.FromContext(ctx)
	logger.Debug("loaded config", "root", root, "domains", len(cfg.Domains))

	return &runtime{
		ctx:    ctx,
		root:   root,
		cfg:    cfg,
		store:  expertise.NewStore(config.ExpertisePath(root), expertise.WithLogger(logger)),
		logger: logger,
	}, nil
}

// domainPath returns the workspace-relative store file of a domain, as git
// sees it.
func domainPath(domain string) string {
	return filepath.ToSlash(filepath.Join(config.MulchDir, config.ExpertiseDir, domain+expertise.FileExtension))
}

// readDomain reads a registered domain, logging any undecodable lines.
func (rt *runtime) readDomain(domain string) ([]expertise.Record, error) {
	if err := rt.cfg.EnsureDomain(domain); err != nil {
		return nil, err
	}
	result, err := rt.store.Read(domain)
	if err != nil {
		return nil, err
	}
	if len(result.Invalid) > 0 {
		rt.logger.Warn("skipping invalid lines", "domain", domain, "count", len(result.Invalid))
	}
	return result.Records, nil
}

// loadDomains reads several registered domains concurrently.
func (rt *runtime) loadDomains(domains []string) ([]expertise.DomainRecords, error) {
	for _, d := range domains {
		if err := rt.cfg.EnsureDomain(d); err != nil {
			return nil, err
		}
	}
	loaded, err := rt.store.LoadDomains(rt.ctx, domains)
	if err != nil {
		return nil, err
	}
	for _, d := range loaded {
		if len(d.Invalid) > 0 {
			rt.logger.Warn("skipping invalid lines", "domain", d.Domain, "count", len(d.Invalid))
		}
	}
	return loaded, nil
}

// modTime returns when a domain file last changed, or the zero time.
func (rt *runtime) modTime(domain string) time.Time {
	info, err := os.Stat(rt.store.Path(domain))
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// splitList parses a comma-separated flag value, trimming blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// fail reports err for command in the active output mode and returns an
// error that only sets the exit code.
func fail(command string, err error) error {
	var reported *printer.ReportedError
	if errors.As(err, &reported) {
		return err
	}
	if jsonOutput {
		return printer.JSONError(command, err)
	}

	var (
		notFound  *config.DomainNotFoundError
		exists    *config.DomainExistsError
		badName   *config.InvalidDomainNameError
		ambiguous *resolver.AmbiguousError
		missing   *resolver.NotFoundError
		timeout   *lock.TimeoutError
		corrupt   *expertise.CorruptDomainError
		invalid   *expertise.ValidationError
	)
	switch {
	case errors.Is(err, config.ErrNotInitialized):
		return printer.Error(
			"mulch is not initialized",
			"No .mulch/ directory was found in this project.",
			[]string{"Initialize it first:\n  mulch init"},
		)
	case errors.As(err, &notFound):
		return printer.Error(
			"domain not found",
			err.Error(),
			[]string{fmt.Sprintf("Create it first:\n  mulch add %s", notFound.Domain)},
		)
	case errors.As(err, &exists):
		return printer.Error("domain already exists", err.Error(), nil)
	case errors.As(err, &badName):
		return printer.Error("invalid domain name", err.Error(), nil)
	case errors.As(err, &ambiguous):
		return printer.Error("ambiguous record identifier", resolver.FormatAmbiguousError(ambiguous), nil)
	case errors.As(err, &missing):
		return printer.Error(
			"record not found",
			err.Error(),
			[]string{"List record IDs with:\n  mulch query <domain>"},
		)
	case errors.As(err, &timeout):
		return printer.Error(
			"domain is locked",
			err.Error(),
			[]string{"Wait for the other mulch process to finish", fmt.Sprintf("Remove a stale lock:\n  rm %s.lock", timeout.Path)},
		)
	case errors.As(err, &corrupt):
		return printer.Error(
			"domain file is corrupt",
			err.Error(),
			[]string{"Inspect the bad lines with:\n  mulch validate", "Drop them with:\n  mulch doctor --fix"},
		)
	case errors.As(err, &invalid):
		return printer.Error("invalid record", err.Error(), nil)
	default:
		return printer.Error(fmt.Sprintf("%s failed", command), err.Error(), nil)
	}
}

// usageError reports a bad combination of arguments or flags.
func usageError(command, title, explanation string, suggestions ...string) error {
	if jsonOutput {
		return printer.JSONError(command, errors.New(explanation))
	}
	return printer.Error(title, explanation, suggestions)
}
