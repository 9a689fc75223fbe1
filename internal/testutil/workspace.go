// Package testutil provides workspace fixtures for package and command tests.
package testutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/dyluth/mulch/internal/config"
	"github.com/dyluth/mulch/internal/logging"
	"github.com/dyluth/mulch/internal/scaffold"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/stretchr/testify/require"
)

// Workspace is an initialized .mulch tree inside a temporary directory.
type Workspace struct {
	T     *testing.T
	Root  string
	Store *expertise.Store
}

// NewWorkspace initializes .mulch in a fresh temp directory and registers
// each domain in the config with an empty store file.
func NewWorkspace(t *testing.T, domains ...string) *Workspace {
	t.Helper()
	return NewWorkspaceAt(t, t.TempDir(), domains...)
}

// NewWorkspaceAt is NewWorkspace rooted at an existing directory, such as a
// git repository created by InitGitRepo.
func NewWorkspaceAt(t *testing.T, root string, domains ...string) *Workspace {
	t.Helper()

	_, err := scaffold.Initialize(root)
	require.NoError(t, err, "failed to initialize workspace")

	cfg, err := config.Load(root)
	require.NoError(t, err)

	ws := &Workspace{
		T:     t,
		Root:  root,
		Store: expertise.NewStore(config.ExpertisePath(root), expertise.WithLogger(logging.Discard())),
	}
	for _, d := range domains {
		require.NoError(t, cfg.AddDomain(d))
		require.NoError(t, ws.Store.Create(d))
	}
	require.NoError(t, config.Save(root, cfg))
	return ws
}

// Config loads the current configuration.
func (w *Workspace) Config() *config.Config {
	w.T.Helper()
	cfg, err := config.Load(w.Root)
	require.NoError(w.T, err)
	return cfg
}

// Add appends records to a domain.
func (w *Workspace) Add(domain string, records ...expertise.Record) {
	w.T.Helper()
	for _, r := range records {
		require.NoError(w.T, w.Store.Append(context.Background(), domain, r))
	}
}

// Records reads a domain and fails the test on invalid lines.
func (w *Workspace) Records(domain string) []expertise.Record {
	w.T.Helper()
	result, err := w.Store.Read(domain)
	require.NoError(w.T, err)
	require.Empty(w.T, result.Invalid, "domain %s has invalid lines", domain)
	return result.Records
}

// WriteFile writes a file relative to the workspace root.
func (w *Workspace) WriteFile(rel, content string) string {
	w.T.Helper()
	path := filepath.Join(w.Root, rel)
	require.NoError(w.T, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(w.T, os.WriteFile(path, []byte(content), 0644))
	return path
}

// ReadFile reads a file relative to the workspace root.
func (w *Workspace) ReadFile(rel string) string {
	w.T.Helper()
	data, err := os.ReadFile(filepath.Join(w.Root, rel))
	require.NoError(w.T, err)
	return string(data)
}

// InitGitRepo creates a temp git repository with one initial commit.
// The test is skipped when git is not installed.
func InitGitRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}

	dir := t.TempDir()
	Git(t, dir, "init", "-q")
	Git(t, dir, "config", "user.email", "test@example.com")
	Git(t, dir, "config", "user.name", "Test")
	Git(t, dir, "config", "commit.gpgsign", "false")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test Project\n"), 0644))
	Git(t, dir, "add", "README.md")
	Git(t, dir, "commit", "-q", "-m", "Initial commit")
	return dir
}

// Git runs a git command in dir and returns its combined output.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return string(out)
}
