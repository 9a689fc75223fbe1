package git

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/dyluth/mulch/pkg/expertise"
)

// Checker runs git plumbing commands in a working directory.
type Checker struct {
	dir string
}

// NewChecker creates a Checker for dir. An empty dir means the current directory.
func NewChecker(dir string) *Checker {
	return &Checker{dir: dir}
}

func (c *Checker) command(args ...string) *exec.Cmd {
	cmd := exec.Command("git", args...)
	cmd.Dir = c.dir
	return cmd
}

// run executes git and returns stdout. Failures carry git's stderr.
func (c *Checker) run(args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := c.command(args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, ErrGitNotFound
		}
		return nil, fmt.Errorf("git %s failed: %s", args[0], strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// ErrGitNotFound is returned when the git binary is not on PATH.
var ErrGitNotFound = errors.New("git not found in PATH\nInstall Git: https://git-scm.com/downloads")

// IsGitRepository checks if the directory is inside a Git work tree.
func (c *Checker) IsGitRepository() (bool, error) {
	err := c.command("rev-parse", "--is-inside-work-tree").Run()
	if err != nil {
		// Check if error is because git command not found
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return false, ErrGitNotFound
		}
		// Not in a Git repository
		return false, nil
	}
	return true, nil
}

// GetGitRoot returns the absolute path to the Git repository root.
func (c *Checker) GetGitRoot() (string, error) {
	output, err := c.run("rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("failed to get Git root: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

// ChangedFiles returns every file changed since ref: committed changes,
// staged changes and unstaged working tree changes, deduplicated and sorted.
// A ref git cannot resolve contributes nothing.
func (c *Checker) ChangedFiles(since string) ([]string, error) {
	queries := [][]string{
		{"diff", "--name-only", since},
		{"diff", "--name-only", "--cached"},
		{"diff", "--name-only"},
	}

	seen := make(map[string]bool)
	for _, args := range queries {
		out, err := c.run(args...)
		if errors.Is(err, ErrGitNotFound) {
			return nil, err
		}
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(out), "\n") {
			if name := strings.TrimSpace(line); name != "" {
				seen[name] = true
			}
		}
	}

	files := make([]string, 0, len(seen))
	for name := range seen {
		files = append(files, name)
	}
	sort.Strings(files)
	return files, nil
}

// ShowFile returns the content of path at ref. The boolean is false when the
// file does not exist at that ref.
func (c *Checker) ShowFile(ref, path string) ([]byte, bool, error) {
	out, err := c.run("show", ref+":"+path)
	if err != nil {
		if errors.Is(err, ErrGitNotFound) {
			return nil, false, err
		}
		return nil, false, nil
	}
	return out, true, nil
}

// Add stages paths.
func (c *Checker) Add(paths ...string) error {
	_, err := c.run(append([]string{"add", "--"}, paths...)...)
	return err
}

// StagedFiles lists staged files under paths.
func (c *Checker) StagedFiles(paths ...string) ([]string, error) {
	out, err := c.run(append([]string{"diff", "--cached", "--name-only", "--"}, paths...)...)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if name := strings.TrimSpace(line); name != "" {
			files = append(files, name)
		}
	}
	return files, nil
}

// Commit commits the staged changes under paths.
func (c *Checker) Commit(message string, paths ...string) error {
	_, err := c.run(append([]string{"commit", "-m", message, "--"}, paths...)...)
	return err
}

// FileMatchesAny reports whether file equals, or is a path suffix of, any
// changed file (or the reverse).
func FileMatchesAny(file string, changed []string) bool {
	for _, ch := range changed {
		if ch == file || strings.HasSuffix(ch, file) || strings.HasSuffix(file, ch) {
			return true
		}
	}
	return false
}

// FilterByContext keeps the records relevant to the changed files.
// Records that name no files are always kept.
func FilterByContext(records []expertise.Record, changed []string) []expertise.Record {
	var out []expertise.Record
	for _, r := range records {
		files := r.Files()
		if len(files) == 0 {
			out = append(out, r)
			continue
		}
		for _, f := range files {
			if FileMatchesAny(f, changed) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
