package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/mulch/internal/printer"
	"github.com/dyluth/mulch/internal/testutil"
	"github.com/dyluth/mulch/pkg/expertise"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNow is the clock every command test runs at.
var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// resetCommands restores every flag to its default and clears contexts
// left over from a previous Execute.
func resetCommands(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	cmd.SetContext(nil)
	for _, c := range cmd.Commands() {
		resetCommands(c)
	}
}

// execute runs mulch against root with the given arguments and returns what
// it wrote to stdout and stderr.
func execute(t *testing.T, root string, args ...string) (string, string, error) {
	t.Helper()
	return executeWith(t, context.Background(), nil, root, args...)
}

func executeWith(t *testing.T, ctx context.Context, stdin io.Reader, root string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	restore := printer.SetOutput(&stdout, &stderr)
	defer restore()
	printer.SetColor(false)

	prevNow := now
	now = func() time.Time { return fixedNow }
	defer func() { now = prevNow }()

	resetCommands(rootCmd)
	if stdin == nil {
		stdin = strings.NewReader("")
	}
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--dir", root, "--quiet"}, args...))
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

// decodeJSON parses a JSON envelope written by a command.
func decodeJSON(t *testing.T, out string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v), "output was: %s", out)
	return v
}

func testMeta(classification expertise.Classification, recordedAt string) expertise.Meta {
	return expertise.Meta{Classification: classification, RecordedAt: recordedAt}
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	ws := testutil.NewWorkspace(t)

	stdout, _, err := execute(t, ws.Root)

	assert.NoError(t, err)
	assert.Contains(t, stdout, "Usage:", "Help should be displayed")
	assert.Contains(t, stdout, "mulch", "Help should show command name")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	ws := testutil.NewWorkspace(t)

	_, _, err := execute(t, ws.Root, "--unknown-flag", "value")

	require.Error(t, err, "Unknown flag should cause an error")
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommand_RejectsSubcommandFlags(t *testing.T) {
	ws := testutil.NewWorkspace(t)

	// --type belongs to record, not the root command
	_, _, err := execute(t, ws.Root, "--type", "failure")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestNotInitialized(t *testing.T) {
	dir := t.TempDir()

	_, stderr, err := execute(t, dir, "query", "--all")

	require.Error(t, err)
	assert.Contains(t, stderr, "mulch is not initialized")
	assert.Contains(t, stderr, "mulch init")
}

func TestInitAddRemove(t *testing.T) {
	dir := t.TempDir()

	stdout, _, err := execute(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Initialized .mulch/ directory.")

	stdout, _, err = execute(t, dir, "init")
	require.NoError(t, err)
	assert.Contains(t, stdout, "already initialized")

	_, _, err = execute(t, dir, "add", "api")
	require.NoError(t, err)

	t.Run("duplicate domain is rejected", func(t *testing.T) {
		_, stderr, err := execute(t, dir, "add", "api")
		require.Error(t, err)
		assert.Contains(t, stderr, "domain already exists")
	})

	t.Run("invalid name is rejected", func(t *testing.T) {
		_, stderr, err := execute(t, dir, "add", "bad name")
		require.Error(t, err)
		assert.Contains(t, stderr, "invalid domain name")
	})

	t.Run("non-empty domain needs force", func(t *testing.T) {
		_, _, err := execute(t, dir, "record", "api", "Use tabs", "--type", "convention")
		require.NoError(t, err)

		_, stderr, err := execute(t, dir, "remove", "api")
		require.Error(t, err)
		assert.Contains(t, stderr, "Use --force to remove.")

		stdout, _, err := execute(t, dir, "remove", "api", "--force")
		require.NoError(t, err)
		assert.Contains(t, stdout, `Removed domain "api".`)
	})

	stdout, _, err = execute(t, dir, "--json", "add", "web")
	require.NoError(t, err)
	out := decodeJSON(t, stdout)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "web", out["domain"])
}

func TestRemoveDomainWithInvalidLines(t *testing.T) {
	ws := testutil.NewWorkspace(t, "api")
	content := `{"type":"playbook","content":"from a newer release"}` + "\n" + `{"type":"convention","content":"half-writ`
	require.NoError(t, os.WriteFile(ws.Store.Path("api"), []byte(content), 0644))

	_, stderr, err := execute(t, ws.Root, "remove", "api")
	require.Error(t, err)
	assert.Contains(t, stderr, "0 record(s) and 2 invalid line(s)")
	assert.FileExists(t, ws.Store.Path("api"))
	assert.NoFileExists(t, ws.Store.Path("api")+".lock")

	stdout, _, err := execute(t, ws.Root, "--json", "remove", "api")
	require.Error(t, err)
	assert.Equal(t, false, decodeJSON(t, stdout)["success"])
	assert.FileExists(t, ws.Store.Path("api"))

	_, _, err = execute(t, ws.Root, "remove", "api", "--force")
	require.NoError(t, err)
	assert.NoFileExists(t, ws.Store.Path("api"))
}

func TestJSONErrorEnvelope(t *testing.T) {
	ws := testutil.NewWorkspace(t, "api")

	stdout, _, err := execute(t, ws.Root, "--json", "query", "missing")

	require.Error(t, err)
	out := decodeJSON(t, stdout)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "query", out["command"])
	assert.Contains(t, out["error"], "missing")
}
