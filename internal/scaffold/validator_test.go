package scaffold

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dyluth/mulch/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	_, err := Initialize(dir)
	require.NoError(t, err)

	cfg := config.Default()
	require.NoError(t, cfg.AddDomain("cli"))
	require.NoError(t, cfg.AddDomain("api"))

	expertiseDir := config.ExpertisePath(dir)
	require.NoError(t, os.WriteFile(filepath.Join(expertiseDir, "cli.jsonl"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(expertiseDir, "old.jsonl"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(expertiseDir, "notes.txt"), nil, 0644))

	issues, err := Inspect(dir, cfg)
	require.NoError(t, err)
	require.Len(t, issues, 2)

	assert.Equal(t, IssueMissingFile, issues[0].Kind)
	assert.Equal(t, "api", issues[0].Domain)
	assert.Equal(t, IssueOrphanFile, issues[1].Kind)
	assert.Equal(t, "old", issues[1].Domain)

	t.Run("missing gitattributes rule", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitattributes"), nil, 0644))
		issues, err := Inspect(dir, cfg)
		require.NoError(t, err)
		require.Len(t, issues, 3)
		assert.Equal(t, IssueNoGitattribs, issues[2].Kind)
	})
}

func TestOrphanFiles(t *testing.T) {
	dir := t.TempDir()

	orphans, err := OrphanFiles(dir, config.Default())
	require.NoError(t, err)
	assert.Empty(t, orphans, "missing expertise dir has no orphans")

	require.NoError(t, os.MkdirAll(config.ExpertisePath(dir), 0755))
	for _, name := range []string{"zeta.jsonl", "alpha.jsonl", "kept.jsonl"} {
		require.NoError(t, os.WriteFile(filepath.Join(config.ExpertisePath(dir), name), nil, 0644))
	}
	cfg := config.Default()
	require.NoError(t, cfg.AddDomain("kept"))

	orphans, err = OrphanFiles(dir, cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, orphans)
}
