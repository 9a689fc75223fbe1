package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(Dir(root), 0755))
	require.NoError(t, os.WriteFile(Path(root), []byte(content), 0644))
}

func TestLoad_ValidConfig(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `version: "1"
domains:
  - cli
  - api
governance:
  max_entries: 50
  warn_entries: 75
  hard_limit: 90
classification_defaults:
  shelf_life:
    tactical: 7
    observational: 21
`)

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, []string{"cli", "api"}, cfg.Domains)
	assert.Equal(t, Governance{MaxEntries: 50, WarnEntries: 75, HardLimit: 90}, cfg.Governance)
	assert.Equal(t, ShelfLife{Tactical: 7, Observational: 21}, cfg.ClassificationDefaults.ShelfLife)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `version: "1"
domains: [cli]
`)

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, Default().Governance, cfg.Governance)
	assert.Equal(t, Default().ClassificationDefaults, cfg.ClassificationDefaults)
}

func TestLoad_NotInitialized(t *testing.T) {
	cfg, err := Load(t.TempDir())
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Nil(t, cfg)

	t.Run("directory without config file", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(Dir(root), 0755))
		_, err := Load(root)
		assert.ErrorIs(t, err, ErrNotInitialized)
	})
}

func TestLoad_InvalidYAML(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `version: "1"
domains: [cli
`)

	cfg, err := Load(root)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoad_InvalidConfig(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `version: "1"
domains: ["bad name"]
`)

	_, err := Load(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	var invalid *InvalidDomainNameError
	assert.ErrorAs(t, err, &invalid)
}

func TestSaveThenLoad(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(Dir(root), 0755))

	cfg := Default()
	require.NoError(t, cfg.AddDomain("testing"))
	require.NoError(t, Save(root, cfg))

	loaded, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "default is valid", mutate: func(*Config) {}},
		{name: "empty version defaults", mutate: func(c *Config) { c.Version = "" }},
		{name: "unsupported version", mutate: func(c *Config) { c.Version = "2" }, wantErr: "unsupported version: 2"},
		{name: "warn above hard limit", mutate: func(c *Config) { c.Governance.WarnEntries = 500 }, wantErr: "max_entries <= warn_entries <= hard_limit"},
		{name: "negative threshold", mutate: func(c *Config) { c.Governance.MaxEntries = -1 }, wantErr: "must be positive"},
		{name: "negative shelf life", mutate: func(c *Config) { c.ClassificationDefaults.ShelfLife.Tactical = -3 }, wantErr: "shelf_life"},
		{name: "duplicate domain", mutate: func(c *Config) { c.Domains = []string{"a", "a"} }, wantErr: "duplicate domain 'a'"},
		{name: "invalid domain", mutate: func(c *Config) { c.Domains = []string{"-a"} }, wantErr: "invalid domain name '-a'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateDomainName(t *testing.T) {
	for _, name := range []string{"rust", "my-domain", "domain_2", "A123", "9lives"} {
		assert.NoError(t, ValidateDomainName(name), name)
	}
	for _, name := range []string{"", "-starts-with-dash", "_under", "has spaces", "has.dots", "../escape", "a/b"} {
		err := ValidateDomainName(name)
		assert.Error(t, err, name)
		var invalid *InvalidDomainNameError
		assert.ErrorAs(t, err, &invalid)
	}
}

func TestDomainRegistry(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.AddDomain("cli"))
	require.NoError(t, cfg.AddDomain("api"))
	assert.True(t, cfg.HasDomain("cli"))
	assert.NoError(t, cfg.EnsureDomain("api"))

	var exists *DomainExistsError
	assert.ErrorAs(t, cfg.AddDomain("cli"), &exists)

	var invalid *InvalidDomainNameError
	assert.ErrorAs(t, cfg.AddDomain("no good"), &invalid)

	err := cfg.EnsureDomain("db")
	require.Error(t, err)
	assert.True(t, IsDomainNotFound(err))
	assert.Contains(t, err.Error(), "available: cli, api")

	require.NoError(t, cfg.RemoveDomain("cli"))
	assert.Equal(t, []string{"api"}, cfg.Domains)
	assert.True(t, IsDomainNotFound(cfg.RemoveDomain("cli")))

	require.NoError(t, cfg.RemoveDomain("api"))
	assert.Contains(t, cfg.EnsureDomain("api").Error(), "available: (none)")
}

func TestPaths(t *testing.T) {
	root := "/work"
	assert.Equal(t, filepath.Join("/work", ".mulch"), Dir(root))
	assert.Equal(t, filepath.Join("/work", ".mulch", "mulch.config.yaml"), Path(root))
	assert.Equal(t, filepath.Join("/work", ".mulch", "expertise"), ExpertisePath(root))

	p, err := DomainPath(root, "cli")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/work", ".mulch", "expertise", "cli.jsonl"), p)

	_, err = DomainPath(root, "../etc")
	assert.Error(t, err)
}
