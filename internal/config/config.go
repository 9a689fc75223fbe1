package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// MulchDir is the workspace-relative directory holding all mulch state.
	MulchDir = ".mulch"

	// ConfigFile is the config file name inside MulchDir.
	ConfigFile = "mulch.config.yaml"

	// ExpertiseDir holds one .jsonl file per domain, inside MulchDir.
	ExpertiseDir = "expertise"

	// CurrentVersion is the config schema version written by init.
	CurrentVersion = "1"
)

// Governance thresholds, in records per domain.
const (
	DefaultMaxEntries  = 100
	DefaultWarnEntries = 150
	DefaultHardLimit   = 200
)

// Shelf lives, in days.
const (
	DefaultTacticalShelfLife      = 14
	DefaultObservationalShelfLife = 30
)

var domainNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// Config represents .mulch/mulch.config.yaml.
// It is loaded fresh per invocation and passed explicitly; nothing caches it.
type Config struct {
	Version                string                 `yaml:"version"`
	Domains                []string               `yaml:"domains"`
	Governance             Governance             `yaml:"governance"`
	ClassificationDefaults ClassificationDefaults `yaml:"classification_defaults"`
}

// Governance holds per-domain record count thresholds.
type Governance struct {
	MaxEntries  int `yaml:"max_entries"`
	WarnEntries int `yaml:"warn_entries"`
	HardLimit   int `yaml:"hard_limit"`
}

// ClassificationDefaults holds per-classification settings.
type ClassificationDefaults struct {
	ShelfLife ShelfLife `yaml:"shelf_life"`
}

// ShelfLife is the number of days a record stays fresh. Foundational records
// never expire and have no entry.
type ShelfLife struct {
	Tactical      int `yaml:"tactical"`
	Observational int `yaml:"observational"`
}

// Default returns the configuration written by `mulch init`.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Domains: []string{},
		Governance: Governance{
			MaxEntries:  DefaultMaxEntries,
			WarnEntries: DefaultWarnEntries,
			HardLimit:   DefaultHardLimit,
		},
		ClassificationDefaults: ClassificationDefaults{
			ShelfLife: ShelfLife{
				Tactical:      DefaultTacticalShelfLife,
				Observational: DefaultObservationalShelfLife,
			},
		},
	}
}

// Validate applies defaults for omitted settings and checks the rest.
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = CurrentVersion
	}
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported version: %s (expected: %s)", c.Version, CurrentVersion)
	}

	// Zero means "not set" for every threshold.
	g := &c.Governance
	if g.MaxEntries == 0 {
		g.MaxEntries = DefaultMaxEntries
	}
	if g.WarnEntries == 0 {
		g.WarnEntries = DefaultWarnEntries
	}
	if g.HardLimit == 0 {
		g.HardLimit = DefaultHardLimit
	}
	if g.MaxEntries < 0 || g.WarnEntries < 0 || g.HardLimit < 0 {
		return fmt.Errorf("governance thresholds must be positive")
	}
	if g.MaxEntries > g.WarnEntries || g.WarnEntries > g.HardLimit {
		return fmt.Errorf("governance thresholds must satisfy max_entries <= warn_entries <= hard_limit (got %d, %d, %d)",
			g.MaxEntries, g.WarnEntries, g.HardLimit)
	}

	sl := &c.ClassificationDefaults.ShelfLife
	if sl.Tactical == 0 {
		sl.Tactical = DefaultTacticalShelfLife
	}
	if sl.Observational == 0 {
		sl.Observational = DefaultObservationalShelfLife
	}
	if sl.Tactical < 0 || sl.Observational < 0 {
		return fmt.Errorf("shelf_life values must be positive")
	}

	if c.Domains == nil {
		c.Domains = []string{}
	}
	seen := make(map[string]bool, len(c.Domains))
	for _, d := range c.Domains {
		if err := ValidateDomainName(d); err != nil {
			return err
		}
		if seen[d] {
			return fmt.Errorf("duplicate domain '%s'", d)
		}
		seen[d] = true
	}

	return nil
}

// HasDomain reports whether name is registered.
func (c *Config) HasDomain(name string) bool {
	return slices.Contains(c.Domains, name)
}

// EnsureDomain returns a DomainNotFoundError unless name is registered.
func (c *Config) EnsureDomain(name string) error {
	if !c.HasDomain(name) {
		return &DomainNotFoundError{Domain: name, Available: slices.Clone(c.Domains)}
	}
	return nil
}

// AddDomain registers a new domain.
func (c *Config) AddDomain(name string) error {
	if err := ValidateDomainName(name); err != nil {
		return err
	}
	if c.HasDomain(name) {
		return &DomainExistsError{Domain: name}
	}
	c.Domains = append(c.Domains, name)
	return nil
}

// RemoveDomain unregisters a domain.
func (c *Config) RemoveDomain(name string) error {
	i := slices.Index(c.Domains, name)
	if i < 0 {
		return &DomainNotFoundError{Domain: name, Available: slices.Clone(c.Domains)}
	}
	c.Domains = slices.Delete(c.Domains, i, i+1)
	return nil
}

// ValidateDomainName checks name against ^[A-Za-z0-9][A-Za-z0-9_-]*$.
func ValidateDomainName(name string) error {
	if !domainNamePattern.MatchString(name) {
		return &InvalidDomainNameError{Domain: name}
	}
	return nil
}

// Dir returns the .mulch directory of a workspace.
func Dir(root string) string {
	return filepath.Join(root, MulchDir)
}

// Path returns the config file path of a workspace.
func Path(root string) string {
	return filepath.Join(root, MulchDir, ConfigFile)
}

// ExpertisePath returns the expertise directory of a workspace.
func ExpertisePath(root string) string {
	return filepath.Join(root, MulchDir, ExpertiseDir)
}

// DomainPath returns the store file of a domain after validating its name.
func DomainPath(root, domain string) (string, error) {
	if err := ValidateDomainName(domain); err != nil {
		return "", err
	}
	return filepath.Join(ExpertisePath(root), domain+".jsonl"), nil
}

// EnsureInitialized returns ErrNotInitialized if root has no .mulch directory.
func EnsureInitialized(root string) error {
	info, err := os.Stat(Dir(root))
	if err != nil || !info.IsDir() {
		return ErrNotInitialized
	}
	return nil
}

// Load reads and validates the config of a workspace.
func Load(root string) (*Config, error) {
	if err := EnsureInitialized(root); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(Path(root))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Save writes cfg to the workspace config file.
func Save(root string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(Path(root), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ErrNotInitialized is returned when a workspace has no .mulch directory.
var ErrNotInitialized = errors.New("mulch is not initialized in this directory")

// InvalidDomainNameError reports a domain name that fails validation.
type InvalidDomainNameError struct {
	Domain string
}

func (e *InvalidDomainNameError) Error() string {
	return fmt.Sprintf("invalid domain name '%s': must start with a letter or digit and contain only letters, digits, '-' and '_'", e.Domain)
}

// DomainNotFoundError reports an unregistered domain.
type DomainNotFoundError struct {
	Domain    string
	Available []string
}

func (e *DomainNotFoundError) Error() string {
	available := "(none)"
	if len(e.Available) > 0 {
		available = strings.Join(e.Available, ", ")
	}
	return fmt.Sprintf("domain '%s' not found (available: %s)", e.Domain, available)
}

// DomainExistsError reports an attempt to add a registered domain.
type DomainExistsError struct {
	Domain string
}

func (e *DomainExistsError) Error() string {
	return fmt.Sprintf("domain '%s' already exists", e.Domain)
}

// IsDomainNotFound checks if an error is a DomainNotFoundError.
func IsDomainNotFound(err error) bool {
	var target *DomainNotFoundError
	return errors.As(err, &target)
}
