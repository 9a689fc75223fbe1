package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyluth/mulch/internal/config"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*
var templatesFS embed.FS

// GitattributesLine makes git merge concurrent appends to domain files as a union.
const GitattributesLine = ".mulch/expertise/*.jsonl merge=union"

// Result lists what Initialize created or updated, relative to the root.
type Result struct {
	Created []string
	Updated []string
}

// Initialize creates the .mulch structure under root. It is idempotent:
// existing config and README files are left alone, and the .gitattributes
// line is only appended when missing.
func Initialize(root string) (*Result, error) {
	res := &Result{}

	// Create directories
	for _, dir := range []string{config.Dir(root), config.ExpertisePath(root)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	// Only write default config if none exists
	if !exists(config.Path(root)) {
		if err := config.Save(root, config.Default()); err != nil {
			return nil, err
		}
		res.Created = append(res.Created, filepath.Join(config.MulchDir, config.ConfigFile))
	}

	readmePath := filepath.Join(config.Dir(root), "README.md")
	if !exists(readmePath) {
		readme, err := templatesFS.ReadFile("templates/README.md.tmpl")
		if err != nil {
			return nil, fmt.Errorf("failed to read README.md template: %w", err)
		}
		if err := os.WriteFile(readmePath, readme, 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", readmePath, err)
		}
		res.Created = append(res.Created, filepath.Join(config.MulchDir, "README.md"))
	}

	created, changed, err := ensureGitattributes(root)
	if err != nil {
		return nil, err
	}
	switch {
	case created:
		res.Created = append(res.Created, ".gitattributes")
	case changed:
		res.Updated = append(res.Updated, ".gitattributes")
	}

	if err := validateCreatedFiles(root); err != nil {
		return nil, err
	}
	return res, nil
}

// ensureGitattributes appends GitattributesLine to root/.gitattributes
// unless it is already present.
func ensureGitattributes(root string) (created, changed bool, err error) {
	path := filepath.Join(root, ".gitattributes")
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	created = errors.Is(err, fs.ErrNotExist)

	content := string(existing)
	if strings.Contains(content, GitattributesLine) {
		return false, false, nil
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += GitattributesLine + "\n"

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return created, true, nil
}

// validateCreatedFiles checks the config file parses as YAML.
func validateCreatedFiles(root string) error {
	content, err := os.ReadFile(config.Path(root))
	if err != nil {
		return fmt.Errorf("failed to read created config: %w", err)
	}

	var yamlData interface{}
	if err := yaml.Unmarshal(content, &yamlData); err != nil {
		return fmt.Errorf("%s is not valid YAML: %w", config.ConfigFile, err)
	}

	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
