package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dyluth/mulch/internal/config"
)

// Issue is one problem found by Inspect.
type Issue struct {
	Kind    IssueKind
	Domain  string
	Path    string
	Message string
}

// IssueKind classifies a structural problem.
type IssueKind string

const (
	IssueMissingFile  IssueKind = "missing_file"
	IssueOrphanFile   IssueKind = "orphan_file"
	IssueNoGitattribs IssueKind = "missing_gitattributes"
)

// Inspect checks that every registered domain has a store file, that no
// unregistered .jsonl files exist, and that .gitattributes carries the
// union-merge line. Record contents are not inspected.
func Inspect(root string, cfg *config.Config) ([]Issue, error) {
	var issues []Issue

	for _, domain := range cfg.Domains {
		path, err := config.DomainPath(root, domain)
		if err != nil {
			return nil, err
		}
		if !exists(path) {
			issues = append(issues, Issue{
				Kind:    IssueMissingFile,
				Domain:  domain,
				Path:    path,
				Message: fmt.Sprintf("domain '%s' has no expertise file", domain),
			})
		}
	}

	orphans, err := OrphanFiles(root, cfg)
	if err != nil {
		return nil, err
	}
	for _, domain := range orphans {
		issues = append(issues, Issue{
			Kind:    IssueOrphanFile,
			Domain:  domain,
			Path:    filepath.Join(config.ExpertisePath(root), domain+".jsonl"),
			Message: fmt.Sprintf("file %s.jsonl does not belong to a registered domain", domain),
		})
	}

	attrs, _ := os.ReadFile(filepath.Join(root, ".gitattributes"))
	if !strings.Contains(string(attrs), GitattributesLine) {
		issues = append(issues, Issue{
			Kind:    IssueNoGitattribs,
			Path:    filepath.Join(root, ".gitattributes"),
			Message: "missing union merge rule in .gitattributes",
		})
	}

	return issues, nil
}

// OrphanFiles returns the sorted domain names of .jsonl files in the
// expertise directory that are not registered in cfg.
func OrphanFiles(root string, cfg *config.Config) ([]string, error) {
	entries, err := os.ReadDir(config.ExpertisePath(root))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list expertise directory: %w", err)
	}

	var orphans []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		domain := strings.TrimSuffix(name, ".jsonl")
		if !cfg.HasDomain(domain) {
			orphans = append(orphans, domain)
		}
	}
	sort.Strings(orphans)
	return orphans, nil
}
