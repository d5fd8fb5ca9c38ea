package lint

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// LintSource runs rules over src and returns the issues that pass the
// config filters, ordered by line and column.
func LintSource(src *Source, rules []Rule, cfg *Config) []Issue {
	var issues []Issue

	for _, rule := range rules {
		if cfg != nil && cfg.IsRuleDisabled(rule.ID()) {
			continue
		}
		for _, issue := range rule.Check(src) {
			// Set file path if not already set
			if issue.File == "" {
				issue.File = src.Path
			}

			// Filter by config
			if cfg != nil && !cfg.ShouldReport(issue) {
				continue
			}

			issues = append(issues, issue)
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Line != issues[j].Line {
			return issues[i].Line < issues[j].Line
		}
		return issues[i].Column < issues[j].Column
	})
	return issues
}

// LintBytes lints a document held in memory.
// The filename is used for error messages and issue reporting.
func LintBytes(data []byte, filename string, rules []Rule, cfg *Config) ([]Issue, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%s: not valid UTF-8", filename)
	}
	return LintSource(NewSource(filename, string(data)), rules, cfg), nil
}

// LintFile lints a single file with the given rules and config.
// Returns all issues found that pass the config filters.
func LintFile(path string, rules []Rule, cfg *Config) ([]Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return LintBytes(data, path, rules, cfg)
}

// LintDir lints the files in dir (non-recursively) whose extension is in
// exts. An empty exts matches every file.
func LintDir(dir string, exts []string, rules []Rule, cfg *Config) ([]Issue, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var issues []Issue
	for _, entry := range entries {
		if entry.IsDir() || !matchExt(entry.Name(), exts) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		fileIssues, err := LintFile(path, rules, cfg)
		if err != nil {
			return nil, err
		}
		issues = append(issues, fileIssues...)
	}

	return issues, nil
}

// LintDirRecursive lints matching files under root. Hidden directories are
// skipped.
func LintDirRecursive(root string, exts []string, rules []Rule, cfg *Config) ([]Issue, error) {
	var issues []Issue

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !matchExt(path, exts) {
			return nil
		}

		fileIssues, err := LintFile(path, rules, cfg)
		if err != nil {
			return err
		}
		issues = append(issues, fileIssues...)
		return nil
	})

	if err != nil {
		return nil, err
	}
	return issues, nil
}

func matchExt(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := filepath.Ext(name)
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
