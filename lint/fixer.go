package lint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FixResult represents the result of attempting to fix an issue.
type FixResult struct {
	// Issue is the original lint issue.
	Issue Issue
	// Fixed indicates whether an edit was produced for the issue.
	Fixed bool
	// Edit is the change that fixes the issue (if Fixed is true).
	Edit Edit
	// Error contains any error that occurred during fixing.
	Error error
}

// Fix finds issues in src and computes edits for the fixable ones without
// applying them.
func Fix(src *Source, rules []Rule, cfg *Config) []FixResult {
	var results []FixResult
	for _, rule := range rules {
		if cfg != nil && cfg.IsRuleDisabled(rule.ID()) {
			continue
		}
		for _, issue := range rule.Check(src) {
			if issue.File == "" {
				issue.File = src.Path
			}

			// Filter by config
			if cfg != nil && !cfg.ShouldReport(issue) {
				continue
			}

			results = append(results, FixIssue(src, rule, issue))
		}
	}
	return results
}

// FixIssue computes the edit for a single issue found by rule.
func FixIssue(src *Source, rule Rule, issue Issue) FixResult {
	result := FixResult{Issue: issue}

	fixable, ok := rule.(FixableRule)
	if !ok || !issue.Fixable {
		return result
	}
	edit, err := fixable.Fix(src, issue)
	if err != nil {
		result.Error = err
		return result
	}
	result.Fixed = true
	result.Edit = edit
	return result
}

// ApplyEdits applies non-overlapping edits to src and returns the new text.
// Line terminators are preserved.
func ApplyEdits(src *Source, edits []Edit) (string, error) {
	sorted := append([]Edit(nil), edits...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Line != sorted[j].Line {
			return sorted[i].Line > sorted[j].Line
		}
		return sorted[i].StartColumn > sorted[j].StartColumn
	})

	lines := strings.SplitAfter(src.Text, "\n")
	for i, edit := range sorted {
		if edit.Line < 1 || edit.Line > len(lines) {
			return "", fmt.Errorf("edit line %d out of range", edit.Line)
		}
		if i > 0 && sorted[i-1].Line == edit.Line && sorted[i-1].StartColumn < edit.EndColumn {
			return "", fmt.Errorf("overlapping edits on line %d", edit.Line)
		}

		raw := lines[edit.Line-1]
		body := strings.TrimRight(raw, "\r\n")
		eol := raw[len(body):]

		start, end := edit.StartColumn-1, edit.EndColumn-1
		if start < 0 || end < start || end > len(body) {
			return "", fmt.Errorf("edit columns %d-%d out of range on line %d", edit.StartColumn, edit.EndColumn, edit.Line)
		}
		lines[edit.Line-1] = body[:start] + edit.NewText + body[end:] + eol
	}
	return strings.Join(lines, ""), nil
}

// FixFile fixes issues in a file and writes the changes back.
// Returns a slice of FixResults indicating what was fixed.
func FixFile(path string, rules []Rule, cfg *Config) ([]FixResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	src := NewSource(path, string(data))

	results := Fix(src, rules, cfg)
	var edits []Edit
	for _, result := range results {
		if result.Fixed {
			edits = append(edits, result.Edit)
		}
	}
	if len(edits) == 0 {
		return results, nil
	}

	fixed, err := ApplyEdits(src, edits)
	if err != nil {
		return nil, fmt.Errorf("failed to fix %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(fixed), 0644); err != nil {
		return nil, err
	}
	return results, nil
}

// FixDir fixes issues in matching files in a directory (non-recursively).
func FixDir(dir string, exts []string, rules []Rule, cfg *Config) ([]FixResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var results []FixResult
	for _, entry := range entries {
		if entry.IsDir() || !matchExt(entry.Name(), exts) {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		fileResults, err := FixFile(path, rules, cfg)
		if err != nil {
			return nil, err
		}
		results = append(results, fileResults...)
	}

	return results, nil
}
