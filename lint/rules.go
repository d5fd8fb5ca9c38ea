package lint

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxLineLength is the line-length limit used when none is configured.
const DefaultMaxLineLength = 120

// DefaultRules returns the built-in rules. maxLineLength <= 0 selects
// DefaultMaxLineLength.
func DefaultRules(maxLineLength int) []Rule {
	return []Rule{
		TrailingWhitespace{},
		LineLength{Max: maxLineLength},
		TodoComment{},
		MixedIndentation{},
	}
}

// DefaultRegistry returns a registry holding DefaultRules.
func DefaultRegistry(maxLineLength int) *RuleRegistry {
	r := NewRuleRegistry()
	for _, rule := range DefaultRules(maxLineLength) {
		r.Register(rule)
	}
	return r
}

// TrailingWhitespace reports spaces and tabs at the end of a line.
type TrailingWhitespace struct{}

func (TrailingWhitespace) ID() string { return "trailing-whitespace" }

func (TrailingWhitespace) Description() string {
	return "Lines must not end with spaces or tabs"
}

func (r TrailingWhitespace) Check(src *Source) []Issue {
	var issues []Issue
	for i, line := range src.Lines() {
		trimmed := strings.TrimRight(line, " \t")
		if len(trimmed) == len(line) {
			continue
		}
		issues = append(issues, Issue{
			Rule:       r.ID(),
			Message:    "trailing whitespace",
			Line:       i + 1,
			Column:     len(trimmed) + 1,
			EndColumn:  len(line) + 1,
			Severity:   SeverityWarning,
			Suggestion: "remove the trailing whitespace",
			Fixable:    true,
		})
	}
	return issues
}

func (r TrailingWhitespace) Fix(src *Source, issue Issue) (Edit, error) {
	line := src.Line(issue.Line)
	trimmed := strings.TrimRight(line, " \t")
	if len(trimmed) == len(line) {
		return Edit{}, fmt.Errorf("line %d has no trailing whitespace", issue.Line)
	}
	return Edit{
		Line:        issue.Line,
		StartColumn: len(trimmed) + 1,
		EndColumn:   len(line) + 1,
	}, nil
}

// LineLength reports lines longer than Max characters.
type LineLength struct {
	Max int
}

func (LineLength) ID() string { return "line-length" }

func (r LineLength) Description() string {
	return fmt.Sprintf("Lines must not exceed %d characters", r.limit())
}

func (r LineLength) limit() int {
	if r.Max <= 0 {
		return DefaultMaxLineLength
	}
	return r.Max
}

func (r LineLength) Check(src *Source) []Issue {
	limit := r.limit()
	var issues []Issue
	for i, line := range src.Lines() {
		n := utf8.RuneCountInString(line)
		if n <= limit {
			continue
		}
		issues = append(issues, Issue{
			Rule:      r.ID(),
			Message:   fmt.Sprintf("line is %d characters long, limit is %d", n, limit),
			Line:      i + 1,
			Column:    byteOffsetOfRune(line, limit) + 1,
			EndColumn: len(line) + 1,
			Severity:  SeverityInfo,
		})
	}
	return issues
}

// byteOffsetOfRune returns the byte offset of the n-th rune (0-based).
func byteOffsetOfRune(s string, n int) int {
	count := 0
	for offset := range s {
		if count == n {
			return offset
		}
		count++
	}
	return len(s)
}

// TodoComment reports TODO and FIXME markers.
type TodoComment struct{}

var todoMarkers = []string{"TODO", "FIXME"}

func (TodoComment) ID() string { return "todo-comment" }

func (TodoComment) Description() string {
	return "TODO and FIXME markers should be resolved"
}

func (r TodoComment) Check(src *Source) []Issue {
	var issues []Issue
	for i, line := range src.Lines() {
		for _, marker := range todoMarkers {
			idx := indexWord(line, marker)
			if idx < 0 {
				continue
			}
			issues = append(issues, Issue{
				Rule:       r.ID(),
				Message:    fmt.Sprintf("unresolved %s", marker),
				Line:       i + 1,
				Column:     idx + 1,
				EndColumn:  idx + len(marker) + 1,
				Severity:   SeverityInfo,
				Suggestion: "resolve it or track it in an issue",
			})
		}
	}
	return issues
}

// indexWord finds word in s where it is not part of a longer identifier.
func indexWord(s, word string) int {
	start := 0
	for {
		idx := strings.Index(s[start:], word)
		if idx < 0 {
			return -1
		}
		idx += start
		end := idx + len(word)
		if (idx == 0 || !isWordByte(s[idx-1])) && (end == len(s) || !isWordByte(s[end])) {
			return idx
		}
		start = end
	}
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// MixedIndentation reports indentation that mixes tabs and spaces.
type MixedIndentation struct{}

func (MixedIndentation) ID() string { return "mixed-indentation" }

func (MixedIndentation) Description() string {
	return "Indentation must not mix tabs and spaces"
}

func (r MixedIndentation) Check(src *Source) []Issue {
	var issues []Issue
	for i, line := range src.Lines() {
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if !strings.Contains(indent, " ") || !strings.Contains(indent, "\t") {
			continue
		}
		issues = append(issues, Issue{
			Rule:      r.ID(),
			Message:   "indentation mixes tabs and spaces",
			Line:      i + 1,
			Column:    1,
			EndColumn: len(indent) + 1,
			Severity:  SeverityWarning,
		})
	}
	return issues
}
