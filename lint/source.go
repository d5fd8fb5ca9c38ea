package lint

import "strings"

// Source is a text document split into lines. Line terminators (\n or
// \r\n) are not part of the lines.
type Source struct {
	Path  string
	Text  string
	lines []string
}

// NewSource creates a Source for text.
func NewSource(path, text string) *Source {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	// A trailing newline does not start another line.
	if len(lines) > 1 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return &Source{Path: path, Text: text, lines: lines}
}

// Lines returns the document lines.
func (s *Source) Lines() []string {
	return s.lines
}

// Line returns line n (1-based), or "" when out of range.
func (s *Source) Line(n int) string {
	if n < 1 || n > len(s.lines) {
		return ""
	}
	return s.lines[n-1]
}

// LineCount returns the number of lines.
func (s *Source) LineCount() int {
	return len(s.lines)
}
