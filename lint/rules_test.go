package lint

import (
	"strings"
	"testing"
)

func TestTrailingWhitespace(t *testing.T) {
	src := NewSource("a.txt", "clean\nspaces   \ntab\t\n")
	issues := TrailingWhitespace{}.Check(src)

	if len(issues) != 2 {
		t.Fatalf("Check() returned %d issues, want 2", len(issues))
	}
	if issues[0].Line != 2 || issues[0].Column != 7 || issues[0].EndColumn != 10 {
		t.Errorf("issue[0] = line %d cols %d-%d, want line 2 cols 7-10",
			issues[0].Line, issues[0].Column, issues[0].EndColumn)
	}
	if !issues[0].Fixable {
		t.Error("trailing whitespace should be fixable")
	}

	var edits []Edit
	for _, issue := range issues {
		edit, err := TrailingWhitespace{}.Fix(src, issue)
		if err != nil {
			t.Fatalf("Fix() error = %v", err)
		}
		edits = append(edits, edit)
	}
	fixed, err := ApplyEdits(src, edits)
	if err != nil {
		t.Fatalf("ApplyEdits() error = %v", err)
	}
	if fixed != "clean\nspaces\ntab\n" {
		t.Errorf("fixed text = %q", fixed)
	}
}

func TestTrailingWhitespaceFixOnCleanLine(t *testing.T) {
	src := NewSource("a.txt", "clean\n")
	if _, err := (TrailingWhitespace{}).Fix(src, Issue{Line: 1}); err == nil {
		t.Error("Fix() on a clean line should fail")
	}
}

func TestTrailingWhitespaceCRLF(t *testing.T) {
	src := NewSource("a.txt", "x  \r\ny\r\n")
	issues := TrailingWhitespace{}.Check(src)
	if len(issues) != 1 {
		t.Fatalf("Check() returned %d issues, want 1", len(issues))
	}
	edit, err := TrailingWhitespace{}.Fix(src, issues[0])
	if err != nil {
		t.Fatal(err)
	}
	fixed, err := ApplyEdits(src, []Edit{edit})
	if err != nil {
		t.Fatal(err)
	}
	if fixed != "x\r\ny\r\n" {
		t.Errorf("fixed text = %q, want CRLF preserved", fixed)
	}
}

func TestLineLength(t *testing.T) {
	long := strings.Repeat("a", 12)
	src := NewSource("a.txt", "short\n"+long+"\n")

	issues := LineLength{Max: 10}.Check(src)
	if len(issues) != 1 {
		t.Fatalf("Check() returned %d issues, want 1", len(issues))
	}
	if issues[0].Line != 2 || issues[0].Column != 11 {
		t.Errorf("issue at %d:%d, want 2:11", issues[0].Line, issues[0].Column)
	}
	if !strings.Contains(issues[0].Message, "12") {
		t.Errorf("message %q should mention the length", issues[0].Message)
	}
}

func TestLineLengthCountsCharacters(t *testing.T) {
	// Ten two-byte runes fit within a limit of ten characters.
	src := NewSource("a.txt", strings.Repeat("é", 10)+"\n"+strings.Repeat("é", 11))

	issues := LineLength{Max: 10}.Check(src)
	if len(issues) != 1 {
		t.Fatalf("Check() returned %d issues, want 1", len(issues))
	}
	if issues[0].Column != 21 {
		t.Errorf("Column = %d, want byte column 21", issues[0].Column)
	}
}

func TestLineLengthDefault(t *testing.T) {
	rule := LineLength{}
	if !strings.Contains(rule.Description(), "120") {
		t.Errorf("Description() = %q, want default limit", rule.Description())
	}
	src := NewSource("a.txt", strings.Repeat("x", DefaultMaxLineLength))
	if issues := rule.Check(src); len(issues) != 0 {
		t.Errorf("line at the limit reported: %v", issues)
	}
}

func TestTodoComment(t *testing.T) {
	src := NewSource("a.txt", "// TODO: fix\nTODOS are fine\nFIXME(bob)\nnoTODO\n")
	issues := TodoComment{}.Check(src)

	if len(issues) != 2 {
		t.Fatalf("Check() returned %d issues, want 2: %v", len(issues), issues)
	}
	if issues[0].Line != 1 || issues[0].Column != 4 || issues[0].EndColumn != 8 {
		t.Errorf("TODO issue = %d:%d-%d, want 1:4-8", issues[0].Line, issues[0].Column, issues[0].EndColumn)
	}
	if issues[1].Line != 3 || issues[1].Message != "unresolved FIXME" {
		t.Errorf("FIXME issue = %+v", issues[1])
	}
}

func TestMixedIndentation(t *testing.T) {
	src := NewSource("a.txt", "\tok\n    ok\n\t  bad\n  \tbad\n")
	issues := MixedIndentation{}.Check(src)

	if len(issues) != 2 {
		t.Fatalf("Check() returned %d issues, want 2", len(issues))
	}
	if issues[0].Line != 3 || issues[0].EndColumn != 4 {
		t.Errorf("issue[0] = line %d end %d, want line 3 end 4", issues[0].Line, issues[0].EndColumn)
	}
	if issues[1].Line != 4 {
		t.Errorf("issue[1].Line = %d, want 4", issues[1].Line)
	}
}
