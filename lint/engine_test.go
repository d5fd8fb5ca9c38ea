package lint

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// testRule creates an issue on every line containing a trigger string
type testRule struct {
	id       string
	trigger  string
	severity Severity
}

func (r *testRule) ID() string          { return r.id }
func (r *testRule) Description() string { return "Test rule: " + r.id }
func (r *testRule) Check(src *Source) []Issue {
	var issues []Issue
	for i, line := range src.Lines() {
		if idx := strings.Index(line, r.trigger); idx >= 0 {
			issues = append(issues, Issue{
				Rule:     r.id,
				Message:  "line matches trigger",
				Line:     i + 1,
				Column:   idx + 1,
				Severity: r.severity,
			})
		}
	}
	return issues
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLintFile(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "notes.txt")
	writeFile(t, testFile, "first trigger\nnothing\n")

	rules := []Rule{
		&testRule{id: "TEST001", trigger: "trigger", severity: SeverityError},
		&testRule{id: "TEST002", trigger: "other", severity: SeverityError},
	}

	t.Run("returns issues matching rules", func(t *testing.T) {
		issues, err := LintFile(testFile, rules, nil)
		if err != nil {
			t.Fatalf("LintFile() error = %v", err)
		}
		if len(issues) != 1 {
			t.Fatalf("LintFile() returned %d issues, want 1", len(issues))
		}
		if issues[0].Rule != "TEST001" {
			t.Errorf("Issue.Rule = %q, want %q", issues[0].Rule, "TEST001")
		}
		if issues[0].File != testFile {
			t.Errorf("Issue.File = %q, want %q", issues[0].File, testFile)
		}
	})

	t.Run("returns error for non-existent file", func(t *testing.T) {
		if _, err := LintFile("/nonexistent/file.txt", rules, nil); err == nil {
			t.Error("LintFile() expected error for non-existent file")
		}
	})

	t.Run("respects disabled rules in config", func(t *testing.T) {
		cfg := &Config{DisabledRules: []string{"TEST001"}, MinSeverity: SeverityInfo}
		issues, err := LintFile(testFile, rules, cfg)
		if err != nil {
			t.Fatalf("LintFile() error = %v", err)
		}
		if len(issues) != 0 {
			t.Errorf("LintFile() returned %d issues, want 0", len(issues))
		}
	})
}

func TestLintSourceOrdersAndFilters(t *testing.T) {
	src := NewSource("doc.md", "b a\na b\n")
	rules := []Rule{
		&testRule{id: "B", trigger: "b", severity: SeverityWarning},
		&testRule{id: "A", trigger: "a", severity: SeverityInfo},
	}

	issues := LintSource(src, rules, nil)
	if len(issues) != 4 {
		t.Fatalf("LintSource() returned %d issues, want 4", len(issues))
	}
	for i := 1; i < len(issues); i++ {
		prev, cur := issues[i-1], issues[i]
		if prev.Line > cur.Line || prev.Line == cur.Line && prev.Column > cur.Column {
			t.Errorf("issues not ordered: %v before %v", prev, cur)
		}
	}

	issues = LintSource(src, rules, &Config{MinSeverity: SeverityWarning})
	if len(issues) != 2 {
		t.Errorf("warning threshold kept %d issues, want 2", len(issues))
	}
}

func TestLintBytes(t *testing.T) {
	rules := []Rule{&testRule{id: "TEST001", trigger: "x", severity: SeverityError}}

	issues, err := LintBytes([]byte("x\n"), "mem.txt", rules, nil)
	if err != nil {
		t.Fatalf("LintBytes() error = %v", err)
	}
	if len(issues) != 1 || issues[0].File != "mem.txt" {
		t.Errorf("LintBytes() = %v", issues)
	}

	if _, err := LintBytes([]byte{0xff, 0xfe}, "bin.dat", rules, nil); err == nil {
		t.Error("LintBytes() expected error for invalid UTF-8")
	}
}

func TestLintDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.txt"), "trigger\n")
	writeFile(t, filepath.Join(tmpDir, "b.md"), "trigger\n")
	writeFile(t, filepath.Join(tmpDir, "c.bin"), "trigger\n")
	writeFile(t, filepath.Join(tmpDir, "sub", "d.txt"), "trigger\n")

	rules := []Rule{&testRule{id: "TEST001", trigger: "trigger", severity: SeverityError}}

	issues, err := LintDir(tmpDir, []string{".txt", "md"}, rules, nil)
	if err != nil {
		t.Fatalf("LintDir() error = %v", err)
	}
	if len(issues) != 2 {
		t.Errorf("LintDir() returned %d issues, want 2", len(issues))
	}

	issues, err = LintDir(tmpDir, nil, rules, nil)
	if err != nil {
		t.Fatalf("LintDir() error = %v", err)
	}
	if len(issues) != 3 {
		t.Errorf("LintDir() with no filter returned %d issues, want 3", len(issues))
	}
}

func TestLintDirRecursive(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.txt"), "trigger\n")
	writeFile(t, filepath.Join(tmpDir, "sub", "b.txt"), "trigger\n")
	writeFile(t, filepath.Join(tmpDir, "sub", "deeper", "c.txt"), "trigger\n")
	writeFile(t, filepath.Join(tmpDir, ".git", "d.txt"), "trigger\n")

	rules := []Rule{&testRule{id: "TEST001", trigger: "trigger", severity: SeverityError}}

	issues, err := LintDirRecursive(tmpDir, []string{".txt"}, rules, nil)
	if err != nil {
		t.Fatalf("LintDirRecursive() error = %v", err)
	}
	if len(issues) != 3 {
		t.Errorf("LintDirRecursive() returned %d issues, want 3 (hidden dirs skipped)", len(issues))
	}
}
