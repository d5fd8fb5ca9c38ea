package lint

import "testing"

// mockRule is a simple rule implementation for testing
type mockRule struct {
	id          string
	description string
	issues      []Issue
}

func (r *mockRule) ID() string {
	return r.id
}

func (r *mockRule) Description() string {
	return r.description
}

func (r *mockRule) Check(src *Source) []Issue {
	return r.issues
}

// mockFixableRule is a rule that can fix issues
type mockFixableRule struct {
	mockRule
	edit   Edit
	fixErr error
}

func (r *mockFixableRule) Fix(src *Source, issue Issue) (Edit, error) {
	return r.edit, r.fixErr
}

func TestFixableRuleInterface(t *testing.T) {
	rule := &mockFixableRule{
		mockRule: mockRule{
			id:          "TEST002",
			description: "Fixable test rule",
			issues: []Issue{
				{Rule: "TEST002", Message: "fixable issue", Line: 1, Fixable: true},
			},
		},
		edit: Edit{Line: 1, StartColumn: 1, EndColumn: 2, NewText: "X"},
	}

	var _ FixableRule = rule

	src := NewSource("a.txt", "abc\n")
	issues := rule.Check(src)
	if len(issues) != 1 {
		t.Fatalf("Check() returned %d issues, want 1", len(issues))
	}

	edit, err := rule.Fix(src, issues[0])
	if err != nil {
		t.Fatalf("Fix() error = %v", err)
	}
	got, err := ApplyEdits(src, []Edit{edit})
	if err != nil {
		t.Fatalf("ApplyEdits() error = %v", err)
	}
	if got != "Xbc\n" {
		t.Errorf("ApplyEdits() = %q, want %q", got, "Xbc\n")
	}
}

func TestRuleRegistration(t *testing.T) {
	registry := NewRuleRegistry()

	registry.Register(&mockRule{id: "TEST001", description: "Rule 1"})
	registry.Register(&mockRule{id: "TEST002", description: "Rule 2"})

	if got := registry.Get("TEST001"); got == nil {
		t.Error("Get(TEST001) = nil, want rule")
	}
	if got := registry.Get("NONEXISTENT"); got != nil {
		t.Error("Get(NONEXISTENT) = non-nil, want nil")
	}

	// Re-registering replaces the rule.
	registry.Register(&mockRule{id: "TEST001", description: "Rule 1 v2"})
	if got := registry.Get("TEST001").Description(); got != "Rule 1 v2" {
		t.Errorf("Get(TEST001).Description() = %q, want %q", got, "Rule 1 v2")
	}

	all := registry.All()
	if len(all) != 2 {
		t.Fatalf("All() returned %d rules, want 2", len(all))
	}
	if all[0].ID() != "TEST001" || all[1].ID() != "TEST002" {
		t.Errorf("All() not ordered by ID: %s, %s", all[0].ID(), all[1].ID())
	}
}

func TestDefaultRegistry(t *testing.T) {
	ids := DefaultRegistry(0).IDs()
	want := []string{"line-length", "mixed-indentation", "todo-comment", "trailing-whitespace"}
	if len(ids) != len(want) {
		t.Fatalf("IDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestSourceLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{""}},
		{"no trailing newline", "a\nb", []string{"a", "b"}},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"blank lines", "a\n\n\nb", []string{"a", "", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewSource("x.txt", tt.text)
			got := src.Lines()
			if len(got) != len(tt.want) {
				t.Fatalf("Lines() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Lines()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}

	src := NewSource("x.txt", "one\ntwo\n")
	if src.Line(2) != "two" || src.Line(0) != "" || src.Line(3) != "" {
		t.Errorf("Line() returned unexpected values")
	}
}
