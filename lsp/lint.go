package lsp

import (
	"context"
	"fmt"

	"go.lsp.dev/protocol"

	"github.com/lex00/wetwire-lsp-go/lint"
)

// DefaultLintSource is the diagnostic source name used by LintProvider.
const DefaultLintSource = "wetwire-lint"

// LintProvider adapts the lint engine to the diagnostic, code action and
// formatting provider interfaces.
type LintProvider struct {
	Rules  []lint.Rule
	Config *lint.Config
	// Source names the diagnostics. Empty uses DefaultLintSource.
	Source string
}

var (
	_ DiagnosticProvider = (*LintProvider)(nil)
	_ CodeActionProvider = (*LintProvider)(nil)
	_ FormattingProvider = (*LintProvider)(nil)
)

// NewLintProvider creates a provider running rules with cfg.
func NewLintProvider(rules []lint.Rule, cfg *lint.Config) *LintProvider {
	return &LintProvider{Rules: rules, Config: cfg}
}

func (p *LintProvider) source() string {
	if p.Source == "" {
		return DefaultLintSource
	}
	return p.Source
}

// Diagnose lints doc and converts the issues to diagnostics.
func (p *LintProvider) Diagnose(ctx context.Context, doc *Document) ([]protocol.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	issues := lint.LintSource(lint.NewSource(doc.Filename(), doc.Text), p.Rules, p.Config)

	diags := make([]protocol.Diagnostic, 0, len(issues))
	for _, issue := range issues {
		diags = append(diags, p.diagnostic(doc, issue))
	}
	return diags, nil
}

func (p *LintProvider) diagnostic(doc *Document, issue lint.Issue) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    issueRange(doc, issue),
		Severity: diagnosticSeverity(issue.Severity),
		Code:     issue.Rule,
		Source:   p.source(),
		Message:  issue.Message,
	}
}

// issueRange converts the 1-based byte columns of an issue to a range.
func issueRange(doc *Document, issue lint.Issue) protocol.Range {
	line := issue.Line - 1
	start := doc.LinePosition(line, issue.Column-1)
	end := doc.LinePosition(line, len(doc.Line(line)))
	if issue.EndColumn > 0 {
		end = doc.LinePosition(line, issue.EndColumn-1)
	}
	return protocol.Range{Start: start, End: end}
}

func editRange(doc *Document, edit lint.Edit) protocol.Range {
	line := edit.Line - 1
	return protocol.Range{
		Start: doc.LinePosition(line, edit.StartColumn-1),
		End:   doc.LinePosition(line, edit.EndColumn-1),
	}
}

func diagnosticSeverity(s lint.Severity) protocol.DiagnosticSeverity {
	switch s {
	case lint.SeverityError:
		return protocol.DiagnosticSeverityError
	case lint.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	default:
		return protocol.DiagnosticSeverityInformation
	}
}

// CodeActions returns a quick fix for every fixable issue overlapping rng.
func (p *LintProvider) CodeActions(ctx context.Context, doc *Document, rng protocol.Range, diagnostics []protocol.Diagnostic) ([]protocol.CodeAction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src := lint.NewSource(doc.Filename(), doc.Text)

	actions := []protocol.CodeAction{}
	for _, result := range lint.Fix(src, p.Rules, p.Config) {
		if !result.Fixed {
			continue
		}
		diag := p.diagnostic(doc, result.Issue)
		if !overlaps(diag.Range, rng) {
			continue
		}
		title := result.Issue.Suggestion
		if title == "" {
			title = fmt.Sprintf("Fix %s", result.Issue.Rule)
		}
		actions = append(actions, protocol.CodeAction{
			Title:       title,
			Kind:        protocol.QuickFix,
			Diagnostics: matching(diagnostics, diag),
			IsPreferred: true,
			Edit: &protocol.WorkspaceEdit{
				Changes: map[protocol.DocumentURI][]protocol.TextEdit{
					doc.URI: {{Range: editRange(doc, result.Edit), NewText: result.Edit.NewText}},
				},
			},
		})
	}
	return actions, nil
}

// Format returns the edits for every fixable issue in doc.
func (p *LintProvider) Format(ctx context.Context, doc *Document, _ protocol.FormattingOptions) ([]protocol.TextEdit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	src := lint.NewSource(doc.Filename(), doc.Text)

	edits := []protocol.TextEdit{}
	for _, result := range lint.Fix(src, p.Rules, p.Config) {
		if result.Error != nil {
			return nil, result.Error
		}
		if result.Fixed {
			edits = append(edits, protocol.TextEdit{Range: editRange(doc, result.Edit), NewText: result.Edit.NewText})
		}
	}
	return edits, nil
}

// matching returns the client diagnostics equal in range and code to want.
// The computed diagnostic is used when the client sent none that match.
func matching(diagnostics []protocol.Diagnostic, want protocol.Diagnostic) []protocol.Diagnostic {
	var out []protocol.Diagnostic
	for _, d := range diagnostics {
		if d.Range == want.Range && fmt.Sprint(d.Code) == fmt.Sprint(want.Code) {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		out = []protocol.Diagnostic{want}
	}
	return out
}

func before(a, b protocol.Position) bool {
	return a.Line < b.Line || a.Line == b.Line && a.Character < b.Character
}

// overlaps reports whether two ranges share a position. Touching ranges
// overlap so a cursor at the end of an issue still finds it.
func overlaps(a, b protocol.Range) bool {
	return !before(a.End, b.Start) && !before(b.End, a.Start)
}
