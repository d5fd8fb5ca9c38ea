// Package lsp provides a language server built on the session runtime.
//
// Feature packages implement DiagnosticProvider, CompletionProvider,
// HoverProvider and the other provider interfaces while this package keeps
// the open documents and handles the LSP protocol surface.
package lsp

import (
	"context"

	"go.lsp.dev/protocol"
)

// DiagnosticProvider provides diagnostics for a document.
type DiagnosticProvider interface {
	Diagnose(ctx context.Context, doc *Document) ([]protocol.Diagnostic, error)
}

// CompletionProvider provides completion items at a position.
type CompletionProvider interface {
	Complete(ctx context.Context, doc *Document, pos protocol.Position) ([]protocol.CompletionItem, error)
}

// HoverProvider provides hover information at a position.
type HoverProvider interface {
	Hover(ctx context.Context, doc *Document, pos protocol.Position) (*protocol.Hover, error)
}

// DefinitionProvider provides go-to-definition support.
type DefinitionProvider interface {
	Definition(ctx context.Context, doc *Document, pos protocol.Position) ([]protocol.Location, error)
}

// FormattingProvider computes whole-document formatting edits.
type FormattingProvider interface {
	Format(ctx context.Context, doc *Document, options protocol.FormattingOptions) ([]protocol.TextEdit, error)
}

// CodeActionProvider returns the code actions available for a range.
type CodeActionProvider interface {
	CodeActions(ctx context.Context, doc *Document, rng protocol.Range, diagnostics []protocol.Diagnostic) ([]protocol.CodeAction, error)
}
