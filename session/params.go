package session

import "go.lsp.dev/protocol"

// DidChangeTextDocumentParams is the textDocument/didChange payload.
//
// protocol.TextDocumentContentChangeEvent carries Range by value, which
// makes a whole-document replacement (no range) indistinguishable from an
// insert at 0:0. This type keeps the range optional.
type DidChangeTextDocumentParams struct {
	TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []TextDocumentContentChangeEvent         `json:"contentChanges"`
}

// TextDocumentContentChangeEvent is one edit. A nil Range replaces the whole
// document with Text.
type TextDocumentContentChangeEvent struct {
	Range       *protocol.Range `json:"range,omitempty"`
	RangeLength uint32          `json:"rangeLength,omitempty"`
	Text        string          `json:"text"`
}
