package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"go.lsp.dev/protocol"

	"github.com/lex00/wetwire-lsp-go/jsonrpc"
)

// Handler decodes raw params, runs the operation and returns the result to
// encode. Notification handlers return a nil result.
type Handler func(ctx context.Context, params json.RawMessage) (any, error)

// Registration binds a method name to its handler.
type Registration struct {
	Method       string
	Notification bool
	Handler      Handler
}

// Table maps method names to registrations. It is built once per Session
// and only read afterwards.
type Table map[string]Registration

// Lookup returns the registration for method.
func (t Table) Lookup(method string) (Registration, bool) {
	reg, ok := t[method]
	return reg, ok
}

func (t Table) add(reg Registration) {
	t[reg.Method] = reg
}

// Methods builds the dispatch table for server. It covers every method the
// Session routes to a LanguageServer; $/cancelRequest is added by the
// Session itself since it operates on the pending registry.
func Methods(server LanguageServer) Table {
	t := make(Table)

	// Lifecycle
	t.add(request(protocol.MethodInitialize, server.Initialize))
	t.add(notification(protocol.MethodInitialized, server.Initialized))
	t.add(Registration{
		Method: protocol.MethodShutdown,
		Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return nil, server.Shutdown(ctx)
		},
	})
	t.add(Registration{
		Method:       protocol.MethodExit,
		Notification: true,
		Handler: func(ctx context.Context, _ json.RawMessage) (any, error) {
			return nil, server.Exit(ctx)
		},
	})
	t.add(notification(protocol.MethodSetTrace, server.SetTrace))

	// Workspace
	t.add(request(protocol.MethodWorkspaceSymbol, server.Symbols))
	t.add(request(protocol.MethodWorkspaceExecuteCommand, server.ExecuteCommand))
	t.add(notification(protocol.MethodWorkspaceDidChangeWorkspaceFolders, server.DidChangeWorkspaceFolders))
	t.add(notification(protocol.MethodWorkspaceDidChangeConfiguration, server.DidChangeConfiguration))
	t.add(notification(protocol.MethodWorkspaceDidChangeWatchedFiles, server.DidChangeWatchedFiles))

	// Document synchronization
	t.add(notification(protocol.MethodTextDocumentDidOpen, server.DidOpen))
	t.add(notification(protocol.MethodTextDocumentDidChange, server.DidChange))
	t.add(notification(protocol.MethodTextDocumentWillSave, server.WillSave))
	t.add(request(protocol.MethodTextDocumentWillSaveWaitUntil, server.WillSaveWaitUntil))
	t.add(notification(protocol.MethodTextDocumentDidSave, server.DidSave))
	t.add(notification(protocol.MethodTextDocumentDidClose, server.DidClose))

	// Language features
	t.add(request(protocol.MethodTextDocumentCompletion, server.Completion))
	t.add(request(protocol.MethodCompletionItemResolve, server.CompletionResolve))
	t.add(request(protocol.MethodTextDocumentHover, server.Hover))
	t.add(request(protocol.MethodTextDocumentSignatureHelp, server.SignatureHelp))
	t.add(request(protocol.MethodTextDocumentDeclaration, server.Declaration))
	t.add(request(protocol.MethodTextDocumentDefinition, server.Definition))
	t.add(request(protocol.MethodTextDocumentTypeDefinition, server.TypeDefinition))
	t.add(request(protocol.MethodTextDocumentImplementation, server.Implementation))
	t.add(request(protocol.MethodTextDocumentReferences, server.References))
	t.add(request(protocol.MethodTextDocumentDocumentHighlight, server.DocumentHighlight))
	t.add(request(protocol.MethodTextDocumentDocumentSymbol, server.DocumentSymbol))
	t.add(request(protocol.MethodTextDocumentCodeAction, server.CodeAction))
	t.add(request(protocol.MethodTextDocumentCodeLens, server.CodeLens))
	t.add(request(protocol.MethodCodeLensResolve, server.CodeLensResolve))
	t.add(request(protocol.MethodTextDocumentDocumentLink, server.DocumentLink))
	t.add(request(protocol.MethodDocumentLinkResolve, server.DocumentLinkResolve))
	t.add(request(protocol.MethodTextDocumentDocumentColor, server.DocumentColor))
	t.add(request(protocol.MethodTextDocumentColorPresentation, server.ColorPresentation))
	t.add(request(protocol.MethodTextDocumentFormatting, server.Formatting))
	t.add(request(protocol.MethodTextDocumentRangeFormatting, server.RangeFormatting))
	t.add(request(protocol.MethodTextDocumentOnTypeFormatting, server.OnTypeFormatting))
	t.add(request(protocol.MethodTextDocumentRename, server.Rename))
	t.add(request(protocol.MethodTextDocumentPrepareRename, server.PrepareRename))
	t.add(request(protocol.MethodTextDocumentFoldingRange, server.FoldingRanges))

	return t
}

// request registers a typed request operation.
func request[P, R any](method string, fn func(context.Context, *P) (R, error)) Registration {
	return Registration{
		Method: method,
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var params P
			if err := decodeParams(method, raw, &params); err != nil {
				return nil, err
			}
			return fn(ctx, &params)
		},
	}
}

// notification registers a typed notification operation.
func notification[P any](method string, fn func(context.Context, *P) error) Registration {
	return Registration{
		Method:       method,
		Notification: true,
		Handler: func(ctx context.Context, raw json.RawMessage) (any, error) {
			var params P
			if err := decodeParams(method, raw, &params); err != nil {
				return nil, err
			}
			return nil, fn(ctx, &params)
		},
	}
}

// decodeParams unmarshals raw into v. Absent or null params leave v at its
// zero value.
func decodeParams(method string, raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return jsonrpc.Errorf(jsonrpc.InvalidParams, "invalid params for %s: %v", method, err)
	}
	return nil
}

// Outcome is the result category of a handled request.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeError
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// classifyOutcome decides how a handler result is reported. An error counts
// as a cancellation when it wraps context.Canceled, carries the
// RequestCancelled code, or was returned after ctx was cancelled.
func classifyOutcome(ctx context.Context, err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return OutcomeCancelled
	}
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) && rpcErr.Code == jsonrpc.RequestCancelled {
		return OutcomeCancelled
	}
	return OutcomeError
}

// toResponseError converts a handler error into the error object sent back.
func toResponseError(err error) *jsonrpc.Error {
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return jsonrpc.NewError(jsonrpc.InternalError, err.Error())
}

func cancelledError(method string, id jsonrpc.ID) *jsonrpc.Error {
	return jsonrpc.Errorf(jsonrpc.RequestCancelled, "request %s (id %s) was cancelled", method, id)
}
