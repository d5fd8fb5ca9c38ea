package session

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"

	"github.com/lex00/wetwire-lsp-go/jsonrpc"
)

func applyEditParams() *protocol.ApplyWorkspaceEditParams {
	return &protocol.ApplyWorkspaceEditParams{
		Label: "fix",
		Edit: protocol.WorkspaceEdit{
			Changes: map[protocol.DocumentURI][]protocol.TextEdit{
				"file:///tmp/a.txt": {{NewText: "x"}},
			},
		},
	}
}

func TestClientRequestCorrelation(t *testing.T) {
	server := newMockServer()
	server.command = func(ctx context.Context, params *protocol.ExecuteCommandParams) (interface{}, error) {
		return server.client.ApplyEdit(ctx, applyEditParams())
	}
	h := newHarness(t, serve(server))

	h.request(1, protocol.MethodWorkspaceExecuteCommand, &protocol.ExecuteCommandParams{Command: "fix"})

	outbound := h.recv()
	assert.Equal(t, jsonrpc.KindRequest, outbound.Kind())
	assert.Equal(t, protocol.MethodWorkspaceApplyEdit, outbound.Method)
	require.NotNil(t, outbound.ID)

	var params protocol.ApplyWorkspaceEditParams
	require.NoError(t, json.Unmarshal(outbound.Params, &params))
	assert.Equal(t, "fix", params.Label)

	h.respond(*outbound.ID, map[string]any{"applied": true})

	resp := h.recv()
	assert.Equal(t, jsonrpc.NewNumberID(1), *resp.ID)
	require.Nil(t, resp.Error)
	assert.JSONEq(t, `true`, string(resp.Result))

	require.NoError(t, h.closeInput())
}

func TestClientErrorResponse(t *testing.T) {
	server := newMockServer()
	server.command = func(ctx context.Context, params *protocol.ExecuteCommandParams) (interface{}, error) {
		_, err := server.client.Configuration(ctx, &protocol.ConfigurationParams{
			Items: []protocol.ConfigurationItem{{Section: "wetwire"}},
		})
		return nil, err
	}
	h := newHarness(t, serve(server))

	h.request(1, protocol.MethodWorkspaceExecuteCommand, &protocol.ExecuteCommandParams{Command: "cfg"})
	outbound := h.recv()
	assert.Equal(t, protocol.MethodWorkspaceConfiguration, outbound.Method)

	errResp := jsonrpc.NewErrorResponse(*outbound.ID, jsonrpc.NewError(jsonrpc.InvalidParams, "no such section"))
	require.NoError(t, h.writer.Write(errResp))

	resp := h.recv()
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.InvalidParams, resp.Error.Code)
	assert.Equal(t, "no such section", resp.Error.Message)

	require.NoError(t, h.closeInput())
}

func TestClientCallCancelledWithInboundRequest(t *testing.T) {
	server := newMockServer()
	server.command = func(ctx context.Context, params *protocol.ExecuteCommandParams) (interface{}, error) {
		return server.client.ShowMessageRequest(ctx, &protocol.ShowMessageRequestParams{
			Type:    protocol.MessageTypeInfo,
			Message: "continue?",
			Actions: []protocol.MessageActionItem{{Title: "yes"}},
		})
	}
	h := newHarness(t, serve(server))

	h.request(1, protocol.MethodWorkspaceExecuteCommand, &protocol.ExecuteCommandParams{Command: "ask"})
	outbound := h.recv()
	require.Equal(t, protocol.MethodWindowShowMessageRequest, outbound.Method)

	h.notify(protocol.MethodCancelRequest, map[string]any{"id": 1})

	// The cancelled response and the cancel notification for the outbound
	// call race each other.
	var sawResponse, sawCancel bool
	for i := 0; i < 2; i++ {
		msg := h.recv()
		switch msg.Kind() {
		case jsonrpc.KindResponse:
			sawResponse = true
			require.NotNil(t, msg.Error)
			assert.Equal(t, jsonrpc.RequestCancelled, msg.Error.Code)
		case jsonrpc.KindNotification:
			sawCancel = true
			assert.Equal(t, protocol.MethodCancelRequest, msg.Method)
			var cancel struct {
				ID json.RawMessage `json:"id"`
			}
			require.NoError(t, json.Unmarshal(msg.Params, &cancel))
			assert.Equal(t, outbound.ID.String(), string(cancel.ID))
		}
	}
	assert.True(t, sawResponse)
	assert.True(t, sawCancel)

	require.NoError(t, h.closeInput())
}

func TestClientNotifications(t *testing.T) {
	server := newMockServer()
	server.command = func(ctx context.Context, params *protocol.ExecuteCommandParams) (interface{}, error) {
		err := server.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
			URI:         "file:///tmp/a.txt",
			Diagnostics: []protocol.Diagnostic{{Message: "bad"}},
		})
		if err != nil {
			return nil, err
		}
		return "done", server.client.LogMessage(ctx, &protocol.LogMessageParams{Type: protocol.MessageTypeLog, Message: "ran"})
	}
	h := newHarness(t, serve(server))

	h.request(1, protocol.MethodWorkspaceExecuteCommand, &protocol.ExecuteCommandParams{Command: "diag"})

	diag := h.recv()
	assert.Equal(t, jsonrpc.KindNotification, diag.Kind())
	assert.Equal(t, protocol.MethodTextDocumentPublishDiagnostics, diag.Method)
	var published protocol.PublishDiagnosticsParams
	require.NoError(t, json.Unmarshal(diag.Params, &published))
	require.Len(t, published.Diagnostics, 1)
	assert.Equal(t, "bad", published.Diagnostics[0].Message)

	logMsg := h.recv()
	assert.Equal(t, protocol.MethodWindowLogMessage, logMsg.Method)

	resp := h.recv()
	assert.JSONEq(t, `"done"`, string(resp.Result))

	require.NoError(t, h.closeInput())
}

func TestClientResolve(t *testing.T) {
	var out lockedBuffer
	c := newClient(jsonrpc.NewWriter(&out), zerolog.Nop())

	type result struct {
		folders []protocol.WorkspaceFolder
		err     error
	}
	done := make(chan result, 1)
	go func() {
		folders, err := c.WorkspaceFolders(context.Background())
		done <- result{folders, err}
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), protocol.MethodWorkspaceWorkspaceFolders)
	}, time.Second, time.Millisecond)

	id := jsonrpc.NewNumberID(1)
	resolved := c.resolve(&jsonrpc.Message{
		JSONRPC: jsonrpc.Version,
		ID:      &id,
		Result:  json.RawMessage(`[{"uri":"file:///work","name":"work"}]`),
	})
	assert.True(t, resolved)

	r := <-done
	require.NoError(t, r.err)
	require.Len(t, r.folders, 1)
	assert.Equal(t, "work", r.folders[0].Name)
	assert.Equal(t, 0, c.pendingCount())
}

func TestClientResolveUnknown(t *testing.T) {
	c := newClient(jsonrpc.NewWriter(&lockedBuffer{}), zerolog.Nop())

	id := jsonrpc.NewNumberID(42)
	assert.False(t, c.resolve(&jsonrpc.Message{ID: &id, Result: json.RawMessage(`null`)}))
	assert.False(t, c.resolve(&jsonrpc.Message{}))
}

func TestClientCloseFailsOutstandingCalls(t *testing.T) {
	c := newClient(jsonrpc.NewWriter(&lockedBuffer{}), zerolog.Nop())

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.RegisterCapability(context.Background(), &protocol.RegistrationParams{
			Registrations: []protocol.Registration{{ID: "1", Method: protocol.MethodWorkspaceDidChangeWatchedFiles}},
		})
	}()
	require.Eventually(t, func() bool { return c.pendingCount() == 1 }, time.Second, time.Millisecond)

	c.close()
	assert.ErrorIs(t, <-errCh, ErrClosed)

	assert.ErrorIs(t, c.UnregisterCapability(context.Background(), &protocol.UnregistrationParams{}), ErrClosed)
	assert.ErrorIs(t, c.ShowMessage(context.Background(), &protocol.ShowMessageParams{Message: "hi"}), ErrClosed)
	assert.ErrorIs(t, c.Telemetry(context.Background(), map[string]any{"event": "x"}), ErrClosed)
}

func TestClientCallContextCancelled(t *testing.T) {
	var out lockedBuffer
	c := newClient(jsonrpc.NewWriter(&out), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.ApplyEdit(ctx, applyEditParams())
		errCh <- err
	}()
	require.Eventually(t, func() bool { return c.pendingCount() == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	assert.Equal(t, 0, c.pendingCount())
	assert.Contains(t, out.String(), protocol.MethodCancelRequest)
}
