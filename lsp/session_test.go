package lsp

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.lsp.dev/protocol"

	"github.com/lex00/wetwire-lsp-go/jsonrpc"
	"github.com/lex00/wetwire-lsp-go/session"
)

// editor drives a Session over pipes the way an editor would.
type editor struct {
	t    *testing.T
	in   *io.PipeWriter
	w    *jsonrpc.Writer
	r    *jsonrpc.Reader
	done chan error
}

func startSession(t *testing.T, cfg Config) *editor {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	sess := session.New(inR, outW, Factory(cfg), session.RequireInitialize())
	e := &editor{
		t:    t,
		in:   inW,
		w:    jsonrpc.NewWriter(inW),
		r:    jsonrpc.NewReader(outR),
		done: make(chan error, 1),
	}
	go func() { e.done <- sess.Run(context.Background()) }()
	t.Cleanup(func() {
		inW.Close()
		outR.Close()
	})
	return e
}

func (e *editor) request(id int64, method string, params any) {
	e.t.Helper()
	msg, err := jsonrpc.NewRequest(jsonrpc.NewNumberID(id), method, params)
	require.NoError(e.t, err)
	require.NoError(e.t, e.w.Write(msg))
}

func (e *editor) notify(method string, params any) {
	e.t.Helper()
	msg, err := jsonrpc.NewNotification(method, params)
	require.NoError(e.t, err)
	require.NoError(e.t, e.w.Write(msg))
}

func (e *editor) recv() *jsonrpc.Message {
	e.t.Helper()
	ch := make(chan *jsonrpc.Message, 1)
	errc := make(chan error, 1)
	go func() {
		msg, err := e.r.Read()
		if err != nil {
			errc <- err
			return
		}
		ch <- msg
	}()
	select {
	case msg := <-ch:
		return msg
	case err := <-errc:
		e.t.Fatalf("read: %v", err)
	case <-time.After(5 * time.Second):
		e.t.Fatal("timed out waiting for a message")
	}
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	cfg := lintConfig()
	e := startSession(t, cfg)

	e.request(1, protocol.MethodInitialize, map[string]any{
		"processId":    1,
		"clientInfo":   map[string]any{"name": "test-editor"},
		"capabilities": map[string]any{},
	})
	resp := e.recv()
	require.Nil(t, resp.Error)
	result := gjson.ParseBytes(resp.Result)
	assert.Equal(t, int64(2), result.Get("capabilities.textDocumentSync.change").Int())
	assert.True(t, result.Get("capabilities.codeActionProvider").Bool())
	assert.False(t, result.Get("capabilities.hoverProvider").Exists())
	assert.Equal(t, "test-lsp", result.Get("serverInfo.name").String())

	e.notify(protocol.MethodInitialized, map[string]any{})
	e.notify(protocol.MethodTextDocumentDidOpen, map[string]any{
		"textDocument": map[string]any{
			"uri": string(testURI), "languageId": "plaintext", "version": 1, "text": "fine\ntrailing  \n",
		},
	})

	published := e.recv()
	assert.Equal(t, protocol.MethodTextDocumentPublishDiagnostics, published.Method)
	params := gjson.ParseBytes(published.Params)
	assert.Equal(t, string(testURI), params.Get("uri").String())
	assert.Equal(t, int64(1), params.Get("diagnostics.#").Int())
	assert.Equal(t, "trailing-whitespace", params.Get("diagnostics.0.code").String())
	assert.Equal(t, int64(1), params.Get("diagnostics.0.range.start.line").Int())
	assert.Equal(t, int64(8), params.Get("diagnostics.0.range.start.character").Int())

	e.request(2, protocol.MethodTextDocumentCodeAction, map[string]any{
		"textDocument": map[string]any{"uri": string(testURI)},
		"range": map[string]any{
			"start": map[string]any{"line": 1, "character": 0},
			"end":   map[string]any{"line": 1, "character": 10},
		},
		"context": map[string]any{"diagnostics": []any{}},
	})
	actions := e.recv()
	require.Nil(t, actions.Error)
	assert.Equal(t, "2", actions.ID.String())
	assert.Equal(t, "quickfix", gjson.GetBytes(actions.Result, "0.kind").String())

	e.request(3, protocol.MethodShutdown, nil)
	shutdown := e.recv()
	require.Nil(t, shutdown.Error)
	assert.Equal(t, "null", string(shutdown.Result))

	e.notify(protocol.MethodExit, nil)
	select {
	case err := <-e.done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop after exit")
	}
}

func TestSessionRejectsRequestsBeforeInitialize(t *testing.T) {
	e := startSession(t, lintConfig())

	e.request(1, protocol.MethodTextDocumentFormatting, map[string]any{
		"textDocument": map[string]any{"uri": string(testURI)},
	})
	resp := e.recv()
	require.NotNil(t, resp.Error)
	assert.Equal(t, jsonrpc.ServerNotInitialized, resp.Error.Code)
}
