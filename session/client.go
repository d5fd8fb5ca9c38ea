package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.lsp.dev/protocol"

	"github.com/lex00/wetwire-lsp-go/jsonrpc"
)

// Client is the server-to-client proxy handed to a LanguageServer.
type Client interface {
	// Notifications
	ShowMessage(ctx context.Context, params *protocol.ShowMessageParams) error
	LogMessage(ctx context.Context, params *protocol.LogMessageParams) error
	Telemetry(ctx context.Context, params interface{}) error
	PublishDiagnostics(ctx context.Context, params *protocol.PublishDiagnosticsParams) error

	// Requests
	ShowMessageRequest(ctx context.Context, params *protocol.ShowMessageRequestParams) (*protocol.MessageActionItem, error)
	RegisterCapability(ctx context.Context, params *protocol.RegistrationParams) error
	UnregisterCapability(ctx context.Context, params *protocol.UnregistrationParams) error
	ApplyEdit(ctx context.Context, params *protocol.ApplyWorkspaceEditParams) (bool, error)
	Configuration(ctx context.Context, params *protocol.ConfigurationParams) ([]interface{}, error)
	WorkspaceFolders(ctx context.Context) ([]protocol.WorkspaceFolder, error)
}

// client sends outbound messages over the Session's writer and correlates
// responses to outbound requests.
type client struct {
	writer *jsonrpc.Writer
	logger zerolog.Logger

	// onWriteError is told about every failed write. The Session uses it to
	// close itself.
	onWriteError func(method string, err error)

	nextID atomic.Int64

	mu      sync.Mutex
	pending map[jsonrpc.ID]chan *jsonrpc.Message
	closed  bool
}

var _ Client = (*client)(nil)

func newClient(w *jsonrpc.Writer, logger zerolog.Logger) *client {
	return &client{
		writer:  w,
		logger:  logger,
		pending: make(map[jsonrpc.ID]chan *jsonrpc.Message),
	}
}

func (c *client) ShowMessage(ctx context.Context, params *protocol.ShowMessageParams) error {
	return c.notify(ctx, protocol.MethodWindowShowMessage, params)
}

func (c *client) LogMessage(ctx context.Context, params *protocol.LogMessageParams) error {
	return c.notify(ctx, protocol.MethodWindowLogMessage, params)
}

func (c *client) Telemetry(ctx context.Context, params interface{}) error {
	return c.notify(ctx, protocol.MethodTelemetryEvent, params)
}

func (c *client) PublishDiagnostics(ctx context.Context, params *protocol.PublishDiagnosticsParams) error {
	return c.notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, params)
}

func (c *client) ShowMessageRequest(ctx context.Context, params *protocol.ShowMessageRequestParams) (*protocol.MessageActionItem, error) {
	var result *protocol.MessageActionItem
	if err := c.call(ctx, protocol.MethodWindowShowMessageRequest, params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *client) RegisterCapability(ctx context.Context, params *protocol.RegistrationParams) error {
	return c.call(ctx, protocol.MethodClientRegisterCapability, params, nil)
}

func (c *client) UnregisterCapability(ctx context.Context, params *protocol.UnregistrationParams) error {
	return c.call(ctx, protocol.MethodClientUnregisterCapability, params, nil)
}

func (c *client) ApplyEdit(ctx context.Context, params *protocol.ApplyWorkspaceEditParams) (bool, error) {
	var result protocol.ApplyWorkspaceEditResponse
	if err := c.call(ctx, protocol.MethodWorkspaceApplyEdit, params, &result); err != nil {
		return false, err
	}
	if !result.Applied && result.FailureReason != "" {
		c.logger.Debug().Str("reason", result.FailureReason).Msg("workspace edit not applied")
	}
	return result.Applied, nil
}

func (c *client) Configuration(ctx context.Context, params *protocol.ConfigurationParams) ([]interface{}, error) {
	var result []interface{}
	if err := c.call(ctx, protocol.MethodWorkspaceConfiguration, params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *client) WorkspaceFolders(ctx context.Context) ([]protocol.WorkspaceFolder, error) {
	var result []protocol.WorkspaceFolder
	if err := c.call(ctx, protocol.MethodWorkspaceWorkspaceFolders, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *client) notify(ctx context.Context, method string, params any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isClosed() {
		return ErrClosed
	}
	msg, err := jsonrpc.NewNotification(method, params)
	if err != nil {
		return err
	}
	if err := c.writer.Write(msg); err != nil {
		c.writeFailed(method, err)
		return fmt.Errorf("send %s: %w", method, err)
	}
	return nil
}

func (c *client) writeFailed(method string, err error) {
	c.logger.Error().Err(err).Str("method", method).Msg("failed to write message")
	if c.onWriteError != nil {
		c.onWriteError(method, err)
	}
}

// call sends a request and blocks until the matching response arrives, ctx
// is done or the session closes. A non-nil result is decoded from the
// response's result.
func (c *client) call(ctx context.Context, method string, params, result any) error {
	id := jsonrpc.NewNumberID(c.nextID.Add(1))
	msg, err := jsonrpc.NewRequest(id, method, params)
	if err != nil {
		return err
	}

	ch := make(chan *jsonrpc.Message, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()

	if err := c.writer.Write(msg); err != nil {
		c.forget(id)
		c.writeFailed(method, err)
		return fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		c.forget(id)
		if err := c.notify(context.Background(), protocol.MethodCancelRequest, &protocol.CancelParams{ID: id}); err != nil {
			c.logger.Debug().Err(err).Str("id", id.String()).Msg("failed to send cancel")
		}
		return ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if resp.Error != nil {
			return resp.Error
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	}
}

func (c *client) forget(id jsonrpc.ID) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// resolve delivers an inbound response to the waiting call. It reports false
// for responses that match no outstanding request.
func (c *client) resolve(msg *jsonrpc.Message) bool {
	if msg.ID == nil {
		return false
	}
	c.mu.Lock()
	ch, ok := c.pending[*msg.ID]
	delete(c.pending, *msg.ID)
	c.mu.Unlock()

	if !ok {
		return false
	}
	ch <- msg
	return true
}

// close fails every outstanding call with ErrClosed and rejects new ones.
func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *client) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
