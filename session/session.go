// Package session runs a Language Server Protocol session over a byte
// stream: it reads framed JSON-RPC messages, dispatches them to a
// LanguageServer, tracks in-flight requests for cancellation and writes
// responses back through a single serialized writer.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"go.lsp.dev/protocol"

	"github.com/lex00/wetwire-lsp-go/jsonrpc"
)

var (
	// ErrClosed is returned by Client calls made after the session closed.
	ErrClosed = errors.New("session closed")

	// ErrExitWithoutShutdown is returned by Run when the client sent exit
	// without a prior shutdown request.
	ErrExitWithoutShutdown = errors.New("exit received before shutdown")

	errEndOfInput = errors.New("end of input")
)

// State is the lifecycle state of a Session.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithCloser sets what Run closes to unblock the reader when its context is
// cancelled. It defaults to the input stream when that is an io.Closer.
func WithCloser(c io.Closer) Option {
	return func(s *Session) {
		s.closer = c
	}
}

// RequireInitialize rejects requests that arrive before initialize with
// ServerNotInitialized and drops early notifications.
func RequireInitialize() Option {
	return func(s *Session) {
		s.requireInit = true
	}
}

// Session is one client connection.
//
// Notifications run on the read goroutine in arrival order. Requests run
// concurrently and may complete out of order. Notification handlers must not
// wait on Client requests since responses are read by the same goroutine.
type Session struct {
	id     string
	reader *jsonrpc.Reader
	writer *jsonrpc.Writer
	closer io.Closer
	logger zerolog.Logger

	server  LanguageServer
	client  *client
	methods Table
	pending *registry
	wg      sync.WaitGroup

	requireInit bool
	mu          sync.Mutex
	initialized bool
	shutdown    bool

	state  atomic.Int32
	cancel context.CancelCauseFunc
}

// New creates a Session reading from r and writing to w. factory is called
// once with the Session's Client to build the server.
func New(r io.Reader, w io.Writer, factory ServerFactory, opts ...Option) *Session {
	s := &Session{
		id:      uuid.NewString(),
		reader:  jsonrpc.NewReader(r),
		writer:  jsonrpc.NewWriter(w),
		logger:  zerolog.Nop(),
		pending: newRegistry(),
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	for _, opt := range opts {
		opt(s)
	}

	base := s.logger.With().Str("session", s.id).Logger()
	s.logger = base.With().Str("component", "session").Logger()
	s.client = newClient(s.writer, base.With().Str("component", "client").Logger())
	s.client.onWriteError = func(method string, err error) {
		s.fail(fmt.Errorf("write %s: %w", method, err))
	}
	s.server = factory(s.client)

	s.methods = Methods(s.server)
	s.methods.add(Registration{
		Method:       protocol.MethodCancelRequest,
		Notification: true,
		Handler:      s.cancelRequest,
	})
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Client returns the outbound proxy.
func (s *Session) Client() Client { return s.client }

// PendingCount returns the number of in-flight inbound requests.
func (s *Session) PendingCount() int { return s.pending.Len() }

// Run reads and dispatches messages until the input ends, exit is received,
// ctx is cancelled, a framing error occurs or a write fails. Before returning
// it fails outstanding client calls and waits until every request has been
// answered. Handlers that ignore cancellation may still be running.
// In-flight requests are cancelled first unless the input simply ended, in
// which case they are allowed to complete and answer.
//
// Run returns nil on end of input and after exit following shutdown. Run
// must be called at most once.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancelCause(ctx)
	s.cancel = cancel
	defer cancel(nil)

	if s.closer != nil {
		stop := context.AfterFunc(ctx, func() {
			_ = s.closer.Close()
		})
		defer stop()
	}

	s.logger.Info().Msg("session started")
	err := s.loop(ctx)

	s.state.Store(int32(StateClosing))
	if errors.Is(err, errEndOfInput) {
		err = nil
	} else if n := s.pending.CancelAll(); n > 0 {
		s.logger.Debug().Int("pending", n).Msg("cancelling in-flight requests")
	}
	s.client.close()
	s.wg.Wait()
	s.state.Store(int32(StateClosed))

	if err != nil {
		s.logger.Info().Err(err).Msg("session closed")
	} else {
		s.logger.Info().Msg("session closed")
	}
	return err
}

func (s *Session) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return context.Cause(ctx)
		}

		msg, err := s.reader.Read()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return context.Cause(ctx)
			case errors.Is(err, io.EOF):
				s.logger.Debug().Msg("input closed")
				return errEndOfInput
			case errors.Is(err, jsonrpc.ErrParse):
				s.logger.Error().Err(err).Msg("dropping malformed message")
				continue
			case jsonrpc.IsFraming(err):
				s.logger.Error().Err(err).Msg("framing error, closing session")
				return err
			default:
				return fmt.Errorf("read message: %w", err)
			}
		}

		switch msg.Kind() {
		case jsonrpc.KindResponse:
			if !s.client.resolve(msg) {
				s.logger.Warn().Str("id", msg.ID.String()).Msg("response for unknown request")
			}
		case jsonrpc.KindNotification:
			if msg.Method == protocol.MethodExit {
				return s.exit(ctx, msg)
			}
			s.handleNotification(ctx, msg)
		default:
			s.handleRequest(ctx, msg)
		}
	}
}

func (s *Session) exit(ctx context.Context, msg *jsonrpc.Message) error {
	if reg, ok := s.methods.Lookup(msg.Method); ok {
		if _, err := s.invoke(ctx, reg, msg.Params); err != nil {
			s.logger.Warn().Err(err).Msg("exit handler failed")
		}
	}

	s.mu.Lock()
	shutdown := s.shutdown
	s.mu.Unlock()

	if !shutdown {
		s.logger.Warn().Msg("exit received before shutdown")
		return ErrExitWithoutShutdown
	}
	return nil
}

func (s *Session) handleNotification(ctx context.Context, msg *jsonrpc.Message) {
	logger := s.logger.With().Str("method", msg.Method).Logger()

	reg, ok := s.methods.Lookup(msg.Method)
	if !ok || !reg.Notification {
		if strings.HasPrefix(msg.Method, "$/") {
			logger.Debug().Msg("ignoring unknown notification")
		} else {
			logger.Warn().Msg("unknown notification")
		}
		return
	}

	if s.requireInit && msg.Method != protocol.MethodCancelRequest {
		s.mu.Lock()
		initialized := s.initialized
		s.mu.Unlock()
		if !initialized {
			logger.Debug().Msg("dropping notification before initialize")
			return
		}
	}

	logger.Debug().Msg("notification")
	if _, err := s.invoke(ctx, reg, msg.Params); err != nil {
		logger.Warn().Err(err).Msg("notification handler failed")
	}
}

func (s *Session) handleRequest(ctx context.Context, msg *jsonrpc.Message) {
	id := *msg.ID
	logger := s.logger.With().Str("method", msg.Method).Str("id", id.String()).Logger()

	reg, ok := s.methods.Lookup(msg.Method)
	if !ok || reg.Notification {
		logger.Warn().Msg("unknown request method")
		s.reply(logger, jsonrpc.NewErrorResponse(id,
			jsonrpc.Errorf(jsonrpc.InvalidRequest, "unknown request method: %s", msg.Method)))
		return
	}

	if rpcErr := s.admit(msg.Method); rpcErr != nil {
		logger.Debug().Str("error", rpcErr.Message).Msg("request rejected")
		s.reply(logger, jsonrpc.NewErrorResponse(id, rpcErr))
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	if !s.pending.Register(id, msg.Method, cancel) {
		cancel()
		logger.Warn().Msg("duplicate request id")
		s.reply(logger, jsonrpc.NewErrorResponse(id,
			jsonrpc.Errorf(jsonrpc.InvalidRequest, "request id %s is already in flight", id)))
		return
	}

	logger.Debug().Msg("request")
	s.wg.Add(1)
	go s.runRequest(reqCtx, logger, reg, id, msg.Params)
}

// admit applies the initialize/shutdown lifecycle to an incoming request.
func (s *Session) admit(method string) *jsonrpc.Error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shutdown {
		return jsonrpc.Errorf(jsonrpc.InvalidRequest, "server is shutting down, %s not allowed", method)
	}
	if method == protocol.MethodInitialize {
		if s.initialized && s.requireInit {
			return jsonrpc.NewError(jsonrpc.InvalidRequest, "server already initialized")
		}
		s.initialized = true
		return nil
	}
	if s.requireInit && !s.initialized {
		return jsonrpc.Errorf(jsonrpc.ServerNotInitialized, "server not initialized, %s not allowed", method)
	}
	if method == protocol.MethodShutdown {
		s.shutdown = true
	}
	return nil
}

type handlerResult struct {
	value any
	err   error
}

func (s *Session) runRequest(ctx context.Context, logger zerolog.Logger, reg Registration, id jsonrpc.ID, params json.RawMessage) {
	defer s.wg.Done()
	start := time.Now()

	// The handler goroutine is not tracked: one that ignores cancellation
	// must not hold up Run once the cancelled reply is sent.
	done := make(chan handlerResult, 1)
	go func() {
		value, err := s.invoke(ctx, reg, params)
		done <- handlerResult{value: value, err: err}
	}()

	var (
		outcome Outcome
		res     handlerResult
	)
	select {
	case res = <-done:
		outcome = classifyOutcome(ctx, res.err)
	case <-ctx.Done():
		outcome = OutcomeCancelled
	}

	var resp *jsonrpc.Message
	switch outcome {
	case OutcomeSuccess:
		var err error
		resp, err = jsonrpc.NewResponse(id, res.value)
		if err != nil {
			outcome = OutcomeError
			resp = jsonrpc.NewErrorResponse(id, jsonrpc.NewError(jsonrpc.InternalError, err.Error()))
		}
	case OutcomeCancelled:
		resp = jsonrpc.NewErrorResponse(id, cancelledError(reg.Method, id))
	default:
		resp = jsonrpc.NewErrorResponse(id, toResponseError(res.err))
	}

	// The entry goes before the response so a client holding the response
	// never observes it.
	s.pending.Remove(id)

	logger.Debug().
		Str("outcome", outcome.String()).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")
	s.reply(logger, resp)
}

// invoke runs a handler, converting a panic into an InternalError.
func (s *Session) invoke(ctx context.Context, reg Registration, params json.RawMessage) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("method", reg.Method).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("handler panicked")
			err = jsonrpc.Errorf(jsonrpc.InternalError, "handler for %s panicked: %v", reg.Method, r)
		}
	}()
	return reg.Handler(ctx, params)
}

func (s *Session) reply(logger zerolog.Logger, msg *jsonrpc.Message) {
	if err := s.writer.Write(msg); err != nil {
		logger.Error().Err(err).Msg("failed to write response")
		s.fail(fmt.Errorf("write response: %w", err))
	}
}

// fail closes a running session with err. The output stream is unusable
// after any write failure.
func (s *Session) fail(err error) {
	if s.cancel != nil {
		s.cancel(err)
	}
}

func (s *Session) cancelRequest(_ context.Context, params json.RawMessage) (any, error) {
	raw := gjson.GetBytes(params, "id")
	if !raw.Exists() {
		return nil, jsonrpc.NewError(jsonrpc.InvalidParams, "cancel request without id")
	}
	id, err := jsonrpc.ParseID([]byte(raw.Raw))
	if err != nil {
		return nil, jsonrpc.NewError(jsonrpc.InvalidParams, err.Error())
	}
	if !s.pending.Cancel(id) {
		s.logger.Debug().Str("id", id.String()).Msg("cancel for unknown request")
	}
	return nil, nil
}
