package lsp

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.lsp.dev/protocol"

	"github.com/lex00/wetwire-lsp-go/jsonrpc"
	"github.com/lex00/wetwire-lsp-go/session"
)

// Config configures the LSP server.
type Config struct {
	// Name is the server name reported in the initialize result
	Name string

	// Version is reported alongside Name
	Version string

	// Linter provides diagnostics for documents
	Linter DiagnosticProvider

	// Completer provides completion items
	Completer CompletionProvider

	// HoverDocs provides hover documentation
	HoverDocs HoverProvider

	// Definitions provides go-to-definition support
	Definitions DefinitionProvider

	// Formatter provides whole-document formatting
	Formatter FormattingProvider

	// Actions provides code actions such as quick fixes
	Actions CodeActionProvider

	// Sync selects full or incremental document sync. Zero selects
	// incremental.
	Sync protocol.TextDocumentSyncKind

	Logger zerolog.Logger
}

// Server implements session.LanguageServer on top of the configured
// providers. Operations without a provider keep the default behavior of
// session.UnimplementedServer.
type Server struct {
	session.UnimplementedServer

	config Config
	client session.Client
	docs   *DocumentStore
	logger zerolog.Logger

	mu         sync.Mutex
	clientName string
	shutdown   bool
}

var _ session.LanguageServer = (*Server)(nil)

// NewServer creates a new LSP server with the given configuration. client
// receives published diagnostics.
func NewServer(config Config, client session.Client) *Server {
	return &Server{
		config: config,
		client: client,
		docs:   NewDocumentStore(),
		logger: config.Logger.With().Str("component", "lsp").Logger(),
	}
}

// Factory returns a session.ServerFactory creating one Server per session.
func Factory(config Config) session.ServerFactory {
	return func(client session.Client) session.LanguageServer {
		return NewServer(config, client)
	}
}

// Name returns the server name.
func (s *Server) Name() string {
	return s.config.Name
}

// Documents returns the open document store.
func (s *Server) Documents() *DocumentStore {
	return s.docs
}

// ClientName returns the client name sent with initialize, if any.
func (s *Server) ClientName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientName
}

// IsShutdown reports whether shutdown has been requested.
func (s *Server) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func (s *Server) syncKind() protocol.TextDocumentSyncKind {
	if s.config.Sync == protocol.TextDocumentSyncKindNone {
		return protocol.TextDocumentSyncKindIncremental
	}
	return s.config.Sync
}

// Capabilities derives the server capabilities from the configured
// providers.
func (s *Server) Capabilities() protocol.ServerCapabilities {
	caps := protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    s.syncKind(),
			Save:      &protocol.SaveOptions{IncludeText: true},
		},
	}
	if s.config.Completer != nil {
		caps.CompletionProvider = &protocol.CompletionOptions{}
	}
	if s.config.HoverDocs != nil {
		caps.HoverProvider = true
	}
	if s.config.Definitions != nil {
		caps.DefinitionProvider = true
	}
	if s.config.Formatter != nil {
		caps.DocumentFormattingProvider = true
	}
	if s.config.Actions != nil {
		caps.CodeActionProvider = true
	}
	return caps
}

func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	if params.ClientInfo != nil {
		s.mu.Lock()
		s.clientName = params.ClientInfo.Name
		s.mu.Unlock()
		s.logger.Info().Str("client", params.ClientInfo.Name).Str("client_version", params.ClientInfo.Version).Msg("initialize")
	}
	return &protocol.InitializeResult{
		Capabilities: s.Capabilities(),
		ServerInfo: &protocol.ServerInfo{
			Name:    s.config.Name,
			Version: s.config.Version,
		},
	}, nil
}

func (s *Server) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	s.logger.Debug().Msg("client initialized")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	s.logger.Info().Int("open_documents", s.docs.Len()).Msg("shutdown")
	return nil
}

func (s *Server) SetTrace(ctx context.Context, params *protocol.SetTraceParams) error {
	s.logger.Debug().Str("value", string(params.Value)).Msg("trace level changed")
	return nil
}

func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	item := params.TextDocument
	doc := s.docs.Open(item.URI, string(item.LanguageID), int32(item.Version), item.Text)
	return s.publish(ctx, doc)
}

func (s *Server) DidChange(ctx context.Context, params *session.DidChangeTextDocumentParams) error {
	full := s.syncKind() == protocol.TextDocumentSyncKindFull
	changes := make([]TextChange, 0, len(params.ContentChanges))
	for _, c := range params.ContentChanges {
		// Full sync ignores ranges; a change without one replaces the text.
		if full || c.Range == nil {
			changes = append(changes, TextChange{Text: c.Text})
			continue
		}
		rng := *c.Range
		changes = append(changes, TextChange{Range: &rng, Text: c.Text})
	}

	doc, err := s.docs.Change(params.TextDocument.URI, int32(params.TextDocument.Version), changes)
	if err != nil {
		return err
	}
	return s.publish(ctx, doc)
}

func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	u := params.TextDocument.URI
	doc, ok := s.docs.Get(u)
	if !ok {
		return fmt.Errorf("%s: %w", u, ErrDocumentNotOpen)
	}
	if params.Text != "" && params.Text != doc.Text {
		var err error
		doc, err = s.docs.Change(u, doc.Version, []TextChange{{Text: params.Text}})
		if err != nil {
			return err
		}
	}
	return s.publish(ctx, doc)
}

func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	u := params.TextDocument.URI
	if !s.docs.Close(u) {
		return nil
	}
	if s.config.Linter == nil {
		return nil
	}
	return s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         u,
		Diagnostics: []protocol.Diagnostic{},
	})
}

// publish runs the linter over doc and sends the result to the client.
func (s *Server) publish(ctx context.Context, doc *Document) error {
	if s.config.Linter == nil {
		return nil
	}
	diags, err := s.config.Linter.Diagnose(ctx, doc)
	if err != nil {
		return fmt.Errorf("diagnose %s: %w", doc.URI, err)
	}
	if diags == nil {
		diags = []protocol.Diagnostic{}
	}
	s.logger.Debug().Str("uri", string(doc.URI)).Int("diagnostics", len(diags)).Msg("publishing diagnostics")
	return s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     uint32(doc.Version),
		Diagnostics: diags,
	})
}

// document returns the open document or an InvalidParams error.
func (s *Server) document(u protocol.DocumentURI) (*Document, error) {
	doc, ok := s.docs.Get(u)
	if !ok {
		return nil, jsonrpc.Errorf(jsonrpc.InvalidParams, "%s: %v", u, ErrDocumentNotOpen)
	}
	return doc, nil
}

func (s *Server) Completion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	if s.config.Completer == nil {
		return &protocol.CompletionList{Items: []protocol.CompletionItem{}}, nil
	}
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	items, err := s.config.Completer.Complete(ctx, doc, params.Position)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []protocol.CompletionItem{}
	}
	return &protocol.CompletionList{Items: items}, nil
}

func (s *Server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	if s.config.HoverDocs == nil {
		return nil, nil
	}
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	return s.config.HoverDocs.Hover(ctx, doc, params.Position)
}

func (s *Server) Definition(ctx context.Context, params *protocol.DefinitionParams) ([]protocol.Location, error) {
	if s.config.Definitions == nil {
		return []protocol.Location{}, nil
	}
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	return s.config.Definitions.Definition(ctx, doc, params.Position)
}

func (s *Server) Formatting(ctx context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	if s.config.Formatter == nil {
		return []protocol.TextEdit{}, nil
	}
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	return s.config.Formatter.Format(ctx, doc, params.Options)
}

func (s *Server) CodeAction(ctx context.Context, params *protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	if s.config.Actions == nil {
		return []protocol.CodeAction{}, nil
	}
	doc, err := s.document(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	return s.config.Actions.CodeActions(ctx, doc, params.Range, params.Context.Diagnostics)
}
