// Package server implements the LSP session: lifecycle, document sync, lint
// scheduling, code actions, formatting, and commands, dispatched over a
// JSON-RPC connection.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ruffd-lsp/ruffd/diag"
	"github.com/ruffd-lsp/ruffd/document"
	"github.com/ruffd-lsp/ruffd/engine"
	"github.com/ruffd-lsp/ruffd/jsonrpc"
	"github.com/ruffd-lsp/ruffd/protocol"
	"github.com/ruffd-lsp/ruffd/settings"
)

const (
	serverName    = "ruffd"
	serverVersion = "0.1.0"
)

// Server owns the session state for one client connection.
type Server struct {
	logger *slog.Logger

	conn   *jsonrpc.Conn
	client *ClientProxy

	store    *document.Store
	resolver *settings.Resolver
	registry *diag.Registry
	locator  *engine.Locator
	runner   *engine.Runner
	linter   *linter

	watcher  *settings.Watcher
	logLevel *slog.LevelVar

	mu               sync.Mutex
	initialized      bool
	shutdown         bool
	clientCaps       protocol.ClientCapabilities
	workspaceFolders []protocol.WorkspaceFolder
	wsEntries        []settings.WorkspaceSettings
	resolveCapable   bool
	reported         map[string]struct{}

	exitFunc func(code int)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithLogLevel attaches the level var backing the logger's handler so the
// resolved logLevel setting can adjust verbosity at runtime.
func WithLogLevel(v *slog.LevelVar) Option {
	return func(s *Server) { s.logLevel = v }
}

// WithEngineTimeout bounds each engine invocation.
func WithEngineTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.runner = engine.NewRunner(s.logger, engine.WithTimeout(d))
	}
}

// New creates a Server. The connection and client proxy are attached by Serve.
func New(opts ...Option) *Server {
	s := &Server{
		logger:   slog.Default(),
		store:    document.NewStore(),
		resolver: settings.NewResolver(),
		registry: diag.NewRegistry(),
		reported: make(map[string]struct{}),
		exitFunc: os.Exit,
	}
	for _, o := range opts {
		o(s)
	}
	s.locator = engine.NewLocator(s.logger)
	if s.runner == nil {
		s.runner = engine.NewRunner(s.logger)
	}
	s.linter = newLinter(s)

	s.resolver.OnChange(func() {
		s.applyLogLevel()
		s.clearReported()
		s.relintAll()
	})
	return s
}

// applyLogLevel pushes the resolved logLevel setting into the handler's
// level var.
func (s *Server) applyLogLevel() {
	if s.logLevel == nil {
		return
	}
	name := s.resolver.Global().LogLevel
	if name == "warning" {
		name = "warn"
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		s.logger.Warn("unknown logLevel", "value", name)
		return
	}
	s.logLevel.Set(l)
}

// dispatch routes a request to its handler. Requests other than initialize are
// rejected until the session is initialized; after shutdown only exit is
// accepted.
func (s *Server) dispatch(ctx context.Context, method string, params jsonrpc.RawMessage) (interface{}, error) {
	s.mu.Lock()
	initialized := s.initialized
	down := s.shutdown
	s.mu.Unlock()

	if down {
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidRequest, Message: "server is shutting down"}
	}

	switch method {
	case protocol.MethodInitialize:
		return s.handleInitialize(ctx, params)
	case protocol.MethodShutdown:
		return s.handleShutdown(ctx)
	}

	if !initialized {
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeServerNotInitialized, Message: "server not initialized"}
	}

	switch method {
	case protocol.MethodHover:
		return s.handleHover(ctx, params)
	case protocol.MethodCodeAction:
		return s.handleCodeAction(ctx, params)
	case protocol.MethodCodeActionResolve:
		return s.handleCodeActionResolve(ctx, params)
	case protocol.MethodFormatting:
		return s.handleFormatting(ctx, params)
	case protocol.MethodExecuteCommand:
		return s.handleExecuteCommand(ctx, params)
	default:
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: "method not found: " + method}
	}
}

// dispatchNotification routes a notification. Unknown notifications are
// silently dropped per the protocol.
func (s *Server) dispatchNotification(ctx context.Context, method string, params jsonrpc.RawMessage) {
	switch method {
	case protocol.MethodInitialized:
		s.handleInitialized(ctx)
		return
	case protocol.MethodExit:
		s.handleExit()
		return
	case protocol.MethodSetTrace:
		return
	}

	s.mu.Lock()
	initialized := s.initialized
	s.mu.Unlock()
	if !initialized {
		return
	}

	switch method {
	case protocol.MethodDidOpen:
		s.handleDidOpen(ctx, params)
	case protocol.MethodDidChange:
		s.handleDidChange(ctx, params)
	case protocol.MethodDidClose:
		s.handleDidClose(ctx, params)
	case protocol.MethodDidSave:
		s.handleDidSave(ctx, params)
	case protocol.MethodNotebookDidOpen:
		s.handleNotebookDidOpen(ctx, params)
	case protocol.MethodNotebookDidChange:
		s.handleNotebookDidChange(ctx, params)
	case protocol.MethodNotebookDidSave:
		s.handleNotebookDidSave(ctx, params)
	case protocol.MethodNotebookDidClose:
		s.handleNotebookDidClose(ctx, params)
	case protocol.MethodDidChangeConfiguration:
		s.handleDidChangeConfiguration(ctx, params)
	case protocol.MethodDidChangeWorkspaceFolders:
		s.handleDidChangeWorkspaceFolders(ctx, params)
	default:
		s.logger.Debug("ignoring notification", "method", method)
	}
}

func unmarshalParams(params jsonrpc.RawMessage, v interface{}) error {
	if len(params) == 0 {
		return &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(params, v); err != nil {
		return &jsonrpc.Error{Code: jsonrpc.CodeInvalidParams, Message: "invalid params: " + err.Error()}
	}
	return nil
}

// reportOnce shows an error message to the user the first time it occurs.
// The seen set is cleared whenever configuration changes so a fixed setup
// surfaces fresh problems again.
func (s *Server) reportOnce(ctx context.Context, msg string) {
	s.mu.Lock()
	_, seen := s.reported[msg]
	if !seen {
		s.reported[msg] = struct{}{}
	}
	s.mu.Unlock()
	if seen {
		return
	}
	s.logger.Error(msg)
	if s.client != nil {
		_ = s.client.ShowMessage(ctx, protocol.Error, msg)
	}
}

func (s *Server) clearReported() {
	s.mu.Lock()
	s.reported = make(map[string]struct{})
	s.mu.Unlock()
}

// relintAll reschedules a lint for every open text document and notebook.
func (s *Server) relintAll() {
	if s.linter == nil {
		return
	}
	for _, uri := range s.store.URIs() {
		doc := s.store.Get(uri)
		if doc == nil || doc.Kind() == document.KindCell {
			continue
		}
		s.linter.schedule(uri, triggerOpen)
	}
	for _, nb := range s.openNotebooks() {
		s.linter.schedule(nb, triggerOpen)
	}
}

// openNotebooks lists distinct notebook URIs derived from open cell documents.
func (s *Server) openNotebooks() []protocol.DocumentURI {
	seen := make(map[protocol.DocumentURI]struct{})
	var uris []protocol.DocumentURI
	for _, uri := range s.store.URIs() {
		nb := s.store.NotebookFor(uri)
		if nb == nil {
			continue
		}
		if _, ok := seen[nb.URI()]; ok {
			continue
		}
		seen[nb.URI()] = struct{}{}
		uris = append(uris, nb.URI())
	}
	return uris
}

// documentSettings resolves settings for a document, mapping cell URIs to
// their notebook so cells inherit the notebook's workspace configuration.
func (s *Server) documentSettings(uri protocol.DocumentURI) settings.Settings {
	if nb := s.store.NotebookFor(uri); nb != nil {
		return s.resolver.ForDocument(nb.URI())
	}
	return s.resolver.ForDocument(uri)
}

func clampFolders(folders []protocol.WorkspaceFolder) []protocol.WorkspaceFolder {
	out := make([]protocol.WorkspaceFolder, 0, len(folders))
	for _, f := range folders {
		if f.URI != "" {
			out = append(out, f)
		}
	}
	return out
}
