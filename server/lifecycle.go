package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ruffd-lsp/ruffd/jsonrpc"
	"github.com/ruffd-lsp/ruffd/protocol"
	"github.com/ruffd-lsp/ruffd/settings"
)

// initializationOptions is the client-supplied settings payload. Settings is
// either a single object applied globally or a list of per-workspace objects.
type initializationOptions struct {
	Settings       json.RawMessage        `json:"settings,omitempty"`
	GlobalSettings *settings.UserSettings `json:"globalSettings,omitempty"`
}

func (s *Server) handleInitialize(ctx context.Context, raw jsonrpc.RawMessage) (interface{}, error) {
	var params protocol.InitializeParams
	if err := unmarshalParams(raw, &params); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeInvalidRequest, Message: "server already initialized"}
	}
	s.clientCaps = params.Capabilities
	s.resolveCapable = supportsResolveEdit(params.Capabilities)

	folders := clampFolders(params.WorkspaceFolders)
	if len(folders) == 0 && params.RootURI != nil && *params.RootURI != "" {
		folders = []protocol.WorkspaceFolder{{
			URI:  *params.RootURI,
			Name: path.Base(string(*params.RootURI)),
		}}
	}
	s.workspaceFolders = folders
	s.initialized = true
	s.mu.Unlock()

	s.applyInitializationOptions(params.InitializationOptions, folders)
	s.loadConfigFile(folders)

	s.logger.Info("initialize",
		"folders", len(folders),
		"resolveSupport", s.resolveCapable,
	)

	return &protocol.InitializeResult{
		Capabilities: s.capabilities(),
		ServerInfo: &protocol.ServerInfo{
			Name:    serverName,
			Version: serverVersion,
		},
	}, nil
}

// applyInitializationOptions feeds the client's settings payload into the
// resolver. A settings object applies globally; a settings list maps entries
// to workspace folders.
func (s *Server) applyInitializationOptions(raw json.RawMessage, folders []protocol.WorkspaceFolder) {
	if len(raw) == 0 {
		s.seedWorkspaces(nil, folders)
		return
	}
	var opts initializationOptions
	if err := json.Unmarshal(raw, &opts); err != nil {
		s.logger.Warn("invalid initializationOptions", "error", err)
		s.seedWorkspaces(nil, folders)
		return
	}

	global := opts.GlobalSettings
	var workspaces []settings.WorkspaceSettings

	trimmed := bytes.TrimSpace(opts.Settings)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &workspaces); err != nil {
			s.logger.Warn("invalid workspace settings list", "error", err)
		}
	default:
		var u settings.UserSettings
		if err := json.Unmarshal(trimmed, &u); err != nil {
			s.logger.Warn("invalid settings object", "error", err)
		} else if global == nil {
			global = &u
		}
	}

	if global != nil {
		if err := global.Validate(); err != nil {
			s.logger.Warn("rejecting global settings", "error", err)
			global = nil
		}
	}
	s.resolver.SetGlobal(global)
	s.seedWorkspaces(workspaces, folders)
}

// seedWorkspaces registers one settings entry per workspace folder. Folders
// without an explicit entry get an empty one so path-prefix resolution and
// per-workspace CWD still work.
func (s *Server) seedWorkspaces(entries []settings.WorkspaceSettings, folders []protocol.WorkspaceFolder) {
	s.mu.Lock()
	s.wsEntries = entries
	s.mu.Unlock()

	byURI := make(map[protocol.DocumentURI]settings.WorkspaceSettings, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			s.logger.Warn("rejecting workspace settings", "workspace", e.Workspace, "error", err)
			continue
		}
		byURI[e.Workspace] = e
	}
	ws := make([]settings.WorkspaceSettings, 0, len(folders))
	for _, f := range folders {
		if e, ok := byURI[f.URI]; ok {
			ws = append(ws, e)
			continue
		}
		ws = append(ws, settings.WorkspaceSettings{Workspace: f.URI})
	}
	s.resolver.SetWorkspaces(ws)
}

// loadConfigFile reads the optional server config file from the first
// workspace root.
func (s *Server) loadConfigFile(folders []protocol.WorkspaceFolder) {
	if len(folders) == 0 {
		return
	}
	root := folders[0].URI.Path()
	if root == "" {
		return
	}
	u, err := settings.LoadFile(filepath.Join(root, settings.ConfigFileName))
	if err != nil {
		if errors.Is(err, settings.ErrConfiguration) {
			s.logger.Warn("ignoring invalid config file", "error", err)
		} else {
			s.logger.Warn("reading config file", "error", err)
		}
		return
	}
	s.resolver.SetFile(u)
}

func supportsResolveEdit(caps protocol.ClientCapabilities) bool {
	td := caps.TextDocument
	if td == nil || td.CodeAction == nil || td.CodeAction.ResolveSupport == nil {
		return false
	}
	for _, p := range td.CodeAction.ResolveSupport.Properties {
		if p == "edit" {
			return true
		}
	}
	return false
}

func (s *Server) capabilities() protocol.ServerCapabilities {
	return protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    protocol.SyncIncremental,
			Save:      &protocol.SaveOptions{},
		},
		NotebookDocumentSync: &protocol.NotebookDocumentSyncOptions{
			NotebookSelector: []protocol.NotebookSelector{{
				Cells: []protocol.NotebookCellSelector{{Language: "python"}},
			}},
			Save: true,
		},
		HoverProvider: true,
		CodeActionProvider: &protocol.CodeActionOptions{
			CodeActionKinds: []protocol.CodeActionKind{
				protocol.KindQuickFix,
				protocol.KindSourceFixAll,
				protocol.KindSourceFixAllScoped,
				protocol.KindSourceOrganizeImports,
				protocol.KindSourceOrganizeImportsScoped,
			},
			ResolveProvider: s.resolveCapable,
		},
		DocumentFormattingProvider: true,
		ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
			Commands: []string{
				commandApplyAutofix,
				commandApplyOrganizeImports,
				commandApplyFormat,
			},
		},
		Workspace: &protocol.ServerWorkspaceCapabilities{
			WorkspaceFolders: &protocol.WorkspaceFoldersServerCapabilities{
				Supported:           true,
				ChangeNotifications: true,
			},
		},
	}
}

func (s *Server) handleInitialized(ctx context.Context) {
	// Notifications are handled on the connection's read loop; registration
	// is a round trip to the client, so it must not block here.
	go s.registerConfigurationCapability(context.Background())
	s.startConfigWatcher()
}

// registerConfigurationCapability dynamically subscribes to configuration
// change notifications when the client supports it.
func (s *Server) registerConfigurationCapability(ctx context.Context) {
	ws := s.clientCaps.Workspace
	if ws == nil || ws.DidChangeConfiguration == nil || !ws.DidChangeConfiguration.DynamicRegistration {
		return
	}
	if s.client == nil {
		return
	}
	err := s.client.RegisterCapability(ctx, &protocol.RegistrationParams{
		Registrations: []protocol.Registration{{
			ID:     uuid.NewString(),
			Method: protocol.MethodDidChangeConfiguration,
		}},
	})
	if err != nil {
		s.logger.Warn("registering didChangeConfiguration", "error", err)
	}
}

// startConfigWatcher watches the workspace roots for engine and server config
// file changes and triggers a settings reload plus a full re-lint.
func (s *Server) startConfigWatcher() {
	s.mu.Lock()
	folders := s.workspaceFolders
	old := s.watcher
	s.mu.Unlock()
	if old != nil {
		_ = old.Close()
	}

	var roots []string
	for _, f := range folders {
		if p := f.URI.Path(); p != "" {
			roots = append(roots, p)
		}
	}
	if len(roots) == 0 {
		return
	}

	w, err := settings.NewWatcher(roots, func() {
		s.loadConfigFile(folders)
		s.clearReported()
		s.relintAll()
	}, settings.WithWatcherLogger(s.logger))
	if err != nil {
		s.logger.Warn("starting config watcher", "error", err)
		return
	}
	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()
}

func (s *Server) handleShutdown(ctx context.Context) (interface{}, error) {
	s.mu.Lock()
	s.shutdown = true
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
	s.linter.stop()
	return nil, nil
}

func (s *Server) handleExit() {
	s.mu.Lock()
	down := s.shutdown
	s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
	}
	if down {
		s.exitFunc(0)
	} else {
		s.exitFunc(1)
	}
}
