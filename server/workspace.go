package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ruffd-lsp/ruffd/jsonrpc"
	"github.com/ruffd-lsp/ruffd/protocol"
	"github.com/ruffd-lsp/ruffd/settings"
)

// configSection is the settings namespace clients configure this server
// under.
const configSection = "ruffd"

func (s *Server) handleDidChangeConfiguration(ctx context.Context, raw jsonrpc.RawMessage) {
	var params protocol.DidChangeConfigurationParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("didChangeConfiguration", "error", err)
		return
	}

	if u := parsePushedSettings(params.Settings, s.logger); u != nil {
		s.resolver.SetGlobal(u)
	}

	// When the client answers workspace/configuration, per-folder settings
	// are pulled fresh. The pull is a client round trip and must run off the
	// read loop.
	ws := s.clientCaps.Workspace
	if ws != nil && ws.Configuration {
		go s.pullWorkspaceConfiguration(context.Background())
	}
}

// parsePushedSettings decodes the settings payload of a configuration change.
// Clients either push the section object directly or nested under its name.
func parsePushedSettings(raw json.RawMessage, logger *slog.Logger) *settings.UserSettings {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var nested struct {
		Ruffd *settings.UserSettings `json:"ruffd"`
	}
	if err := json.Unmarshal(trimmed, &nested); err == nil && nested.Ruffd != nil {
		if err := nested.Ruffd.Validate(); err != nil {
			logger.Warn("rejecting pushed settings", "error", err)
			return nil
		}
		return nested.Ruffd
	}
	var u settings.UserSettings
	if err := json.Unmarshal(trimmed, &u); err != nil {
		logger.Warn("invalid configuration payload", "error", err)
		return nil
	}
	if err := u.Validate(); err != nil {
		logger.Warn("rejecting pushed settings", "error", err)
		return nil
	}
	return &u
}

// pullWorkspaceConfiguration fetches per-folder settings from the client and
// reseeds the workspace layer.
func (s *Server) pullWorkspaceConfiguration(ctx context.Context) {
	s.mu.Lock()
	folders := s.workspaceFolders
	s.mu.Unlock()
	if len(folders) == 0 || s.client == nil {
		return
	}

	items := make([]protocol.ConfigurationItem, len(folders))
	for i := range folders {
		uri := folders[i].URI
		items[i] = protocol.ConfigurationItem{ScopeURI: &uri, Section: configSection}
	}
	results, err := s.client.Configuration(ctx, &protocol.ConfigurationParams{Items: items})
	if err != nil {
		s.logger.Warn("pulling configuration", "error", err)
		return
	}
	if len(results) != len(folders) {
		s.logger.Warn("configuration result count mismatch", "want", len(folders), "got", len(results))
		return
	}

	entries := make([]settings.WorkspaceSettings, 0, len(folders))
	for i, raw := range results {
		e := settings.WorkspaceSettings{Workspace: folders[i].URI}
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
			if err := json.Unmarshal(trimmed, &e.UserSettings); err != nil {
				s.logger.Warn("invalid workspace configuration", "workspace", folders[i].URI, "error", err)
			}
		}
		if err := e.Validate(); err != nil {
			s.logger.Warn("rejecting workspace configuration", "workspace", folders[i].URI, "error", err)
			e = settings.WorkspaceSettings{Workspace: folders[i].URI}
		}
		entries = append(entries, e)
	}
	s.seedWorkspaces(entries, folders)
}

func (s *Server) handleDidChangeWorkspaceFolders(ctx context.Context, raw jsonrpc.RawMessage) {
	var params protocol.DidChangeWorkspaceFoldersParams
	if err := unmarshalParams(raw, &params); err != nil {
		s.logger.Warn("didChangeWorkspaceFolders", "error", err)
		return
	}

	removed := make(map[protocol.DocumentURI]struct{}, len(params.Event.Removed))
	for _, f := range params.Event.Removed {
		removed[f.URI] = struct{}{}
	}

	s.mu.Lock()
	var folders []protocol.WorkspaceFolder
	for _, f := range s.workspaceFolders {
		if _, gone := removed[f.URI]; !gone {
			folders = append(folders, f)
		}
	}
	folders = append(folders, clampFolders(params.Event.Added)...)
	s.workspaceFolders = folders
	entries := s.wsEntries
	s.mu.Unlock()

	s.seedWorkspaces(entries, folders)
	s.startConfigWatcher()
}
