package settings

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/BurntSushi/toml"

	"github.com/ruffd-lsp/ruffd/protocol"
)

// ConfigFileName is the server's own optional TOML config file, looked up in
// the workspace root.
const ConfigFileName = ".ruffd.toml"

// LoadFile loads the server config file into a UserSettings layer. A missing
// file yields an empty layer; a malformed one is an ErrConfiguration.
func LoadFile(path string) (*UserSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &UserSettings{}, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	u := &UserSettings{}
	if err := toml.Unmarshal(data, u); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfiguration, path, err)
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return u, nil
}

type workspaceEntry struct {
	uri      protocol.DocumentURI
	path     string
	resolved Settings
}

// snapshot is one resolved generation of all layers.
type snapshot struct {
	global     Settings
	workspaces []workspaceEntry // sorted by path length, longest first
}

// Resolver computes resolved Settings from the configured layers:
// defaults, then the server config file, then the client's global settings,
// then the settings of the workspace owning the document. Reads are
// zero-lock; any layer change rebuilds and atomically swaps the snapshot.
type Resolver struct {
	current atomic.Pointer[snapshot]

	mu         sync.Mutex
	file       *UserSettings
	global     *UserSettings
	workspaces []WorkspaceSettings

	lmu       sync.RWMutex
	listeners []func()
}

// NewResolver creates a resolver with only the built-in defaults applied.
func NewResolver() *Resolver {
	r := &Resolver{}
	r.current.Store(&snapshot{global: Defaults()})
	return r
}

// OnChange registers a listener invoked after every snapshot swap.
func (r *Resolver) OnChange(fn func()) {
	r.lmu.Lock()
	defer r.lmu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// SetFile installs the server config file layer.
func (r *Resolver) SetFile(u *UserSettings) {
	r.mu.Lock()
	r.file = u
	r.rebuildLocked()
	r.mu.Unlock()
	r.notify()
}

// SetGlobal installs the client's global settings layer, normally from
// initializationOptions.globalSettings or workspace/didChangeConfiguration.
func (r *Resolver) SetGlobal(u *UserSettings) {
	r.mu.Lock()
	r.global = u
	r.rebuildLocked()
	r.mu.Unlock()
	r.notify()
}

// SetWorkspaces installs per-workspace settings layers.
func (r *Resolver) SetWorkspaces(ws []WorkspaceSettings) {
	r.mu.Lock()
	r.workspaces = ws
	r.rebuildLocked()
	r.mu.Unlock()
	r.notify()
}

func (r *Resolver) rebuildLocked() {
	global := merge(merge(Defaults(), r.file), r.global)

	entries := make([]workspaceEntry, 0, len(r.workspaces))
	for _, ws := range r.workspaces {
		path := ws.Workspace.Path()
		if path == "" {
			continue
		}
		u := ws.UserSettings
		resolved := merge(merge(merge(Defaults(), r.file), r.global), &u)
		resolved.WorkspaceURI = ws.Workspace
		resolved.WorkspacePath = path
		resolved.CWD = path
		entries = append(entries, workspaceEntry{uri: ws.Workspace, path: path, resolved: resolved})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].path) > len(entries[j].path)
	})

	r.current.Store(&snapshot{global: global, workspaces: entries})
}

func (r *Resolver) notify() {
	r.lmu.RLock()
	listeners := r.listeners
	r.lmu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// Global returns the resolved settings with no workspace applied.
func (r *Resolver) Global() Settings {
	return r.current.Load().global
}

// ForDocument returns the resolved settings for the workspace owning the
// given URI, chosen by longest path prefix. Documents outside every
// workspace get the global settings with CWD left to the process default.
func (r *Resolver) ForDocument(uri protocol.DocumentURI) Settings {
	snap := r.current.Load()
	path := uri.Path()
	if path != "" {
		for _, ws := range snap.workspaces {
			if strings.HasPrefix(path, ws.path) {
				return ws.resolved
			}
		}
	}
	// Cell URIs have no filesystem path; fall back to the sole workspace if
	// there is exactly one.
	if path == "" && len(snap.workspaces) == 1 {
		return snap.workspaces[0].resolved
	}
	return snap.global
}

// Workspaces returns the URIs of all configured workspaces.
func (r *Resolver) Workspaces() []protocol.DocumentURI {
	snap := r.current.Load()
	uris := make([]protocol.DocumentURI, 0, len(snap.workspaces))
	for _, ws := range snap.workspaces {
		uris = append(uris, ws.uri)
	}
	return uris
}
