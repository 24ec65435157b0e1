package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruffd-lsp/ruffd/protocol"
)

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func TestDefaults(t *testing.T) {
	r := NewResolver()
	s := r.Global()

	assert.True(t, s.LintEnable)
	assert.Equal(t, RunOnType, s.LintRun)
	assert.True(t, s.FixAll)
	assert.True(t, s.OrganizeImports)
	assert.True(t, s.FixViolationEnable)
	assert.False(t, s.FixViolationUnsafe)
	assert.True(t, s.DisableRuleCommentEnable)
	assert.True(t, s.ShowSyntaxErrors)
	assert.True(t, s.IgnoreStandardLibrary)
	assert.Equal(t, "error", s.LogLevel)
}

func TestGlobalLayerOverridesDefaults(t *testing.T) {
	r := NewResolver()
	r.SetGlobal(&UserSettings{
		LogLevel: strp("debug"),
		Lint:     &LintUserSettings{Enable: boolp(false), Args: []string{"--select", "E"}},
	})

	s := r.Global()
	assert.Equal(t, "debug", s.LogLevel)
	assert.False(t, s.LintEnable)
	assert.Equal(t, []string{"--select", "E"}, s.LintArgs)
}

func TestLegacyAliases(t *testing.T) {
	r := NewResolver()

	// Legacy args/run apply when the namespaced form is absent.
	r.SetGlobal(&UserSettings{Args: []string{"--ignore", "E501"}, Run: strp(RunOnSave)})
	s := r.Global()
	assert.Equal(t, []string{"--ignore", "E501"}, s.LintArgs)
	assert.Equal(t, RunOnSave, s.LintRun)

	// Namespaced form wins over the alias.
	r.SetGlobal(&UserSettings{
		Args: []string{"--ignore", "E501"},
		Run:  strp(RunOnSave),
		Lint: &LintUserSettings{Args: []string{"--select", "F"}, Run: strp(RunOnType)},
	})
	s = r.Global()
	assert.Equal(t, []string{"--select", "F"}, s.LintArgs)
	assert.Equal(t, RunOnType, s.LintRun)
}

func TestWorkspaceLongestPrefix(t *testing.T) {
	r := NewResolver()
	r.SetWorkspaces([]WorkspaceSettings{
		{Workspace: "file:///repo", UserSettings: UserSettings{Lint: &LintUserSettings{Args: []string{"--select", "E"}}}},
		{Workspace: "file:///repo/sub", UserSettings: UserSettings{Lint: &LintUserSettings{Args: []string{"--select", "F"}}}},
	})

	s := r.ForDocument("file:///repo/sub/mod.py")
	assert.Equal(t, []string{"--select", "F"}, s.LintArgs)
	assert.Equal(t, protocol.DocumentURI("file:///repo/sub"), s.WorkspaceURI)

	s = r.ForDocument("file:///repo/other.py")
	assert.Equal(t, []string{"--select", "E"}, s.LintArgs)

	// Outside every workspace: global settings apply.
	s = r.ForDocument("file:///elsewhere/x.py")
	assert.Empty(t, s.LintArgs)
	assert.Empty(t, s.WorkspacePath)
}

func TestWorkspaceInheritsGlobal(t *testing.T) {
	r := NewResolver()
	r.SetGlobal(&UserSettings{LogLevel: strp("info")})
	r.SetWorkspaces([]WorkspaceSettings{
		{Workspace: "file:///repo", UserSettings: UserSettings{FixAll: boolp(false)}},
	})

	s := r.ForDocument("file:///repo/a.py")
	assert.Equal(t, "info", s.LogLevel)
	assert.False(t, s.FixAll)
	assert.Equal(t, s.WorkspacePath, s.CWD)
}

func TestCellURIFallsBackToSoleWorkspace(t *testing.T) {
	r := NewResolver()
	r.SetWorkspaces([]WorkspaceSettings{
		{Workspace: "file:///repo", UserSettings: UserSettings{Lint: &LintUserSettings{Args: []string{"--select", "I"}}}},
	})

	s := r.ForDocument("vscode-notebook-cell:/repo/nb.ipynb#1")
	assert.Equal(t, []string{"--select", "I"}, s.LintArgs)
}

func TestOnChangeFires(t *testing.T) {
	r := NewResolver()
	fired := 0
	r.OnChange(func() { fired++ })

	r.SetGlobal(&UserSettings{})
	r.SetWorkspaces(nil)
	assert.Equal(t, 2, fired)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`
logLevel = "info"

[lint]
args = ["--select", "E,F"]
run = "onSave"
`), 0o644))

	u, err := LoadFile(path)
	require.NoError(t, err)

	r := NewResolver()
	r.SetFile(u)
	s := r.Global()
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, []string{"--select", "E,F"}, s.LintArgs)
	assert.Equal(t, RunOnSave, s.LintRun)
}

func TestLoadFileMissingIsEmptyLayer(t *testing.T) {
	u, err := LoadFile(filepath.Join(t.TempDir(), ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, &UserSettings{}, u)
}

func TestLoadFileInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(`run = "never"`), 0o644))

	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrConfiguration)

	require.NoError(t, os.WriteFile(path, []byte(`lint = nonsense`), 0o644))
	_, err = LoadFile(path)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestWatcherFiresOnEngineConfigChange(t *testing.T) {
	dir := t.TempDir()
	reload := make(chan struct{}, 1)

	w, err := NewWatcher([]string{dir}, func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	}, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte("[tool.ruff]\n"), 0o644))

	select {
	case <-reload:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not fire for pyproject.toml change")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	reload := make(chan struct{}, 1)

	w, err := NewWatcher([]string{dir}, func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	}, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	select {
	case <-reload:
		t.Fatal("watcher fired for an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}
