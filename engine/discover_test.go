package engine

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruffd-lsp/ruffd/settings"
)

// fakeBinary drops an executable file that reports the given version.
func fakeBinary(t *testing.T, dir, version string) string {
	t.Helper()
	path := filepath.Join(dir, toolName)
	script := fmt.Sprintf("#!/bin/sh\necho '%s %s'\n", toolName, version)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func newTestLocator() *Locator {
	l := NewLocator(discard)
	l.lookPath = func(string) (string, error) { return "", errors.New("not on PATH") }
	return l
}

func TestFindFromPathSetting(t *testing.T) {
	dir := t.TempDir()
	bin := fakeBinary(t, dir, "0.4.4")

	l := newTestLocator()
	exe, err := l.Find(settings.Settings{Path: []string{bin}}, MinLinterVersion)
	require.NoError(t, err)
	assert.Equal(t, bin, exe.Path)
	assert.Equal(t, Version{0, 4, 4}, exe.Version)
}

func TestFindSkipsMissingPathEntries(t *testing.T) {
	dir := t.TempDir()
	bin := fakeBinary(t, dir, "0.4.4")

	l := newTestLocator()
	exe, err := l.Find(settings.Settings{
		Path: []string{filepath.Join(dir, "missing"), bin},
	}, MinLinterVersion)
	require.NoError(t, err)
	assert.Equal(t, bin, exe.Path)
}

func TestFindFromInterpreterScripts(t *testing.T) {
	dir := t.TempDir()
	fakeBinary(t, dir, "0.4.4")

	l := newTestLocator()
	l.commandOut = func(name string, args ...string) ([]byte, error) {
		if name == "/usr/bin/python3" {
			return []byte(dir + "\n"), nil
		}
		return exec.Command(name, args...).Output()
	}

	exe, err := l.Find(settings.Settings{Interpreter: []string{"/usr/bin/python3"}}, MinLinterVersion)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, toolName), exe.Path)
}

func TestFindNotFound(t *testing.T) {
	l := newTestLocator()
	_, err := l.Find(settings.Settings{}, MinLinterVersion)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindVersionTooOld(t *testing.T) {
	dir := t.TempDir()
	bin := fakeBinary(t, dir, "0.0.290")

	l := newTestLocator()
	_, err := l.Find(settings.Settings{Path: []string{bin}}, MinFormatterVersion)
	assert.ErrorIs(t, err, ErrVersion)

	// The same binary still satisfies the linter requirement.
	_, err = l.Find(settings.Settings{Path: []string{bin}}, MinLinterVersion)
	assert.NoError(t, err)
}

func TestVersionCacheInvalidatedByMtime(t *testing.T) {
	dir := t.TempDir()
	bin := fakeBinary(t, dir, "0.1.0")

	l := newTestLocator()
	probes := 0
	real := l.commandOut
	l.commandOut = func(name string, args ...string) ([]byte, error) {
		probes++
		return real(name, args...)
	}

	exe, err := l.Find(settings.Settings{Path: []string{bin}}, MinLinterVersion)
	require.NoError(t, err)
	assert.Equal(t, Version{0, 1, 0}, exe.Version)

	// Unchanged binary: cached.
	_, err = l.Find(settings.Settings{Path: []string{bin}}, MinLinterVersion)
	require.NoError(t, err)
	assert.Equal(t, 1, probes)

	// Rewritten binary with a newer mtime: re-probed.
	fakeBinary(t, dir, "0.2.0")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(bin, future, future))

	exe, err = l.Find(settings.Settings{Path: []string{bin}}, MinLinterVersion)
	require.NoError(t, err)
	assert.Equal(t, Version{0, 2, 0}, exe.Version)
	assert.Equal(t, 2, probes)
}

func TestIsStdlibFile(t *testing.T) {
	l := newTestLocator()
	l.commandOut = func(name string, args ...string) ([]byte, error) {
		return []byte("/usr/lib/python3.11\n/usr/lib/python3.11/site-packages\n"), nil
	}

	s := settings.Settings{Interpreter: []string{"/usr/bin/python3"}}
	assert.True(t, l.IsStdlibFile(s, "/usr/lib/python3.11/json/decoder.py"))
	assert.False(t, l.IsStdlibFile(s, "/home/user/project/app.py"))
	assert.False(t, l.IsStdlibFile(settings.Settings{}, "/usr/lib/python3.11/os.py"))
}
