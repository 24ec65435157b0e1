package engine

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ruffd-lsp/ruffd/settings"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCheckArgsBase(t *testing.T) {
	exe := Executable{Path: "/usr/bin/ruff", Version: Version{0, 4, 4}}
	got := CheckArgs(exe, settings.Settings{}, "/ws/a.py", nil, "", discard)
	assert.Equal(t, []string{
		"--force-exclude", "--no-cache", "--no-fix", "--quiet",
		"--output-format", "json", "-",
		"--stdin-filename", "/ws/a.py",
	}, got)
}

func TestCheckArgsFiltersUnsupported(t *testing.T) {
	exe := Executable{Version: Version{0, 4, 4}}
	s := settings.Settings{LintArgs: []string{"--fix", "--watch", "--select", "E501", "--exit-zero"}}
	got := CheckArgs(exe, s, "", nil, "", discard)
	assert.Equal(t, []string{
		"--force-exclude", "--no-cache", "--no-fix", "--quiet",
		"--output-format", "json", "-",
		"--select", "E501",
	}, got)
}

func TestCheckArgsOnlyDropsSelection(t *testing.T) {
	exe := Executable{Version: Version{0, 4, 4}}
	s := settings.Settings{LintArgs: []string{
		"--select", "E,F",
		"--extend-ignore=E501",
		"--line-length", "120",
	}}
	got := CheckArgs(exe, s, "/ws/a.py", []string{"--fix"}, "I001", discard)
	assert.Equal(t, []string{
		"--force-exclude", "--no-cache", "--no-fix", "--quiet",
		"--output-format", "json", "-",
		"--fix",
		"--line-length", "120",
		"--select", "I001",
		"--stdin-filename", "/ws/a.py",
	}, got)
}

func TestCheckArgsLegacyOutputFormat(t *testing.T) {
	exe := Executable{Version: Version{0, 0, 200}}
	got := CheckArgs(exe, settings.Settings{}, "", nil, "", discard)
	assert.Contains(t, got, "--format")
	assert.NotContains(t, got, "--output-format")
}

func TestFormatArgs(t *testing.T) {
	s := settings.Settings{FormatArgs: []string{"--line-length", "100", "--quiet", "--verbose"}}
	got := FormatArgs(s, "/ws/a.py", discard)
	assert.Equal(t, []string{
		"format", "--force-exclude", "--quiet", "--stdin-filename", "/ws/a.py",
		"--line-length", "100",
	}, got)
}
