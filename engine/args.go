package engine

import (
	"log/slog"
	"strings"

	"github.com/ruffd-lsp/ruffd/settings"
)

// checkArgs are passed to every `check` invocation. The engine reads source
// from stdin, never writes fixes itself, and reports violations as JSON.
var checkArgs = []string{
	"--force-exclude",
	"--no-cache",
	"--no-fix",
	"--quiet",
	"--output-format",
	"json",
	"-",
}

// unsupportedCheckArgs are stripped from user-configured lint args: they
// either duplicate enforced behavior or contradict it.
var unsupportedCheckArgs = map[string]struct{}{
	"--force-exclude":        {},
	"--no-cache":             {},
	"--no-fix":               {},
	"--quiet":                {},
	"--diff":                 {},
	"--exit-non-zero-on-fix": {},
	"-e":                     {},
	"--exit-zero":            {},
	"--fix":                  {},
	"--fix-only":             {},
	"-h":                     {},
	"--help":                 {},
	"--no-force-exclude":     {},
	"--show-files":           {},
	"--show-fixes":           {},
	"--show-settings":        {},
	"--show-source":          {},
	"--silent":               {},
	"--statistics":           {},
	"--verbose":              {},
	"-w":                     {},
	"--watch":                {},
}

// unsupportedFormatArgs are stripped from user-configured format args.
var unsupportedFormatArgs = map[string]struct{}{
	"--force-exclude":    {},
	"--quiet":            {},
	"-h":                 {},
	"--help":             {},
	"--no-force-exclude": {},
	"--silent":           {},
	"--verbose":          {},
}

// selectionArgs override a single-rule run and are skipped, with their value,
// when an `only` selector is in play.
var selectionArgs = map[string]struct{}{
	"--select":        {},
	"--extend-select": {},
	"--ignore":        {},
	"--extend-ignore": {},
}

// CheckArgs builds the argument vector for a `check` run. extraArgs are
// trusted internal additions (e.g. fix flags for organize-imports); user
// lint args are filtered against the unsupported list. When only is
// non-empty, user rule-selection args are dropped and the single rule is
// selected instead.
func CheckArgs(exe Executable, s settings.Settings, stdinFilename string, extraArgs []string, only string, logger *slog.Logger) []string {
	argv := make([]string, 0, len(checkArgs)+len(extraArgs)+len(s.LintArgs)+4)
	argv = append(argv, checkArgs...)
	argv = append(argv, extraArgs...)

	skipNext := false
	for _, arg := range s.LintArgs {
		if skipNext {
			skipNext = false
			continue
		}
		if _, bad := unsupportedCheckArgs[arg]; bad {
			logger.Warn("ignoring unsupported lint argument", "arg", arg)
			continue
		}
		if only != "" {
			if _, sel := selectionArgs[arg]; sel {
				skipNext = true
				continue
			}
			if name, _, found := strings.Cut(arg, "="); found {
				if _, sel := selectionArgs[name]; sel {
					continue
				}
			}
		}
		argv = append(argv, arg)
	}

	// Engines predating --output-format only understand --format.
	if !exe.Version.AtLeast(MinOutputFormatVersion) {
		for i, arg := range argv {
			if arg == "--output-format" {
				argv[i] = "--format"
				break
			}
		}
	}

	if only != "" {
		argv = append(argv, "--select", only)
	}
	if stdinFilename != "" {
		argv = append(argv, "--stdin-filename", stdinFilename)
	}
	return argv
}

// FormatArgs builds the argument vector for a `format` run.
func FormatArgs(s settings.Settings, stdinFilename string, logger *slog.Logger) []string {
	argv := []string{"format", "--force-exclude", "--quiet", "--stdin-filename", stdinFilename}
	for _, arg := range s.FormatArgs {
		if _, bad := unsupportedFormatArgs[arg]; bad {
			logger.Warn("ignoring unsupported format argument", "arg", arg)
			continue
		}
		argv = append(argv, arg)
	}
	return argv
}
