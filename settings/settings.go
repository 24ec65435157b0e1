// Package settings resolves the server's layered configuration. Values come
// from built-in defaults, an optional server config file, the client's
// initialization options, and per-workspace settings; the resolved snapshot
// for a document is immutable and swapped atomically when any layer changes.
package settings

import (
	"errors"
	"fmt"

	"github.com/ruffd-lsp/ruffd/protocol"
)

// ErrConfiguration indicates an invalid or unusable configuration value.
var ErrConfiguration = errors.New("settings: invalid configuration")

// Run modes for the linter.
const (
	RunOnType = "onType"
	RunOnSave = "onSave"
)

// Settings is a fully resolved, immutable configuration snapshot for one
// document or workspace. All layering has already been applied.
type Settings struct {
	CWD           string
	WorkspacePath string
	WorkspaceURI  protocol.DocumentURI

	LogLevel string

	Path        []string
	Interpreter []string

	LintEnable bool
	LintArgs   []string
	LintRun    string

	FormatArgs []string

	OrganizeImports bool
	FixAll          bool

	FixViolationEnable       bool
	FixViolationUnsafe       bool
	DisableRuleCommentEnable bool

	ShowSyntaxErrors      bool
	IgnoreStandardLibrary bool
}

// UserSettings is the wire shape of client-supplied settings: every field is
// optional so that unset values fall through to the layer below. The same
// struct decodes the server's TOML config file.
type UserSettings struct {
	LogLevel *string `json:"logLevel,omitempty" toml:"logLevel"`

	Path        []string `json:"path,omitempty" toml:"path"`
	Interpreter []string `json:"interpreter,omitempty" toml:"interpreter"`

	// Args and Run are legacy aliases for lint.args and lint.run; the
	// namespaced form wins when both are present.
	Args []string `json:"args,omitempty" toml:"args"`
	Run  *string  `json:"run,omitempty" toml:"run"`

	Lint       *LintUserSettings       `json:"lint,omitempty" toml:"lint"`
	Format     *FormatUserSettings     `json:"format,omitempty" toml:"format"`
	CodeAction *CodeActionUserSettings `json:"codeAction,omitempty" toml:"codeAction"`

	OrganizeImports       *bool `json:"organizeImports,omitempty" toml:"organizeImports"`
	FixAll                *bool `json:"fixAll,omitempty" toml:"fixAll"`
	ShowSyntaxErrors      *bool `json:"showSyntaxErrors,omitempty" toml:"showSyntaxErrors"`
	IgnoreStandardLibrary *bool `json:"ignoreStandardLibrary,omitempty" toml:"ignoreStandardLibrary"`
}

type LintUserSettings struct {
	Enable *bool    `json:"enable,omitempty" toml:"enable"`
	Args   []string `json:"args,omitempty" toml:"args"`
	Run    *string  `json:"run,omitempty" toml:"run"`
}

type FormatUserSettings struct {
	Args []string `json:"args,omitempty" toml:"args"`
}

type CodeActionUserSettings struct {
	FixViolation       *CodeActionToggle `json:"fixViolation,omitempty" toml:"fixViolation"`
	DisableRuleComment *CodeActionToggle `json:"disableRuleComment,omitempty" toml:"disableRuleComment"`
}

type CodeActionToggle struct {
	Enable *bool `json:"enable,omitempty" toml:"enable"`
	Unsafe *bool `json:"unsafe,omitempty" toml:"unsafe"`
}

// WorkspaceSettings pairs user settings with the workspace they apply to.
type WorkspaceSettings struct {
	Workspace protocol.DocumentURI `json:"workspace,omitempty"`
	UserSettings
}

// Validate implements the config-file validation hook.
func (u *UserSettings) Validate() error {
	check := func(run *string) error {
		if run != nil && *run != RunOnType && *run != RunOnSave {
			return fmt.Errorf("%w: run must be %q or %q, got %q", ErrConfiguration, RunOnType, RunOnSave, *run)
		}
		return nil
	}
	if err := check(u.Run); err != nil {
		return err
	}
	if u.Lint != nil {
		if err := check(u.Lint.Run); err != nil {
			return err
		}
	}
	if u.LogLevel != nil {
		switch *u.LogLevel {
		case "debug", "info", "warn", "warning", "error":
		default:
			return fmt.Errorf("%w: unknown logLevel %q", ErrConfiguration, *u.LogLevel)
		}
	}
	return nil
}

// Defaults returns the built-in base layer.
func Defaults() Settings {
	return Settings{
		LogLevel:                 "error",
		LintEnable:               true,
		LintRun:                  RunOnType,
		OrganizeImports:          true,
		FixAll:                   true,
		FixViolationEnable:       true,
		FixViolationUnsafe:       false,
		DisableRuleCommentEnable: true,
		ShowSyntaxErrors:         true,
		IgnoreStandardLibrary:    true,
	}
}

// merge overlays the non-nil fields of u onto base and returns the result.
func merge(base Settings, u *UserSettings) Settings {
	if u == nil {
		return base
	}
	out := base

	if u.LogLevel != nil {
		out.LogLevel = *u.LogLevel
	}
	if u.Path != nil {
		out.Path = append([]string(nil), u.Path...)
	}
	if u.Interpreter != nil {
		out.Interpreter = append([]string(nil), u.Interpreter...)
	}

	// Legacy aliases first, namespaced values override.
	if u.Args != nil {
		out.LintArgs = append([]string(nil), u.Args...)
	}
	if u.Run != nil {
		out.LintRun = *u.Run
	}
	if u.Lint != nil {
		if u.Lint.Enable != nil {
			out.LintEnable = *u.Lint.Enable
		}
		if u.Lint.Args != nil {
			out.LintArgs = append([]string(nil), u.Lint.Args...)
		}
		if u.Lint.Run != nil {
			out.LintRun = *u.Lint.Run
		}
	}
	if u.Format != nil && u.Format.Args != nil {
		out.FormatArgs = append([]string(nil), u.Format.Args...)
	}
	if u.CodeAction != nil {
		if fv := u.CodeAction.FixViolation; fv != nil {
			if fv.Enable != nil {
				out.FixViolationEnable = *fv.Enable
			}
			if fv.Unsafe != nil {
				out.FixViolationUnsafe = *fv.Unsafe
			}
		}
		if dr := u.CodeAction.DisableRuleComment; dr != nil && dr.Enable != nil {
			out.DisableRuleCommentEnable = *dr.Enable
		}
	}

	if u.OrganizeImports != nil {
		out.OrganizeImports = *u.OrganizeImports
	}
	if u.FixAll != nil {
		out.FixAll = *u.FixAll
	}
	if u.ShowSyntaxErrors != nil {
		out.ShowSyntaxErrors = *u.ShowSyntaxErrors
	}
	if u.IgnoreStandardLibrary != nil {
		out.IgnoreStandardLibrary = *u.IgnoreStandardLibrary
	}
	return out
}
