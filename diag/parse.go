// Package diag parses the engine's JSON lint output and translates it into
// LSP diagnostics. It also keeps the per-document registry of published
// violations that code actions are later synthesized from.
package diag

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ruffd-lsp/ruffd/engine"
)

// Location is a 1-based engine source position.
type Location struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Edit is one replacement inside a fix.
type Edit struct {
	Content     string   `json:"content"`
	Location    Location `json:"location"`
	EndLocation Location `json:"end_location"`
}

// Fix is the engine's suggested fix for a violation.
type Fix struct {
	Applicability string `json:"applicability,omitempty"`
	Message       string `json:"message,omitempty"`
	Edits         []Edit `json:"edits"`
}

// Safe reports whether the engine marked the fix as safe to apply without
// review. Naming changed across engine versions.
func (f *Fix) Safe() bool {
	switch strings.ToLower(f.Applicability) {
	case "safe", "automatic", "always":
		return true
	}
	return false
}

// Violation is one engine finding.
type Violation struct {
	Cell        *int     `json:"cell"`
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Location    Location `json:"location"`
	EndLocation Location `json:"end_location"`
	Fix         *Fix     `json:"-"`
	Filename    string   `json:"filename"`
	NoqaRow     int      `json:"noqa_row"`
	URL         string   `json:"url"`
}

// rawFix accepts both fix shapes the engine has produced: the modern edit
// list and the legacy single-edit form.
type rawFix struct {
	Applicability *string `json:"applicability"`
	Message       string  `json:"message"`
	Edits         []Edit  `json:"edits"`

	Content     string    `json:"content"`
	Location    *Location `json:"location"`
	EndLocation *Location `json:"end_location"`
}

func (r *rawFix) normalize() *Fix {
	if r == nil {
		return nil
	}
	if r.Edits == nil {
		// Legacy form: a single edit inline.
		if r.Location == nil || r.EndLocation == nil {
			return nil
		}
		return &Fix{
			Message: r.Message,
			Edits: []Edit{{
				Content:     r.Content,
				Location:    *r.Location,
				EndLocation: *r.EndLocation,
			}},
		}
	}

	fix := &Fix{Message: r.Message, Edits: r.Edits}
	if r.Applicability != nil {
		fix.Applicability = *r.Applicability
		// Engines that report applicability use 1-based edit columns;
		// normalize to 0-based to match the legacy form.
		for i := range fix.Edits {
			fix.Edits[i].Location.Column--
			fix.Edits[i].EndLocation.Column--
		}
	}
	return fix
}

func (v *Violation) UnmarshalJSON(data []byte) error {
	type alias Violation
	aux := struct {
		*alias
		Fix *rawFix `json:"fix"`
	}{alias: (*alias)(v)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	v.Fix = aux.Fix.normalize()
	return nil
}

// ParseCheck decodes the engine's JSON violation array. Empty output means
// no violations.
func ParseCheck(stdout []byte) ([]Violation, error) {
	if len(bytes.TrimSpace(stdout)) == 0 {
		return nil, nil
	}
	var violations []Violation
	if err := json.Unmarshal(stdout, &violations); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrProtocol, err)
	}
	return violations, nil
}

// ClassifyCheck interprets a completed `check` invocation. Parseable stdout
// is a successful lint regardless of exit code, since the engine exits 1
// when it finds violations. Unparseable output is ErrCrashed when the
// process also failed, ErrProtocol when it claimed success.
func ClassifyCheck(result engine.Result) ([]Violation, error) {
	violations, err := ParseCheck(result.Stdout)
	if err == nil {
		return violations, nil
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("%w: exit %d: %s", engine.ErrCrashed, result.ExitCode, strings.TrimSpace(string(result.Stderr)))
	}
	return nil, err
}
