package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ruffd-lsp/ruffd/diag"
	"github.com/ruffd-lsp/ruffd/document"
	"github.com/ruffd-lsp/ruffd/engine"
	"github.com/ruffd-lsp/ruffd/protocol"
	"github.com/ruffd-lsp/ruffd/settings"
)

type lintTrigger int

const (
	triggerOpen lintTrigger = iota
	triggerChange
	triggerSave
)

// lintDebounce delays onType lint runs so a typing burst produces one engine
// invocation instead of one per keystroke.
const lintDebounce = 250 * time.Millisecond

// linter schedules lint runs per document. At most one run per URI is in
// flight; a newer run cancels the older one, and results are discarded when
// the document changed while the engine ran.
type linter struct {
	s *Server

	mu       sync.Mutex
	timers   map[protocol.DocumentURI]*time.Timer
	inflight map[protocol.DocumentURI]*lintRun
	stopped  bool
}

// lintRun identifies one in-flight engine invocation.
type lintRun struct {
	cancel context.CancelFunc
}

func newLinter(s *Server) *linter {
	return &linter{
		s:        s,
		timers:   make(map[protocol.DocumentURI]*time.Timer),
		inflight: make(map[protocol.DocumentURI]*lintRun),
	}
}

// schedule queues a lint run for a text document or notebook URI.
func (l *linter) schedule(uri protocol.DocumentURI, trigger lintTrigger) {
	set := l.s.documentSettings(uri)
	if !set.LintEnable {
		l.cancel(uri)
		l.clearFor(uri)
		return
	}
	if trigger == triggerChange && set.LintRun != settings.RunOnType {
		return
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	if t, ok := l.timers[uri]; ok {
		t.Stop()
		delete(l.timers, uri)
	}
	if trigger == triggerChange {
		l.timers[uri] = time.AfterFunc(lintDebounce, func() {
			l.mu.Lock()
			delete(l.timers, uri)
			l.mu.Unlock()
			l.run(uri, set)
		})
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	go l.run(uri, set)
}

// cancel stops any pending or in-flight run for the URI.
func (l *linter) cancel(uri protocol.DocumentURI) {
	l.mu.Lock()
	if t, ok := l.timers[uri]; ok {
		t.Stop()
		delete(l.timers, uri)
	}
	if r, ok := l.inflight[uri]; ok {
		r.cancel()
		delete(l.inflight, uri)
	}
	l.mu.Unlock()
}

func (l *linter) stop() {
	l.mu.Lock()
	l.stopped = true
	for uri, t := range l.timers {
		t.Stop()
		delete(l.timers, uri)
	}
	for uri, r := range l.inflight {
		r.cancel()
		delete(l.inflight, uri)
	}
	l.mu.Unlock()
}

func (l *linter) run(uri protocol.DocumentURI, set settings.Settings) {
	ctx, cancel := context.WithCancel(context.Background())
	this := &lintRun{cancel: cancel}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		cancel()
		return
	}
	if prev, ok := l.inflight[uri]; ok {
		prev.cancel()
	}
	l.inflight[uri] = this
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		if l.inflight[uri] == this {
			delete(l.inflight, uri)
		}
		l.mu.Unlock()
		cancel()
	}()

	if nb := l.s.store.GetNotebook(uri); nb != nil {
		l.lintNotebook(ctx, nb, set)
		return
	}
	if doc := l.s.store.Get(uri); doc != nil && doc.Kind() == document.KindText {
		l.lintText(ctx, doc, set)
	}
}

func (l *linter) lintText(ctx context.Context, doc *document.Document, set settings.Settings) {
	uri := doc.URI()
	path := uri.Path()
	if set.IgnoreStandardLibrary && path != "" && l.s.locator.IsStdlibFile(set, path) {
		l.s.logger.Debug("skipping standard library file", "path", path)
		return
	}

	epoch := l.s.store.Epoch(uri)
	version := doc.Version()
	text := doc.Text()

	violations, err := l.check(ctx, set, path, text)
	if err != nil {
		l.engineFailure(ctx, uri, version, err)
		return
	}
	if l.s.store.Epoch(uri) != epoch {
		return
	}

	l.s.registry.Set(uri, version, violations)
	l.publish(ctx, uri, version, diag.Translate(violations, set.ShowSyntaxErrors))
}

func (l *linter) lintNotebook(ctx context.Context, nb *document.Notebook, set settings.Settings) {
	uri := nb.URI()
	payload, err := nb.NotebookJSON()
	if err != nil {
		l.s.logger.Warn("encoding notebook", "uri", uri, "error", err)
		return
	}

	epoch := l.s.store.Epoch(uri)
	violations, err := l.check(ctx, set, uri.Path(), payload)
	if err != nil {
		l.notebookFailure(ctx, nb, err)
		return
	}
	if l.s.store.Epoch(uri) != epoch {
		return
	}

	// The engine reports a 1-based cell index for each violation; group by
	// cell and publish per cell URI so clean cells are cleared, too.
	byCell := make(map[protocol.DocumentURI][]diag.Violation)
	for _, v := range violations {
		if v.Cell == nil {
			continue
		}
		cellURI, ok := nb.CellAt(*v.Cell - 1)
		if !ok {
			l.s.logger.Warn("violation for unknown cell", "uri", uri, "cell", *v.Cell)
			continue
		}
		byCell[cellURI] = append(byCell[cellURI], v)
	}

	for _, cell := range nb.Cells() {
		if cell.Kind != protocol.CellKindCode {
			continue
		}
		cellDoc := l.s.store.Get(cell.Document)
		if cellDoc == nil {
			continue
		}
		cellViolations := byCell[cell.Document]
		l.s.registry.Set(cell.Document, cellDoc.Version(), cellViolations)
		l.publish(ctx, cell.Document, cellDoc.Version(), diag.Translate(cellViolations, set.ShowSyntaxErrors))
	}
}

// check runs the engine's check subcommand over the given source and parses
// its output.
func (l *linter) check(ctx context.Context, set settings.Settings, path, source string) ([]diag.Violation, error) {
	exe, err := l.s.locator.Find(set, engine.MinLinterVersion)
	if err != nil {
		return nil, err
	}
	args := engine.CheckArgs(exe, set, path, nil, "", l.s.logger)
	result, err := l.s.runner.Run(ctx, exe.Path, args, set.CWD, source)
	if err != nil {
		return nil, err
	}
	return diag.ClassifyCheck(result)
}

// engineFailure translates a failed lint run into user-visible feedback: a
// one-time message for setup problems and a synthetic diagnostic for runs
// that started but did not produce a result.
func (l *linter) engineFailure(ctx context.Context, uri protocol.DocumentURI, version int32, err error) {
	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, engine.ErrNotFound), errors.Is(err, engine.ErrVersion):
		l.s.reportOnce(ctx, "Ruff: "+err.Error())
		l.s.registry.Clear(uri)
		l.publish(ctx, uri, version, []protocol.Diagnostic{})
	default:
		l.s.logger.Error("lint failed", "uri", uri, "error", err)
		l.s.registry.Clear(uri)
		l.publish(ctx, uri, version, []protocol.Diagnostic{syntheticDiagnostic(err)})
	}
}

func (l *linter) notebookFailure(ctx context.Context, nb *document.Notebook, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if errors.Is(err, engine.ErrNotFound) || errors.Is(err, engine.ErrVersion) {
		l.s.reportOnce(ctx, "Ruff: "+err.Error())
		return
	}
	l.s.logger.Error("lint failed", "uri", nb.URI(), "error", err)
	for _, cell := range nb.Cells() {
		if cell.Kind != protocol.CellKindCode {
			continue
		}
		if cellDoc := l.s.store.Get(cell.Document); cellDoc != nil {
			l.publish(ctx, cell.Document, cellDoc.Version(), []protocol.Diagnostic{syntheticDiagnostic(err)})
			break
		}
	}
}

// syntheticDiagnostic surfaces an engine failure inline at the top of the
// document.
func syntheticDiagnostic(err error) protocol.Diagnostic {
	msg := "Ruff failed: " + err.Error()
	if errors.Is(err, engine.ErrTimeout) {
		msg = "Ruff timed out while linting this file"
	}
	return protocol.Diagnostic{
		Range:    protocol.Range{},
		Severity: protocol.SeverityError,
		Source:   diag.Source,
		Message:  msg,
	}
}

func (l *linter) publish(ctx context.Context, uri protocol.DocumentURI, version int32, diagnostics []protocol.Diagnostic) {
	if l.s.client == nil {
		return
	}
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	err := l.s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
		Version:     &version,
	})
	if err != nil {
		l.s.logger.Warn("publishing diagnostics", "uri", uri, "error", err)
	}
}

// clearFor publishes empty diagnostics for a URI, expanding notebooks to
// their code cells.
func (l *linter) clearFor(uri protocol.DocumentURI) {
	ctx := context.Background()
	if nb := l.s.store.GetNotebook(uri); nb != nil {
		for _, cell := range nb.Cells() {
			if cell.Kind == protocol.CellKindCode {
				l.s.clearDiagnostics(ctx, cell.Document)
			}
		}
		return
	}
	l.s.clearDiagnostics(ctx, uri)
}
