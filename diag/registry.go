package diag

import (
	"sync"

	"github.com/ruffd-lsp/ruffd/protocol"
)

// Registry remembers, per document, the violations behind the most recently
// published diagnostics. Code action requests reference diagnostics by code
// and range; the registry recovers the fix and noqa row for them without
// round-tripping that state through the client.
type Registry struct {
	mu        sync.RWMutex
	published map[protocol.DocumentURI]*publishedSet
}

type publishedSet struct {
	version    int32
	violations []Violation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{published: make(map[protocol.DocumentURI]*publishedSet)}
}

// Set replaces the published violations for a document.
func (r *Registry) Set(uri protocol.DocumentURI, version int32, violations []Violation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published[uri] = &publishedSet{version: version, violations: violations}
}

// Clear drops the published violations for a document, normally on close.
func (r *Registry) Clear(uri protocol.DocumentURI) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.published, uri)
}

// Get returns the published violations and the document version they were
// computed against.
func (r *Registry) Get(uri protocol.DocumentURI) ([]Violation, int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.published[uri]
	if !ok {
		return nil, 0, false
	}
	return set.violations, set.version, true
}

// Lookup finds the published violation matching a diagnostic's code and
// range, as echoed back by the client in a code action context. Violations
// published for a different document version are not returned; their ranges
// refer to text the client no longer has.
func (r *Registry) Lookup(uri protocol.DocumentURI, version int32, code string, rng protocol.Range) (Violation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.published[uri]
	if !ok || set.version != version {
		return Violation{}, false
	}
	for _, v := range set.violations {
		if v.Code == code && v.Range() == rng {
			return v, true
		}
	}
	return Violation{}, false
}

// SafeFixes returns the violations with fixes the engine marked safe, in
// published order, provided they were published for the given document
// version. Used to aggregate a fix-all edit.
func (r *Registry) SafeFixes(uri protocol.DocumentURI, version int32) []Violation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.published[uri]
	if !ok || set.version != version {
		return nil
	}
	var out []Violation
	for _, v := range set.violations {
		if v.Fix != nil && v.Fix.Safe() {
			out = append(out, v)
		}
	}
	return out
}
