package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruffd-lsp/ruffd/protocol"
)

func testViolations() []Violation {
	return []Violation{
		{
			Code:        "F401",
			Location:    Location{Row: 1, Column: 8},
			EndLocation: Location{Row: 1, Column: 10},
			Fix:         &Fix{Applicability: "safe", Edits: []Edit{{Location: Location{Row: 1}, EndLocation: Location{Row: 2}}}},
			NoqaRow:     1,
		},
		{
			Code:        "E722",
			Location:    Location{Row: 5, Column: 1},
			EndLocation: Location{Row: 5, Column: 7},
			Fix:         &Fix{Applicability: "unsafe", Edits: []Edit{{Location: Location{Row: 5}, EndLocation: Location{Row: 5}}}},
			NoqaRow:     5,
		},
		{
			Code:        "E501",
			Location:    Location{Row: 9, Column: 89},
			EndLocation: Location{Row: 9, Column: 120},
			NoqaRow:     9,
		},
	}
}

func TestRegistrySetGetClear(t *testing.T) {
	r := NewRegistry()
	uri := protocol.DocumentURI("file:///a.py")

	_, _, ok := r.Get(uri)
	assert.False(t, ok)

	r.Set(uri, 3, testViolations())
	violations, version, ok := r.Get(uri)
	require.True(t, ok)
	assert.Equal(t, int32(3), version)
	assert.Len(t, violations, 3)

	r.Clear(uri)
	_, _, ok = r.Get(uri)
	assert.False(t, ok)
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	uri := protocol.DocumentURI("file:///a.py")
	r.Set(uri, 1, testViolations())

	rng := protocol.Range{
		Start: protocol.Position{Line: 0, Character: 7},
		End:   protocol.Position{Line: 0, Character: 9},
	}
	v, ok := r.Lookup(uri, 1, "F401", rng)
	require.True(t, ok)
	assert.Equal(t, "F401", v.Code)

	// Wrong range: no match.
	_, ok = r.Lookup(uri, 1, "F401", protocol.Range{})
	assert.False(t, ok)

	// Wrong code: no match.
	_, ok = r.Lookup(uri, 1, "E501", rng)
	assert.False(t, ok)

	// The document moved on since the publication: no match, the stored
	// ranges refer to the old text.
	_, ok = r.Lookup(uri, 2, "F401", rng)
	assert.False(t, ok)
}

func TestRegistrySafeFixes(t *testing.T) {
	r := NewRegistry()
	uri := protocol.DocumentURI("file:///a.py")
	r.Set(uri, 1, testViolations())

	safe := r.SafeFixes(uri, 1)
	require.Len(t, safe, 1)
	assert.Equal(t, "F401", safe[0].Code)

	assert.Nil(t, r.SafeFixes(uri, 2))
	assert.Nil(t, r.SafeFixes("file:///other.py", 1))
}
