package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruffd-lsp/ruffd/engine"
	"github.com/ruffd-lsp/ruffd/protocol"
)

func TestLineEnding(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"a\nb", "\n"},
		{"a\r\nb", "\r\n"},
		{"a\rb", "\r"},
		{"no endings", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LineEnding(tt.text), "%q", tt.text)
	}
}

func TestMatchLineEndings(t *testing.T) {
	// Engine output is \n; the document uses \r\n.
	got := MatchLineEndings("x=1\r\ny=2\r\n", "x = 1\ny = 2\n")
	assert.Equal(t, "x = 1\r\ny = 2\r\n", got)

	// Matching endings pass through.
	got = MatchLineEndings("x=1\ny=2\n", "x = 1\ny = 2\n")
	assert.Equal(t, "x = 1\ny = 2\n", got)

	// A document with no line breaks is left alone.
	got = MatchLineEndings("x=1", "x = 1\n")
	assert.Equal(t, "x = 1\n", got)
}

func TestEditsNoChange(t *testing.T) {
	edits := Edits("x = 1\n", "x = 1\n")
	assert.Empty(t, edits)

	// Line-ending-only differences are not a change either.
	edits = Edits("x = 1\r\n", "x = 1\n")
	assert.Empty(t, edits)
}

func TestEditsWholeDocumentReplace(t *testing.T) {
	edits := Edits("x=1\n", "x = 1\n")
	require.Len(t, edits, 1)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 0},
		End:   protocol.Position{Line: protocol.UIntegerMax, Character: 0},
	}, edits[0].Range)
	assert.Equal(t, "x = 1\n", edits[0].NewText)
}

func TestOutput(t *testing.T) {
	// Clean run.
	out, ok, err := Output(engine.Result{Stdout: []byte("x = 1\n")}, "x=1\n")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x = 1\n", out)

	// Crash surfaces stderr.
	_, _, err = Output(engine.Result{ExitCode: 2, Stderr: []byte("error: bad option")}, "x=1\n")
	require.ErrorIs(t, err, engine.ErrCrashed)
	assert.Contains(t, err.Error(), "bad option")

	// Empty output for a non-blank document: engine declined.
	_, ok, err = Output(engine.Result{}, "x=1\n")
	require.NoError(t, err)
	assert.False(t, ok)

	// Empty output for a blank document is fine.
	out, ok, err = Output(engine.Result{}, "  \n")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "", out)
}
