package codeaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddNoqa(t *testing.T) {
	tests := []struct {
		name string
		line string
		code string
		want string
	}{
		{
			name: "bare line",
			line: "import os",
			code: "F401",
			want: "import os  # noqa: F401",
		},
		{
			name: "bare noqa",
			line: "import os  # noqa",
			code: "F401",
			want: "import os  # noqa: F401",
		},
		{
			name: "existing code list",
			line: "import os  # noqa: E501",
			code: "F401",
			want: "import os  # noqa: E501, F401",
		},
		{
			name: "existing multi-code list",
			line: "x = 1  # noqa: E501, E741",
			code: "F841",
			want: "x = 1  # noqa: E501, E741, F841",
		},
		{
			name: "ruff-prefixed noqa",
			line: "import os  # ruff: noqa",
			code: "F401",
			want: "import os  # ruff: noqa: F401",
		},
		{
			name: "flake8-prefixed with codes",
			line: "import os  # flake8: noqa: E501",
			code: "F401",
			want: "import os  # flake8: noqa: E501, F401",
		},
		{
			name: "uppercase NOQA",
			line: "import os  # NOQA",
			code: "F401",
			want: "import os  # NOQA: F401",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddNoqa(tt.line, tt.code))
		})
	}
}

func TestNoqaEdit(t *testing.T) {
	edit := NoqaEdit("import os", 3, "F401")
	assert.Equal(t, uint32(2), edit.Range.Start.Line)
	assert.Equal(t, uint32(0), edit.Range.Start.Character)
	assert.Equal(t, uint32(2), edit.Range.End.Line)
	assert.Equal(t, uint32(9), edit.Range.End.Character)
	assert.Equal(t, "import os  # noqa: F401", edit.NewText)
}

func TestNoqaCodeAt(t *testing.T) {
	line := "import os  # noqa: F401, E501"
	//       0123456789012345678901234567890
	//                 1111111111222222222

	code, ok := NoqaCodeAt(line, 19)
	assert.True(t, ok)
	assert.Equal(t, "F401", code)

	code, ok = NoqaCodeAt(line, 25)
	assert.True(t, ok)
	assert.Equal(t, "E501", code)

	// Between codes.
	_, ok = NoqaCodeAt(line, 23)
	assert.False(t, ok)

	// Outside the comment.
	_, ok = NoqaCodeAt(line, 2)
	assert.False(t, ok)

	// Bare noqa has no codes to point at.
	_, ok = NoqaCodeAt("import os  # noqa", 14)
	assert.False(t, ok)
}
