package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{"0.4.4", Version{0, 4, 4}, false},
		{"0.0.291", Version{0, 0, 291}, false},
		{"1.2.3rc1", Version{1, 2, 3}, false},
		{"0.5.0-dev", Version{0, 5, 0}, false},
		{" 0.1.6 ", Version{0, 1, 6}, false},
		{"0.4", Version{}, true},
		{"ruff", Version{}, true},
	}
	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestVersionAtLeast(t *testing.T) {
	tests := []struct {
		v, min Version
		want   bool
	}{
		{Version{0, 4, 4}, MinFormatterVersion, true},
		{Version{0, 0, 291}, MinFormatterVersion, true},
		{Version{0, 0, 290}, MinFormatterVersion, false},
		{Version{0, 0, 189}, MinLinterVersion, true},
		{Version{0, 0, 188}, MinLinterVersion, false},
		{Version{1, 0, 0}, Version{0, 9, 9}, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.v.AtLeast(tt.min), "%s >= %s", tt.v, tt.min)
	}
}
