// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 3, "hel"},
		{"hello", 10, "hello"},
		{"hello", 0, ""},
		{"清华大学", 2, "清华"},
		{"", 5, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Truncate(tt.in, tt.n), "Truncate(%q, %d)", tt.in, tt.n)
	}
}

func TestEllipsize(t *testing.T) {
	assert.Equal(t, "abc...", Ellipsize("abcdef", 3))
	assert.Equal(t, "abc", Ellipsize("abc", 3))
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseSpace("  a\n\tb   c \n"))
}
