package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b))
	}
}

func TestFindSimilarNames(t *testing.T) {
	candidates := []string{"widget", "widgets", "gadget", "unrelated"}
	got := FindSimilarNames("widgit", candidates, 2)
	require.Contains(t, got, "widget")
}
