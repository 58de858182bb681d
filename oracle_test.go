package transmute

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveVisibilitySuccess(t *testing.T) {
	ok, err := ResolveVisibility(nativeOracle(), "root", "root")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestResolveVisibilityUnknownScopeSuggestsSimilarName(t *testing.T) {
	_, err := ResolveVisibility(nativeOracle(), "root", "roott")
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, ImproperScope, buildErr.Kind)
	require.Contains(t, buildErr.Suggestion, "root")
}
