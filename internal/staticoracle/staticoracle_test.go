package staticoracle

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xyproto/transmute"
)

func TestVisibleFromSelfAndAncestors(t *testing.T) {
	o := New(NativeAMD64())
	o.AddModule("app", "")
	o.AddModule("app/internal", "app")
	o.AddModule("app/internal/deep", "app/internal")
	o.AddModule("other", "")

	tests := []struct {
		name             string
		defining, viewer transmute.Scope
		want             bool
	}{
		{"same_scope", "app/internal", "app/internal", true},
		{"parent_sees_child_defined_item", "app/internal/deep", "app/internal", true},
		{"grandparent_sees_deep_item", "app/internal/deep", "app", true},
		{"sibling_cannot_see", "app/internal", "other", false},
		{"child_cannot_see_parent_private", "app", "app/internal", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := o.VisibleFrom(tt.defining, tt.viewer)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestVisibleFromUnknownScopeErrors(t *testing.T) {
	o := New(NativeAMD64())
	o.AddModule("app", "")
	_, err := o.VisibleFrom("app", "ghost")
	require.Error(t, err)
}

func TestScopeNamesSorted(t *testing.T) {
	o := New(NativeAMD64())
	o.AddModule("zeta", "")
	o.AddModule("alpha", "")
	require.Equal(t, []string{"alpha", "zeta"}, o.ScopeNames())
}
