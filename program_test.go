package transmute

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteRangeContainsAndIntersects(t *testing.T) {
	tests := []struct {
		name       string
		a, b       ByteRange
		contains   bool
		intersects bool
	}{
		{"identical", ByteRange{0, 255}, ByteRange{0, 255}, true, true},
		{"subset", ByteRange{0, 255}, ByteRange{10, 20}, true, true},
		{"disjoint", ByteRange{0, 10}, ByteRange{20, 30}, false, false},
		{"overlap", ByteRange{0, 10}, ByteRange{5, 15}, false, true},
		{"exact_single", ByteRange{5, 5}, ByteRange{5, 5}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.contains, tt.a.ContainsRange(tt.b))
			require.Equal(t, tt.intersects, tt.a.Intersects(tt.b))
		})
	}
}

func TestStepByteAcceptsByteRangeAlgebra(t *testing.T) {
	full := StepByte{Kind: StepByteRangeKind, Range: Full()}
	narrow := StepByte{Kind: StepByteRangeKind, Range: ByteRange{0, 1}}
	uninit := StepByte{Kind: StepUninit}

	t.Run("dst_uninit_accepts_anything", func(t *testing.T) {
		require.True(t, uninit.Accepts(full).IsAlways())
	})
	t.Run("src_uninit_never_readable", func(t *testing.T) {
		state := full.Accepts(uninit)
		require.Equal(t, NeverReadUninit, state.Kind)
	})
	t.Run("dst_contains_src_always", func(t *testing.T) {
		require.True(t, full.Accepts(narrow).IsAlways())
	})
	t.Run("dst_narrower_than_src_never", func(t *testing.T) {
		state := narrow.Accepts(StepByte{Kind: StepByteRangeKind, Range: ByteRange{5, 6}})
		require.Equal(t, NeverOutOfRange, state.Kind)
	})
	t.Run("partial_overlap_maybe", func(t *testing.T) {
		state := narrow.Accepts(StepByte{Kind: StepByteRangeKind, Range: ByteRange{1, 2}})
		require.Equal(t, MaybeCheckRange, state.Kind)
	})
	t.Run("private_dst_never_writable", func(t *testing.T) {
		priv := StepByte{Kind: StepByteRangeKind, Private: true, Range: Full()}
		state := priv.Accepts(full)
		require.Equal(t, NeverWritePrivate, state.Kind)
	})
	t.Run("private_src_never_readable", func(t *testing.T) {
		priv := StepByte{Kind: StepByteRangeKind, Private: true, Range: Full()}
		state := full.Accepts(priv)
		require.Equal(t, NeverReadPrivate, state.Kind)
	})
	t.Run("ref_head_pair_defers_to_referent", func(t *testing.T) {
		dstRef := &InstRef{Referent: Bool()}
		srcRef := &InstRef{Referent: Int(1, "u8")}
		d := StepByte{Kind: StepRefHead, Ref: dstRef}
		s := StepByte{Kind: StepRefHead, Ref: srcRef}
		state := d.Accepts(s)
		require.Equal(t, MaybeCheckRef, state.Kind)
		require.Same(t, dstRef.Referent, state.DstTy)
		require.Same(t, srcRef.Referent, state.SrcTy)
	})
	t.Run("ref_tail_pair_always", func(t *testing.T) {
		d := StepByte{Kind: StepRefTail}
		s := StepByte{Kind: StepRefTail}
		require.True(t, d.Accepts(s).IsAlways())
	})
}

func TestAssumeWithAssumeMasking(t *testing.T) {
	t.Run("validity_demotes_range_checks", func(t *testing.T) {
		state := AcceptState{Kind: MaybeCheckRange, DstRange: ByteRange{0, 1}, SrcRange: ByteRange{0, 2}}
		require.True(t, state.WithAssume(Assume{Validity: true}).IsAlways())
		require.False(t, state.WithAssume(Assume{}).IsAlways())
	})
	t.Run("visibility_demotes_private_checks", func(t *testing.T) {
		state := AcceptState{Kind: NeverReadPrivate}
		require.True(t, state.WithAssume(Assume{Visibility: true}).IsAlways())
		require.False(t, state.WithAssume(Assume{}).IsAlways())
	})
	t.Run("always_is_a_fixed_point", func(t *testing.T) {
		require.True(t, AlwaysState().WithAssume(NoAssumptions()).IsAlways())
		require.True(t, AlwaysState().WithAssume(AllAssumptions()).IsAlways())
	})
}

func TestAssumeLessOrEqual(t *testing.T) {
	require.True(t, NoAssumptions().LessOrEqual(AllAssumptions()))
	require.True(t, AllAssumptions().LessOrEqual(AllAssumptions()))
	require.False(t, AllAssumptions().LessOrEqual(NoAssumptions()))
	require.True(t, Assume{Validity: true}.LessOrEqual(Assume{Validity: true, Visibility: true}))
}
