package transmute

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xyproto/transmute/internal/engine"
	"github.com/xyproto/transmute/internal/staticoracle"
)

func nativeOracle() LayoutOracle {
	o := staticoracle.New(staticoracle.NativeAMD64())
	o.AddModule("root", "")
	o.AddModule("child", "root")
	return o
}

func TestBuildPrimitives(t *testing.T) {
	oracle := nativeOracle()

	t.Run("bool", func(t *testing.T) {
		prog, err := Build(oracle, "root", Bool())
		require.NoError(t, err)
		require.Equal(t, 1, prog.Size())
		require.Len(t, prog.Insts, 2) // one ByteRange + Accept
	})

	t.Run("u32", func(t *testing.T) {
		prog, err := Build(oracle, "root", Int(4, "u32"))
		require.NoError(t, err)
		require.Equal(t, 4, prog.Size())
		require.Len(t, prog.Insts, 5)
	})
}

func TestBuildArray(t *testing.T) {
	oracle := nativeOracle()
	ty := &Type{Kind: KindArray, Elem: Bool(), Len: 3}
	prog, err := Build(oracle, "root", ty)
	require.NoError(t, err)
	require.Equal(t, 3, prog.Size())
}

func TestBuildTuple(t *testing.T) {
	oracle := nativeOracle()

	t.Run("unit_tuple_is_zero_sized", func(t *testing.T) {
		prog, err := Build(oracle, "root", &Type{Kind: KindTuple})
		require.NoError(t, err)
		require.Equal(t, 0, prog.Size())
	})

	t.Run("one_tuple_matches_its_element", func(t *testing.T) {
		prog, err := Build(oracle, "root", &Type{Kind: KindTuple, Elems: []*Type{Int(2, "u16")}})
		require.NoError(t, err)
		require.Equal(t, 2, prog.Size())
	})

	t.Run("wide_tuple_is_not_well_specified", func(t *testing.T) {
		_, err := Build(oracle, "root", &Type{Kind: KindTuple, Elems: []*Type{Bool(), Bool()}})
		require.Error(t, err)
		var buildErr *BuildError
		require.ErrorAs(t, err, &buildErr)
		require.Equal(t, NotWellSpecified, buildErr.Kind)
	})
}

func TestBuildRecordRejectsNonReprC(t *testing.T) {
	oracle := nativeOracle()
	ty := &Type{Kind: KindRecord, Name: "Loose", Fields: []Field{{Name: "x", Ty: Bool(), Public: true}}}
	_, err := Build(oracle, "root", ty)
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	require.Equal(t, NotWellSpecified, buildErr.Kind)
}

func TestBuildRecordPadsForAlignment(t *testing.T) {
	oracle := nativeOracle()
	ty := &Type{
		Kind: KindRecord, Name: "Padded", Repr: Repr{C: true},
		Fields: []Field{
			{Name: "flag", Ty: Bool(), Public: true},
			{Name: "value", Ty: Int(4, "u32"), Public: true},
		},
	}
	prog, err := Build(oracle, "root", ty)
	require.NoError(t, err)
	// 1 byte bool, 3 bytes padding, 4 bytes u32 = 8
	require.Equal(t, 8, prog.Size())
}

func TestBuildRecordPrivateFieldMarksHasPrivate(t *testing.T) {
	oracle := nativeOracle()
	ty := &Type{
		Kind: KindRecord, Name: "WithPrivate", Repr: Repr{C: true},
		Fields: []Field{
			{Name: "hidden", Ty: Int(1, "u8"), Public: false},
		},
	}
	prog, err := Build(oracle, "root", ty)
	require.NoError(t, err)
	require.True(t, prog.HasPrivate)
}

func intWidth(w IntWidth) *IntWidth { return &w }

func TestBuildTaggedUnion(t *testing.T) {
	oracle := nativeOracle()
	ty := &Type{
		Kind: KindTaggedUnion, Name: "Msg",
		Repr: Repr{C: true, IntTag: intWidth(1)},
		Variants: []Variant{
			{Name: "Empty", Discr: 0, Fields: nil},
			{Name: "Byte", Discr: 1, Fields: []Field{{Name: "v", Ty: Int(1, "u8"), Public: true}}},
		},
	}
	prog, err := Build(oracle, "root", ty)
	require.NoError(t, err)
	require.Equal(t, 2, prog.Size()) // tag + 1 byte payload

	var splits, joins int
	for _, inst := range prog.Insts {
		switch inst.(type) {
		case *InstSplit:
			splits++
		case *InstJoinGoto:
			joins++
		}
	}
	require.Equal(t, 1, splits)
	require.Equal(t, 1, joins)
}

func TestBuildTaggedUnionRequiresIntTag(t *testing.T) {
	oracle := nativeOracle()
	ty := &Type{
		Kind: KindTaggedUnion, Name: "Loose",
		Repr:     Repr{C: true},
		Variants: []Variant{{Name: "A", Fields: nil}},
	}
	_, err := Build(oracle, "root", ty)
	require.Error(t, err)
}

func TestBuildUnionPrivateVariantFieldMarksHasPrivate(t *testing.T) {
	oracle := nativeOracle()

	t.Run("tagged", func(t *testing.T) {
		ty := &Type{
			Kind: KindTaggedUnion, Name: "Msg", Repr: Repr{C: true, IntTag: intWidth(1)},
			Variants: []Variant{
				{Name: "Empty", Discr: 0, Fields: nil},
				{Name: "Secret", Discr: 1, Fields: []Field{{Name: "v", Ty: Int(1, "u8"), Public: false}}},
			},
		}
		prog, err := Build(oracle, "root", ty)
		require.NoError(t, err)
		require.True(t, prog.HasPrivate)
	})

	t.Run("untagged", func(t *testing.T) {
		ty := &Type{
			Kind: KindUntaggedUnion, Name: "Overlay", Repr: Repr{C: true},
			Variants: []Variant{
				{Name: "AsByte", Fields: []Field{{Name: "b", Ty: Int(1, "u8"), Public: true}}},
				{Name: "Hidden", Fields: []Field{{Name: "h", Ty: Int(1, "u8"), Public: false}}},
			},
		}
		prog, err := Build(oracle, "root", ty)
		require.NoError(t, err)
		require.True(t, prog.HasPrivate)
	})
}

func TestBuildUntaggedUnionPadsToWidestVariant(t *testing.T) {
	oracle := nativeOracle()
	ty := &Type{
		Kind: KindUntaggedUnion, Name: "Overlay", Repr: Repr{C: true},
		Variants: []Variant{
			{Name: "AsByte", Fields: []Field{{Name: "b", Ty: Int(1, "u8"), Public: true}}},
			{Name: "AsWord", Fields: []Field{{Name: "w", Ty: Int(4, "u32"), Public: true}}},
		},
	}
	prog, err := Build(oracle, "root", ty)
	require.NoError(t, err)
	require.Equal(t, 4, prog.Size())
}

func TestBuildPointerUsesTargetPointerSize(t *testing.T) {
	target := engine.Target{Endian: engine.LittleEndian, PointerSize: 8, PointerAlign: 8}
	oracle := staticoracle.New(target)
	oracle.AddModule("root", "")
	ty := &Type{Kind: KindPointer, PointeeTy: Bool(), IsPtr: false, Mutable: false}
	prog, err := Build(oracle, "root", ty)
	require.NoError(t, err)
	require.Equal(t, 8, prog.Size())
	ref, ok := prog.Insts[0].(*InstRef)
	require.True(t, ok)
	require.Same(t, ty.PointeeTy, ref.Referent)
}
