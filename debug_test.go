package transmute

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDebugEntryParentID(t *testing.T) {
	root := DebugEntry{Kind: DebugRoot}
	_, ok := root.ParentID()
	require.False(t, ok)

	fork := DebugEntry{Kind: DebugFork, Offset: 3}
	_, ok = fork.ParentID()
	require.False(t, ok)

	field := DebugEntry{Kind: DebugStructField, Parent: 2}
	parent, ok := field.ParentID()
	require.True(t, ok)
	require.Equal(t, 2, parent)
}

func TestDebugKindIdent(t *testing.T) {
	require.Equal(t, "s_field", DebugStructField.Ident())
	require.Equal(t, "variant", DebugEnumVariant.Ident())
	require.Equal(t, "unknown", DebugKind(999).Ident())
}

func TestResolveDebugWalksRecordFields(t *testing.T) {
	oracle := nativeOracle()
	ty := &Type{
		Kind: KindRecord, Name: "Pair", Repr: Repr{C: true},
		Fields: []Field{
			{Name: "a", Ty: Int(1, "u8"), Public: true},
			{Name: "b", Ty: Int(1, "u8"), Public: true},
		},
	}
	prog, err := Build(oracle, "root", ty)
	require.NoError(t, err)

	trace := prog.ResolveDebug(1) // the second field's ByteRange instruction
	require.NotEmpty(t, trace)
	last := trace[len(trace)-1]
	require.Equal(t, DebugStructField, last.Kind)
	require.Equal(t, "b", last.FieldName)
}
