package transmute

// DebugKind tags the construct a DebugEntry records entry into while
// the builder walks a structural Type (spec §3).
type DebugKind int

const (
	DebugRoot DebugKind = iota
	DebugStruct
	DebugStructField
	DebugEnum
	DebugEnumVariant
	DebugEnumVariantField
	DebugUnion
	DebugUnionVariant
	DebugArray
	DebugPtr
	DebugRef
	DebugFork
	DebugPadding
)

// Ident returns the short tag a diagnostics consumer uses to render a
// DebugEntry (spec §6 "Outputs").
func (k DebugKind) Ident() string {
	switch k {
	case DebugRoot:
		return "root"
	case DebugStruct:
		return "struct"
	case DebugStructField:
		return "s_field"
	case DebugEnum:
		return "enum"
	case DebugEnumVariant:
		return "variant"
	case DebugEnumVariantField:
		return "v_field"
	case DebugUnion:
		return "union"
	case DebugUnionVariant:
		return "u_field"
	case DebugArray:
		return "array"
	case DebugPtr:
		return "ptr"
	case DebugRef:
		return "ref"
	case DebugFork:
		return "fork"
	case DebugPadding:
		return "padding"
	default:
		return "unknown"
	}
}

// DebugEntry is one node of the debug trail's tree, rooted at a single
// DebugRoot entry (spec §3). Every non-root, non-fork entry's Parent is
// the index, in the owning Program's Debug slice, of its parent entry;
// parents always have a strictly smaller index than their children
// (spec invariant 5). A DebugFork entry is not a tree child: it records
// an Offset back to the instruction its clone was copied from, so
// ResolveDebug can rebase across copy_fork clones instead of walking a
// parent pointer (spec §4.3, §9).
type DebugEntry struct {
	Kind   DebugKind
	IP     InstPtr
	Parent int // meaningful for every Kind except DebugRoot and DebugFork
	Offset InstPtr // meaningful only for DebugFork

	// Diagnostic payload. Which fields are populated depends on Kind.
	Ty        *Type
	FieldName string
	Index     int
}

// ParentID returns the entry's parent index and whether it has one.
// Root and Fork entries have no parent in the tree-walk sense.
func (e DebugEntry) ParentID() (int, bool) {
	if e.Kind == DebugRoot || e.Kind == DebugFork {
		return 0, false
	}
	return e.Parent, true
}
