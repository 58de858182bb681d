package transmute

import "fmt"

// Kind is the category of a structural type description fed to the
// builder. This is the "Src"/"Dst" half of a transmutability query: the
// front-end that resolves a nominal type (an ADT, a generic
// instantiation, ...) down to one of these shapes is out of scope for
// this package (spec §1); this repo's tests and demo CLI build Type
// values directly.
type Kind int

const (
	KindUnknown Kind = iota
	KindBool
	KindInt    // fixed-width integer or float; see Width
	KindArray  // Elem repeated Len times
	KindTuple  // Elems, in order; 0-tuple and 1-tuple are well-specified
	KindRecord // C-layout struct: Fields, in declaration order
	KindTaggedUnion
	KindUntaggedUnion
	KindPointer // raw pointer or reference; see PointeeTy/Mutable/IsPtr
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindArray:
		return "array"
	case KindTuple:
		return "tuple"
	case KindRecord:
		return "record"
	case KindTaggedUnion:
		return "tagged_union"
	case KindUntaggedUnion:
		return "untagged_union"
	case KindPointer:
		return "pointer"
	default:
		return "unknown"
	}
}

// Repr is the representation attribute of a record or union. Only
// C-compatible layouts are well-specified (GLOSSARY "Well-specified
// layout").
type Repr struct {
	C        bool
	IntTag   *IntWidth // non-nil for a repr(int) tagged union
	AlignCap int       // 0 means unbounded
}

// IntWidth names the width, in bytes, of an integer-like leaf (bool is
// its own Kind and is always 1 byte with range 0..=1).
type IntWidth int

// Field is one member of a record, tagged-union variant, or
// untagged-union variant.
type Field struct {
	Name string // used only for diagnostics
	Ty   *Type
	// Public reports whether this field is visible from outside its
	// defining module, standing in for Rust's `pub`. The builder treats
	// a field with Public == false as private outright; for a public
	// field of a type whose Name is one of the oracle's scopes it also
	// asks Oracle.VisibleFrom (see NfaBuilder.fieldVisibility).
	Public bool
}

// Variant is one arm of a tagged or untagged union.
type Variant struct {
	Name   string
	Discr  uint64 // tag literal; ignored for untagged unions
	Fields []Field
}

// Type is a structural description of a type's memory layout, the
// common input both Src and Dst are lowered from. It deliberately omits
// everything not needed to compute a layout program: no method sets, no
// trait bounds, no generic substitutions.
type Type struct {
	Kind Kind

	// KindInt / KindBool
	Width IntWidth // 1, 2, 4, 8, 16 for KindInt; always 1 for KindBool

	// KindArray
	Elem *Type
	Len  uint64

	// KindTuple
	Elems []*Type

	// KindRecord
	Fields []Field
	Repr   Repr

	// KindTaggedUnion / KindUntaggedUnion
	Variants []Variant

	// KindPointer
	PointeeTy *Type
	Mutable   bool
	IsPtr     bool // true: raw pointer; false: reference

	// Name is used for diagnostics (DebugEntry rendering, BuildError
	// messages) and, for a record or union, as the defining scope of its
	// public fields when the oracle knows a scope by that name; it never
	// affects size or alignment.
	Name string
}

// String renders a short, human-readable description of t, used in
// error messages and the demo CLI's output.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindBool:
		return "bool"
	case KindInt:
		return fmt.Sprintf("i%d", t.Width*8)
	case KindArray:
		return fmt.Sprintf("[%s; %d]", t.Elem, t.Len)
	case KindTuple:
		return fmt.Sprintf("tuple(%d)", len(t.Elems))
	case KindRecord:
		if t.Name != "" {
			return t.Name
		}
		return "struct"
	case KindTaggedUnion:
		if t.Name != "" {
			return t.Name
		}
		return "enum"
	case KindUntaggedUnion:
		if t.Name != "" {
			return t.Name
		}
		return "union"
	case KindPointer:
		name := "&"
		if t.IsPtr {
			name = "*"
		}
		if t.Mutable {
			name += "mut "
		} else {
			name += "const "
		}
		return name + t.PointeeTy.String()
	default:
		return "unknown"
	}
}

// IsPrimitive reports whether t is a leaf numeric/boolean type.
func (t *Type) IsPrimitive() bool {
	return t.Kind == KindBool || t.Kind == KindInt
}

// Bool returns the structural description of a one-byte boolean whose
// only valid values are 0 and 1.
func Bool() *Type { return &Type{Kind: KindBool, Width: 1, Name: "bool"} }

// Int returns the structural description of a width-byte integer or
// float; every bit pattern of its bytes is valid.
func Int(width IntWidth, name string) *Type {
	return &Type{Kind: KindInt, Width: width, Name: name}
}
