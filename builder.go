package transmute

import "github.com/xyproto/transmute/internal/engine"

// NfaBuilder lowers a structural Type into a Program: a flat
// instruction stream plus a debug trail recording how the walk reached
// each instruction (spec §4.2). One NfaBuilder is used per side of a
// transmutability query (Src gets its own, Dst gets its own), since
// each walks its own Type under its own viewing Scope.
type NfaBuilder struct {
	oracle     LayoutOracle
	scope      Scope
	target     engine.Target
	insts      []Inst
	debug      []DebugEntry
	parents    []int
	hasPrivate bool
}

// Build compiles ty into a Program as observed from scope (the module
// the transmute expression itself is written in), consulting oracle for
// everything this package cannot derive structurally (spec §4.2, §6).
func Build(oracle LayoutOracle, scope Scope, ty *Type) (*Program, error) {
	b := &NfaBuilder{oracle: oracle, scope: scope, target: oracle.TargetDescription()}
	b.debug = []DebugEntry{{Kind: DebugRoot, Ty: ty}}
	b.parents = []int{0}

	size, err := b.emit(ty, false)
	if err != nil {
		return nil, err
	}
	if len(b.insts) >= int(MaxProgram) {
		return nil, newProgramTooLarge(ty)
	}
	b.insts = append(b.insts, &InstAccept{})
	return NewProgram(b.insts, b.debug, size, b.hasPrivate), nil
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	if rem := n % align; rem != 0 {
		return n + (align - rem)
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (b *NfaBuilder) debugEnter(kind DebugKind, ty *Type, fieldName string, index int) int {
	idx := len(b.debug)
	b.debug = append(b.debug, DebugEntry{
		Kind: kind, IP: InstPtr(len(b.insts)), Parent: b.parents[len(b.parents)-1],
		Ty: ty, FieldName: fieldName, Index: index,
	})
	b.parents = append(b.parents, idx)
	return idx
}

func (b *NfaBuilder) debugExit() {
	b.parents = b.parents[:len(b.parents)-1]
}

func (b *NfaBuilder) emitPadding(n int) {
	for i := 0; i < n; i++ {
		b.insts = append(b.insts, &InstUninit{})
	}
}

// sizeAlign computes ty's size and alignment without emitting any
// instructions; the builder needs this up front to size a record's
// padding and a union's shared body before it knows, byte for byte,
// what any one variant looks like (spec §4.2 steps 5-7).
func (b *NfaBuilder) sizeAlign(ty *Type) (int, int, error) {
	switch ty.Kind {
	case KindBool:
		return 1, 1, nil
	case KindInt:
		return int(ty.Width), int(ty.Width), nil
	case KindPointer:
		return b.target.PointerSize, b.target.PointerAlign, nil
	case KindArray:
		esz, eal, err := b.sizeAlign(ty.Elem)
		if err != nil {
			return 0, 0, err
		}
		return esz * int(ty.Len), eal, nil
	case KindTuple:
		switch len(ty.Elems) {
		case 0:
			return 0, 1, nil
		case 1:
			return b.sizeAlign(ty.Elems[0])
		default:
			return 0, 0, newNotWellSpecified(ty, "tuples with more than one element have unspecified field order and padding")
		}
	case KindRecord:
		return b.recordSizeAlign(ty)
	case KindTaggedUnion:
		return b.taggedSizeAlign(ty)
	case KindUntaggedUnion:
		return b.untaggedSizeAlign(ty)
	default:
		return 0, 0, newTypeUnsupported(ty, "cannot compute a size for this type")
	}
}

func (b *NfaBuilder) recordSizeAlign(ty *Type) (int, int, error) {
	if !ty.Repr.C {
		return 0, 0, newNotWellSpecified(ty, "record is not repr(C)")
	}
	offset, align := 0, 1
	for _, f := range ty.Fields {
		fsz, fal, err := b.sizeAlign(f.Ty)
		if err != nil {
			return 0, 0, err
		}
		offset = alignUp(offset, fal) + fsz
		if fal > align {
			align = fal
		}
	}
	if ty.Repr.AlignCap != 0 && ty.Repr.AlignCap < align {
		align = ty.Repr.AlignCap
	}
	return alignUp(offset, align), align, nil
}

func (b *NfaBuilder) fieldsSizeAlign(fields []Field) (int, int, error) {
	offset, align := 0, 1
	for _, f := range fields {
		fsz, fal, err := b.sizeAlign(f.Ty)
		if err != nil {
			return 0, 0, err
		}
		offset = alignUp(offset, fal) + fsz
		if fal > align {
			align = fal
		}
	}
	return alignUp(offset, align), align, nil
}

func (b *NfaBuilder) taggedSizeAlign(ty *Type) (int, int, error) {
	if ty.Repr.IntTag == nil {
		return 0, 0, newNotWellSpecified(ty, "tagged union must have an explicit integer tag representation")
	}
	tagWidth := int(*ty.Repr.IntTag)
	payload, palign := 0, 1
	for _, v := range ty.Variants {
		sz, al, err := b.fieldsSizeAlign(v.Fields)
		if err != nil {
			return 0, 0, err
		}
		if sz > payload {
			payload = sz
		}
		if al > palign {
			palign = al
		}
	}
	align := maxInt(tagWidth, palign)
	total := alignUp(alignUp(tagWidth, align)+payload, align)
	return total, align, nil
}

func (b *NfaBuilder) untaggedSizeAlign(ty *Type) (int, int, error) {
	if !ty.Repr.C {
		return 0, 0, newNotWellSpecified(ty, "untagged union is not repr(C)")
	}
	size, align := 0, 1
	for _, v := range ty.Variants {
		sz, al, err := b.fieldsSizeAlign(v.Fields)
		if err != nil {
			return 0, 0, err
		}
		if sz > size {
			size = sz
		}
		if al > align {
			align = al
		}
	}
	return alignUp(size, align), align, nil
}

// emit appends ty's instructions to the builder's stream and returns
// how many bytes it occupies (spec §4.2).
func (b *NfaBuilder) emit(ty *Type, private bool) (int, error) {
	switch ty.Kind {
	case KindBool:
		b.insts = append(b.insts, &InstByteRange{Private: private, Range: ByteRange{0, 1}})
		return 1, nil
	case KindInt:
		for i := 0; i < int(ty.Width); i++ {
			b.insts = append(b.insts, &InstByteRange{Private: private, Range: Full()})
		}
		return int(ty.Width), nil
	case KindPointer:
		return b.emitPointer(ty, private)
	case KindArray:
		return b.emitArray(ty, private)
	case KindTuple:
		return b.emitTuple(ty, private)
	case KindRecord:
		return b.emitRecord(ty, private)
	case KindTaggedUnion:
		return b.emitTaggedUnion(ty, private)
	case KindUntaggedUnion:
		return b.emitUntaggedUnion(ty, private)
	default:
		return 0, newTypeUnsupported(ty, "cannot build this type")
	}
}

func (b *NfaBuilder) emitPointer(ty *Type, private bool) (int, error) {
	kind := DebugRef
	if ty.IsPtr {
		kind = DebugPtr
	}
	b.debugEnter(kind, ty, "", 0)
	defer b.debugExit()

	size := b.target.PointerSize
	b.insts = append(b.insts, &InstRef{
		IsPtr: ty.IsPtr, Mutable: ty.Mutable, Referent: ty.PointeeTy,
		DataSize: uint32(size), DataAlign: uint32(b.target.PointerAlign),
	})
	for i := 1; i < size; i++ {
		b.insts = append(b.insts, &InstRefTail{})
	}
	return size, nil
}

func (b *NfaBuilder) emitArray(ty *Type, private bool) (int, error) {
	b.debugEnter(DebugArray, ty, "", 0)
	defer b.debugExit()

	total := 0
	for i := 0; i < int(ty.Len); i++ {
		if len(b.insts) >= int(MaxProgram)-8 {
			return 0, newProgramTooLarge(ty)
		}
		sz, err := b.emit(ty.Elem, private)
		if err != nil {
			return 0, err
		}
		total += sz
	}
	return total, nil
}

func (b *NfaBuilder) emitTuple(ty *Type, private bool) (int, error) {
	switch len(ty.Elems) {
	case 0:
		return 0, nil
	case 1:
		return b.emit(ty.Elems[0], private)
	default:
		return 0, newNotWellSpecified(ty, "tuples with more than one element have unspecified field order and padding")
	}
}

// fieldVisibility decides whether a field must be treated as private
// for the rest of this build. A field that is not exported is private
// outright; an exported field of a type whose Name the oracle knows as
// a scope can still be private to the current viewing scope if the
// oracle's module nesting says so. An exported field of an anonymous
// type, or of a type whose Name is not one of the oracle's scopes, is
// visible.
func (b *NfaBuilder) fieldVisibility(owner *Type, f Field, inherited bool) (bool, error) {
	if inherited {
		return true, nil
	}
	if !f.Public {
		b.hasPrivate = true
		return true, nil
	}
	known := false
	for _, name := range b.oracle.ScopeNames() {
		if name == owner.Name {
			known = true
			break
		}
	}
	if owner.Name == "" || !known {
		return false, nil
	}
	visible, err := ResolveVisibility(b.oracle, Scope(owner.Name), b.scope)
	if err != nil {
		return false, err
	}
	if !visible {
		b.hasPrivate = true
		return true, nil
	}
	return false, nil
}

func (b *NfaBuilder) emitRecord(ty *Type, private bool) (int, error) {
	if !ty.Repr.C {
		return 0, newNotWellSpecified(ty, "record is not repr(C)")
	}
	b.debugEnter(DebugStruct, ty, "", 0)
	defer b.debugExit()

	offset, align := 0, 1
	for i, f := range ty.Fields {
		fsz, fal, err := b.sizeAlign(f.Ty)
		if err != nil {
			return 0, err
		}
		pad := alignUp(offset, fal) - offset
		b.emitPadding(pad)
		offset += pad

		fieldPrivate, err := b.fieldVisibility(ty, f, private)
		if err != nil {
			return 0, err
		}

		b.debugEnter(DebugStructField, f.Ty, f.Name, i)
		got, err := b.emit(f.Ty, fieldPrivate)
		b.debugExit()
		if err != nil {
			return 0, err
		}
		if got != fsz {
			return 0, newLayoutOverflow(ty)
		}
		offset += fsz
		if fal > align {
			align = fal
		}
	}
	if ty.Repr.AlignCap != 0 && ty.Repr.AlignCap < align {
		align = ty.Repr.AlignCap
	}
	total := alignUp(offset, align)
	b.emitPadding(total - offset)
	return total, nil
}

// emitFields builds one union variant's fields, packed from offset 0
// the way emitRecord packs a struct's, but without a representation
// check of its own: the owning union already checked its repr (repr(C)
// for an untagged union, an explicit integer tag for a tagged one).
func (b *NfaBuilder) emitFields(owner *Type, fields []Field, private bool) (int, error) {
	offset := 0
	for i, f := range fields {
		fsz, fal, err := b.sizeAlign(f.Ty)
		if err != nil {
			return 0, err
		}
		pad := alignUp(offset, fal) - offset
		b.emitPadding(pad)
		offset += pad

		fieldPrivate, err := b.fieldVisibility(owner, f, private)
		if err != nil {
			return 0, err
		}

		b.debugEnter(DebugEnumVariantField, f.Ty, f.Name, i)
		got, err := b.emit(f.Ty, fieldPrivate)
		b.debugExit()
		if err != nil {
			return 0, err
		}
		if got != fsz {
			return 0, newLayoutOverflow(f.Ty)
		}
		offset += fsz
	}
	return offset, nil
}

func (b *NfaBuilder) emitTaggedUnion(ty *Type, private bool) (int, error) {
	if ty.Repr.IntTag == nil {
		return 0, newNotWellSpecified(ty, "tagged union must have an explicit integer tag representation")
	}
	if len(ty.Variants) == 0 {
		return 0, newTypeUnsupported(ty, "tagged union has no variants")
	}
	b.debugEnter(DebugEnum, ty, "", 0)
	defer b.debugExit()

	tagWidth := int(*ty.Repr.IntTag)
	payload, palign := 0, 1
	for _, v := range ty.Variants {
		sz, al, err := b.fieldsSizeAlign(v.Fields)
		if err != nil {
			return 0, err
		}
		if sz > payload {
			payload = sz
		}
		if al > palign {
			palign = al
		}
	}
	align := maxInt(tagWidth, palign)
	bodyOffset := alignUp(tagWidth, align)
	total := alignUp(bodyOffset+payload, align)

	splitIPs := make([]InstPtr, len(ty.Variants)-1)
	for i := range splitIPs {
		b.insts = append(b.insts, newInvalidSplit())
		splitIPs[i] = InstPtr(len(b.insts) - 1)
	}

	var joinIPs []InstPtr
	for i, v := range ty.Variants {
		if i > 0 {
			b.insts[splitIPs[i-1]].(*InstSplit).Alternate = InstPtr(len(b.insts))
		}
		b.debugEnter(DebugEnumVariant, nil, v.Name, i)

		tagBytes := make([]byte, tagWidth)
		b.target.Endian.PutUint(tagBytes, v.Discr, tagWidth)
		for _, by := range tagBytes {
			b.insts = append(b.insts, &InstByteRange{Private: private, Range: Exact(by)})
		}
		b.emitPadding(bodyOffset - tagWidth)

		consumed, err := b.emitFields(ty, v.Fields, private)
		if err != nil {
			b.debugExit()
			return 0, err
		}
		b.emitPadding(total - bodyOffset - consumed)
		b.debugExit()

		if i < len(ty.Variants)-1 {
			b.insts = append(b.insts, newInvalidGoto())
			joinIPs = append(joinIPs, InstPtr(len(b.insts)-1))
		}
	}
	joinTarget := InstPtr(len(b.insts))
	for _, ip := range joinIPs {
		b.insts[ip].(*InstJoinGoto).Target = joinTarget
	}
	return total, nil
}

func (b *NfaBuilder) emitUntaggedUnion(ty *Type, private bool) (int, error) {
	if !ty.Repr.C {
		return 0, newNotWellSpecified(ty, "untagged union is not repr(C)")
	}
	if len(ty.Variants) == 0 {
		return 0, newTypeUnsupported(ty, "untagged union has no variants")
	}
	b.debugEnter(DebugUnion, ty, "", 0)
	defer b.debugExit()

	size, align := 0, 1
	for _, v := range ty.Variants {
		sz, al, err := b.fieldsSizeAlign(v.Fields)
		if err != nil {
			return 0, err
		}
		if sz > size {
			size = sz
		}
		if al > align {
			align = al
		}
	}
	total := alignUp(size, align)

	splitIPs := make([]InstPtr, len(ty.Variants)-1)
	for i := range splitIPs {
		b.insts = append(b.insts, newInvalidSplit())
		splitIPs[i] = InstPtr(len(b.insts) - 1)
	}
	var joinIPs []InstPtr
	for i, v := range ty.Variants {
		if i > 0 {
			b.insts[splitIPs[i-1]].(*InstSplit).Alternate = InstPtr(len(b.insts))
		}
		b.debugEnter(DebugUnionVariant, nil, v.Name, i)
		consumed, err := b.emitFields(ty, v.Fields, private)
		if err != nil {
			b.debugExit()
			return 0, err
		}
		b.emitPadding(total - consumed)
		b.debugExit()
		if i < len(ty.Variants)-1 {
			b.insts = append(b.insts, newInvalidGoto())
			joinIPs = append(joinIPs, InstPtr(len(b.insts)-1))
		}
	}
	joinTarget := InstPtr(len(b.insts))
	for _, ip := range joinIPs {
		b.insts[ip].(*InstJoinGoto).Target = joinTarget
	}
	return total, nil
}
