package transmute

import "fmt"

// InstPtr is an index into a Program's instruction stream. Programs are
// bounded by MaxProgram instructions (spec §3).
type InstPtr = uint32

// MaxProgram is the largest instruction count a Program may grow to.
// Exceeding it during a build is a BuildError of kind ProgramTooLarge.
const MaxProgram = ^uint32(0) // 2^32 - 1

// ByteRange is an inclusive range of byte values, [Start, End] subset of
// [0, 255].
type ByteRange struct {
	Start byte
	End   byte
}

// Full is the byte range matching any byte value.
func Full() ByteRange { return ByteRange{0, 255} }

// Exact is the byte range matching exactly one value.
func Exact(b byte) ByteRange { return ByteRange{b, b} }

// ContainsRange reports whether other is entirely within r.
func (r ByteRange) ContainsRange(other ByteRange) bool {
	return r.Start <= other.Start && r.End >= other.End
}

// Intersects reports whether r and other share at least one byte value.
func (r ByteRange) Intersects(other ByteRange) bool {
	return r.End >= other.Start && r.Start <= other.End
}

func (r ByteRange) String() string {
	return fmt.Sprintf("0x%02x-0x%02x", r.Start, r.End)
}

// Inst is one instruction in a layout program (spec §3). The concrete
// types below are the closed set of instruction kinds; a Program's
// Insts slice holds a mix of them.
type Inst interface {
	isInst()
}

// InstAccept is the terminal instruction. Every well-formed program
// ends with exactly one of these (spec invariant 4).
type InstAccept struct{}

func (*InstAccept) isInst() {}

// InstUninit matches one uninitialized byte.
type InstUninit struct{}

func (*InstUninit) isInst() {}

// InstByteRange matches any byte within Range. When Alternate is
// non-nil it points at a forkable successor byte set appended later in
// the program by the executor's synthetic_fork; the builder never sets
// it.
type InstByteRange struct {
	Private   bool
	Range     ByteRange
	Alternate *InstPtr
}

func (*InstByteRange) isInst() {}

// InstSplit is an unconditional non-deterministic branch point: the
// cursor may continue past it, or fork to Alternate.
type InstSplit struct {
	Alternate InstPtr
}

func (*InstSplit) isInst() {}

// InstJoinGoto is the unconditional jump used as the join point after
// an alternative block built by the builder (e.g. after a union
// variant).
type InstJoinGoto struct {
	Target InstPtr
}

func (*InstJoinGoto) isInst() {}

// InstRef is an opaque reference/pointer-sized region carrying a typed
// obligation: checking it further requires recursively checking
// Referent, which this package records but does not itself resolve
// (spec §1 scope).
type InstRef struct {
	IsPtr      bool
	Mutable    bool
	Referent   *Type
	DataSize   uint32
	DataAlign  uint32
}

func (*InstRef) isInst() {}

// InstRefTail is one of DataSize-1 filler instructions following an
// InstRef.
type InstRefTail struct{}

func (*InstRefTail) isInst() {}

func newInvalidSplit() *InstSplit     { return &InstSplit{Alternate: MaxProgram} }
func newInvalidGoto() *InstJoinGoto   { return &InstJoinGoto{Target: MaxProgram} }

// StepByteKind discriminates the payload carried by a StepByte.
type StepByteKind int

const (
	StepUninit StepByteKind = iota
	StepByteRangeKind
	StepRefHead
	StepRefTail
)

// StepByte is the observation emitted per byte while stepping a
// Program (spec §3).
type StepByte struct {
	Kind    StepByteKind
	Private bool
	Range   ByteRange
	Ref     *InstRef // set when Kind == StepRefHead
}

// AcceptKind discriminates the payload carried by an AcceptState.
type AcceptKind int

const (
	Always AcceptKind = iota
	NeverReadUninit
	NeverReadPrivate
	NeverWritePrivate
	NeverOutOfRange
	NeverUnreachable
	MaybeCheckRange
	MaybeCheckRef
	NeverReadRef
	NeverWriteRef
)

func (k AcceptKind) String() string {
	switch k {
	case Always:
		return "always"
	case NeverReadUninit:
		return "never_read_uninit"
	case NeverReadPrivate:
		return "never_read_private"
	case NeverWritePrivate:
		return "never_write_private"
	case NeverOutOfRange:
		return "never_out_of_range"
	case NeverUnreachable:
		return "never_unreachable"
	case MaybeCheckRange:
		return "maybe_check_range"
	case MaybeCheckRef:
		return "maybe_check_ref"
	case NeverReadRef:
		return "never_read_ref"
	case NeverWriteRef:
		return "never_write_ref"
	default:
		return "unknown"
	}
}

// AcceptState is the per-source-IP verdict accumulated while checking
// two programs against each other (spec §3).
type AcceptState struct {
	Kind      AcceptKind
	DstRange  ByteRange // NeverOutOfRange, MaybeCheckRange
	SrcRange  ByteRange // NeverOutOfRange, MaybeCheckRange
	DstTy     *Type     // MaybeCheckRef
	SrcTy     *Type     // MaybeCheckRef
}

// AlwaysState is the trivially-accepting state.
func AlwaysState() AcceptState { return AcceptState{Kind: Always} }

// IsAlways reports whether a is the Always state.
func (a AcceptState) IsAlways() bool { return a.Kind == Always }

func (a AcceptState) String() string {
	switch a.Kind {
	case NeverOutOfRange, MaybeCheckRange:
		return fmt.Sprintf("%s(dst=%s, src=%s)", a.Kind, a.DstRange, a.SrcRange)
	case MaybeCheckRef:
		return fmt.Sprintf("%s(dst=%s, src=%s)", a.Kind, a.DstTy, a.SrcTy)
	default:
		return a.Kind.String()
	}
}

// Accepts implements the ByteRange algebra of spec §4.1: given a
// destination observation d (the receiver) and a source observation s,
// it produces the AcceptState for that byte pair.
func (d StepByte) Accepts(s StepByte) AcceptState {
	// A destination byte that is still uninitialized accepts anything,
	// except a source reference: writing Uninit over reference bytes
	// would still observe them as a reference on the source side.
	if d.Kind == StepUninit {
		if s.Kind == StepRefHead || s.Kind == StepRefTail {
			return AcceptState{Kind: NeverWriteRef}
		}
		return AlwaysState()
	}
	// Nothing may read an uninitialized source byte.
	if s.Kind == StepUninit {
		return AcceptState{Kind: NeverReadUninit}
	}
	// A private destination byte dominates: writing into it is never
	// permitted regardless of what the source holds.
	if d.Kind == StepByteRangeKind && d.Private {
		return AcceptState{Kind: NeverWritePrivate}
	}
	// A private source byte may never be read.
	if s.Kind == StepByteRangeKind && s.Private {
		return AcceptState{Kind: NeverReadPrivate}
	}

	switch {
	case d.Kind == StepRefHead && s.Kind == StepRefHead:
		return AcceptState{Kind: MaybeCheckRef, DstTy: d.Ref.Referent, SrcTy: s.Ref.Referent}
	case d.Kind == StepRefTail && s.Kind == StepRefTail:
		return AlwaysState()
	case d.Kind == StepRefHead || d.Kind == StepRefTail:
		return AcceptState{Kind: NeverWriteRef}
	case s.Kind == StepRefHead || s.Kind == StepRefTail:
		return AcceptState{Kind: NeverReadRef}
	case d.Kind == StepByteRangeKind && s.Kind == StepByteRangeKind:
		if d.Range.ContainsRange(s.Range) {
			return AlwaysState()
		} else if d.Range.Intersects(s.Range) {
			return AcceptState{Kind: MaybeCheckRange, DstRange: d.Range, SrcRange: s.Range}
		}
		return AcceptState{Kind: NeverOutOfRange, DstRange: d.Range, SrcRange: s.Range}
	default:
		// Unreachable for a well-formed pair of StepBytes.
		return AcceptState{Kind: NeverUnreachable}
	}
}

// LayoutStepKind discriminates the payload carried by a LayoutStep.
type LayoutStepKind int

const (
	StepByteStep LayoutStepKind = iota
	StepForkStep
)

// ProgFork is a cursor-rewind token: enough to restore a Program's
// (ip, pos) to a prior point (spec §3 "Cursor fork token").
type ProgFork struct {
	IP  InstPtr
	Pos int
}

// LayoutStep is one value yielded by Program.Next.
type LayoutStep struct {
	Kind LayoutStepKind
	IP   InstPtr
	Pos  int
	Byte StepByte // set when Kind == StepByteStep
	Fork ProgFork // set when Kind == StepForkStep
}

// DebugEntry is documented in debug.go; it is referenced here only by
// type name so Program can hold a debug trail.

// Program owns the compiled instruction stream for one side (Src or
// Dst) of a transmutability query, a debug trail sufficient to
// reconstruct provenance for any instruction pointer, and the cursor
// state used to step through it lazily (spec §3).
type Program struct {
	Insts      []Inst
	Debug      []DebugEntry
	HasPrivate bool
	size       int // committed layout size at end of build, in bytes

	// cursor state
	ip       InstPtr
	pos      int
	sforks   int
	tookFork *InstPtr
	pending  *LayoutStep
}

// NewProgram wraps a built instruction stream and debug trail into a
// fresh Program with its cursor at the start.
func NewProgram(insts []Inst, debug []DebugEntry, size int, hasPrivate bool) *Program {
	return &Program{Insts: insts, Debug: debug, HasPrivate: hasPrivate, size: size}
}

// Size returns the program's committed layout size in bytes.
func (p *Program) Size() int { return p.size }

func (p *Program) String() string {
	s := "Program{\n"
	for i, inst := range p.Insts {
		s += fmt.Sprintf("  %03d %s\n", i, instString(inst))
	}
	return s + "}"
}

func instString(inst Inst) string {
	switch v := inst.(type) {
	case *InstAccept:
		return "Accept"
	case *InstUninit:
		return "Uninit"
	case *InstByteRange:
		s := "ByteRange("
		if v.Private {
			s += "private, "
		}
		if v.Alternate != nil {
			s += fmt.Sprintf("alt=%d, ", *v.Alternate)
		}
		return s + v.Range.String() + ")"
	case *InstSplit:
		return fmt.Sprintf("Split(alt=%d)", v.Alternate)
	case *InstJoinGoto:
		return fmt.Sprintf("JoinGoto(%d)", v.Target)
	case *InstRef:
		name := "Ref"
		if v.IsPtr {
			name = "Ptr"
		}
		return fmt.Sprintf("%s(mut=%v, data_size=%d, data_align=%d)", name, v.Mutable, v.DataSize, v.DataAlign)
	case *InstRefTail:
		return "RefTail"
	default:
		return "?"
	}
}
