package transmute

// Assume records the four compile-time assumptions a caller may grant
// the checker (spec §1, §3).
type Assume struct {
	Alignment  bool
	Lifetimes  bool
	Validity   bool
	Visibility bool
}

// NoAssumptions is the most conservative Assume: every byte-level
// observation must be independently justified.
func NoAssumptions() Assume { return Assume{} }

// AllAssumptions grants every assumption; used by the identity property
// (spec §8): checking any well-specified type against itself under
// AllAssumptions() must succeed.
func AllAssumptions() Assume {
	return Assume{Alignment: true, Lifetimes: true, Validity: true, Visibility: true}
}

// LessOrEqual reports whether a grants no more than b grants,
// componentwise. Used by the monotonicity property (spec §8): for every
// a <= b, enabling an assumption never turns an Ok verdict into a
// rejection.
func (a Assume) LessOrEqual(b Assume) bool {
	return (!a.Alignment || b.Alignment) &&
		(!a.Lifetimes || b.Lifetimes) &&
		(!a.Validity || b.Validity) &&
		(!a.Visibility || b.Visibility)
}

// WithAssume post-composes the assume mask onto an AcceptState (spec
// §4.1). It never turns Always into anything else, and only ever
// demotes a Never*/Maybe* state towards Always.
func (a AcceptState) WithAssume(assume Assume) AcceptState {
	switch a.Kind {
	case NeverOutOfRange, MaybeCheckRange:
		// A ByteRange always spans at least one value (Start <= End),
		// so "non-empty" (spec §4.1) is unconditional here.
		if assume.Validity {
			return AlwaysState()
		}
		return a
	case NeverReadPrivate, NeverWritePrivate:
		if assume.Visibility {
			return AlwaysState()
		}
		return a
	default:
		// MaybeCheckRef is never demoted, under any combination of
		// Alignment/Lifetimes: proving transmutability across references
		// beyond recording this pairwise obligation is out of scope
		// (spec §1), so the obligation is always reported back to the
		// caller's trait-resolution glue to resolve recursively.
		return a
	}
}
