package transmute

import "github.com/xyproto/transmute/internal/engine"

// Scope identifies the module a field's visibility is checked against
// (spec §6 "External interfaces"). What a Scope actually names (a Go
// package path, a Rust module path, ...) is owned entirely by the
// LayoutOracle implementation; this package only passes Scopes to the
// oracle and matches a type's Name against the oracle's ScopeNames.
type Scope string

// LayoutOracle is the front-end this package asks for everything it
// cannot determine structurally from a *Type: target description,
// module nesting, and field visibility (spec §6). A concrete
// implementation (see internal/staticoracle for this repo's own) is
// expected to wrap whatever type-checking/resolution machinery the
// embedding compiler already has; the only Scope this package derives
// on its own is a record or union's Name (see NfaBuilder.fieldVisibility).
type LayoutOracle interface {
	// TargetDescription returns the endianness and pointer shape a
	// layout program must be compiled against (spec §4.2 step 7).
	TargetDescription() engine.Target

	// VisibleFrom reports whether a field declared public in defining
	// is visible from viewer. Called once per field during the build,
	// not once per byte (spec §4.2 "Visibility").
	VisibleFrom(defining, viewer Scope) (bool, error)

	// ParentModule returns the scope that contains child, and whether
	// child has a parent at all (the root scope does not).
	ParentModule(child Scope) (Scope, bool)

	// ScopeNames returns every scope name the oracle knows of, used to
	// decide whether a type's Name is a scope worth asking VisibleFrom
	// about, and to build "did you mean" suggestions when a scope lookup
	// fails (spec §6 "Outputs").
	ScopeNames() []string
}

// ResolveVisibility wraps LayoutOracle.VisibleFrom with the
// ImproperScope diagnostics (did-you-mean suggestions) this package
// promises on a lookup failure.
func ResolveVisibility(oracle LayoutOracle, defining, viewer Scope) (bool, error) {
	ok, err := oracle.VisibleFrom(defining, viewer)
	if err != nil {
		suggestions := engine.FindSimilarNames(string(viewer), oracle.ScopeNames(), 3)
		return false, newImproperScope(string(viewer), suggestions, err)
	}
	return ok, nil
}
