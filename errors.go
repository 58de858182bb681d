package transmute

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// BuildErrorKind classifies why a build(tcx, scope, ty) call failed
// before ever reaching the executor (spec §4.2, §7).
type BuildErrorKind int

const (
	// NotWellSpecified: ty's layout is not guaranteed stable (spec
	// GLOSSARY "Well-specified layout") — e.g. a record or union
	// without repr(C), or a tagged union without an explicit repr(int).
	NotWellSpecified BuildErrorKind = iota
	// TypeUnsupported: ty uses a shape this package does not lower
	// (a Kind the builder has no case for, or a union with no
	// variants); CheckTransmute also reports a destination containing a
	// field not visible from the requesting scope with this kind.
	TypeUnsupported
	// ImproperScope: a LayoutOracle.VisibleFrom query referenced a
	// scope the oracle does not recognize.
	ImproperScope
	// LayoutOverflow: a record, array, or union's computed size would
	// overflow the builder's internal byte-offset arithmetic.
	LayoutOverflow
	// ProgramTooLarge: an in-progress build exceeded MaxProgram
	// instructions.
	ProgramTooLarge
)

func (k BuildErrorKind) String() string {
	switch k {
	case NotWellSpecified:
		return "not well-specified"
	case TypeUnsupported:
		return "unsupported type"
	case ImproperScope:
		return "improper scope"
	case LayoutOverflow:
		return "layout overflow"
	case ProgramTooLarge:
		return "program too large"
	default:
		return "unknown"
	}
}

// BuildError is returned by Build when ty cannot be lowered
// into a Program at all (spec §4.2 "Errors"). It is distinct from a
// RejectedError, which reports a transmute that was successfully
// modeled but judged unsound.
type BuildError struct {
	Kind       BuildErrorKind
	Ty         *Type
	Message    string
	Suggestion string
	cause      error
}

func (e *BuildError) Error() string {
	if e.Ty != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Ty)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying oracle or scope-lookup failure, if any,
// to errors.Is / errors.As callers.
func (e *BuildError) Unwrap() error { return e.cause }

// Format renders e the way a reader of this package's diagnostics
// expects: a header line, the offending type, and an optional
// suggestion (spec §6 "Outputs").
func (e *BuildError) Format(useColor bool) string {
	var sb strings.Builder
	writeHeader(&sb, useColor, "error", e.Kind.String()+": "+e.Message)
	if e.Ty != nil {
		sb.WriteString("  --> ")
		sb.WriteString(e.Ty.String())
		sb.WriteString("\n")
	}
	if e.Suggestion != "" {
		writeNote(&sb, useColor, "help", e.Suggestion)
	}
	if e.cause != nil {
		writeNote(&sb, useColor, "note", e.cause.Error())
	}
	return sb.String()
}

func newNotWellSpecified(ty *Type, reason string) *BuildError {
	return &BuildError{Kind: NotWellSpecified, Ty: ty, Message: reason,
		Suggestion: "add an explicit repr(C) or repr(<int>) to give this type a stable layout"}
}

func newTypeUnsupported(ty *Type, reason string) *BuildError {
	return &BuildError{Kind: TypeUnsupported, Ty: ty, Message: reason}
}

func newImproperScope(query string, suggestions []string, cause error) *BuildError {
	msg := fmt.Sprintf("scope lookup for %q failed", query)
	var suggestion string
	if len(suggestions) > 0 {
		suggestion = fmt.Sprintf("did you mean %q?", suggestions[0])
	}
	return &BuildError{Kind: ImproperScope, Message: msg, Suggestion: suggestion,
		cause: errors.Wrap(cause, "scope lookup")}
}

func newLayoutOverflow(ty *Type) *BuildError {
	return &BuildError{Kind: LayoutOverflow, Ty: ty, Message: "computed size overflows a native layout offset"}
}

func newProgramTooLarge(ty *Type) *BuildError {
	return &BuildError{Kind: ProgramTooLarge, Ty: ty,
		Message: fmt.Sprintf("instruction stream exceeded %d instructions", MaxProgram)}
}

// RejectedPath is one step of the resolved-debug chain attached to a
// RejectedError, rendered from a DebugEntry (spec §6 "Outputs").
type RejectedPath struct {
	Ident string
	Field string
	Index int
}

// RejectedError reports that build() succeeded on both sides but the
// executor found at least one byte-offset pair the Dst program cannot
// accept from the Src program (spec §4.4). Assume records the
// assumptions the check ran under; they were already applied to every
// byte pair (spec §4.1 "with_assume"), so each listed Rejection still
// applies under them.
type RejectedError struct {
	Assume     Assume
	Rejections []Rejection
}

// Rejection is one (dst ip, src ip) pair the executor could not accept,
// together with the resolved provenance of each side (spec §4.4).
type Rejection struct {
	DstIP    InstPtr
	SrcIP    InstPtr
	State    AcceptState
	DstTrace []RejectedPath
	SrcTrace []RejectedPath
}

func (e *RejectedError) Error() string {
	if len(e.Rejections) == 0 {
		return "transmute rejected"
	}
	first := e.Rejections[0]
	more := ""
	if n := len(e.Rejections) - 1; n > 0 {
		more = fmt.Sprintf(" (and %d more)", n)
	}
	return fmt.Sprintf("transmute rejected: %s%s", first.State, more)
}

// Format renders the full rejection list with provenance traces (spec
// §6 "Outputs").
func (e *RejectedError) Format(useColor bool) string {
	var sb strings.Builder
	writeHeader(&sb, useColor, "error", "transmute rejected")
	for i, r := range e.Rejections {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("  at dst ip %d / src ip %d: %s\n", r.DstIP, r.SrcIP, r.State))
		if len(r.DstTrace) > 0 {
			sb.WriteString("    dst: ")
			sb.WriteString(formatTrace(r.DstTrace))
			sb.WriteString("\n")
		}
		if len(r.SrcTrace) > 0 {
			sb.WriteString("    src: ")
			sb.WriteString(formatTrace(r.SrcTrace))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func formatTrace(trace []RejectedPath) string {
	parts := make([]string, 0, len(trace))
	for _, p := range trace {
		switch {
		case p.Field != "":
			parts = append(parts, fmt.Sprintf("%s(%s)", p.Ident, p.Field))
		case p.Ident == "variant" || p.Ident == "u_field":
			parts = append(parts, fmt.Sprintf("%s[%d]", p.Ident, p.Index))
		default:
			parts = append(parts, p.Ident)
		}
	}
	return strings.Join(parts, " -> ")
}

func writeHeader(sb *strings.Builder, useColor bool, level, message string) {
	if useColor {
		sb.WriteString("\033[1;31m")
	}
	sb.WriteString(level)
	sb.WriteString(": ")
	if useColor {
		sb.WriteString("\033[0m")
	}
	sb.WriteString(message)
	sb.WriteString("\n")
}

func writeNote(sb *strings.Builder, useColor bool, label, text string) {
	if useColor {
		sb.WriteString("\033[1;36m")
	}
	sb.WriteString("   " + label + ": ")
	if useColor {
		sb.WriteString("\033[0m")
	}
	sb.WriteString(text)
	sb.WriteString("\n")
}
