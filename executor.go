package transmute

// execFork is one entry on the executor's fork stack: a point the
// search can rewind to and take the other branch from (spec §4.4).
type execFork struct {
	dst    ProgFork
	src    ProgFork
	isDst  bool // true: the fork lives on the dst side; false: src side
}

// Execution walks a compiled Dst program against a compiled Src
// program byte for byte, accumulating the per-source-instruction
// AcceptState that is the most permissive verdict reached along any
// explored path (spec §3, §4.4).
type Execution struct {
	dst      *Program
	src      *Program
	assume   Assume
	accepted []AcceptState // indexed by src ip
	dstIPs   []InstPtr     // indexed by src ip: the dst instruction last paired with it
	forks    []execFork
}

// NewExecution prepares dst and src for a Check call. src is padded
// with Uninit bytes up to dst's size (or vice versa) so the shorter
// side's tail still participates in the walk instead of aborting it
// (spec §4.4 "Initialization").
func NewExecution(dst, src *Program, assume Assume) *Execution {
	if dst.Size() > src.Size() {
		src.ExtendTo(dst)
	} else if src.Size() > dst.Size() {
		dst.ExtendTo(src)
	}
	accepted := src.AcceptStateVector(0)
	return &Execution{
		dst:      dst,
		src:      src,
		assume:   assume,
		accepted: accepted,
		dstIPs:   make([]InstPtr, len(accepted)),
	}
}

// maxDstForks bounds how many dst-side forks runOnce pushes onto the
// fork stack while earlier ones are still live; a dst fork met beyond
// that bound is stepped past without being recorded. Synthetic forks
// are not counted against it.
const maxDstForks = 1 << 16

// Check runs the paired walk to completion and returns nil if every
// reachable (dst, src) byte pair was accepted, or a *RejectedError
// listing every pair that was not (spec §4.4).
func (e *Execution) Check() error {
	dstForks := 0

	for {
		e.runOnce(&dstForks)
		if len(e.forks) == 0 {
			return e.finish()
		}
		last := e.forks[len(e.forks)-1]
		e.forks = e.forks[:len(e.forks)-1]
		if last.isDst {
			dstForks--
		}
		e.dst.RestoreFork(last.dst)
		e.src.RestoreFork(last.src)
	}
}

// runOnce advances both cursors from their current position until
// either side reaches Accept, pushing any fork it encounters onto the
// shared fork stack so Check can explore it afterward. Src forks are
// enumerated before dst forks (spec §4.4 steps 2-3).
func (e *Execution) runOnce(dstForks *int) {
	for {
		// Save both fork tokens before either cursor's NextFork call
		// below can advance it: NextFork computes the next pending step
		// eagerly (cursor.go's advance already bumps ip/pos to produce
		// it), and SaveFork reports a byte step left pending by an
		// earlier iteration at that step's own position, so both tokens
		// point at this iteration's start (spec §4.4 step 1;
		// exec.rs:115-116 saves src_fork/dst_fork ahead of either
		// next_fork() call).
		srcPre := e.src.SaveFork()
		dstPre := e.dst.SaveFork()

		srcFork := e.src.NextFork()
		if srcFork != nil {
			e.src.Next()
			e.forks = append(e.forks, execFork{dst: dstPre, src: *srcFork, isDst: false})
			continue
		}
		dstFork := e.dst.NextFork()
		if dstFork != nil {
			e.dst.Next()
			if *dstForks < maxDstForks {
				e.forks = append(e.forks, execFork{dst: *dstFork, src: srcPre, isDst: true})
				*dstForks++
			}
			continue
		}

		dstStep := e.dst.Next()
		if dstStep == nil {
			return
		}
		srcStep := e.src.Next()
		if srcStep == nil {
			return
		}

		ip := srcStep.IP
		state := dstStep.Byte.Accepts(srcStep.Byte)
		if state.Kind == MaybeCheckRange {
			// synthetic_fork may only splice a new alternative when the
			// destination still has an unexplored alternative of its
			// own to pair it against later (spec §4.4 step 7: "dst_forks
			// > 0"); otherwise this byte pair rejects outright.
			resolved, fork := e.src.SyntheticFork(ip, state, *dstForks != 0, &e.accepted)
			state = resolved
			for len(e.dstIPs) < len(e.accepted) {
				e.dstIPs = append(e.dstIPs, 0)
			}
			if fork != nil {
				e.forks = append(e.forks, execFork{dst: dstPre, src: *fork, isDst: true})
				*dstForks++
			}
		}
		state = state.WithAssume(e.assume)

		if int(ip) < len(e.accepted) && !e.accepted[ip].IsAlways() {
			e.accepted[ip] = weakest(e.accepted[ip], state)
			e.dstIPs[ip] = dstStep.IP
		}
	}
}

// weakest keeps whichever of two accept states for the same source ip
// is the more permissive one already observed, since a byte pair is
// only truly rejected if every explored path through it rejected
// (spec §4.4 "accumulate").
func weakest(existing, next AcceptState) AcceptState {
	if existing.Kind == NeverUnreachable {
		return next
	}
	if next.IsAlways() {
		return next
	}
	if existing.IsAlways() {
		return existing
	}
	return existing
}

// finish converts any surviving non-Always accept state into a
// RejectedError, resolving each offending instruction's provenance
// through both programs' debug trails (spec §6 "Outputs").
func (e *Execution) finish() error {
	var rejections []Rejection
	for ip, state := range e.accepted {
		if state.IsAlways() || state.Kind == NeverUnreachable {
			continue
		}
		rejections = append(rejections, Rejection{
			DstIP:    e.dstIPs[ip],
			SrcIP:    InstPtr(ip),
			State:    state,
			SrcTrace: renderTrace(e.src.ResolveDebug(InstPtr(ip))),
			DstTrace: renderTrace(e.dst.ResolveDebug(e.dstIPs[ip])),
		})
	}
	if len(rejections) == 0 {
		return nil
	}
	return &RejectedError{Assume: e.assume, Rejections: rejections}
}

func renderTrace(entries []DebugEntry) []RejectedPath {
	out := make([]RejectedPath, 0, len(entries))
	for _, e := range entries {
		if e.Kind == DebugRoot || e.Kind == DebugFork || e.Kind == DebugPadding {
			continue
		}
		out = append(out, RejectedPath{Ident: e.Kind.Ident(), Field: e.FieldName, Index: e.Index})
	}
	return out
}

// CheckTransmute is the package's top-level entry point: it builds
// both sides from their structural Types and checks the result (spec
// §4, §6 "Entry point"). A *BuildError means either side could not be
// modeled at all; a *RejectedError means both sides built fine but the
// transmute is unsound under assume.
func CheckTransmute(oracle LayoutOracle, dstScope, srcScope Scope, dstTy, srcTy *Type, assume Assume) error {
	dst, err := Build(oracle, dstScope, dstTy)
	if err != nil {
		return err
	}
	src, err := Build(oracle, srcScope, srcTy)
	if err != nil {
		return err
	}
	if dst.HasPrivate {
		return &BuildError{Kind: TypeUnsupported, Ty: dstTy,
			Message: "destination type contains a field not visible from the requesting scope"}
	}
	return NewExecution(dst, src, assume).Check()
}
