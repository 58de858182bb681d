package transmute

import "sort"

// advance computes the next pending LayoutStep, or leaves pending nil
// at Accept (spec §4.3).
func (p *Program) advance() {
	for int(p.ip) < len(p.Insts) {
		inst := p.Insts[p.ip]
		var rv *LayoutStep

		switch v := inst.(type) {
		case *InstAccept:
			p.pending = nil
			return

		case *InstByteRange:
			if v.Alternate != nil {
				if p.tookFork != nil && *p.tookFork == p.ip {
					p.tookFork = nil
					rv = &LayoutStep{Kind: StepByteStep, IP: p.ip, Pos: p.pos,
						Byte: StepByte{Kind: StepByteRangeKind, Private: v.Private, Range: v.Range}}
				} else {
					alt := *v.Alternate
					p.tookFork = &p.ip
					p.pending = &LayoutStep{Kind: StepForkStep, Fork: ProgFork{IP: alt, Pos: p.pos}}
					return
				}
			} else {
				rv = &LayoutStep{Kind: StepByteStep, IP: p.ip, Pos: p.pos,
					Byte: StepByte{Kind: StepByteRangeKind, Private: v.Private, Range: v.Range}}
			}

		case *InstUninit:
			rv = &LayoutStep{Kind: StepByteStep, IP: p.ip, Pos: p.pos, Byte: StepByte{Kind: StepUninit}}

		case *InstSplit:
			rv = &LayoutStep{Kind: StepForkStep, Fork: ProgFork{IP: v.Alternate, Pos: p.pos}}

		case *InstRef:
			rv = &LayoutStep{Kind: StepByteStep, IP: p.ip, Pos: p.pos, Byte: StepByte{Kind: StepRefHead, Ref: v}}

		case *InstRefTail:
			rv = &LayoutStep{Kind: StepByteStep, IP: p.ip, Pos: p.pos, Byte: StepByte{Kind: StepRefTail}}

		case *InstJoinGoto:
			p.ip = v.Target
			continue

		default:
			panic("transmute: unreachable instruction kind")
		}

		p.ip++
		if rv.Kind == StepByteStep {
			p.pos++
		}
		p.pending = rv
		if p.pending != nil {
			return
		}
	}
	p.pending = nil
}

// Next advances the cursor, returning the step it produced, or nil at
// Accept.
func (p *Program) Next() *LayoutStep {
	if p.pending == nil {
		p.advance()
	}
	step := p.pending
	p.pending = nil
	return step
}

// NextFork returns the pending step only if it is a fork, without
// consuming it. The executor enumerates forks first with this, then
// commits them with Next.
func (p *Program) NextFork() *ProgFork {
	if p.pending == nil {
		p.advance()
	}
	if p.pending != nil && p.pending.Kind == StepForkStep {
		f := p.pending.Fork
		return &f
	}
	return nil
}

// SaveFork snapshots the cursor's (ip, pos). A byte step that NextFork
// has already computed but Next has not yet consumed counts as not yet
// taken: the token points at that step's own (ip, pos).
func (p *Program) SaveFork() ProgFork {
	if p.pending != nil && p.pending.Kind == StepByteStep {
		return ProgFork{IP: p.pending.IP, Pos: p.pending.Pos}
	}
	return ProgFork{IP: p.ip, Pos: p.pos}
}

// RestoreFork rewinds the cursor to a previously saved point. The
// fork-served memory (tookFork, pending) is reset so the next fork at
// that point is re-offered rather than silently skipped (spec §9).
func (p *Program) RestoreFork(fork ProgFork) {
	p.ip = fork.IP
	p.pos = fork.Pos
	p.tookFork = nil
	p.pending = nil
}

// ExtendTo pads p with Uninit bytes until its size matches other's, so
// a truncated Src can still be stepped past its own end (spec §4.3,
// §4.4 "Initialization"). It is a no-op if p is already at least as
// large. Disallowed once any synthetic fork has been spliced into p.
func (p *Program) ExtendTo(other *Program) {
	toPad := other.size - p.size
	if toPad <= 0 {
		return
	}
	if p.sforks != 0 {
		panic("transmute: cannot extend program after synthetic fork")
	}
	last := len(p.Insts) - 1
	if last < 0 {
		panic("transmute: expected the last instruction to be Accept")
	}
	if _, ok := p.Insts[last].(*InstAccept); !ok {
		panic("transmute: expected the last instruction to be Accept")
	}
	p.Insts = p.Insts[:last]
	p.Debug = append(p.Debug, DebugEntry{Kind: DebugPadding, IP: InstPtr(len(p.Insts)), Parent: 0})
	for i := 0; i < toPad; i++ {
		p.Insts = append(p.Insts, &InstUninit{})
	}
	p.Insts = append(p.Insts, &InstAccept{})
	p.size = other.size
}

// AcceptStateVector yields the per-IP initial accept values, starting
// at start: Always for Split/JoinGoto/Accept (control instructions that
// are never themselves read against), NeverUnreachable for everything
// else (spec §4.3 "accept_state").
func (p *Program) AcceptStateVector(start int) []AcceptState {
	out := make([]AcceptState, 0, len(p.Insts)-start)
	for _, inst := range p.Insts[start:] {
		switch inst.(type) {
		case *InstSplit, *InstJoinGoto, *InstAccept:
			out = append(out, AlwaysState())
		default:
			out = append(out, AcceptState{Kind: NeverUnreachable})
		}
	}
	return out
}

// SyntheticFork splices a new alternative into the source program when
// a byte-range overlap was detected but not originally modeled (spec
// §4.3, GLOSSARY "Synthetic fork"). accepts must be the AcceptState
// computed for instruction ip; when it is MaybeCheckRange and mayFork,
// the ByteRange at ip is narrowed to exactly dstRange (now Always), and
// up to two additional covers of the uncovered parts of srcRange are
// appended to the program via copyFork, threaded onto the original
// instruction's Alternate chain. marks is extended with the initial
// accept-state vector of each newly appended region.
func (p *Program) SyntheticFork(ip InstPtr, accepts AcceptState, mayFork bool, marks *[]AcceptState) (AcceptState, *ProgFork) {
	original := accepts
	if accepts.Kind != MaybeCheckRange {
		return original, nil
	}
	dst, src := accepts.DstRange, accepts.SrcRange
	if !dst.Intersects(src) || !mayFork {
		return original, nil
	}
	br, ok := p.Insts[ip].(*InstByteRange)
	if !ok {
		return original, nil
	}
	previous := *br

	if src.Start < dst.Start {
		missing := ByteRange{src.Start, dst.Start - 1}
		location := p.copyFork(ip)
		alternate := previous.Alternate
		previous.Alternate = &location
		p.Insts[location] = &InstByteRange{Private: previous.Private, Range: missing, Alternate: alternate}
		*marks = append(*marks, p.AcceptStateVector(int(location))...)
		p.sforks++
	}
	if src.End > dst.End {
		missing := ByteRange{dst.End + 1, src.End}
		location := p.copyFork(ip)
		alternate := previous.Alternate
		previous.Alternate = &location
		p.Insts[location] = &InstByteRange{Private: previous.Private, Range: missing, Alternate: alternate}
		*marks = append(*marks, p.AcceptStateVector(int(location))...)
		p.sforks++
	}

	previous.Range = dst
	var fork *ProgFork
	if previous.Alternate != nil {
		fork = &ProgFork{IP: *previous.Alternate, Pos: p.pos}
	}
	p.Insts[ip] = &previous
	return AlwaysState(), fork
}

// copyFork deep-copies the subprogram starting at start up to and
// including its governing Accept, rewriting Split alternates and
// JoinGoto targets by the clone's offset (spec §4.3). Each clone
// records a DebugFork entry so ResolveDebug can rebase across it.
func (p *Program) copyFork(start InstPtr) InstPtr {
	depth := 0
	dst := InstPtr(len(p.Insts))
	pos := start
	offset := dst - pos
	var moreForks [][2]InstPtr // (pos in new stream, original alternate ip)

	p.Debug = append(p.Debug, DebugEntry{Kind: DebugFork, IP: dst, Offset: offset})

	for {
		inst := cloneInst(p.Insts[pos])
		switch v := inst.(type) {
		case *InstSplit:
			depth++
			v.Alternate += offset
		case *InstJoinGoto:
			if depth == 0 {
				pos = v.Target
				newDst := InstPtr(len(p.Insts))
				offset = newDst - pos
				p.Debug = append(p.Debug, DebugEntry{Kind: DebugFork, IP: newDst, Offset: offset})
				continue
			}
			p.Debug = append(p.Debug, DebugEntry{Kind: DebugFork, IP: InstPtr(len(p.Insts)), Offset: offset})
			depth--
			v.Target += offset
		case *InstByteRange:
			if v.Alternate != nil {
				moreForks = append(moreForks, [2]InstPtr{InstPtr(len(p.Insts)), *v.Alternate})
			}
		case *InstAccept:
			p.Insts = append(p.Insts, inst)
			goto doneMain
		}
		p.Insts = append(p.Insts, inst)
		pos++
	}
doneMain:
	for _, pair := range moreForks {
		at, alt := pair[0], pair[1]
		cloned := p.copyFork(alt)
		br, ok := p.Insts[at].(*InstByteRange)
		if !ok {
			panic("transmute: expected a ByteRange instruction at recorded fork site")
		}
		br.Alternate = &cloned
	}
	return dst
}

func cloneInst(inst Inst) Inst {
	switch v := inst.(type) {
	case *InstAccept:
		c := *v
		return &c
	case *InstUninit:
		c := *v
		return &c
	case *InstByteRange:
		c := *v
		if v.Alternate != nil {
			alt := *v.Alternate
			c.Alternate = &alt
		}
		return &c
	case *InstSplit:
		c := *v
		return &c
	case *InstJoinGoto:
		c := *v
		return &c
	case *InstRef:
		c := *v
		return &c
	case *InstRefTail:
		c := *v
		return &c
	default:
		panic("transmute: unreachable instruction kind")
	}
}

// ResolveDebug returns the chain of debug entries from root to the
// closest ancestor of ip, rewinding across DebugFork entries by
// subtracting their Offset before continuing the tree walk (spec
// §4.3). The returned slice is ordered root-first.
func (p *Program) ResolveDebug(ip InstPtr) []DebugEntry {
	// seek finds the last (deepest) entry whose IP is at or before target.
	seek := func(target InstPtr) int {
		idx := sort.Search(len(p.Debug), func(i int) bool { return p.Debug[i].IP > target })
		if idx == 0 {
			return 0
		}
		return idx - 1
	}

	var result []DebugEntry
	tailIdx := seek(ip)
	cur := ip

	for {
		entry := p.Debug[tailIdx]
		switch entry.Kind {
		case DebugRoot:
			result = append(result, entry)
			goto doneWalk
		case DebugFork:
			parentIP := cur - entry.Offset
			cur = parentIP
			tailIdx = seek(parentIP)
		default:
			result = append(result, entry)
			parent, ok := entry.ParentID()
			if !ok {
				goto doneWalk
			}
			tailIdx = parent
		}
	}
doneWalk:
	// reverse: result was built leaf-first.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}
