package arm64

import "github.com/albanread/fasterbasic-arm64cg/internal/ir"

// EmitBlockBody walks a block's instructions with the one-instruction
// look-ahead fusion engine described in spec.md §4.6, rendering assembly
// lines and returning whatever CMP instruction remains pending at the
// block's end (for C7's compare-and-branch fold), or nil if nothing is
// pending.
func EmitBlockBody(cfg *Config, t Target, scratch ir.PReg, block *ir.Block) (lines []string, pendingCmp *ir.Instruction) {
	var pending *ir.Instruction
	var memPending *ir.Instruction

	flushMem := func() {
		if memPending != nil {
			lines = append(lines, Select(memPending, t, scratch)...)
			memPending = nil
		}
	}
	flushPending := func() {
		if pending != nil {
			lines = append(lines, Select(pending, t, scratch)...)
			pending = nil
		}
	}

	instrs := block.Instrs
	for i, cur := range instrs {
		if isMemOp(cur.Op) {
			if pending != nil && pending.Op == ir.OpAdd && cfg.IndexedAddrFusion {
				if fused, ok := tryIndexedFold(pending, cur, block, i); ok {
					cfg.trace(cfg.DebugIndexedAddr, "indexed-addressing fold at block %d instr %d", block.ID, i)
					lines = append(lines, fused)
					pending = nil
					continue
				}
			}
			flushPending()
			if memPending != nil && cfg.LdpStpFusion {
				if fused, ok := tryPairFusion(memPending, cur); ok {
					cfg.trace(cfg.DebugLdpStp, "ldp/stp fusion: %s + %s -> paired", memPending.Op, cur.Op)
					lines = append(lines, fused)
					memPending = nil
					continue
				}
			}
			flushMem()
			memPending = cur
			continue
		}
		flushMem()

		if pending != nil {
			if fused, ok := tryFuse(cfg, pending, cur, block, i); ok {
				lines = append(lines, fused)
				pending = nil
				continue
			}
			flushPending()
		}

		// At block end, a pending CMP against zero is left for C7 to try
		// folding into CBZ/CBNZ (spec.md §4.6.5).
		if i == len(instrs)-1 && cur.Op == ir.OpCmp && isCmpZero(cur) {
			pending = cur
			continue
		}

		if isFusionCandidate(cfg, cur) {
			pending = cur
			continue
		}
		lines = append(lines, Select(cur, t, scratch)...)
	}
	flushMem()
	if pending != nil && pending.Op == ir.OpCmp && isCmpZero(pending) {
		return lines, pending
	}
	flushPending()
	return lines, nil
}

func isCmpZero(instr *ir.Instruction) bool {
	return instr.Arg1.Kind == ir.RefConstKind && instr.Arg1.Const == 0
}

// isFusionCandidate reports whether instr could begin a pending-buffer
// fusion (MADD/MSUB, shifted-operand ALU, or a 64-bit register ADD for the
// indexed-addressing fold), gated by its enabling flag.
func isFusionCandidate(cfg *Config, instr *ir.Instruction) bool {
	switch instr.Op {
	case ir.OpMul:
		return cfg.MADDFusion
	case ir.OpShl, ir.OpShr, ir.OpSar:
		return cfg.ShiftFusion && instr.Arg1.Kind == ir.RefConstKind && instr.Arg1.Const >= 0 && instr.Arg1.Const <= 63
	case ir.OpAdd:
		return cfg.IndexedAddrFusion && instr.Class == ir.ClassL && instr.Arg0.IsReg() && instr.Arg1.IsReg()
	default:
		return false
	}
}

// tryFuse attempts every pending-buffer fusion pattern in turn.
func tryFuse(cfg *Config, pending, cur *ir.Instruction, block *ir.Block, curIdx int) (string, bool) {
	if pending.Op == ir.OpMul && cfg.MADDFusion {
		if s, ok := tryMaddMsub(pending, cur, block, curIdx); ok {
			cfg.trace(cfg.DebugMADD, "madd/msub fusion at block %d instr %d", block.ID, curIdx)
			return s, true
		}
	}
	if isShiftOp(pending.Op) && cfg.ShiftFusion {
		if s, ok := tryShiftFold(pending, cur, block, curIdx); ok {
			cfg.trace(cfg.DebugShift, "shift fusion at block %d instr %d", block.ID, curIdx)
			return s, true
		}
	}
	return "", false
}

func isShiftOp(op ir.Opcode) bool { return op == ir.OpShl || op == ir.OpShr || op == ir.OpSar }

// fusionSafe implements the universal safety predicate (spec.md §4.6): the
// fusion dropping pending's normal emission is unsafe if any instruction
// strictly after current in the block, the terminator's operands, or the
// block's live-out set still reads prevTo — unless current itself
// redefines prevTo, in which case every later reader already observes
// current's (fused) result.
func fusionSafe(block *ir.Block, curIdx int, prevTo ir.PReg, current *ir.Instruction) bool {
	if current.Dst.IsReg() && current.Dst.Reg.Equal(prevTo) {
		return true
	}
	for i := curIdx + 1; i < len(block.Instrs); i++ {
		instr := block.Instrs[i]
		if refReads(instr.Arg0, prevTo) || refReads(instr.Arg1, prevTo) {
			return false
		}
		if instr.Dst.IsReg() && instr.Dst.Reg.Equal(prevTo) {
			return true // redefined; scanning stops here.
		}
	}
	t := block.Term
	if refReads(t.CmpArg0, prevTo) || refReads(t.CmpArg1, prevTo) || refReads(t.IndexReg, prevTo) {
		return false
	}
	for _, lo := range block.LiveOut {
		if lo.Equal(prevTo) {
			return false
		}
	}
	return true
}

func refReads(ref ir.Reference, r ir.PReg) bool {
	return ref.Kind == ir.RefRegKind && ref.Reg.Equal(r)
}

// maddMatch is the outcome of matching spec.md §4.6.1's MADD/MSUB pattern,
// shared by the text emitter and the structured-stream path so the
// matching/safety logic is written exactly once.
type maddMatch struct {
	Dst, A, B, Addend ir.PReg
	IsSub             bool
}

// matchMaddMsub reports whether pending (a MUL) and cur together form a
// safe MADD/MSUB fusion (spec.md §4.6.1).
func matchMaddMsub(pending, cur *ir.Instruction, block *ir.Block, curIdx int) (maddMatch, bool) {
	d0 := pending.Dst.Reg
	if !pending.Dst.IsReg() || !pending.Arg0.IsReg() || !pending.Arg1.IsReg() {
		return maddMatch{}, false
	}
	a, b := pending.Arg0, pending.Arg1

	if cur.Op == ir.OpAdd && cur.Class == pending.Class {
		x, y := cur.Arg0, cur.Arg1
		var addend ir.Reference
		switch {
		case x.IsReg() && x.Reg.Equal(d0) && !(y.IsReg() && y.Reg.Equal(d0)):
			addend = y
		case y.IsReg() && y.Reg.Equal(d0) && !(x.IsReg() && x.Reg.Equal(d0)):
			addend = x
		default:
			return maddMatch{}, false
		}
		if !addend.IsReg() || !fusionSafe(block, curIdx, d0, cur) {
			return maddMatch{}, false
		}
		return maddMatch{Dst: cur.Dst.Reg, A: a.Reg, B: b.Reg, Addend: addend.Reg}, true
	}

	if cur.Op == ir.OpSub && cur.Class == pending.Class && !cur.Class.Float() {
		minuend, sub := cur.Arg0, cur.Arg1
		if !sub.IsReg() || !sub.Reg.Equal(d0) || !minuend.IsReg() {
			return maddMatch{}, false
		}
		if !fusionSafe(block, curIdx, d0, cur) {
			return maddMatch{}, false
		}
		return maddMatch{Dst: cur.Dst.Reg, A: a.Reg, B: b.Reg, Addend: minuend.Reg, IsSub: true}, true
	}
	return maddMatch{}, false
}

// tryMaddMsub implements spec.md §4.6.1's text rendering atop matchMaddMsub.
func tryMaddMsub(pending, cur *ir.Instruction, block *ir.Block, curIdx int) (string, bool) {
	m, ok := matchMaddMsub(pending, cur, block, curIdx)
	if !ok {
		return "", false
	}
	mnem := "madd"
	switch {
	case m.IsSub:
		mnem = "msub"
	case cur.Class.Float():
		mnem = "fmadd"
	}
	return mnem + " " + FormatReg(m.Dst, cur.Class) + ", " + FormatReg(m.A, pending.Class) + ", " +
		FormatReg(m.B, pending.Class) + ", " + FormatReg(m.Addend, cur.Class), true
}

// tryShiftFold implements spec.md §4.6.2.
func tryShiftFold(pending, cur *ir.Instruction, block *ir.Block, curIdx int) (string, bool) {
	if cur.Class.Float() || cur.Class != pending.Class {
		return "", false
	}
	aluMnem, commutative := shiftFoldAlu(cur.Op)
	if aluMnem == "" {
		return "", false
	}
	d0 := pending.Dst.Reg
	shiftName := shiftMnemonicSuffix(pending.Op)

	x, y := cur.Arg0, cur.Arg1
	xIsShifted := x.IsReg() && x.Reg.Equal(d0)
	yIsShifted := y.IsReg() && y.Reg.Equal(d0)
	if !xIsShifted && !yIsShifted {
		return "", false
	}
	if cur.Op == ir.OpSub && xIsShifted {
		return "", false // SUB requires the shifted operand in its second position.
	}
	if !fusionSafe(block, curIdx, d0, cur) {
		return "", false
	}

	other := y
	if yIsShifted {
		other = x
	}
	if !other.IsReg() {
		return "", false
	}
	_ = commutative // reordering is already handled by always emitting "other" first.

	return aluMnem + " " + FormatReg(cur.Dst.Reg, cur.Class) + ", " + FormatReg(other.Reg, cur.Class) + ", " +
		FormatReg(pending.Arg0.Reg, pending.Class) + ", " + shiftName + " " + itoa(int64(pending.Arg1.Const)), true
}

func shiftFoldAlu(op ir.Opcode) (mnem string, commutative bool) {
	switch op {
	case ir.OpAdd:
		return "add", true
	case ir.OpSub:
		return "sub", false
	case ir.OpAnd:
		return "and", true
	case ir.OpOr:
		return "orr", true
	case ir.OpXor:
		return "eor", true
	default:
		return "", false
	}
}

func shiftMnemonicSuffix(op ir.Opcode) string {
	switch op {
	case ir.OpShl:
		return "LSL"
	case ir.OpShr:
		return "LSR"
	default:
		return "ASR"
	}
}

// tryIndexedFold implements spec.md §4.6.4.
func tryIndexedFold(pending, cur *ir.Instruction, block *ir.Block, curIdx int) (string, bool) {
	if !isMemOp(cur.Op) {
		return "", false
	}
	d0 := pending.Dst.Reg
	addrRef := cur.Arg0
	if cur.Op == ir.OpStore {
		addrRef = cur.Dst
	}
	if !addrRef.IsReg() || !addrRef.Reg.Equal(d0) {
		return "", false
	}
	if !fusionSafe(block, curIdx, d0, cur) {
		return "", false
	}
	mem := "[" + FormatReg(pending.Arg0.Reg, ir.ClassL) + ", " + FormatReg(pending.Arg1.Reg, ir.ClassL) + "]"
	if cur.Op == ir.OpLoad {
		return loadMnemonic(cur.Class) + " " + FormatReg(cur.Dst.Reg, cur.Class) + ", " + mem, true
	}
	return storeMnemonic(cur.Class) + " " + FormatReg(cur.Arg0.Reg, cur.Class) + ", " + mem, true
}

func isMemOp(op ir.Opcode) bool { return op == ir.OpLoad || op == ir.OpStore }

// pairMatch is the outcome of matching spec.md §4.6.3's load/store-pair
// pattern, shared by the text emitter and the structured-stream path.
type pairMatch struct {
	IsLoad     bool
	Class      ir.Class
	First      ir.PReg
	Second     ir.PReg
	LowOffset  int64
}

// matchPairFusion implements spec.md §4.6.3. A memory op's Class (W/L/S/D)
// already is one of the four pair-equivalence classes the spec names
// (4-byte W, 8-byte X/L, 4-byte S, 8-byte D), so no separate mapping is
// needed.
func matchPairFusion(prev, cur *ir.Instruction) (pairMatch, bool) {
	if prev.Op != cur.Op || prev.Class != cur.Class {
		return pairMatch{}, false
	}
	prevAddr, curAddr := memAddrRef(prev), memAddrRef(cur)
	if prevAddr.Kind != ir.RefSlotKind || curAddr.Kind != ir.RefSlotKind {
		return pairMatch{}, false
	}
	size := accessSize(prev.Class)
	lo, hi := prevAddr.Slot, curAddr.Slot
	prevFirst := true
	if hi < lo {
		lo, hi = hi, lo
		prevFirst = false
	}
	if int64(hi-lo) != size {
		return pairMatch{}, false
	}
	if int64(lo)%size != 0 || int64(lo)/size > 63 || int64(lo)/size < -64 {
		return pairMatch{}, false
	}

	if prev.Op == ir.OpLoad {
		d1, d2 := prev.Dst.Reg, cur.Dst.Reg
		if d1.Equal(d2) {
			return pairMatch{}, false
		}
		first, second := d1, d2
		if !prevFirst {
			first, second = d2, d1
		}
		return pairMatch{IsLoad: true, Class: prev.Class, First: first, Second: second, LowOffset: int64(lo)}, true
	}

	v1, v2 := prev.Arg0.Reg, cur.Arg0.Reg
	first, second := v1, v2
	if !prevFirst {
		first, second = v2, v1
	}
	return pairMatch{Class: prev.Class, First: first, Second: second, LowOffset: int64(lo)}, true
}

// tryPairFusion implements spec.md §4.6.3's text rendering atop matchPairFusion.
func tryPairFusion(prev, cur *ir.Instruction) (string, bool) {
	m, ok := matchPairFusion(prev, cur)
	if !ok {
		return "", false
	}
	mnem := "stp"
	if m.IsLoad {
		mnem = "ldp"
	}
	return mnem + " " + FormatReg(m.First, m.Class) + ", " + FormatReg(m.Second, m.Class) + ", " + FormatMemFrame(m.LowOffset), true
}

func memAddrRef(instr *ir.Instruction) ir.Reference {
	if instr.Op == ir.OpStore {
		return instr.Dst
	}
	return instr.Arg0
}
