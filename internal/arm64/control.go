package arm64

import (
	"strconv"

	"github.com/albanread/fasterbasic-arm64cg/internal/ir"
)

const noBlock ir.BlockID = ^ir.BlockID(0)

// assignLabels hands every block in fn a unique local label id, up front,
// so forward branches can reference a target before it is emitted.
func assignLabels(alloc *LabelAllocator, fn *ir.Function) map[ir.BlockID]uint64 {
	labels := make(map[ir.BlockID]uint64, len(fn.Blocks))
	for _, b := range fn.Blocks {
		labels[b.ID] = alloc.Next()
	}
	return labels
}

func labelName(t Target, labels map[ir.BlockID]uint64, id ir.BlockID) string {
	return t.LocalLabelPrefix() + strconv.FormatUint(labels[id], 10)
}

func nextLayoutID(b *ir.Block) ir.BlockID {
	if b.Layout == nil {
		return noBlock
	}
	return b.Layout.ID
}

// EmitFunctionBody walks fn's blocks in layout order, rendering each
// block's body through the fusion engine (C6) and its terminator per
// spec.md §4.7's control-flow rules.
func EmitFunctionBody(cfg *Config, t Target, fn *ir.Function, layout FrameLayout, scratch ir.PReg, labels map[ir.BlockID]uint64) []string {
	var lines []string
	fellThrough := true // the prologue falls through into the first block.

	for _, b := range fn.Blocks {
		if !fellThrough || b.NumPreds > 1 {
			lines = append(lines, labelName(t, labels, b.ID)+":")
		}

		body, pendingCmp := EmitBlockBody(cfg, t, scratch, b)
		lines = append(lines, body...)

		termLines, fallsThrough := emitTerminator(t, fn, b, layout, scratch, labels, pendingCmp)
		lines = append(lines, termLines...)
		fellThrough = fallsThrough
	}
	return lines
}

func emitTerminator(t Target, fn *ir.Function, b *ir.Block, layout FrameLayout, scratch ir.PReg, labels map[ir.BlockID]uint64, pendingCmp *ir.Instruction) (lines []string, fellThrough bool) {
	next := nextLayoutID(b)
	term := b.Term

	switch term.Kind {
	case ir.TermHalt:
		return []string{"brk #1000"}, false

	case ir.TermReturn:
		return layout.Epilogue(t, fn.Name, fn.DynamicAlloca, scratch), false

	case ir.TermJump:
		if term.S1 == next {
			return nil, true
		}
		return []string{"b " + labelName(t, labels, term.S1)}, false

	case ir.TermCondBranch:
		return emitCondBranch(t, b, next, labels, pendingCmp)

	case ir.TermBrTable:
		return emitBrTable(t, term, scratch, labels)

	default:
		die("<terminator>", ir.ClassAny, "unknown terminator kind %v", term.Kind)
		return nil, false
	}
}

// resolveCondBranch implements spec.md §4.7: the emitted code always has
// the shape "B.<cond> s2" followed by an unconditional jump (or
// fallthrough) to s1, so s1 must end up being whichever successor is laid
// out next. If the false successor is already next, swap successors
// (the original condition still picks the right target once s1/s2 swap);
// otherwise negate the condition instead, which also covers the "neither
// successor is next" case correctly since s1's trailing jump stays
// unconditional either way. Shared by emitCondBranch and streamBlock so
// the two paths can't drift apart again.
func resolveCondBranch(s1, s2 ir.BlockID, cond ir.CondFlag, next ir.BlockID) (ir.BlockID, ir.BlockID, ir.CondFlag) {
	if s2 == next {
		return s2, s1, cond
	}
	return s1, s2, cond.Invert()
}

// emitCondBranch implements spec.md §4.7's conditional-branch rule and the
// §4.6.5 CBZ/CBNZ fold: the branch target is rearranged so the fallthrough
// arm (s1) is the next laid-out block whenever one of the two successors is
// it, then "B.<cond> s2" is emitted followed by the unconditional-jump
// logic for s1.
func emitCondBranch(t Target, b *ir.Block, next ir.BlockID, labels map[ir.BlockID]uint64, pendingCmp *ir.Instruction) ([]string, bool) {
	term := b.Term
	s1, s2, cond := resolveCondBranch(term.S1, term.S2, term.Cond, next)

	var lines []string
	if pendingCmp != nil && (cond == ir.EQ || cond == ir.NE) {
		mnem := "cbnz"
		if cond == ir.EQ {
			mnem = "cbz"
		}
		lines = append(lines, mnem+" "+FormatReg(pendingCmp.Arg0.Reg, pendingCmp.Class)+", "+labelName(t, labels, s2))
	} else {
		if pendingCmp != nil {
			lines = append(lines, Select(pendingCmp, t, ir.IP0)...)
		}
		lines = append(lines, "b."+cond.String()+" "+labelName(t, labels, s2))
	}

	if s1 == next {
		return lines, true
	}
	return append(lines, "b "+labelName(t, labels, s1)), false
}

// emitBrTable implements spec_full.md §4.7's jump-table supplement: an ADR
// of the table's base, an indexed load of the target's address from the
// table of .quad label entries, and an indirect branch. This terminator is
// never a fusion candidate.
func emitBrTable(t Target, term ir.Terminator, scratch ir.PReg, labels map[ir.BlockID]uint64) ([]string, bool) {
	tableLabel := t.LocalLabelPrefix() + "jt"
	idx := FormatReg(term.IndexReg.Reg, ir.ClassL)
	s := FormatReg(scratch, ir.ClassL)
	lines := []string{
		"adr " + s + ", " + tableLabel,
		"ldr " + s + ", [" + s + ", " + idx + ", lsl #3]",
		"br " + s,
		tableLabel + ":",
	}
	for _, target := range term.Targets {
		lines = append(lines, ".quad "+labelName(t, labels, target))
	}
	return lines, false
}
