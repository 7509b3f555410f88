package arm64

import "github.com/albanread/fasterbasic-arm64cg/internal/ir"

// FrameLayout is the computed geometry of a function's stack frame
// (spec.md §4.5): rounded slot count, callee-save entry count, padding, and
// total frame size, laid out high-to-low relative to FP as
//
//	[ vararg save area (192B, non-Apple vararg only) ]
//	[ callee-save registers ]
//	[ spill slots / locals ]
//	[ padding ]
//	[ saved FP, saved LR ]   <- FP
type FrameLayout struct {
	SlotCount   int // f: rounded-up spill-slot count
	SaveCount   int // o: callee-save entry count, rounded up to even
	Padding     int64
	FrameSize   int64 // 4*f + 8*o: spill/padding + callee-save region, excluding the fixed FP/LR pair
	VarargArea  int64 // 192 if this function reserves the vararg save area, else 0
	CalleeSaved []ir.PReg
}

// ComputeFrameLayout derives a function's FrameLayout from its spill-slot
// count and used-callee-save mask (spec.md §4.5).
func ComputeFrameLayout(t Target, fn *ir.Function) FrameLayout {
	s := fn.SpillSlots
	f := roundUp(s, 4)
	available := t.CalleeSaved()

	var used []ir.PReg
	for i, r := range available {
		if fn.UsedCalleeSaveMask&(1<<uint(i)) != 0 {
			used = append(used, r)
		}
	}
	o := len(used)
	if o%2 != 0 {
		o++
	}

	layout := FrameLayout{
		SlotCount:   f,
		SaveCount:   o,
		Padding:     4 * int64(f-s),
		FrameSize:   4*int64(f) + 8*int64(o),
		CalleeSaved: used,
	}
	if fn.Vararg && t.VarargSaveArea() {
		layout.VarargArea = 192
	}
	return layout
}

func roundUp(n, multiple int) int {
	if n%multiple == 0 {
		return n
	}
	return n + (multiple - n%multiple)
}

// TotalAdjustment is the full stack-pointer delta the prologue/epilogue
// allocate and release: the frame region, the fixed 16-byte FP/LR save, and
// the vararg save area.
func (l FrameLayout) TotalAdjustment() int64 {
	return l.FrameSize + 16 + l.VarargArea
}

// SlotOffset converts a logical spill-slot index (0-based) into its
// FP-relative byte offset: slots sit directly above the frame's padding
// region, each a 4-byte-granularity word per spec.md §4.5's layout diagram.
func (l FrameLayout) SlotOffset(index int) int64 {
	return 16 + l.Padding + int64(index)*4
}

// calleeSaveOffset returns the FP-relative offset of the i'th callee-saved
// register's slot: the callee-save region sits directly above the spill
// slots.
func (l FrameLayout) calleeSaveOffset(i int) int64 {
	return 16 + l.FrameSize - int64(l.SaveCount-i)*8
}

// Prologue renders the function entry sequence (spec.md §4.5): a BTI hint,
// one of the SUB-sp/STP-FP,LR sequences keyed on the total adjustment's
// magnitude (see allocateFrame), FP = SP, the vararg save-area marker (if
// applicable, see varargSaveLines), and the callee-save stores (paired with
// STP where two adjacent same-bank saves fit a 7-bit scaled field).
func (l FrameLayout) Prologue(t Target, name string, link ir.Linkage, scratch ir.PReg) []string {
	lines := append([]string{}, t.FunctionPrologueDirectives(name, link)...)
	lines = append(lines, "hint #34") // BTI C

	total := l.TotalAdjustment()
	lines = append(lines, allocateFrame(scratch, total)...)
	lines = append(lines, "mov "+FormatReg(ir.FP, ir.ClassL)+", "+FormatReg(ir.SP, ir.ClassL))

	if l.VarargArea > 0 {
		lines = append(lines, varargSaveLines()...)
	}

	lines = append(lines, l.saveCalleeSaves()...)
	return lines
}

// allocateFrame emits the SUB-sp/STP-FP,LR sequence for the given total
// adjustment. spec.md §4.5 and §8 name four magnitude-keyed cases (<=504,
// <=4095, <=65535, else); the latter two collapse into one branch here,
// since lowerIntConstant already emits a single MOVZ for any value up to
// 0xffff and only grows to a MOVZ+MOVK chain above it, so re-deriving a
// separate <=65535 branch by hand would just duplicate that decision
// instead of changing the emitted instructions.
func allocateFrame(scratch ir.PReg, total int64) []string {
	fp, lr := FormatReg(ir.FP, ir.ClassL), FormatReg(ir.LR, ir.ClassL)
	sp := FormatReg(ir.SP, ir.ClassL)
	switch {
	case total <= 504:
		return []string{"stp " + fp + ", " + lr + ", [" + sp + ", " + hexSigned(-total) + "]!"}
	case total <= 4095:
		return []string{
			"sub " + sp + ", " + sp + ", " + hex(uint64(total)),
			"stp " + fp + ", " + lr + ", [" + sp + "]",
		}
	default:
		lines := lowerIntConstant(scratch, ir.ClassL, uint64(total))
		lines = append(lines,
			"sub "+sp+", "+sp+", "+FormatReg(scratch, ir.ClassL),
			"stp "+fp+", "+lr+", ["+sp+"]",
		)
		return lines
	}
}

// deallocateFrame emits the mirrored epilogue restoration, reversing
// whichever of the prologue's cases was used; see allocateFrame for why
// the spec's <=65535 and else cases share one branch here.
func deallocateFrame(scratch ir.PReg, total int64) []string {
	fp, lr := FormatReg(ir.FP, ir.ClassL), FormatReg(ir.LR, ir.ClassL)
	sp := FormatReg(ir.SP, ir.ClassL)
	switch {
	case total <= 504:
		return []string{"ldp " + fp + ", " + lr + ", [" + sp + "], " + hex(uint64(total))}
	case total <= 4095:
		return []string{
			"ldp " + fp + ", " + lr + ", [" + sp + "]",
			"add " + sp + ", " + sp + ", " + hex(uint64(total)),
		}
	default:
		lines := []string{"ldp " + fp + ", " + lr + ", [" + sp + "]"}
		lines = append(lines, lowerIntConstant(scratch, ir.ClassL, uint64(total))...)
		lines = append(lines, "add "+sp+", "+sp+", "+FormatReg(scratch, ir.ClassL))
		return lines
	}
}

// varargSaveLines marks the fixed 192-byte argument-save area a non-Apple
// vararg function reserves in its frame (spec.md §4.5). It emits a single
// comment line; no argument registers are stored into the area. The function
// descriptor does not carry per-call argument-register assignments, and
// callers needing vararg argument capture feed explicit store instructions
// through the normal instruction stream.
func varargSaveLines() []string {
	return []string{"// vararg register-save area reserved above"}
}

// saveCalleeSaves stores each used callee-saved register into its slot,
// pairing adjacent same-bank (both GPR or both FPR) saves with STP when the
// lower slot's offset fits the signed-7-bit scaled field (spec.md §4.5).
func (l FrameLayout) saveCalleeSaves() []string {
	return pairedCalleeSaveOps(l, true)
}

// RestoreCalleeSaves mirrors saveCalleeSaves with LDP/LDR loads, for the
// epilogue.
func (l FrameLayout) RestoreCalleeSaves() []string {
	return pairedCalleeSaveOps(l, false)
}

func pairedCalleeSaveOps(l FrameLayout, store bool) []string {
	var lines []string
	i := 0
	for i < len(l.CalleeSaved) {
		r := l.CalleeSaved[i]
		off := l.calleeSaveOffset(i)
		class := calleeSaveClass(r)

		if i+1 < len(l.CalleeSaved) && sameBank(r, l.CalleeSaved[i+1]) && off%8 == 0 && off <= 504 {
			r2 := l.CalleeSaved[i+1]
			class2 := calleeSaveClass(r2)
			if store {
				lines = append(lines, "stp "+FormatReg(r, class)+", "+FormatReg(r2, class2)+", "+FormatMemFrame(off))
			} else {
				lines = append(lines, "ldp "+FormatReg(r, class)+", "+FormatReg(r2, class2)+", "+FormatMemFrame(off))
			}
			i += 2
			continue
		}

		mnem := "str"
		if !store {
			mnem = "ldr"
		}
		lines = append(lines, mnem+" "+FormatReg(r, class)+", "+FormatMemFrame(off))
		i++
	}
	return lines
}

func calleeSaveClass(r ir.PReg) ir.Class {
	if r.IsFloat() {
		return ir.ClassD
	}
	return ir.ClassL
}

func sameBank(a, b ir.PReg) bool { return a.IsFloat() == b.IsFloat() }

// Epilogue renders the function-exit sequence (spec.md §4.5, §4.7):
// callee-save restoration, dynamic-alloca cleanup, frame teardown, and RET.
// Terminator emission (C7) appends this after any return-value setup.
func (l FrameLayout) Epilogue(t Target, name string, dynamicAlloca bool, scratch ir.PReg) []string {
	var lines []string
	lines = append(lines, l.RestoreCalleeSaves()...)
	if dynamicAlloca {
		lines = append(lines, "mov "+FormatReg(ir.SP, ir.ClassL)+", "+FormatReg(ir.FP, ir.ClassL))
	}
	lines = append(lines, deallocateFrame(scratch, l.TotalAdjustment())...)
	lines = append(lines, "ret")
	lines = append(lines, t.FunctionEpilogueDirectives(name)...)
	return lines
}
