package arm64

import "github.com/albanread/fasterbasic-arm64cg/internal/ir"

// accessSize returns the size in bytes of a scaled load/store access for
// class k (spec.md §4.3).
func accessSize(class ir.Class) int64 {
	if class.Bits() == 64 {
		return 8
	}
	return 4
}

// slotInRange reports whether offset is directly encodable as a scaled
// 12-bit immediate displacement for an access of the given class — bounded
// by access-size × 4095 and a multiple of the access size (spec.md §4.3).
func slotInRange(offset int64, class ir.Class) bool {
	if offset < 0 {
		return false
	}
	size := accessSize(class)
	return offset%size == 0 && offset/size <= 4095
}

// SlotOperand resolves a stack-slot load/store operand at the given
// frame-relative byte offset and access class. When the offset is directly
// encodable, it returns the plain "[x29, #off]" operand with no setup lines.
// Otherwise it materializes the slot's address into scratch (via a single
// ADD when offset fits a 12-bit immediate, or a MOV/MOVK sequence followed
// by a register ADD for larger offsets) and returns a "[scratch]" operand
// (spec.md §4.3).
func SlotOperand(scratch ir.PReg, offset int64, class ir.Class) (setup []string, operand string) {
	if slotInRange(offset, class) {
		return nil, FormatMemFrame(offset)
	}
	setup = materializeSlotAddress(scratch, offset)
	return setup, FormatMemReg(scratch)
}

// materializeSlotAddress renders the instruction(s) that compute FP+offset
// into scratch, per the magnitude rule shared with the "take address of
// slot" open-coded selector rule (spec.md §4.3, §4.4).
func materializeSlotAddress(scratch ir.PReg, offset int64) []string {
	scratchName := FormatReg(scratch, ir.ClassL)
	fpName := FormatReg(ir.FP, ir.ClassL)
	if offset >= 0 && offset <= 0xfff {
		return []string{"add " + scratchName + ", " + fpName + ", " + itoa(offset)}
	}
	lines := lowerIntConstant(scratch, ir.ClassL, uint64(offset))
	lines = append(lines, "add "+scratchName+", "+scratchName+", "+fpName)
	return lines
}

// TakeAddressOfSlot renders the "take address of stack slot" open-coded
// selector rule into register rd (spec.md §4.4): ADD when the offset fits a
// 12-bit immediate, else a MOV/MOVK sequence plus ADD.
func TakeAddressOfSlot(rd ir.PReg, offset int64) []string {
	return materializeSlotAddress(rd, offset)
}

// StoreScratchPlan resolves the scratch-register conflict spec.md §4.3
// describes for stores on platforms with few scratch registers: if the
// value being stored needs a scratch register (it is a constant) and only
// one GPR scratch is available, the value is routed through the NEON
// scratch register via FMOV and the store is switched to the FP-class
// opcode, keeping the sole GPR scratch free for the address. The plan does
// not look at the address operand: the routing applies even when the
// address is already a register and needs no scratch.
type StoreScratchPlan struct {
	// AddrScratch is the GPR used to materialize the store's address.
	AddrScratch ir.PReg
	// ValueViaNEON is true when the value must be routed through the NEON
	// scratch register (v31) and the store re-classed to its FP form.
	ValueViaNEON bool
	// ValueScratch is the register actually holding the value to store:
	// either the original GPR scratch, or the NEON scratch when
	// ValueViaNEON is set.
	ValueScratch ir.PReg
}

// PlanStoreScratch chooses how to satisfy a store that needs both an
// address scratch and (optionally) a value scratch, given the target's
// available scratch registers.
func PlanStoreScratch(t Target, needValueScratch bool) StoreScratchPlan {
	scratches := t.ScratchRegisters()
	if !needValueScratch || len(scratches) >= 2 {
		plan := StoreScratchPlan{AddrScratch: scratches[0]}
		if needValueScratch {
			plan.ValueScratch = scratches[1]
		}
		return plan
	}
	// Only one GPR scratch (Apple): route the value through the NEON
	// scratch so the sole GPR scratch remains free for the address.
	return StoreScratchPlan{
		AddrScratch:  scratches[0],
		ValueViaNEON: true,
		ValueScratch: ir.VReg(fpScratchVReg),
	}
}
