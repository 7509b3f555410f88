package arm64

import "github.com/albanread/fasterbasic-arm64cg/internal/ir"

// aluEntry is one row of the table-driven selector (spec.md §4.4): an
// opcode maps to an integer and/or floating-point mnemonic, plus whether a
// second register operand may instead be an immediate.
type aluEntry struct {
	IntMnemonic   string
	FloatMnemonic string
	AllowImm      bool
}

// aluTable is the static opcode -> format-template table. Class filtering
// is implicit: IntMnemonic is used for ClassW/ClassL, FloatMnemonic for
// ClassS/ClassD; an empty mnemonic for the operand's class is a table miss.
var aluTable = map[ir.Opcode]aluEntry{
	ir.OpAdd:  {IntMnemonic: "add", FloatMnemonic: "fadd", AllowImm: true},
	ir.OpSub:  {IntMnemonic: "sub", FloatMnemonic: "fsub", AllowImm: true},
	ir.OpMul:  {IntMnemonic: "mul", FloatMnemonic: "fmul"},
	ir.OpSDiv: {IntMnemonic: "sdiv", FloatMnemonic: "fdiv"},
	ir.OpUDiv: {IntMnemonic: "udiv"},
	ir.OpAnd:  {IntMnemonic: "and", AllowImm: true},
	ir.OpOr:   {IntMnemonic: "orr", AllowImm: true},
	ir.OpXor:  {IntMnemonic: "eor", AllowImm: true},
	ir.OpNeg:  {IntMnemonic: "neg", FloatMnemonic: "fneg"},
	ir.OpNot:  {IntMnemonic: "mvn"},
	ir.OpShl:  {IntMnemonic: "lsl"},
	ir.OpShr:  {IntMnemonic: "lsr"},
	ir.OpSar:  {IntMnemonic: "asr"},
	ir.OpCmp:  {IntMnemonic: "cmp", FloatMnemonic: "fcmp", AllowImm: true},
}

// Select renders instr into zero or more assembly lines (spec.md §4.4). t
// and scratch are consulted for opcodes that may need address materialization
// (loads, stores, take-address) or a scratch register (swap, indirect
// dynamic-stack result).
func Select(instr *ir.Instruction, t Target, scratch ir.PReg) []string {
	switch instr.Op {
	case ir.OpCopy:
		return selectCopy(instr, scratch)
	case ir.OpSwap:
		return selectSwap(instr, scratch)
	case ir.OpTakeAddr:
		return selectTakeAddr(instr)
	case ir.OpCall:
		return []string{"bl " + symbolName(t.SymbolPrefix(), instr.Sym)}
	case ir.OpCallInd:
		return []string{"blr " + FormatReg(instr.Arg0.Reg, ir.ClassL)}
	case ir.OpAlloca:
		return selectAlloca(instr)
	case ir.OpLoad:
		return selectLoad(instr, scratch)
	case ir.OpStore:
		return selectStore(instr, t, scratch)
	case ir.OpSExt, ir.OpZExt:
		return selectExtend(instr)
	case ir.OpCSet:
		return []string{"cset " + FormatReg(instr.Dst.Reg, instr.Class) + ", " + instr.Cond.String()}
	default:
		return selectALU(instr)
	}
}

func selectALU(instr *ir.Instruction) []string {
	entry, ok := aluTable[instr.Op]
	if !ok {
		die(instr.Op.String(), instr.Class, "no selector table entry")
	}
	mnem := entry.IntMnemonic
	if instr.Class.Float() {
		mnem = entry.FloatMnemonic
	}
	if mnem == "" {
		die(instr.Op.String(), instr.Class, "no match for %s(%s)", instr.Op, instr.Class)
	}

	dst := FormatReg(instr.Dst.Reg, instr.Class)
	arg0 := operandString(instr.Arg0, instr.Class, entry.AllowImm, mnem)

	if instr.Arg1 == ir.None {
		return []string{mnem + " " + dst + ", " + arg0}
	}
	arg1 := operandString(instr.Arg1, instr.Class, entry.AllowImm, mnem)
	return []string{mnem + " " + dst + ", " + arg0 + ", " + arg1}
}

func operandString(ref ir.Reference, class ir.Class, allowImm bool, op string) string {
	switch ref.Kind {
	case ir.RefRegKind:
		return FormatReg(ref.Reg, class)
	case ir.RefConstKind:
		if !allowImm {
			die(op, class, "immediate operand not permitted for this opcode")
		}
		return FormatImm12(op, class, uint64(ref.Const))
	default:
		die(op, class, "operand must be a register or immediate, got %v", ref.Kind)
		return ""
	}
}

// selectCopy implements the open-coded copy rule (spec.md §4.4): self-copy
// is elided; copy from a constant is C2; copy to/from a slot is a
// store/load; otherwise a plain register move.
func selectCopy(instr *ir.Instruction, scratch ir.PReg) []string {
	dst, src := instr.Dst, instr.Arg0

	if dst.IsReg() && src.IsReg() && dst.Reg.Equal(src.Reg) {
		return nil
	}
	if src.Kind == ir.RefConstKind {
		return lowerIntConstant(dst.Reg, instr.Class, uint64(src.Const))
	}
	if dst.Kind == ir.RefSlotKind {
		valueReg := src.Reg
		var lines []string
		if !src.IsReg() {
			lines = lowerIntConstant(scratch, instr.Class, uint64(src.Const))
			valueReg = scratch
		}
		setup, mem := SlotOperand(scratch, int64(dst.Slot), instr.Class)
		lines = append(lines, setup...)
		lines = append(lines, storeMnemonic(instr.Class)+" "+FormatReg(valueReg, instr.Class)+", "+mem)
		return lines
	}
	if src.Kind == ir.RefSlotKind {
		setup, mem := SlotOperand(scratch, int64(src.Slot), instr.Class)
		lines := append([]string{}, setup...)
		lines = append(lines, loadMnemonic(instr.Class)+" "+FormatReg(dst.Reg, instr.Class)+", "+mem)
		return lines
	}
	return []string{"mov " + FormatReg(dst.Reg, instr.Class) + ", " + FormatReg(src.Reg, instr.Class)}
}

// selectSwap implements the open-coded swap rule: three moves through the
// class's scratch register.
func selectSwap(instr *ir.Instruction, scratch ir.PReg) []string {
	a, b := FormatReg(instr.Arg0.Reg, instr.Class), FormatReg(instr.Arg1.Reg, instr.Class)
	s := FormatReg(scratch, instr.Class)
	mnem := "mov"
	if instr.Class.Float() {
		mnem = "fmov"
	}
	return []string{
		mnem + " " + s + ", " + a,
		mnem + " " + a + ", " + b,
		mnem + " " + b + ", " + s,
	}
}

func selectTakeAddr(instr *ir.Instruction) []string {
	return TakeAddressOfSlot(instr.Dst.Reg, int64(instr.Arg0.Slot))
}

// selectAlloca implements the open-coded stack-allocation rule: SUB sp, sp,
// <arg> (immediate or register), plus a MOV of the new sp if the result is
// consumed.
func selectAlloca(instr *ir.Instruction) []string {
	var size string
	if instr.Arg0.Kind == ir.RefConstKind {
		size = FormatImm12("sub", ir.ClassL, uint64(instr.Arg0.Const))
	} else {
		size = FormatReg(instr.Arg0.Reg, ir.ClassL)
	}
	lines := []string{"sub " + FormatReg(ir.SP, ir.ClassL) + ", " + FormatReg(ir.SP, ir.ClassL) + ", " + size}
	if instr.Dst != ir.None {
		lines = append(lines, "mov "+FormatReg(instr.Dst.Reg, ir.ClassL)+", "+FormatReg(ir.SP, ir.ClassL))
	}
	return lines
}

func selectLoad(instr *ir.Instruction, scratch ir.PReg) []string {
	var setup []string
	var mem string
	switch instr.Arg0.Kind {
	case ir.RefSlotKind:
		setup, mem = SlotOperand(scratch, int64(instr.Arg0.Slot), instr.Class)
	case ir.RefRegKind:
		mem = FormatMemReg(instr.Arg0.Reg)
	default:
		die("load", instr.Class, "load address must be a slot or register")
	}
	lines := append([]string{}, setup...)
	return append(lines, loadMnemonic(instr.Class)+" "+FormatReg(instr.Dst.Reg, instr.Class)+", "+mem)
}

func selectStore(instr *ir.Instruction, t Target, scratch ir.PReg) []string {
	needValueScratch := instr.Arg0.Kind == ir.RefConstKind
	plan := PlanStoreScratch(t, needValueScratch)

	var lines []string
	valueReg := instr.Arg0.Reg
	storeClass := instr.Class
	if needValueScratch {
		valueReg = plan.ValueScratch
		if plan.ValueViaNEON {
			seed := lowerIntConstant(plan.AddrScratch, instr.Class, uint64(instr.Arg0.Const))
			lines = append(lines, seed...)
			lines = append(lines, "fmov "+FormatReg(valueReg, floatCounterpart(instr.Class))+", "+FormatReg(plan.AddrScratch, instr.Class))
			storeClass = floatCounterpart(instr.Class)
		} else {
			lines = append(lines, lowerIntConstant(valueReg, instr.Class, uint64(instr.Arg0.Const))...)
		}
	}

	var setup []string
	var mem string
	switch instr.Dst.Kind {
	case ir.RefSlotKind:
		setup, mem = SlotOperand(plan.AddrScratch, int64(instr.Dst.Slot), instr.Class)
	case ir.RefRegKind:
		mem = FormatMemReg(instr.Dst.Reg)
	default:
		die("store", instr.Class, "store address must be a slot or register")
	}
	lines = append(lines, setup...)
	lines = append(lines, storeMnemonic(storeClass)+" "+FormatReg(valueReg, storeClass)+", "+mem)
	return lines
}

func floatCounterpart(class ir.Class) ir.Class {
	if class.Bits() == 64 {
		return ir.ClassD
	}
	return ir.ClassS
}

// loadMnemonic and storeMnemonic are "ldr"/"str" regardless of class: the
// assembler selects the GPR or FP encoding from the operand register itself.
func loadMnemonic(ir.Class) string  { return "ldr" }
func storeMnemonic(ir.Class) string { return "str" }

func selectExtend(instr *ir.Instruction) []string {
	dst := FormatReg(instr.Dst.Reg, instr.Class)
	src := FormatReg(instr.Arg0.Reg, ir.ClassW)
	if instr.Op == ir.OpSExt {
		return []string{"sxtw " + dst + ", " + src}
	}
	return []string{"uxtw " + dst + ", " + src}
}
