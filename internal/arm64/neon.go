package arm64

import "github.com/albanread/fasterbasic-arm64cg/internal/ir"

// Fixed NEON scratch registers the vector engine stages operands through
// (spec.md §4.8); v30 additionally serves as the fused-multiply-add third
// operand and as the reduction engine's intermediate lane-merge register.
const (
	vecScratchA = 28
	vecScratchB = 29
	vecScratchC = 30
)

// SelectVec renders a vector instruction (spec.md §4.8): the arrangement
// tag on the instruction selects the lane layout, and the opcode's integer
// or floating-point mnemonic is chosen by class. Integer MUL is forbidden
// on .2d; integer DIV has no vector form at all.
func SelectVec(instr *ir.Instruction) []string {
	arr := instr.Arr.String()
	switch instr.Op {
	case ir.OpVecAdd, ir.OpVecSub, ir.OpVecMul, ir.OpVecAnd, ir.OpVecOr, ir.OpVecXor:
		return []string{vecBinOp(instr, arr)}
	case ir.OpVecFMA:
		return []string{vecFMA(instr, arr)}
	case ir.OpVecLoad:
		return []string{"ld1 {" + vregArr(instr.Dst.Reg, arr) + "}, " + FormatMemReg(instr.Arg0.Reg)}
	case ir.OpVecStore:
		return []string{"st1 {" + vregArr(instr.Arg0.Reg, arr) + "}, " + FormatMemReg(instr.Dst.Reg)}
	case ir.OpVecReduceAdd:
		return vecReduceAdd(instr)
	default:
		die(instr.Op.String(), instr.Class, "no vector selector for this opcode")
		return nil
	}
}

func vregArr(r ir.PReg, arr string) string {
	return "v" + itoa(int64(r.Num)) + arr
}

func vecBinOp(instr *ir.Instruction, arr string) string {
	isFloat := instr.Class.Float()
	var mnem string
	switch instr.Op {
	case ir.OpVecAdd:
		mnem = pick(isFloat, "fadd", "add")
	case ir.OpVecSub:
		mnem = pick(isFloat, "fsub", "sub")
	case ir.OpVecMul:
		if !isFloat && instr.Arr == ir.Arr2D {
			die("vecmul", instr.Class, "integer multiply has no .2d vector form")
		}
		mnem = pick(isFloat, "fmul", "mul")
	case ir.OpVecAnd:
		mnem = "and"
	case ir.OpVecOr:
		mnem = "orr"
	case ir.OpVecXor:
		mnem = "eor"
	}
	return mnem + " " + vregArr(instr.Dst.Reg, arr) + ", " + vregArr(instr.Arg0.Reg, arr) + ", " + vregArr(instr.Arg1.Reg, arr)
}

func vecFMA(instr *ir.Instruction, arr string) string {
	mnem := pick(instr.Class.Float(), "fmla", "mla")
	return mnem + " " + vregArr(instr.Dst.Reg, arr) + ", " + vregArr(instr.Arg0.Reg, arr) + ", " + vregArr(instr.Arg1.Reg, arr)
}

// vecReduceAdd reduces a vector to a scalar held in a GPR
// (spec.md §4.8, spec_full.md §4.9/§9 resolved open question: `.4s` float
// reduction always uses a two-step FADDP, never the single-instruction
// FADDV, since FADDV's result lane placement is a documented correctness
// trap on some implementations). Float results move into the GPR with an
// FMOV of matching width (w<n> for S, x<n> for D).
func vecReduceAdd(instr *ir.Instruction) []string {
	isFloat := instr.Class.Float()
	src := instr.Arg0.Reg
	scratch := ir.VReg(vecScratchC)
	gprClass := ir.ClassW
	if instr.Class.Bits() == 64 {
		gprClass = ir.ClassL
	}

	if !isFloat {
		return []string{
			"addv " + "s" + itoa(int64(scratch.Num)) + ", " + vregArr(src, instr.Arr.String()),
			"smov " + FormatReg(instr.Dst.Reg, instr.Class) + ", v" + itoa(int64(scratch.Num)) + ".s[0]",
		}
	}

	if instr.Arr == ir.Arr4S {
		return []string{
			"faddp " + vregArr(scratch, ".4s") + ", " + vregArr(src, ".4s") + ", " + vregArr(src, ".4s"),
			"faddp " + vregArr(scratch, ".4s") + ", " + vregArr(scratch, ".4s") + ", " + vregArr(scratch, ".4s"),
			"fmov " + FormatReg(instr.Dst.Reg, gprClass) + ", " + "s" + itoa(int64(scratch.Num)),
		}
	}
	// .2d float reduction is a single FADDP.
	return []string{
		"faddp " + vregArr(scratch, ".2d") + ", " + vregArr(src, ".2d") + ", " + vregArr(src, ".2d"),
		"fmov " + FormatReg(instr.Dst.Reg, gprClass) + ", " + "d" + itoa(int64(scratch.Num)),
	}
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
