package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/fasterbasic-arm64cg/internal/ir"
)

func TestParseFixtureSimpleReturn(t *testing.T) {
	fn, err := parseFixture(`(func simple (block 0 (ret)))`)
	require.NoError(t, err)
	require.Equal(t, "simple", fn.Name)
	require.Len(t, fn.Blocks, 1)
	require.Equal(t, ir.TermReturn, fn.Blocks[0].Term.Kind)
}

func TestParseFixtureAttributes(t *testing.T) {
	fn, err := parseFixture(`(func withattrs exported vararg slots 4 save 3 (block 0 (ret)))`)
	require.NoError(t, err)
	require.True(t, fn.Link.Exported)
	require.True(t, fn.Vararg)
	require.Equal(t, 4, fn.SpillSlots)
	require.Equal(t, uint32(3), fn.UsedCalleeSaveMask)
}

func TestParseFixtureInstructionsAndJump(t *testing.T) {
	fn, err := parseFixture(`
		(func f
			(block 0
				(add L r1 r2 r3)
				(jmp 1))
			(block 1 preds 1
				(ret)))
	`)
	require.NoError(t, err)
	require.Len(t, fn.Blocks, 2)
	b0 := fn.Blocks[0]
	require.Len(t, b0.Instrs, 1)
	require.Equal(t, ir.OpAdd, b0.Instrs[0].Op)
	require.Equal(t, ir.ClassL, b0.Instrs[0].Class)
	require.Equal(t, ir.Reg(ir.GPR(1)), b0.Instrs[0].Dst)
	require.Equal(t, ir.TermJump, b0.Term.Kind)
	require.Equal(t, ir.BlockID(1), b0.Term.S1)
	require.Equal(t, 1, fn.Blocks[1].NumPreds)
}

func TestParseFixtureCondBranchWithCompare(t *testing.T) {
	fn, err := parseFixture(`
		(func f
			(block 0
				(br eq 1 2 r1 #0))
			(block 1 (ret))
			(block 2 (ret)))
	`)
	require.NoError(t, err)
	term := fn.Blocks[0].Term
	require.Equal(t, ir.TermCondBranch, term.Kind)
	require.Equal(t, ir.EQ, term.Cond)
	require.Equal(t, ir.BlockID(1), term.S1)
	require.Equal(t, ir.BlockID(2), term.S2)
	require.Equal(t, ir.Reg(ir.GPR(1)), term.CmpArg0)
	require.Equal(t, ir.ConstRef(0), term.CmpArg1)
}

func TestParseFixtureCallWithResult(t *testing.T) {
	fn, err := parseFixture(`(func f (block 0 (call "helper" r1) (ret)))`)
	require.NoError(t, err)
	instr := fn.Blocks[0].Instrs[0]
	require.Equal(t, ir.OpCall, instr.Op)
	require.Equal(t, "helper", instr.Sym)
	require.Equal(t, ir.Reg(ir.GPR(1)), instr.Dst)
}

func TestParseFixtureOperandForms(t *testing.T) {
	require.Equal(t, ir.None, parseOperand("_"))
	require.Equal(t, ir.Reg(ir.SP), parseOperand("sp"))
	require.Equal(t, ir.Reg(ir.FP), parseOperand("fp"))
	require.Equal(t, ir.ConstRef(255), parseOperand("#0xff"))
	require.Equal(t, ir.SlotRef(3), parseOperand("slot3"))
	require.Equal(t, ir.Reg(ir.GPR(9)), parseOperand("r9"))
	require.Equal(t, ir.Reg(ir.VReg(2)), parseOperand("v2"))
}

func TestParseFixtureUnknownOpcodeErrors(t *testing.T) {
	_, err := parseFixture(`(func f (block 0 (bogus L r1) (ret)))`)
	require.Error(t, err)
}

func TestArrangementSuffix(t *testing.T) {
	arr, ok := arrangementSuffix("L.4s")
	require.True(t, ok)
	require.Equal(t, ir.Arr4S, arr)

	_, ok = arrangementSuffix("L")
	require.False(t, ok)
}
