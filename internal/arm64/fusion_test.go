package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/fasterbasic-arm64cg/internal/ir"
)

func TestMatchMaddMsubAdd(t *testing.T) {
	block := &ir.Block{Instrs: []*ir.Instruction{}}
	mul := &ir.Instruction{Op: ir.OpMul, Class: ir.ClassL,
		Dst: ir.Reg(ir.GPR(9)), Arg0: ir.Reg(ir.GPR(1)), Arg1: ir.Reg(ir.GPR(2))}
	add := &ir.Instruction{Op: ir.OpAdd, Class: ir.ClassL,
		Dst: ir.Reg(ir.GPR(3)), Arg0: ir.Reg(ir.GPR(9)), Arg1: ir.Reg(ir.GPR(4))}

	m, ok := matchMaddMsub(mul, add, block, 0)
	require.True(t, ok)
	require.False(t, m.IsSub)
	require.Equal(t, ir.GPR(3), m.Dst)
	require.Equal(t, ir.GPR(1), m.A)
	require.Equal(t, ir.GPR(2), m.B)
	require.Equal(t, ir.GPR(4), m.Addend)
}

func TestMatchMaddMsubSub(t *testing.T) {
	block := &ir.Block{Instrs: []*ir.Instruction{}}
	mul := &ir.Instruction{Op: ir.OpMul, Class: ir.ClassL,
		Dst: ir.Reg(ir.GPR(9)), Arg0: ir.Reg(ir.GPR(1)), Arg1: ir.Reg(ir.GPR(2))}
	sub := &ir.Instruction{Op: ir.OpSub, Class: ir.ClassL,
		Dst: ir.Reg(ir.GPR(3)), Arg0: ir.Reg(ir.GPR(5)), Arg1: ir.Reg(ir.GPR(9))}

	m, ok := matchMaddMsub(mul, sub, block, 0)
	require.True(t, ok)
	require.True(t, m.IsSub)
	require.Equal(t, ir.GPR(5), m.Addend)
}

func TestMatchMaddMsubUnsafeWhenStillLive(t *testing.T) {
	mul := &ir.Instruction{Op: ir.OpMul, Class: ir.ClassL,
		Dst: ir.Reg(ir.GPR(9)), Arg0: ir.Reg(ir.GPR(1)), Arg1: ir.Reg(ir.GPR(2))}
	add := &ir.Instruction{Op: ir.OpAdd, Class: ir.ClassL,
		Dst: ir.Reg(ir.GPR(3)), Arg0: ir.Reg(ir.GPR(9)), Arg1: ir.Reg(ir.GPR(4))}
	// A later instruction still reads r9, so folding it away is unsafe.
	later := &ir.Instruction{Op: ir.OpCopy, Class: ir.ClassL,
		Dst: ir.Reg(ir.GPR(6)), Arg0: ir.Reg(ir.GPR(9))}
	block := &ir.Block{Instrs: []*ir.Instruction{mul, add, later}}

	_, ok := matchMaddMsub(mul, add, block, 1)
	require.False(t, ok)
}

func TestMatchPairFusionAdjacentSlots(t *testing.T) {
	prev := &ir.Instruction{Op: ir.OpLoad, Class: ir.ClassL,
		Dst: ir.Reg(ir.GPR(1)), Arg0: ir.SlotRef(0)}
	cur := &ir.Instruction{Op: ir.OpLoad, Class: ir.ClassL,
		Dst: ir.Reg(ir.GPR(2)), Arg0: ir.SlotRef(8)}

	m, ok := matchPairFusion(prev, cur)
	require.True(t, ok)
	require.True(t, m.IsLoad)
	require.Equal(t, ir.GPR(1), m.First)
	require.Equal(t, ir.GPR(2), m.Second)
	require.Equal(t, int64(0), m.LowOffset)
}

func TestMatchPairFusionRejectsNonAdjacent(t *testing.T) {
	prev := &ir.Instruction{Op: ir.OpLoad, Class: ir.ClassL,
		Dst: ir.Reg(ir.GPR(1)), Arg0: ir.SlotRef(0)}
	cur := &ir.Instruction{Op: ir.OpLoad, Class: ir.ClassL,
		Dst: ir.Reg(ir.GPR(2)), Arg0: ir.SlotRef(16)}

	_, ok := matchPairFusion(prev, cur)
	require.False(t, ok)
}

func TestMatchPairFusionRejectsMismatchedClass(t *testing.T) {
	prev := &ir.Instruction{Op: ir.OpLoad, Class: ir.ClassL,
		Dst: ir.Reg(ir.GPR(1)), Arg0: ir.SlotRef(0)}
	cur := &ir.Instruction{Op: ir.OpLoad, Class: ir.ClassW,
		Dst: ir.Reg(ir.GPR(2)), Arg0: ir.SlotRef(4)}

	_, ok := matchPairFusion(prev, cur)
	require.False(t, ok)
}

func TestMatchPairFusionStoreOrdersByAddress(t *testing.T) {
	// cur's slot is lower than prev's, so First/Second must swap.
	prev := &ir.Instruction{Op: ir.OpStore, Class: ir.ClassL,
		Dst: ir.SlotRef(8), Arg0: ir.Reg(ir.GPR(1))}
	cur := &ir.Instruction{Op: ir.OpStore, Class: ir.ClassL,
		Dst: ir.SlotRef(0), Arg0: ir.Reg(ir.GPR(2))}

	m, ok := matchPairFusion(prev, cur)
	require.True(t, ok)
	require.False(t, m.IsLoad)
	require.Equal(t, ir.GPR(2), m.First)
	require.Equal(t, ir.GPR(1), m.Second)
	require.Equal(t, int64(0), m.LowOffset)
}

func TestFusionSafeLiveOutBlocksFusion(t *testing.T) {
	block := &ir.Block{LiveOut: []ir.PReg{ir.GPR(9)}}
	cur := &ir.Instruction{Op: ir.OpAdd, Dst: ir.Reg(ir.GPR(3))}
	require.False(t, fusionSafe(block, 0, ir.GPR(9), cur))
}

func TestFusionSafeRedefinitionIsSafe(t *testing.T) {
	block := &ir.Block{LiveOut: []ir.PReg{ir.GPR(9)}}
	cur := &ir.Instruction{Op: ir.OpAdd, Dst: ir.Reg(ir.GPR(9))}
	require.True(t, fusionSafe(block, 0, ir.GPR(9), cur))
}
