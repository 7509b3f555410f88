package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/fasterbasic-arm64cg/internal/ir"
)

func TestSlotOperandInRange(t *testing.T) {
	setup, operand := SlotOperand(ir.IP0, 504, ir.ClassL)
	require.Empty(t, setup)
	require.Equal(t, "[x29, #1f8]", operand)
}

func TestSlotOperandAtBoundary(t *testing.T) {
	// 4095 * 8 is the largest byte offset a 64-bit scaled access encodes.
	setup, operand := SlotOperand(ir.IP0, 4095*8, ir.ClassL)
	require.Empty(t, setup)
	require.Equal(t, "[x29, #7ff8]", operand)

	// One access-size step past that must fall to the materialize path.
	setup, operand = SlotOperand(ir.IP0, 4095*8+8, ir.ClassL)
	require.NotEmpty(t, setup)
	require.Equal(t, "[x16]", operand)
}

func TestSlotOperandUnscaledFallsBack(t *testing.T) {
	setup, operand := SlotOperand(ir.IP0, 4, ir.ClassL)
	require.NotEmpty(t, setup)
	require.Equal(t, "[x16]", operand)
}

func TestSlotOperandLargeOffsetUsesConstantSequence(t *testing.T) {
	setup, operand := SlotOperand(ir.IP0, 1<<20, ir.ClassL)
	require.Equal(t, "[x16]", operand)
	require.True(t, len(setup) >= 2, "large offsets need a constant load plus add")
}

func TestTakeAddressOfSlotSmallOffset(t *testing.T) {
	lines := TakeAddressOfSlot(ir.IP0, 16)
	require.Equal(t, []string{"add x16, x29, 16"}, lines)
}

func TestTakeAddressOfSlotLargeOffset(t *testing.T) {
	lines := TakeAddressOfSlot(ir.IP0, 0x10000)
	require.True(t, len(lines) >= 2)
	require.Equal(t, "add x16, x16, x29", lines[len(lines)-1])
}

func TestPlanStoreScratchDarwinSingleScratch(t *testing.T) {
	plan := PlanStoreScratch(DarwinTarget(), true)
	require.Equal(t, ir.IP0, plan.AddrScratch)
	require.True(t, plan.ValueViaNEON)
	require.Equal(t, ir.VReg(fpScratchVReg), plan.ValueScratch)
}

func TestPlanStoreScratchELFTwoScratches(t *testing.T) {
	plan := PlanStoreScratch(ELFTarget(), true)
	require.Equal(t, ir.IP0, plan.AddrScratch)
	require.False(t, plan.ValueViaNEON)
	require.Equal(t, ir.IP1, plan.ValueScratch)
}

func TestPlanStoreScratchNoValueNeeded(t *testing.T) {
	plan := PlanStoreScratch(DarwinTarget(), false)
	require.Equal(t, ir.IP0, plan.AddrScratch)
	require.False(t, plan.ValueViaNEON)
}
