package arm64

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/fasterbasic-arm64cg/internal/ir"
)

func TestComputeFrameLayoutRoundsSlotsAndSaves(t *testing.T) {
	fn := &ir.Function{SpillSlots: 5, UsedCalleeSaveMask: 0b1} // one callee-save used
	layout := ComputeFrameLayout(DarwinTarget(), fn)

	require.Equal(t, 8, layout.SlotCount) // rounded up to a multiple of 4
	require.Equal(t, 2, layout.SaveCount) // rounded up to even
	require.Equal(t, int64(4*3), layout.Padding)
	require.Equal(t, int64(4*8+8*2), layout.FrameSize)
	require.Equal(t, int64(0), layout.VarargArea)
}

func TestComputeFrameLayoutVarargAreaRespectsTarget(t *testing.T) {
	fn := &ir.Function{Vararg: true}

	darwin := ComputeFrameLayout(DarwinTarget(), fn)
	require.Equal(t, int64(0), darwin.VarargArea)

	elf := ComputeFrameLayout(ELFTarget(), fn)
	require.Equal(t, int64(192), elf.VarargArea)
}

func TestTotalAdjustmentAndSlotOffset(t *testing.T) {
	layout := FrameLayout{FrameSize: 64, Padding: 8}
	require.Equal(t, int64(64+16), layout.TotalAdjustment())
	require.Equal(t, int64(16+8+0*4), layout.SlotOffset(0))
	require.Equal(t, int64(16+8+3*4), layout.SlotOffset(3))
}

func TestAllocateFrameMagnitudeCases(t *testing.T) {
	small := allocateFrame(ir.IP0, 48)
	require.Len(t, small, 1)
	require.True(t, strings.HasPrefix(small[0], "stp"))
	require.Contains(t, small[0], "]!")

	mid := allocateFrame(ir.IP0, 4095)
	require.Len(t, mid, 2)
	require.True(t, strings.HasPrefix(mid[0], "sub"))
	require.True(t, strings.HasPrefix(mid[1], "stp"))

	large := allocateFrame(ir.IP0, 1<<20)
	require.True(t, len(large) >= 3)
	require.True(t, strings.HasPrefix(large[len(large)-2], "sub"))
	require.True(t, strings.HasPrefix(large[len(large)-1], "stp"))
}

func TestDeallocateFrameMirrorsAllocate(t *testing.T) {
	small := deallocateFrame(ir.IP0, 48)
	require.Len(t, small, 1)
	require.True(t, strings.HasPrefix(small[0], "ldp"))

	mid := deallocateFrame(ir.IP0, 4095)
	require.Len(t, mid, 2)
	require.True(t, strings.HasPrefix(mid[0], "ldp"))
	require.True(t, strings.HasPrefix(mid[1], "add"))

	large := deallocateFrame(ir.IP0, 1<<20)
	require.True(t, len(large) >= 3)
	require.True(t, strings.HasPrefix(large[0], "ldp"))
	require.True(t, strings.HasPrefix(large[len(large)-1], "add"))
}

func TestPairedCalleeSaveOpsPairsAdjacentSameBank(t *testing.T) {
	layout := FrameLayout{
		SaveCount:   2,
		FrameSize:   16,
		CalleeSaved: []ir.PReg{ir.GPR(19), ir.GPR(20)},
	}
	lines := layout.saveCalleeSaves()
	require.Len(t, lines, 1)
	require.True(t, strings.HasPrefix(lines[0], "stp"))

	restore := layout.RestoreCalleeSaves()
	require.Len(t, restore, 1)
	require.True(t, strings.HasPrefix(restore[0], "ldp"))
}

func TestPairedCalleeSaveOpsSeparatesDifferentBanks(t *testing.T) {
	layout := FrameLayout{
		SaveCount:   2,
		FrameSize:   16,
		CalleeSaved: []ir.PReg{ir.GPR(19), ir.VReg(8)},
	}
	lines := layout.saveCalleeSaves()
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "str"))
	require.True(t, strings.HasPrefix(lines[1], "str"))
}
