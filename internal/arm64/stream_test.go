package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/fasterbasic-arm64cg/internal/ir"
)

func TestEncodeRegSentinelsAndBanks(t *testing.T) {
	require.Equal(t, RSSP, EncodeReg(ir.SP))
	require.Equal(t, RSFP, EncodeReg(ir.FP))
	require.Equal(t, RSLR, EncodeReg(ir.LR))
	require.Equal(t, RSIP0, EncodeReg(ir.IP0))
	require.Equal(t, RSIP1, EncodeReg(ir.IP1))
	require.Equal(t, RSZR, EncodeReg(ir.ZR))
	require.Equal(t, RSNone, EncodeReg(ir.PReg{}))

	require.Equal(t, rsGPR0, EncodeReg(ir.GPR(0)))
	require.Equal(t, rsGPR0+5, EncodeReg(ir.GPR(5)))

	require.Equal(t, RegSlot(-1), EncodeReg(ir.VReg(0)))
	require.Equal(t, RegSlot(-6), EncodeReg(ir.VReg(5)))
}

func TestStreamReg3BuildsAllFourSlots(t *testing.T) {
	var s Stream
	s.Reg3(RecMadd, ir.ClassL, ir.GPR(1), ir.GPR(2), ir.GPR(3), ir.GPR(4))
	require.Len(t, s.Records, 1)
	r := s.Records[0]
	require.Equal(t, RecMadd, r.Kind)
	require.Equal(t, EncodeReg(ir.GPR(1)), r.Regs[0])
	require.Equal(t, EncodeReg(ir.GPR(2)), r.Regs[1])
	require.Equal(t, EncodeReg(ir.GPR(3)), r.Regs[2])
	require.Equal(t, EncodeReg(ir.GPR(4)), r.Regs[3])
}

func TestStreamMaddSelectsKindByFloatAndSub(t *testing.T) {
	cases := []struct {
		isFloat, isSub bool
		want           RecordKind
	}{
		{false, false, RecMadd},
		{false, true, RecMsub},
		{true, false, RecFmadd},
		{true, true, RecFmsub},
	}
	for _, c := range cases {
		var s Stream
		s.StreamMadd(ir.ClassL, c.isFloat, c.isSub, ir.GPR(0), ir.GPR(1), ir.GPR(2), ir.GPR(3))
		require.Equal(t, c.want, s.Records[0].Kind)
	}
}

func TestStreamFuncBeginEndCarrySymbol(t *testing.T) {
	var s Stream
	s.FuncBegin("my_func")
	s.FuncEnd("my_func")
	require.Len(t, s.Records, 2)
	require.Equal(t, RecFuncBegin, s.Records[0].Kind)
	require.Equal(t, RecFuncEnd, s.Records[1].Kind)
	require.Equal(t, "my_func", trimSymbol(s.Records[0].Symbol))
}

func TestStreamLabelUsesBranchTargetOnly(t *testing.T) {
	var s Stream
	s.Label(42)
	require.Equal(t, uint64(42), s.Records[0].BranchTarget)
	require.Equal(t, RecLabel, s.Records[0].Kind)
}

func TestStreamMemAndPairEncodeOffsets(t *testing.T) {
	var s Stream
	s.Mem(RecLdr, ir.ClassL, ir.GPR(1), ir.FP, 16)
	require.Equal(t, int64(16), s.Records[0].Imm[0])

	s.Pair(RecStp, ir.ClassL, ir.GPR(1), ir.GPR(2), ir.FP, 32)
	require.Equal(t, int64(32), s.Records[1].Imm[0])
}

func trimSymbol(buf [symbolBufLen]byte) string {
	n := 0
	for n < len(buf) && buf[n] != 0 {
		n++
	}
	return string(buf[:n])
}
