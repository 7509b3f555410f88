package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/fasterbasic-arm64cg/internal/ir"
)

func TestFormatRegGPRForms(t *testing.T) {
	require.Equal(t, "w3", FormatReg(ir.GPR(3), ir.ClassW))
	require.Equal(t, "x3", FormatReg(ir.GPR(3), ir.ClassL))
	require.Equal(t, "sp", FormatReg(ir.SP, ir.ClassL))
	require.Equal(t, "xzr", FormatReg(ir.ZR, ir.ClassL))
	require.Equal(t, "wzr", FormatReg(ir.ZR, ir.ClassW))
	require.Equal(t, "x29", FormatReg(ir.FP, ir.ClassL))
	require.Equal(t, "x30", FormatReg(ir.LR, ir.ClassL))
	require.Equal(t, "x16", FormatReg(ir.IP0, ir.ClassL))
	require.Equal(t, "x17", FormatReg(ir.IP1, ir.ClassL))
}

func TestFormatRegVRegForms(t *testing.T) {
	require.Equal(t, "s4", FormatReg(ir.VReg(4), ir.ClassS))
	require.Equal(t, "d4", FormatReg(ir.VReg(4), ir.ClassD))
}

func TestFormatRegInvalidCombosPanic(t *testing.T) {
	require.Panics(t, func() { FormatReg(ir.SP, ir.ClassW) })
	require.Panics(t, func() { FormatReg(ir.ZR, ir.ClassS) })
	require.Panics(t, func() { FormatReg(ir.GPR(1), ir.ClassS) })
	require.Panics(t, func() { FormatReg(ir.VReg(1), ir.ClassL) })
}

func TestFormatMemReg(t *testing.T) {
	require.Equal(t, "[x2]", FormatMemReg(ir.GPR(2)))
}

func TestFormatMemFrameZeroOffset(t *testing.T) {
	require.Equal(t, "[x29]", FormatMemFrame(0))
}

func TestFormatMemFrameNonzeroOffset(t *testing.T) {
	require.Equal(t, "[x29, #1f8]", FormatMemFrame(504))
	require.Equal(t, "[x29, -#8]", FormatMemFrame(-8))
}

func TestFormatImm12PlainValue(t *testing.T) {
	require.Equal(t, "#4", FormatImm12("add", ir.ClassL, 4))
}

func TestFormatImm12ShiftedForm(t *testing.T) {
	require.Equal(t, "#1, lsl #12", FormatImm12("add", ir.ClassL, 0x1000))
}

func TestFormatImm12BitmaskAboveLow24(t *testing.T) {
	v := uint64(0x0101010101010101)
	require.Equal(t, hex(v), FormatImm12("and", ir.ClassL, v))
}

func TestFormatImm12PanicsWhenUnencodable(t *testing.T) {
	require.Panics(t, func() { FormatImm12("add", ir.ClassL, 0x0000000100000002) })
}

func TestFormatImm12PanicsWhenTooLargeFor12Bits(t *testing.T) {
	require.Panics(t, func() { FormatImm12("add", ir.ClassL, 0x1001) })
}
