package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/albanread/fasterbasic-arm64cg/internal/ir"
)

func TestIsBitmaskImmediate(t *testing.T) {
	cases := []struct {
		name  string
		v     uint64
		class ir.Class
		want  bool
	}{
		{"all ones 64 has no encoding", ^uint64(0), ir.ClassL, false},
		{"zero has no encoding", 0, ir.ClassL, false},
		{"mismatched halves cannot replicate", 0x0000000100000002, ir.ClassL, false},
		{"replicated byte pattern", 0x0101010101010101, ir.ClassL, true},
		{"0x7 replicated every byte", 0x0707070707070707, ir.ClassL, true},
		{"32-bit all-ones has no encoding", 0xffffffff, ir.ClassW, false},
		{"32-bit low nibble run", 0x0000000f, ir.ClassW, true},
		{"rotated run at 32-bit", 0xf0000000, ir.ClassW, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, IsBitmaskImmediate(c.v, c.class))
		})
	}
}

func TestFormatImm12(t *testing.T) {
	require.Equal(t, "#ff", FormatImm12("add", ir.ClassL, 0xff))
	require.Equal(t, "#1, lsl #12", FormatImm12("add", ir.ClassL, 0x1000))

	require.Panics(t, func() {
		FormatImm12("add", ir.ClassL, 0x1001000)
	})
}
