package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinearize(t *testing.T) {
	fn := &Function{Blocks: []*Block{
		{ID: 0}, {ID: 1}, {ID: 2},
	}}
	fn.Linearize()

	require.Equal(t, fn.Blocks[1], fn.Blocks[0].Layout)
	require.Equal(t, fn.Blocks[2], fn.Blocks[1].Layout)
	require.Nil(t, fn.Blocks[2].Layout)
}

func TestBlockByID(t *testing.T) {
	b1 := &Block{ID: 5}
	fn := &Function{Blocks: []*Block{{ID: 0}, b1}}

	require.Equal(t, b1, fn.BlockByID(5))
	require.Nil(t, fn.BlockByID(99))
}

func TestCondInvertRoundTrip(t *testing.T) {
	all := []CondFlag{EQ, NE, HS, LO, MI, PL, VS, VC, HI, LS, GE, LT, GT, LE, AL, NV}
	for _, c := range all {
		require.Equal(t, c, c.Invert().Invert(), "Invert(Invert(%v))", c)
	}
}

func TestReferenceEquality(t *testing.T) {
	a := Reg(GPR(3))
	b := Reg(GPR(3))
	require.Equal(t, a, b)
	require.NotEqual(t, None, a)
}
