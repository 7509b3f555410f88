package arm64

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItoa(t *testing.T) {
	require.Equal(t, "504", itoa(504))
	require.Equal(t, "-8", itoa(-8))
	require.Equal(t, "0", itoa(0))
}

func TestHex(t *testing.T) {
	require.Equal(t, "#1f8", hex(504))
	require.Equal(t, "#0", hex(0))
}

func TestHexSigned(t *testing.T) {
	require.Equal(t, "#1f8", hexSigned(504))
	require.Equal(t, "-#8", hexSigned(-8))
	require.Equal(t, "#0", hexSigned(0))
}
