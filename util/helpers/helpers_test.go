package helpers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMin(t *testing.T) {
	require.Equal(t, 1, Min(3, 1, 2))
	require.Equal(t, -7, Min(-7))
	require.Equal(t, uint16(0), Min(uint16(4), uint16(0)))
}

func TestCopyBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	cp := CopyBytes(src)
	require.Equal(t, src, cp)

	src[0] = 9
	require.Equal(t, byte(1), cp[0])

	require.NotNil(t, CopyBytes(nil))
	require.Len(t, CopyBytes(nil), 0)
}
