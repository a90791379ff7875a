package bptree

import (
	"testing"

	"go-btree/pkg/customerrors"

	"github.com/stretchr/testify/require"
)

func TestPair_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		pair Pair
	}{
		{"plain", Pair{Key: []byte("hello"), Value: []byte("world")}},
		{"empty value", Pair{Key: []byte("k"), Value: []byte{}}},
		{"empty key", Pair{Key: []byte{}, Value: []byte("v")}},
		{"binary", Pair{Key: []byte{0x00, 0xff, 0x10}, Value: []byte{0xde, 0xad, 0xbe, 0xef}}},
		{"long", Pair{Key: make([]byte, 1000), Value: make([]byte, 2000)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := tc.pair.MarshalBinary()
			require.NoError(t, err)
			require.Len(t, d, tc.pair.size())

			got := Pair{}
			require.NoError(t, got.UnmarshalBinary(d))
			require.Equal(t, tc.pair.Key, got.Key)
			require.Equal(t, tc.pair.Value, got.Value)
		})
	}
}

func TestPair_SelfDelimiting(t *testing.T) {
	p := Pair{Key: []byte("key"), Value: []byte("value")}
	d, err := p.MarshalBinary()
	require.NoError(t, err)

	// trailing garbage must not leak into the decoded pair
	d = append(d, 0xaa, 0xbb, 0xcc)

	got := Pair{}
	require.NoError(t, got.UnmarshalBinary(d))
	require.Equal(t, p.Key, got.Key)
	require.Equal(t, p.Value, got.Value)
}

func TestPair_DecodeCorrupted(t *testing.T) {
	p := Pair{Key: []byte("some key"), Value: []byte("some value")}
	d, err := p.MarshalBinary()
	require.NoError(t, err)

	for cut := 0; cut < len(d); cut++ {
		got := Pair{}
		err := got.UnmarshalBinary(d[:cut])
		require.Error(t, err, "truncation at %d must fail", cut)
		require.ErrorIs(t, err, customerrors.ErrCorrupted)
	}
}

func TestPair_DecodeDoesNotAlias(t *testing.T) {
	p := Pair{Key: []byte("k"), Value: []byte("v")}
	d, err := p.MarshalBinary()
	require.NoError(t, err)

	got := Pair{}
	require.NoError(t, got.UnmarshalBinary(d))

	for i := range d {
		d[i] = 0xff
	}
	require.Equal(t, []byte("k"), got.Key)
	require.Equal(t, []byte("v"), got.Value)
}
