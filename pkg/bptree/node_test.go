package bptree

import (
	"testing"

	"go-btree/pkg/customerrors"
	"go-btree/pkg/disk"

	"github.com/stretchr/testify/require"
)

func newPage() []byte {
	return make([]byte, disk.PageSize)
}

func TestNode_LeafRoundTrip(t *testing.T) {
	original := []Pair{
		{Key: []byte("hello"), Value: []byte("10")},
		{Key: []byte("world"), Value: []byte("100")},
	}

	page := newPage()
	require.NoError(t, writeLeaf(page, original))

	nt, err := readNodeType(page)
	require.NoError(t, err)
	require.Equal(t, nodeLeaf, nt)

	got, err := readLeaf(page)
	require.NoError(t, err)
	require.Equal(t, original, got)
}

func TestNode_EmptyLeaf(t *testing.T) {
	page := newPage()
	require.NoError(t, writeLeaf(page, nil))

	got, err := readLeaf(page)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestNode_BranchRoundTrip(t *testing.T) {
	seps := [][]byte{[]byte("hello"), []byte("world")}
	children := []disk.PageID{3, 18, 4}

	page := newPage()
	require.NoError(t, writeBranch(page, seps, children))

	nt, err := readNodeType(page)
	require.NoError(t, err)
	require.Equal(t, nodeBranch, nt)

	gotSeps, gotChildren, err := readBranch(page)
	require.NoError(t, err)
	require.Equal(t, seps, gotSeps)
	require.Equal(t, children, gotChildren)
}

func TestNode_Layout(t *testing.T) {
	page := newPage()
	require.NoError(t, writeLeaf(page, []Pair{{Key: []byte("a"), Value: []byte("b")}}))

	// type tag and entry count are big-endian u32 at offsets 0 and 4
	require.Equal(t, []byte{0, 0, 0, 0}, page[0:4])
	require.Equal(t, []byte{0, 0, 0, 1}, page[4:8])

	require.NoError(t, writeBranch(page, [][]byte{[]byte("a")}, []disk.PageID{1, 2}))
	require.Equal(t, []byte{0, 0, 0, 1}, page[0:4])
	require.Equal(t, []byte{0, 0, 0, 1}, page[4:8])
}

func TestNode_FullRewrite(t *testing.T) {
	page := newPage()
	require.NoError(t, writeLeaf(page, []Pair{
		{Key: []byte("aaaaaaaaaa"), Value: []byte("bbbbbbbbbb")},
		{Key: []byte("cccccccccc"), Value: []byte("dddddddddd")},
	}))

	// rewriting with fewer entries must not resurrect old ones
	require.NoError(t, writeLeaf(page, []Pair{{Key: []byte("x"), Value: []byte("y")}}))

	got, err := readLeaf(page)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []byte("x"), got[0].Key)
}

func TestNode_BadTypeTag(t *testing.T) {
	page := newPage()
	bin.PutUint32(page[0:4], 7)

	_, err := readNodeType(page)
	require.ErrorIs(t, err, customerrors.ErrCorrupted)

	_, err = readLeaf(page)
	require.ErrorIs(t, err, customerrors.ErrCorrupted)

	_, _, err = readBranch(page)
	require.ErrorIs(t, err, customerrors.ErrCorrupted)
}

func TestNode_TypeMismatch(t *testing.T) {
	page := newPage()
	require.NoError(t, writeLeaf(page, nil))
	_, _, err := readBranch(page)
	require.ErrorIs(t, err, customerrors.ErrCorrupted)

	require.NoError(t, writeBranch(page, nil, []disk.PageID{1}))
	_, err = readLeaf(page)
	require.ErrorIs(t, err, customerrors.ErrCorrupted)
}

func TestNode_CountPastBoundary(t *testing.T) {
	page := newPage()
	require.NoError(t, writeLeaf(page, []Pair{{Key: []byte("a"), Value: []byte("b")}}))
	bin.PutUint32(page[4:8], 1000)

	_, err := readLeaf(page)
	require.ErrorIs(t, err, customerrors.ErrCorrupted)

	require.NoError(t, writeBranch(page, [][]byte{[]byte("a")}, []disk.PageID{1, 2}))
	bin.PutUint32(page[4:8], 1000)

	_, _, err = readBranch(page)
	require.ErrorIs(t, err, customerrors.ErrCorrupted)
}

func TestNode_LengthPastBoundary(t *testing.T) {
	page := newPage()
	require.NoError(t, writeLeaf(page, []Pair{{Key: []byte("a"), Value: []byte("b")}}))

	// entry length prefix claims more bytes than the page holds
	bin.PutUint32(page[nodeHeaderSz:nodeHeaderSz+4], disk.PageSize)

	_, err := readLeaf(page)
	require.ErrorIs(t, err, customerrors.ErrCorrupted)
}

func TestNode_PageFull(t *testing.T) {
	page := newPage()
	huge := Pair{Key: make([]byte, disk.PageSize), Value: nil}

	err := writeLeaf(page, []Pair{huge})
	require.ErrorIs(t, err, customerrors.ErrPageFull)

	err = writeBranch(page, [][]byte{make([]byte, disk.PageSize)}, []disk.PageID{1, 2})
	require.ErrorIs(t, err, customerrors.ErrPageFull)
}

func TestNode_BranchChildCountMismatch(t *testing.T) {
	page := newPage()
	err := writeBranch(page, [][]byte{[]byte("a")}, []disk.PageID{1})
	require.Error(t, err)
}
