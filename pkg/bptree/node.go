package bptree

import (
	"go-btree/pkg/customerrors"
	"go-btree/pkg/disk"
	"go-btree/util/helpers"

	"github.com/pkg/errors"
)

const (
	// nodeHeaderSz is the u32 type tag plus the u32 entry count.
	nodeHeaderSz = 8
	childPtrSz   = 8
)

// nodeType is the leading type tag of a node page. Exactly two variants
// exist; everything that dispatches on it is a closed switch.
type nodeType uint32

const (
	nodeLeaf   nodeType = 0
	nodeBranch nodeType = 1
)

// readNodeType reads and validates the type tag of a node page.
func readNodeType(page []byte) (nodeType, error) {
	if len(page) < nodeHeaderSz {
		return 0, errors.Wrapf(
			customerrors.ErrCorrupted,
			"page of %d bytes is smaller than the node header", len(page),
		)
	}

	switch t := nodeType(bin.Uint32(page[0:4])); t {
	case nodeLeaf, nodeBranch:
		return t, nil
	default:
		return 0, errors.Wrapf(customerrors.ErrCorrupted, "unknown node type tag %d", uint32(t))
	}
}

// readLeaf decodes the ordered pairs of a leaf page. Every decoded key
// and value is a copy, safe to hold after the page is released.
func readLeaf(page []byte) ([]Pair, error) {
	if t, err := readNodeType(page); err != nil {
		return nil, err
	} else if t != nodeLeaf {
		return nil, errors.Wrapf(customerrors.ErrCorrupted, "expected leaf node, found type %d", uint32(t))
	}

	count := int(bin.Uint32(page[4:8]))
	pairs := make([]Pair, 0, count)
	offset := nodeHeaderSz

	for i := 0; i < count; i++ {
		if offset+4 > len(page) {
			return nil, errors.Wrapf(
				customerrors.ErrCorrupted,
				"leaf entry %d/%d: length prefix past page boundary", i, count,
			)
		}

		size := int(bin.Uint32(page[offset : offset+4]))
		offset += 4
		if offset+size > len(page) {
			return nil, errors.Wrapf(
				customerrors.ErrCorrupted,
				"leaf entry %d/%d: %d bytes past page boundary", i, count, size,
			)
		}

		var p Pair
		if err := p.UnmarshalBinary(page[offset : offset+size]); err != nil {
			return nil, errors.Wrapf(err, "leaf entry %d/%d", i, count)
		}

		pairs = append(pairs, p)
		offset += size
	}

	return pairs, nil
}

// writeLeaf re-linearizes the whole leaf into the page: type tag, entry
// count and every pair in key order. The caller marks the page dirty.
func writeLeaf(page []byte, pairs []Pair) error {
	size := nodeHeaderSz
	for i := range pairs {
		size += 4 + pairs[i].size()
	}
	if size > len(page) {
		return errors.Wrapf(
			customerrors.ErrPageFull,
			"leaf of %d pairs needs %d bytes, page holds %d", len(pairs), size, len(page),
		)
	}

	bin.PutUint32(page[0:4], uint32(nodeLeaf))
	bin.PutUint32(page[4:8], uint32(len(pairs)))

	offset := nodeHeaderSz
	for i := range pairs {
		d, err := pairs[i].MarshalBinary()
		if err != nil {
			return errors.Wrapf(err, "failed to marshal leaf entry %d", i)
		}

		bin.PutUint32(page[offset:offset+4], uint32(len(d)))
		offset += 4
		copy(page[offset:], d)
		offset += len(d)
	}

	return nil
}

// readBranch decodes a branch page into its separator keys and child page
// ids. The k size-prefixed separators come first, then the k+1 fixed-width
// child ids, so the split point is computed purely from the count field.
func readBranch(page []byte) ([][]byte, []disk.PageID, error) {
	if t, err := readNodeType(page); err != nil {
		return nil, nil, err
	} else if t != nodeBranch {
		return nil, nil, errors.Wrapf(customerrors.ErrCorrupted, "expected branch node, found type %d", uint32(t))
	}

	count := int(bin.Uint32(page[4:8]))
	seps := make([][]byte, 0, count)
	offset := nodeHeaderSz

	for i := 0; i < count; i++ {
		if offset+4 > len(page) {
			return nil, nil, errors.Wrapf(
				customerrors.ErrCorrupted,
				"branch separator %d/%d: length prefix past page boundary", i, count,
			)
		}

		size := int(bin.Uint32(page[offset : offset+4]))
		offset += 4
		if offset+size > len(page) {
			return nil, nil, errors.Wrapf(
				customerrors.ErrCorrupted,
				"branch separator %d/%d: %d bytes past page boundary", i, count, size,
			)
		}

		seps = append(seps, helpers.CopyBytes(page[offset:offset+size]))
		offset += size
	}

	children := make([]disk.PageID, 0, count+1)
	for i := 0; i < count+1; i++ {
		if offset+childPtrSz > len(page) {
			return nil, nil, errors.Wrapf(
				customerrors.ErrCorrupted,
				"branch child %d/%d past page boundary", i, count+1,
			)
		}

		children = append(children, disk.PageID(bin.Uint64(page[offset:offset+childPtrSz])))
		offset += childPtrSz
	}

	return seps, children, nil
}

// writeBranch is the branch counterpart of writeLeaf: a full rewrite of
// the page from the given separators and children.
func writeBranch(page []byte, seps [][]byte, children []disk.PageID) error {
	if len(children) != len(seps)+1 {
		return errors.Errorf(
			"branch with %d separators requires %d children, got %d",
			len(seps), len(seps)+1, len(children),
		)
	}

	size := nodeHeaderSz + len(children)*childPtrSz
	for i := range seps {
		size += 4 + len(seps[i])
	}
	if size > len(page) {
		return errors.Wrapf(
			customerrors.ErrPageFull,
			"branch of %d separators needs %d bytes, page holds %d", len(seps), size, len(page),
		)
	}

	bin.PutUint32(page[0:4], uint32(nodeBranch))
	bin.PutUint32(page[4:8], uint32(len(seps)))

	offset := nodeHeaderSz
	for _, sep := range seps {
		bin.PutUint32(page[offset:offset+4], uint32(len(sep)))
		offset += 4
		copy(page[offset:], sep)
		offset += len(sep)
	}
	for _, child := range children {
		bin.PutUint64(page[offset:offset+childPtrSz], uint64(child))
		offset += childPtrSz
	}

	return nil
}
