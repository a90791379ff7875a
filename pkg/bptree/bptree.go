// Package bptree implements the indexing core of a single-file database:
// a disk-backed B+ tree whose nodes are fixed-size pages obtained from a
// buffer pool. Keys and values are blobs of binary data, ordered by
// byte-lexicographic key comparison.
package bptree

import (
	"bytes"
	"encoding/binary"

	"go-btree/pkg/customerrors"
	"go-btree/pkg/disk"
	"go-btree/util/helpers"
	"go-btree/util/logger"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// bin is the byte order used for all on-page integers.
var bin = binary.BigEndian

var log = logger.WithComponent("bptree")

// BPlusTree is the tree handle. It holds only the meta page id; the root
// is resolved through the meta page on every operation, since any insert
// that splits the root replaces it.
type BPlusTree struct {
	metaPageID disk.PageID
}

// Create allocates a meta page and an empty leaf root, records the root
// in the meta page and returns a handle. Nil options select the defaults.
func Create(pages PageSource, opts *Options) (*BPlusTree, error) {
	if opts == nil {
		opts = &defaultOptions
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	metaPage, err := pages.CreatePage()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create meta page")
	}
	defer metaPage.Release()

	rootPage, err := pages.CreatePage()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create root page")
	}
	defer rootPage.Release()

	if err := writeLeaf(rootPage.Bytes(), nil); err != nil {
		return nil, err
	}
	rootPage.MarkDirty()

	m := &metadata{
		root:      rootPage.ID(),
		magic:     magic,
		version:   version,
		leafCap:   uint16(opts.LeafCapacity),
		branchCap: uint16(opts.BranchCapacity),
	}

	d, err := m.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal meta after create")
	}
	copy(metaPage.Bytes(), d)
	metaPage.MarkDirty()

	return &BPlusTree{metaPageID: metaPage.ID()}, nil
}

// Open re-attaches to a tree previously created with Create, validating
// the meta page. A meta page that does not carry the expected magic and
// version is reported as corruption.
func Open(pages PageSource, metaPageID disk.PageID) (*BPlusTree, error) {
	tree := &BPlusTree{metaPageID: metaPageID}
	if _, err := tree.readMeta(pages); err != nil {
		return nil, errors.Wrap(err, "failed to open tree")
	}
	return tree, nil
}

// MetaPageID returns the id of the tree's meta page, the only value a
// caller needs to persist to re-open the tree.
func (tree *BPlusTree) MetaPageID() disk.PageID { return tree.metaPageID }

// Search looks up key and returns the stored pair. A missing key is a
// normal outcome, reported through found, never as an error.
func (tree *BPlusTree) Search(pages PageSource, key []byte) (pair Pair, found bool, err error) {
	meta, err := tree.readMeta(pages)
	if err != nil {
		return Pair{}, false, err
	}

	leafID, err := descend(pages, meta.root, key)
	if err != nil {
		return Pair{}, false, err
	}

	page, err := pages.FetchPage(leafID)
	if err != nil {
		return Pair{}, false, errors.Wrapf(err, "failed to fetch leaf page %d", leafID)
	}
	defer page.Release()

	pairs, err := readLeaf(page.Bytes())
	if err != nil {
		return Pair{}, false, err
	}

	idx, found := searchPairs(pairs, key)
	if !found {
		return Pair{}, false, nil
	}
	return pairs[idx], true, nil
}

// Insert puts the key-value pair into the tree. Inserting a key that is
// already present fails with customerrors.ErrDuplicateKey and leaves the
// tree unchanged. A split that reaches the top grows a new root, so every
// leaf stays at the same depth.
func (tree *BPlusTree) Insert(pages PageSource, key, value []byte) error {
	meta, err := tree.readMeta(pages)
	if err != nil {
		return err
	}

	split, err := tree.insertInto(pages, meta.root, key, value, meta)
	if err != nil || split == nil {
		return err
	}

	newRoot, err := pages.CreatePage()
	if err != nil {
		return errors.Wrap(err, "failed to create page for new root")
	}
	defer newRoot.Release()

	err = writeBranch(newRoot.Bytes(), [][]byte{split.sep}, []disk.PageID{meta.root, split.right})
	if err != nil {
		return err
	}
	newRoot.MarkDirty()

	meta.root = newRoot.ID()
	if err := tree.writeMeta(pages, meta); err != nil {
		return err
	}

	log.Debugf("root split, new root is page %d", meta.root)
	return nil
}

// Delete is intentionally out of scope for this index core. It fails
// explicitly before touching any page rather than leaving a half-built
// code path around.
func (tree *BPlusTree) Delete(pages PageSource, key []byte) error {
	return errors.Wrap(customerrors.ErrUnsupported, "delete")
}

// Height returns the number of node levels between the root and the
// leaves, inclusive. A tree whose root is a leaf has height 1.
func (tree *BPlusTree) Height(pages PageSource) (int, error) {
	meta, err := tree.readMeta(pages)
	if err != nil {
		return 0, err
	}

	height := 1
	id := meta.root
	for {
		page, err := pages.FetchPage(id)
		if err != nil {
			return 0, errors.Wrapf(err, "failed to fetch node page %d", id)
		}

		t, err := readNodeType(page.Bytes())
		if err != nil {
			page.Release()
			return 0, err
		}
		if t == nodeLeaf {
			page.Release()
			return height, nil
		}

		_, children, err := readBranch(page.Bytes())
		page.Release()
		if err != nil {
			return 0, err
		}

		id = children[0]
		height++
	}
}

// pendingSplit carries a completed child split up to its parent: sep is
// the separator key routing into the new right sibling.
type pendingSplit struct {
	sep   []byte
	right disk.PageID
}

// insertInto inserts the pair into the subtree rooted at id and reports a
// pending split to the caller when the node had to divide.
func (tree *BPlusTree) insertInto(
	pages PageSource,
	id disk.PageID,
	key, value []byte,
	meta *metadata,
) (*pendingSplit, error) {
	page, err := pages.FetchPage(id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch node page %d", id)
	}
	defer page.Release()

	t, err := readNodeType(page.Bytes())
	if err != nil {
		return nil, err
	}

	switch t {
	case nodeLeaf:
		return tree.insertIntoLeaf(pages, page, key, value, meta)
	default:
		return tree.insertIntoBranch(pages, page, key, value, meta)
	}
}

func (tree *BPlusTree) insertIntoLeaf(
	pages PageSource,
	page Page,
	key, value []byte,
	meta *metadata,
) (*pendingSplit, error) {
	pairs, err := readLeaf(page.Bytes())
	if err != nil {
		return nil, err
	}

	idx, found := searchPairs(pairs, key)
	if found {
		return nil, errors.Wrapf(customerrors.ErrDuplicateKey, "in leaf page %d", page.ID())
	}

	pairs = slices.Insert(pairs, idx, Pair{
		Key:   helpers.CopyBytes(key),
		Value: helpers.CopyBytes(value),
	})

	if len(pairs) <= int(meta.leafCap) {
		if err := writeLeaf(page.Bytes(), pairs); err != nil {
			return nil, err
		}
		page.MarkDirty()
		return nil, nil
	}

	// ceiling split: the left half keeps ceil((cap+1)/2) pairs. The
	// sibling page is allocated before either half is written so a
	// failed allocation leaves the leaf untouched.
	breakPoint := (len(pairs) + 1) / 2
	sibling, err := pages.CreatePage()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create leaf sibling page")
	}
	defer sibling.Release()

	if err := writeLeaf(sibling.Bytes(), pairs[breakPoint:]); err != nil {
		return nil, err
	}
	if err := writeLeaf(page.Bytes(), pairs[:breakPoint]); err != nil {
		return nil, err
	}
	sibling.MarkDirty()
	page.MarkDirty()

	log.Debugf("leaf page %d split, sibling page %d", page.ID(), sibling.ID())
	return &pendingSplit{
		sep:   helpers.CopyBytes(pairs[breakPoint].Key),
		right: sibling.ID(),
	}, nil
}

func (tree *BPlusTree) insertIntoBranch(
	pages PageSource,
	page Page,
	key, value []byte,
	meta *metadata,
) (*pendingSplit, error) {
	seps, children, err := readBranch(page.Bytes())
	if err != nil {
		return nil, err
	}

	split, err := tree.insertInto(pages, children[childIndex(seps, key)], key, value, meta)
	if err != nil || split == nil {
		return nil, err
	}

	idx, found := slices.BinarySearchFunc(seps, split.sep, bytes.Compare)
	if found {
		return nil, errors.Wrapf(customerrors.ErrCorrupted, "separator already present in branch page %d", page.ID())
	}
	seps = slices.Insert(seps, idx, split.sep)
	children = slices.Insert(children, idx+1, split.right)

	if len(seps) <= int(meta.branchCap) {
		if err := writeBranch(page.Bytes(), seps, children); err != nil {
			return nil, err
		}
		page.MarkDirty()
		return nil, nil
	}

	// the middle separator moves up to the parent and is kept in
	// neither half, unlike a leaf split.
	mid := len(seps) / 2
	sibling, err := pages.CreatePage()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create branch sibling page")
	}
	defer sibling.Release()

	if err := writeBranch(sibling.Bytes(), seps[mid+1:], children[mid+1:]); err != nil {
		return nil, err
	}
	if err := writeBranch(page.Bytes(), seps[:mid], children[:mid+1]); err != nil {
		return nil, err
	}
	sibling.MarkDirty()
	page.MarkDirty()

	log.Debugf("branch page %d split, sibling page %d", page.ID(), sibling.ID())
	return &pendingSplit{sep: seps[mid], right: sibling.ID()}, nil
}

// descend walks from startID down to the leaf owning key. At a branch the
// child behind the first separator strictly greater than the key is
// followed; a key equal to a separator goes right.
func descend(pages PageSource, startID disk.PageID, key []byte) (disk.PageID, error) {
	id := startID
	for {
		page, err := pages.FetchPage(id)
		if err != nil {
			return disk.InvalidPageID, errors.Wrapf(err, "failed to fetch node page %d", id)
		}

		t, err := readNodeType(page.Bytes())
		if err != nil {
			page.Release()
			return disk.InvalidPageID, err
		}
		if t == nodeLeaf {
			page.Release()
			return id, nil
		}

		seps, children, err := readBranch(page.Bytes())
		page.Release()
		if err != nil {
			return disk.InvalidPageID, err
		}

		id = children[childIndex(seps, key)]
	}
}

// childIndex returns the index of the child to follow for key, which is
// the index of the first separator strictly greater than it.
func childIndex(seps [][]byte, key []byte) int {
	idx, found := slices.BinarySearchFunc(seps, key, bytes.Compare)
	if found {
		idx++
	}
	return idx
}

// searchPairs performs a binary search over the sorted leaf pairs and
// returns the index where key is or would be inserted.
func searchPairs(pairs []Pair, key []byte) (idx int, found bool) {
	return slices.BinarySearchFunc(pairs, key, func(p Pair, k []byte) int {
		return bytes.Compare(p.Key, k)
	})
}

func (tree *BPlusTree) readMeta(pages PageSource) (*metadata, error) {
	page, err := pages.FetchPage(tree.metaPageID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch meta page %d", tree.metaPageID)
	}
	defer page.Release()

	m := &metadata{}
	if err := m.UnmarshalBinary(page.Bytes()); err != nil {
		return nil, err
	}
	return m, nil
}

func (tree *BPlusTree) writeMeta(pages PageSource, m *metadata) error {
	page, err := pages.FetchPage(tree.metaPageID)
	if err != nil {
		return errors.Wrapf(err, "failed to fetch meta page %d", tree.metaPageID)
	}
	defer page.Release()

	d, err := m.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "failed to marshal meta")
	}

	copy(page.Bytes(), d)
	page.MarkDirty()
	return nil
}
