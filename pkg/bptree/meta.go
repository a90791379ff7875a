package bptree

import (
	"go-btree/pkg/customerrors"
	"go-btree/pkg/disk"

	"github.com/pkg/errors"
)

const (
	magic        = uint16(0xB1D)
	version      = uint8(0x1)
	metadataSize = 16
)

// metadata is the content of the tree's meta page. The root page id sits
// at offset 0; that fixed offset is part of the on-disk contract and is
// what external tools use to resolve the tree's entry point.
type metadata struct {
	root      disk.PageID
	magic     uint16
	version   uint8
	flags     uint8
	leafCap   uint16
	branchCap uint16
}

func (m metadata) MarshalBinary() ([]byte, error) {
	buf := make([]byte, metadataSize)

	bin.PutUint64(buf[0:8], uint64(m.root))
	bin.PutUint16(buf[8:10], m.magic)
	buf[10] = m.version
	buf[11] = m.flags
	bin.PutUint16(buf[12:14], m.leafCap)
	bin.PutUint16(buf[14:16], m.branchCap)

	return buf, nil
}

func (m *metadata) UnmarshalBinary(d []byte) error {
	if m == nil {
		return errors.New("cannot unmarshal into nil metadata")
	} else if len(d) < metadataSize {
		return errors.Wrapf(customerrors.ErrCorrupted, "insufficient data for metadata (%d bytes)", len(d))
	}

	m.root = disk.PageID(bin.Uint64(d[0:8]))
	m.magic = bin.Uint16(d[8:10])
	m.version = d[10]
	m.flags = d[11]
	m.leafCap = bin.Uint16(d[12:14])
	m.branchCap = bin.Uint16(d[14:16])

	if m.magic != magic {
		return errors.Wrapf(customerrors.ErrCorrupted, "bad meta magic %#x", m.magic)
	}
	if m.version != version {
		return errors.Wrapf(
			customerrors.ErrCorrupted,
			"incompatible meta version %#x (expected %#x)", m.version, version,
		)
	}
	if m.leafCap < 1 || m.branchCap < 2 {
		return errors.Wrapf(
			customerrors.ErrCorrupted,
			"implausible node capacities in meta (leaf=%d, branch=%d)", m.leafCap, m.branchCap,
		)
	}

	return nil
}
