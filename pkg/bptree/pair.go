package bptree

import (
	"go-btree/pkg/customerrors"
	"go-btree/util/helpers"

	"github.com/pkg/errors"
)

// pairHeaderSz is the two u32 length prefixes of an encoded pair.
const pairHeaderSz = 8

// Pair is one key-value pair stored in a leaf. Pairs are ordered strictly
// by byte-lexicographic comparison of the key; key bytes carry no numeric
// interpretation.
type Pair struct {
	Key   []byte
	Value []byte
}

func (p Pair) size() int {
	return pairHeaderSz + len(p.Key) + len(p.Value)
}

// MarshalBinary encodes the pair as two length-prefixed fields:
// u32 key length, key bytes, u32 value length, value bytes.
func (p Pair) MarshalBinary() ([]byte, error) {
	buf := make([]byte, p.size())
	offset := 0

	bin.PutUint32(buf[offset:offset+4], uint32(len(p.Key)))
	offset += 4
	copy(buf[offset:], p.Key)
	offset += len(p.Key)

	bin.PutUint32(buf[offset:offset+4], uint32(len(p.Value)))
	offset += 4
	copy(buf[offset:], p.Value)

	return buf, nil
}

// UnmarshalBinary decodes a pair from the front of d. The encoding is
// self-delimiting, so trailing bytes are allowed and left untouched.
func (p *Pair) UnmarshalBinary(d []byte) error {
	if p == nil {
		return errors.New("cannot unmarshal into nil pair")
	}

	key, offset, err := readField(d, 0)
	if err != nil {
		return errors.Wrap(err, "failed to unmarshal pair key")
	}

	val, _, err := readField(d, offset)
	if err != nil {
		return errors.Wrap(err, "failed to unmarshal pair value")
	}

	p.Key = key
	p.Value = val
	return nil
}

// readField reads one u32 length-prefixed field starting at offset and
// returns a copy of it along with the offset past it.
func readField(d []byte, offset int) ([]byte, int, error) {
	if offset+4 > len(d) {
		return nil, 0, errors.Wrap(customerrors.ErrCorrupted, "field length prefix truncated")
	}

	size := int(bin.Uint32(d[offset : offset+4]))
	offset += 4
	if offset+size > len(d) {
		return nil, 0, errors.Wrapf(
			customerrors.ErrCorrupted,
			"field of %d bytes truncated (%d available)", size, len(d)-offset,
		)
	}

	return helpers.CopyBytes(d[offset : offset+size]), offset + size, nil
}
