// Package customerrors defines the error kinds surfaced by the index core
// and its page infrastructure.
package customerrors

import (
	"errors"
)

var (
	// ErrDuplicateKey is returned when inserting a key that already
	// exists in a leaf. The tree is left structurally unchanged.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrCorrupted is returned when a page's declared counts or lengths
	// are inconsistent with its size. Fatal, never retried.
	ErrCorrupted = errors.New("page corrupted")

	// ErrUnsupported is returned by operations intentionally out of
	// scope (deletion). They fail before touching any page.
	ErrUnsupported = errors.New("operation not supported")

	// ErrPageFull is returned when serialized node contents would not
	// fit in a fixed size page.
	ErrPageFull = errors.New("node contents exceed page size")

	// ErrNoFreeFrame is returned by the buffer pool when every frame is
	// pinned and no victim can be evicted.
	ErrNoFreeFrame = errors.New("no free buffer frame")
)
