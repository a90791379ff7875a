package bptree

import (
	"go-btree/pkg/buffer"
	"go-btree/pkg/disk"
)

// Page is a pinned page handle obtained from a PageSource. The holder may
// mutate the page bytes, must call MarkDirty after doing so, and must call
// Release on every exit path once the page is no longer needed.
type Page interface {
	ID() disk.PageID
	Bytes() []byte
	MarkDirty()
	Release()
}

// PageSource is the buffer pool surface the tree consumes. It is an
// injected dependency so tests can substitute an in-memory page source.
type PageSource interface {
	// CreatePage allocates a fresh zero-filled page and returns it pinned.
	CreatePage() (Page, error)

	// FetchPage returns the page with the given id, pinned.
	FetchPage(id disk.PageID) (Page, error)
}

// PoolSource adapts the buffer pool manager to the PageSource interface.
type PoolSource struct {
	Pool *buffer.Manager
}

func (s PoolSource) CreatePage() (Page, error) {
	b, err := s.Pool.CreatePage()
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s PoolSource) FetchPage(id disk.PageID) (Page, error) {
	b, err := s.Pool.FetchPage(id)
	if err != nil {
		return nil, err
	}
	return b, nil
}
