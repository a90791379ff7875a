// Package buffer implements a fixed size buffer pool over the disk
// manager. Pages are handed out as pinned buffers; a pinned buffer is
// never evicted. Victim selection uses the clock sweep algorithm.
package buffer

import (
	"go-btree/pkg/customerrors"
	"go-btree/pkg/disk"
	"go-btree/util/logger"

	"github.com/pkg/errors"
)

var log = logger.WithComponent("buffer")

// Buffer is a pinned page held in a pool frame. The holder may mutate the
// page bytes and must call MarkDirty afterwards, and Release when done.
type Buffer struct {
	frame *frame
}

// ID returns the page id held by the buffer.
func (b *Buffer) ID() disk.PageID { return b.frame.pageID }

// Bytes returns the mutable page contents.
func (b *Buffer) Bytes() []byte { return b.frame.data }

// MarkDirty records that the page bytes were mutated, so the pool writes
// them back before the frame is reused.
func (b *Buffer) MarkDirty() { b.frame.dirty = true }

// Release unpins the buffer. It must not be used afterwards.
func (b *Buffer) Release() {
	if b.frame.pinCount == 0 {
		panic(errors.Errorf("release of unpinned page %d", b.frame.pageID))
	}
	b.frame.pinCount--
}

type frame struct {
	pageID     disk.PageID
	data       []byte
	dirty      bool
	pinCount   uint
	usageCount uint
}

// Manager is the buffer pool manager. It owns a fixed set of frames and
// serves pinned page buffers, going to the disk manager on a miss.
type Manager struct {
	disk      *disk.Manager
	frames    []frame
	clockHand int
	pageTable map[disk.PageID]int
}

// NewManager creates a pool with the given number of frames.
func NewManager(dm *disk.Manager, size int) *Manager {
	m := &Manager{
		disk:      dm,
		frames:    make([]frame, size),
		pageTable: make(map[disk.PageID]int, size),
	}
	for i := range m.frames {
		m.frames[i].pageID = disk.InvalidPageID
		m.frames[i].data = make([]byte, disk.PageSize)
	}
	return m
}

// CreatePage allocates a fresh zero filled page and returns it pinned.
func (m *Manager) CreatePage() (*Buffer, error) {
	idx, err := m.victim()
	if err != nil {
		return nil, err
	}

	id, err := m.disk.AllocatePage()
	if err != nil {
		return nil, errors.Wrap(err, "failed to allocate page")
	}

	f := &m.frames[idx]
	f.pageID = id
	for i := range f.data {
		f.data[i] = 0
	}
	f.dirty = true
	f.pinCount = 1
	f.usageCount = 1
	m.pageTable[id] = idx

	return &Buffer{frame: f}, nil
}

// FetchPage returns the page with the given id, pinned. The page is read
// from disk if it is not resident in the pool.
func (m *Manager) FetchPage(id disk.PageID) (*Buffer, error) {
	if idx, ok := m.pageTable[id]; ok {
		f := &m.frames[idx]
		f.pinCount++
		f.usageCount++
		return &Buffer{frame: f}, nil
	}

	idx, err := m.victim()
	if err != nil {
		return nil, err
	}

	f := &m.frames[idx]
	if err := m.disk.ReadPage(id, f.data); err != nil {
		return nil, errors.Wrapf(err, "failed to read page %d", id)
	}

	f.pageID = id
	f.dirty = false
	f.pinCount = 1
	f.usageCount = 1
	m.pageTable[id] = idx

	return &Buffer{frame: f}, nil
}

// FlushAll writes every dirty resident page back to disk and syncs.
func (m *Manager) FlushAll() error {
	for i := range m.frames {
		if err := m.writeBack(&m.frames[i]); err != nil {
			return err
		}
	}
	return m.disk.Sync()
}

// Close flushes the pool and closes the disk manager.
func (m *Manager) Close() error {
	if err := m.FlushAll(); err != nil {
		_ = m.disk.Close()
		return err
	}
	return m.disk.Close()
}

// victim frees up a frame using clock sweep: pinned frames are skipped,
// frames with positive usage get their count decremented, the first
// unpinned frame with zero usage is evicted.
func (m *Manager) victim() (int, error) {
	pinned := 0
	for pinned < len(m.frames) {
		f := &m.frames[m.clockHand]
		idx := m.clockHand
		m.clockHand = (m.clockHand + 1) % len(m.frames)

		if f.pinCount > 0 {
			pinned++
			continue
		}
		pinned = 0

		if f.usageCount > 0 {
			f.usageCount--
			continue
		}

		if err := m.writeBack(f); err != nil {
			return 0, err
		}
		if f.pageID != disk.InvalidPageID {
			log.Debugf("evicting page %d from frame %d", f.pageID, idx)
			delete(m.pageTable, f.pageID)
			f.pageID = disk.InvalidPageID
		}
		return idx, nil
	}

	return 0, errors.Wrapf(customerrors.ErrNoFreeFrame, "pool size %d", len(m.frames))
}

func (m *Manager) writeBack(f *frame) error {
	if !f.dirty || f.pageID == disk.InvalidPageID {
		return nil
	}

	if err := m.disk.WritePage(f.pageID, f.data); err != nil {
		return errors.Wrapf(err, "failed to write back page %d", f.pageID)
	}
	f.dirty = false
	return nil
}
