// Package disk provides durable page allocation and byte-exact page I/O
// over a single heap file. Page ids are densely allocated: a page id is
// the page's offset in the file divided by the page size.
package disk

import (
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// PageSize is the fixed size of every on-disk page.
const PageSize = 4096

// PageID identifies a page in the heap file.
type PageID uint64

// InvalidPageID is a sentinel for "no page".
const InvalidPageID = PageID(math.MaxUint64)

// Manager performs page granular I/O on a single memory mapped file.
type Manager struct {
	file      *os.File
	mmap      mmap.MMap
	pageCount uint64
}

// Open opens (or creates) the named heap file.
func Open(fileName string) (*Manager, error) {
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open heap file")
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "failed to stat heap file")
	}

	size := info.Size()
	if size%PageSize != 0 {
		_ = f.Close()
		return nil, errors.Errorf("heap file size %d is not a multiple of page size", size)
	}

	m := &Manager{
		file:      f,
		pageCount: uint64(size) / PageSize,
	}

	if err := m.remap(); err != nil {
		_ = f.Close()
		return nil, err
	}

	return m, nil
}

// AllocatePage extends the file by one page and returns the new page id.
func (m *Manager) AllocatePage() (PageID, error) {
	id := PageID(m.pageCount)

	if err := m.unmap(); err != nil {
		return InvalidPageID, err
	}
	if err := m.file.Truncate(int64(m.pageCount+1) * PageSize); err != nil {
		return InvalidPageID, errors.Wrap(err, "failed to extend heap file")
	}

	m.pageCount++
	if err := m.remap(); err != nil {
		return InvalidPageID, err
	}

	return id, nil
}

// ReadPage copies the page contents into buf. buf must be PageSize long.
func (m *Manager) ReadPage(id PageID, buf []byte) error {
	if err := m.check(id, buf); err != nil {
		return err
	}

	offset := uint64(id) * PageSize
	copy(buf, m.mmap[offset:offset+PageSize])
	return nil
}

// WritePage copies data into the page. data must be PageSize long.
func (m *Manager) WritePage(id PageID, data []byte) error {
	if err := m.check(id, data); err != nil {
		return err
	}

	offset := uint64(id) * PageSize
	copy(m.mmap[offset:offset+PageSize], data)
	return nil
}

// PageCount returns the number of allocated pages.
func (m *Manager) PageCount() uint64 { return m.pageCount }

// Sync flushes mapped pages to disk.
func (m *Manager) Sync() error {
	if m.mmap != nil {
		if err := m.mmap.Flush(); err != nil {
			return errors.Wrap(err, "failed to flush mmap")
		}
	}
	return errors.Wrap(m.file.Sync(), "failed to sync heap file")
}

// Close flushes and closes the underlying file.
func (m *Manager) Close() error {
	if m.file == nil {
		return nil
	}

	err := m.Sync()
	if uErr := m.unmap(); err == nil {
		err = uErr
	}
	if cErr := m.file.Close(); err == nil {
		err = cErr
	}

	m.file = nil
	return err
}

func (m *Manager) check(id PageID, buf []byte) error {
	if uint64(id) >= m.pageCount {
		return errors.Errorf("page id %d out of range (page count %d)", id, m.pageCount)
	}
	if len(buf) != PageSize {
		return errors.Errorf("buffer length %d, expected page size %d", len(buf), PageSize)
	}
	return nil
}

func (m *Manager) remap() error {
	if m.pageCount == 0 {
		// zero length files cannot be mapped
		return nil
	}

	mm, err := mmap.Map(m.file, mmap.RDWR, 0)
	if err != nil {
		return errors.Wrap(err, "failed to mmap heap file")
	}

	m.mmap = mm
	return nil
}

func (m *Manager) unmap() error {
	if m.mmap == nil {
		return nil
	}

	if err := m.mmap.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush mmap before unmap")
	}
	if err := m.mmap.Unmap(); err != nil {
		return errors.Wrap(err, "failed to unmap heap file")
	}

	m.mmap = nil
	return nil
}
