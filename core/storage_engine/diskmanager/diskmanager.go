// Package diskmanager implements the "blob file" collaborator of the
// B+Tree index: fixed-size page I/O over a single os.File, opened for
// either create or open-existing. It does not interpret page contents;
// page 0's bytes belong entirely to the caller (the index's own
// IndexMetaInfo layout), unlike a general-purpose database file which
// would reserve page 0 for its own header.
package diskmanager

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// PageId identifies a page within a blob file. PageId(0) doubles as the
// sentinel "null" marker in callers' layouts. Open allocates no pages;
// the first AllocatePage call on a fresh file returns page 0, which
// callers use as a header page rather than as a referenced data page.
type PageId uint32

// InvalidPageId is the sentinel "no page" marker shared by every layout
// in this codebase (index meta pointers, leaf rid slots, interior child
// slots).
const InvalidPageId PageId = 0

var (
	// ErrFileNotFound is returned by Open when forceCreate is false and
	// the target file does not exist. Callers use this to drive the
	// create-vs-open-existing branch of index construction.
	ErrFileNotFound = errors.New("diskmanager: file not found")
	// ErrFileExists is returned by Open when forceCreate is true and the
	// target file already exists, to avoid silently truncating it.
	ErrFileExists = errors.New("diskmanager: file already exists")
	ErrIO         = errors.New("diskmanager: i/o error")
	ErrClosed     = errors.New("diskmanager: file is closed")
)

// DiskManager owns one blob file's os.File handle and hands out fixed
// size pages by index. Page N lives at byte offset N*pageSize.
type DiskManager struct {
	mu       sync.Mutex
	file     *os.File
	path     string
	pageSize int
	numPages PageId
}

// Open opens an existing blob file, or creates a new one when
// forceCreate is true. A freshly created file has zero pages; the
// caller is responsible for allocating and initializing its header and
// root pages (see btree.Open).
func Open(path string, pageSize int, forceCreate bool) (*DiskManager, error) {
	if forceCreate {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrFileExists, path)
		}
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return nil, fmt.Errorf("%w: creating %s: %v", ErrIO, path, err)
		}
		return &DiskManager{file: f, path: path, pageSize: pageSize}, nil
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: opening %s: %v", ErrIO, path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: stat %s: %v", ErrIO, path, err)
	}
	numPages := PageId(fi.Size() / int64(pageSize))
	return &DiskManager{file: f, path: path, pageSize: pageSize, numPages: numPages}, nil
}

// FirstPageNo is the page number of the index's header page, which is
// always page 0 by convention (see spec §6).
func (dm *DiskManager) FirstPageNo() PageId { return 0 }

// PageSize returns the fixed page size this file was opened with.
func (dm *DiskManager) PageSize() int { return dm.pageSize }

// AllocatePage extends the file by one page and returns its id. The new
// page's bytes are zeroed.
func (dm *DiskManager) AllocatePage() (PageId, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.file == nil {
		return InvalidPageId, ErrClosed
	}
	id := dm.numPages
	buf := make([]byte, dm.pageSize)
	if _, err := dm.file.WriteAt(buf, int64(id)*int64(dm.pageSize)); err != nil {
		return InvalidPageId, fmt.Errorf("%w: extending file for page %d: %v", ErrIO, id, err)
	}
	dm.numPages++
	return id, nil
}

// ReadPage fills dst (len(dst) must equal PageSize()) with the on-disk
// contents of page id.
func (dm *DiskManager) ReadPage(id PageId, dst []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.file == nil {
		return ErrClosed
	}
	if len(dst) != dm.pageSize {
		return fmt.Errorf("%w: buffer size %d != page size %d", ErrIO, len(dst), dm.pageSize)
	}
	n, err := dm.file.ReadAt(dst, int64(id)*int64(dm.pageSize))
	if err != nil {
		return fmt.Errorf("%w: reading page %d: %v", ErrIO, id, err)
	}
	if n != dm.pageSize {
		return fmt.Errorf("%w: short read for page %d: got %d bytes", ErrIO, id, n)
	}
	return nil
}

// WritePage writes src (len(src) must equal PageSize()) to page id's
// location. Does not fsync; callers batch durability via Sync.
func (dm *DiskManager) WritePage(id PageId, src []byte) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.file == nil {
		return ErrClosed
	}
	if len(src) != dm.pageSize {
		return fmt.Errorf("%w: buffer size %d != page size %d", ErrIO, len(src), dm.pageSize)
	}
	if _, err := dm.file.WriteAt(src, int64(id)*int64(dm.pageSize)); err != nil {
		return fmt.Errorf("%w: writing page %d: %v", ErrIO, id, err)
	}
	return nil
}

// Sync flushes buffered writes to stable storage.
func (dm *DiskManager) Sync() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.file == nil {
		return ErrClosed
	}
	if err := dm.file.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", ErrIO, err)
	}
	return nil
}

// Close releases the underlying file handle. Idempotent.
func (dm *DiskManager) Close() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	if dm.file == nil {
		return nil
	}
	err := dm.file.Close()
	dm.file = nil
	if err != nil {
		return fmt.Errorf("%w: close: %v", ErrIO, err)
	}
	return nil
}
