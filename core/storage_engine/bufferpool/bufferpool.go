// Package bufferpool implements an LRU-evicted page cache in front of a
// diskmanager.DiskManager, giving the index engine the classic
// pin/unpin/flush facade instead of raw file offsets.
package bufferpool

import (
	"container/list"
	"errors"
	"fmt"
	"sync"

	"github.com/relindex/bptree/core/storage_engine/diskmanager"
)

var (
	// ErrNoFreeFrame is returned when every frame in the pool is pinned
	// and none can be evicted to satisfy an Alloc or Read.
	ErrNoFreeFrame   = errors.New("bufferpool: no free frame available, all pages pinned")
	ErrPageNotInPool = errors.New("bufferpool: page not resident")
)

// Frame is one resident page: its raw bytes plus the bookkeeping the
// pool needs to decide when it is safe to evict. Unlike the disk
// manager's on-disk layout, a Frame carries no serialization concerns
// of its own -- callers own interpretation of Data.
type Frame struct {
	PageID   diskmanager.PageId
	Data     []byte
	pinCount int
	dirty    bool
}

// Manager is a fixed-capacity LRU page cache over one DiskManager. Its
// methods serialize on one pool-wide mutex, but the Frame data it hands
// out carries no latch of its own; the index engine built on top of it
// is single threaded by design.
type Manager struct {
	mu       sync.Mutex
	disk     *diskmanager.DiskManager
	capacity int
	pageSize int

	frames    map[diskmanager.PageId]*list.Element // resident pages, keyed by id
	lru       *list.List                           // front = most recently used
	hits      int64
	misses    int64
	evictions int64
}

// New creates a buffer pool of the given frame capacity over disk.
func New(disk *diskmanager.DiskManager, capacity int) *Manager {
	return &Manager{
		disk:     disk,
		capacity: capacity,
		pageSize: disk.PageSize(),
		frames:   make(map[diskmanager.PageId]*list.Element, capacity),
		lru:      list.New(),
	}
}

// Stats reports cumulative cache hit/miss/eviction counters, as
// returned by Index.Stats and printed by the shell's stats command.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Hits: m.hits, Misses: m.misses, Evictions: m.evictions}
}

// Alloc allocates a brand new page on disk and pins its frame in the
// pool with a pin count of one, returning the page id and a handle to
// its (zeroed) bytes for the caller to initialize.
func (m *Manager) Alloc() (diskmanager.PageId, *Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.disk.AllocatePage()
	if err != nil {
		return diskmanager.InvalidPageId, nil, err
	}
	if err := m.evictIfNeededLocked(); err != nil {
		return diskmanager.InvalidPageId, nil, err
	}
	fr := &Frame{PageID: id, Data: make([]byte, m.pageSize), pinCount: 1, dirty: true}
	elem := m.lru.PushFront(fr)
	m.frames[id] = elem
	return id, fr, nil
}

// Read pins id's frame, fetching it from disk into the pool if it is
// not already resident, and returns a handle to its bytes. Callers must
// call Unpin exactly once per successful Read/Alloc.
func (m *Manager) Read(id diskmanager.PageId) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if elem, ok := m.frames[id]; ok {
		m.lru.MoveToFront(elem)
		fr := elem.Value.(*Frame)
		fr.pinCount++
		m.hits++
		return fr, nil
	}

	m.misses++
	if err := m.evictIfNeededLocked(); err != nil {
		return nil, err
	}
	buf := make([]byte, m.pageSize)
	if err := m.disk.ReadPage(id, buf); err != nil {
		return nil, err
	}
	fr := &Frame{PageID: id, Data: buf, pinCount: 1}
	elem := m.lru.PushFront(fr)
	m.frames[id] = elem
	return fr, nil
}

// Unpin decrements a frame's pin count, marking it dirty if the caller
// modified its contents since acquiring it. A frame becomes eligible
// for eviction once its pin count reaches zero.
func (m *Manager) Unpin(id diskmanager.PageId, dirty bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.frames[id]
	if !ok {
		return fmt.Errorf("%w: page %d", ErrPageNotInPool, id)
	}
	fr := elem.Value.(*Frame)
	if dirty {
		fr.dirty = true
	}
	if fr.pinCount > 0 {
		fr.pinCount--
	}
	return nil
}

// Flush writes a single resident page's bytes back to disk, clearing
// its dirty bit. It does not evict the page.
func (m *Manager) Flush(id diskmanager.PageId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	elem, ok := m.frames[id]
	if !ok {
		return fmt.Errorf("%w: page %d", ErrPageNotInPool, id)
	}
	return m.flushFrameLocked(elem.Value.(*Frame))
}

// FlushAll writes back every dirty resident page, pinned or not, and
// syncs the file without dropping the cache. Close calls it before
// closing the disk manager.
func (m *Manager) FlushAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for e := m.lru.Front(); e != nil; e = e.Next() {
		if err := m.flushFrameLocked(e.Value.(*Frame)); err != nil {
			return err
		}
	}
	return m.disk.Sync()
}

func (m *Manager) flushFrameLocked(fr *Frame) error {
	if !fr.dirty {
		return nil
	}
	if err := m.disk.WritePage(fr.PageID, fr.Data); err != nil {
		return err
	}
	fr.dirty = false
	return nil
}

// evictIfNeededLocked evicts the least-recently-used unpinned frame
// when the pool is at capacity. Callers must hold m.mu.
func (m *Manager) evictIfNeededLocked() error {
	if len(m.frames) < m.capacity {
		return nil
	}
	for e := m.lru.Back(); e != nil; e = e.Prev() {
		fr := e.Value.(*Frame)
		if fr.pinCount > 0 {
			continue
		}
		if err := m.flushFrameLocked(fr); err != nil {
			return err
		}
		m.lru.Remove(e)
		delete(m.frames, fr.PageID)
		m.evictions++
		return nil
	}
	return ErrNoFreeFrame
}

// Close flushes all dirty pages and closes the underlying disk manager.
func (m *Manager) Close() error {
	if err := m.FlushAll(); err != nil {
		return err
	}
	return m.disk.Close()
}
