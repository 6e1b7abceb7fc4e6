// Package relation implements the fixed-width record heap file that
// stands in for the external relation manager the index is built
// against: a flat sequence of fixed-length records over pages managed
// by a bufferpool.Manager, plus a forward-only scanner used to drive
// bulk index construction.
package relation

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/relindex/bptree/core/storage_engine/bufferpool"
	"github.com/relindex/bptree/core/storage_engine/diskmanager"
)

// ErrEndOfFile is returned by Scanner.ScanNext once every record on
// every page has been visited.
var ErrEndOfFile = errors.New("relation: end of file")

// RecordId locates a single record: its page and its slot index within
// that page's slot array. A zero PageNumber is never valid, mirroring
// the sentinel used throughout the index's own on-disk layout.
type RecordId struct {
	PageNumber diskmanager.PageId
	SlotNumber uint16
}

const slotHeaderSize = 2 // uint16 occupied-count prefix per page

// Relation is an append-only heap file of fixed-length records, one
// page at a time: each page holds as many whole records as fit after a
// 2-byte occupied-count header, and records are appended to the last
// page until it is full, at which point a new page is allocated.
type Relation struct {
	pool       *bufferpool.Manager
	recordSize int
	pageSize   int
	perPage    int
	firstPage  diskmanager.PageId
	lastPage   diskmanager.PageId
}

// Create initializes a new, empty relation over pool with the given
// fixed record size, allocating its first (empty) page. Page 0 of the
// file never holds records, since a zero PageNumber is the "no record"
// sentinel; when the pool hands out page 0 it is left empty and the
// relation starts on the next page.
func Create(pool *bufferpool.Manager, pageSize, recordSize int) (*Relation, error) {
	perPage := (pageSize - slotHeaderSize) / recordSize
	if perPage <= 0 {
		return nil, fmt.Errorf("relation: record size %d too large for page size %d", recordSize, pageSize)
	}
	r := &Relation{pool: pool, recordSize: recordSize, pageSize: pageSize, perPage: perPage}
	id, fr, err := pool.Alloc()
	if err != nil {
		return nil, err
	}
	if id == diskmanager.InvalidPageId {
		if err := pool.Unpin(id, true); err != nil {
			return nil, err
		}
		if id, fr, err = pool.Alloc(); err != nil {
			return nil, err
		}
	}
	binary.LittleEndian.PutUint16(fr.Data[0:2], 0)
	if err := pool.Unpin(id, true); err != nil {
		return nil, err
	}
	r.firstPage = id
	r.lastPage = id
	return r, nil
}

// Open reattaches to a relation whose first page is at firstPage. A
// firstPage of 0 is read as page 1, since Create never stores records
// on page 0.
func Open(pool *bufferpool.Manager, pageSize, recordSize int, firstPage diskmanager.PageId) (*Relation, error) {
	perPage := (pageSize - slotHeaderSize) / recordSize
	if perPage <= 0 {
		return nil, fmt.Errorf("relation: record size %d too large for page size %d", recordSize, pageSize)
	}
	if firstPage == diskmanager.InvalidPageId {
		firstPage++
	}
	r := &Relation{pool: pool, recordSize: recordSize, pageSize: pageSize, perPage: perPage, firstPage: firstPage, lastPage: firstPage}
	// Pages are allocated sequentially by InsertRecord, so the last page
	// is found by walking forward from firstPage until a page comes up
	// short of a full slot array.
	for {
		fr, err := pool.Read(r.lastPage)
		if err != nil {
			return nil, err
		}
		count := binary.LittleEndian.Uint16(fr.Data[0:2])
		full := int(count) >= r.perPage
		if err := pool.Unpin(r.lastPage, false); err != nil {
			return nil, err
		}
		if !full {
			break
		}
		r.lastPage++
	}
	return r, nil
}

func (r *Relation) slotOffset(slot uint16) int {
	return slotHeaderSize + int(slot)*r.recordSize
}

// InsertRecord appends data (len(data) must equal the relation's record
// size) to the last page, allocating a new page first if the current
// last page is full, and returns the new record's id.
func (r *Relation) InsertRecord(data []byte) (RecordId, error) {
	if len(data) != r.recordSize {
		return RecordId{}, fmt.Errorf("relation: record size %d != %d", len(data), r.recordSize)
	}
	fr, err := r.pool.Read(r.lastPage)
	if err != nil {
		return RecordId{}, err
	}
	count := binary.LittleEndian.Uint16(fr.Data[0:2])
	if int(count) >= r.perPage {
		if err := r.pool.Unpin(r.lastPage, false); err != nil {
			return RecordId{}, err
		}
		newID, newFr, err := r.pool.Alloc()
		if err != nil {
			return RecordId{}, err
		}
		binary.LittleEndian.PutUint16(newFr.Data[0:2], 0)
		if err := r.pool.Unpin(newID, true); err != nil {
			return RecordId{}, err
		}
		r.lastPage = newID
		fr, err = r.pool.Read(r.lastPage)
		if err != nil {
			return RecordId{}, err
		}
		count = 0
	}

	off := r.slotOffset(uint16(count))
	copy(fr.Data[off:off+r.recordSize], data)
	binary.LittleEndian.PutUint16(fr.Data[0:2], count+1)
	if err := r.pool.Unpin(r.lastPage, true); err != nil {
		return RecordId{}, err
	}
	return RecordId{PageNumber: r.lastPage, SlotNumber: count}, nil
}

// GetRecord returns a copy of the record identified by rid.
func (r *Relation) GetRecord(rid RecordId) ([]byte, error) {
	fr, err := r.pool.Read(rid.PageNumber)
	if err != nil {
		return nil, err
	}
	defer r.pool.Unpin(rid.PageNumber, false)
	count := binary.LittleEndian.Uint16(fr.Data[0:2])
	if rid.SlotNumber >= count {
		return nil, fmt.Errorf("relation: slot %d out of range (page has %d records)", rid.SlotNumber, count)
	}
	off := r.slotOffset(rid.SlotNumber)
	out := make([]byte, r.recordSize)
	copy(out, fr.Data[off:off+r.recordSize])
	return out, nil
}

// FirstPage is the page id a Scanner should begin from.
func (r *Relation) FirstPage() diskmanager.PageId { return r.firstPage }

// LastPage is the page id a Scanner should stop at, inclusive. Pages
// are allocated sequentially by InsertRecord, so the relation's pages
// are exactly [firstPage, lastPage].
func (r *Relation) LastPage() diskmanager.PageId { return r.lastPage }

// RecordSize reports the relation's fixed record width.
func (r *Relation) RecordSize() int { return r.recordSize }
