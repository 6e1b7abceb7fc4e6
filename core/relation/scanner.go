package relation

import (
	"encoding/binary"

	"github.com/relindex/bptree/core/storage_engine/diskmanager"
)

// Scanner performs a forward-only, single-pass walk over every record
// in a Relation, in page then slot order. It is the collaborator the
// index's bulk-load path drives: ScanNext/GetRecord/EndOfFile.
type Scanner struct {
	rel     *Relation
	curPage diskmanager.PageId
	curSlot uint16
	done    bool
}

// OpenScan begins a new scan at the relation's first page.
func OpenScan(rel *Relation) *Scanner {
	return &Scanner{rel: rel, curPage: rel.FirstPage()}
}

// ScanNext advances to the next record and returns its id, or
// ErrEndOfFile once the relation is exhausted. Subsequent calls after
// exhaustion continue to return ErrEndOfFile.
func (s *Scanner) ScanNext() (RecordId, error) {
	if s.done {
		return RecordId{}, ErrEndOfFile
	}
	fr, err := s.rel.pool.Read(s.curPage)
	if err != nil {
		return RecordId{}, err
	}
	count := binary.LittleEndian.Uint16(fr.Data[0:2])
	if err := s.rel.pool.Unpin(s.curPage, false); err != nil {
		return RecordId{}, err
	}

	for s.curSlot >= count {
		if s.curPage >= s.rel.LastPage() {
			s.done = true
			return RecordId{}, ErrEndOfFile
		}
		s.curPage++
		s.curSlot = 0
		fr, err = s.rel.pool.Read(s.curPage)
		if err != nil {
			return RecordId{}, err
		}
		count = binary.LittleEndian.Uint16(fr.Data[0:2])
		if err := s.rel.pool.Unpin(s.curPage, false); err != nil {
			return RecordId{}, err
		}
	}

	rid := RecordId{PageNumber: s.curPage, SlotNumber: s.curSlot}
	s.curSlot++
	return rid, nil
}

// GetRecord fetches the bytes for the id most recently returned by
// ScanNext.
func (s *Scanner) GetRecord(rid RecordId) ([]byte, error) {
	return s.rel.GetRecord(rid)
}

// EndScan releases the scanner. There is no pinned state to release
// since ScanNext unpins eagerly, but the method exists to mirror the
// open/scan/end lifecycle the index's bulk loader expects.
func (s *Scanner) EndScan() {
	s.done = true
}
