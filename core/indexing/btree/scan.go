package btree

import (
	"context"
	"time"

	"github.com/relindex/bptree/core/relation"
	"github.com/relindex/bptree/core/storage_engine/bufferpool"
)

// scanState holds the parameters and cursor of an in-progress range
// scan. Unlike every other operation in this package, a scan's current
// leaf stays pinned across the startScan/scanNext/endScan sequence
// rather than being released when the public call returns -- this is
// the one place pins intentionally outlive a single call, and it is
// why endScan and the implicit end inside startScan both exist.
type scanState struct {
	lowVal  int32
	lowOp   Operator
	highVal int32
	highOp  Operator

	curPage   PageId
	curFrame  *bufferpool.Frame
	nextSlot  int
	exhausted bool // true once the current leaf's pin has already been released
}

func isLowOp(op Operator) bool  { return op == GT || op == GTE }
func isHighOp(op Operator) bool { return op == LT || op == LTE }

func satisfiesLow(op Operator, lowVal, key int32) bool {
	if op == GT {
		return key > lowVal
	}
	return key >= lowVal // GTE
}

func satisfiesHigh(op Operator, highVal, key int32) bool {
	if op == LT {
		return key < highVal
	}
	return key <= highVal // LTE
}

// StartScan begins a new range scan over [lowVal <lowOp> key <highOp>
// highVal]. Any scan already in progress is ended implicitly first.
func (idx *Index) StartScan(lowVal int32, lowOp Operator, highVal int32, highOp Operator) error {
	ctx, span := idx.metrics.tracer.Start(context.Background(), "btree.StartScan")
	defer span.End()
	start := time.Now()
	defer func() { idx.metrics.recordScanStart(ctx, start) }()

	if !isLowOp(lowOp) || !isHighOp(highOp) {
		return ErrBadOpcodes
	}
	if lowVal > highVal {
		return ErrBadScanrange
	}
	if idx.scan != nil {
		_ = idx.EndScan()
	}

	meta, err := idx.readMeta()
	if err != nil {
		return err
	}

	var leafID PageId
	if meta.RootIsLeaf {
		leafID = meta.RootPageNo
	} else {
		rootLevel, err := idx.readLevel(meta.RootPageNo)
		if err != nil {
			return err
		}
		_, leaf, err := descendToLeaf(idx.buf, meta.RootPageNo, rootLevel, lowVal)
		if err != nil {
			return err
		}
		leafID = leaf
	}

	v, fr, err := idx.buf.readLeaf(leafID)
	if err != nil {
		return err
	}
	size := v.size()
	nextEntry := size
	for i := 0; i < size; i++ {
		if satisfiesLow(lowOp, lowVal, v.key(i)) {
			nextEntry = i
			break
		}
	}

	if size > 0 && nextEntry >= size && v.rightSibPageNo() == NullPage {
		// Descent landed on the last leaf in the chain and no slot in
		// it satisfies the low bound: the range is provably empty. An
		// empty leaf (size == 0, e.g. a brand-new index) is not this
		// case -- ScanNext on it is a legitimate zero-result scan, not
		// a no-such-key error.
		if err := idx.buf.unpin(leafID, false); err != nil {
			return err
		}
		return ErrNoSuchKeyFound
	}

	idx.scan = &scanState{
		lowVal: lowVal, lowOp: lowOp, highVal: highVal, highOp: highOp,
		curPage: leafID, curFrame: fr, nextSlot: nextEntry,
	}
	return nil
}

// ScanNext returns the next record id in the active scan's range, or
// ErrIndexScanCompleted once the high bound is exceeded or the leaf
// chain is exhausted. Further calls after exhaustion keep returning
// ErrIndexScanCompleted.
func (idx *Index) ScanNext() (relation.RecordId, error) {
	if idx.scan == nil {
		return relation.RecordId{}, ErrScanNotInitialized
	}
	s := idx.scan
	if s.exhausted {
		return relation.RecordId{}, ErrIndexScanCompleted
	}

	for {
		v := newLeafView(s.curFrame.Data)
		size := v.size()
		if s.nextSlot >= size {
			sib := v.rightSibPageNo()
			if sib == NullPage {
				if err := idx.buf.unpin(s.curPage, false); err != nil {
					return relation.RecordId{}, err
				}
				s.exhausted = true
				return relation.RecordId{}, ErrIndexScanCompleted
			}
			if err := idx.buf.unpin(s.curPage, false); err != nil {
				return relation.RecordId{}, err
			}
			_, fr, err := idx.buf.readLeaf(sib)
			if err != nil {
				return relation.RecordId{}, err
			}
			s.curPage = sib
			s.curFrame = fr
			s.nextSlot = 0
			continue
		}

		key := v.key(s.nextSlot)
		if !satisfiesHigh(s.highOp, s.highVal, key) {
			if err := idx.buf.unpin(s.curPage, false); err != nil {
				return relation.RecordId{}, err
			}
			s.exhausted = true
			return relation.RecordId{}, ErrIndexScanCompleted
		}
		rid := v.rid(s.nextSlot)
		s.nextSlot++
		return rid, nil
	}
}

// EndScan releases the scan's pinned leaf, if it is still held, and
// clears scan state.
func (idx *Index) EndScan() error {
	if idx.scan == nil {
		return ErrScanNotInitialized
	}
	s := idx.scan
	idx.scan = nil
	if s.exhausted {
		return nil
	}
	return idx.buf.unpin(s.curPage, false)
}
