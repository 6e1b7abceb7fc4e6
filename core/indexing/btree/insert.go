package btree

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/relindex/bptree/core/relation"
)

// pushUp is the (separatorKey, newPageId) pair a split promotes to the
// level above. A nil *pushUp from any of the functions in this file
// means the insert was absorbed without a split.
type pushUp struct {
	key    int32
	pageNo PageId
}

// insertToLeaf performs an ordered insertion of (key, rid) into the
// leaf at leafID, splitting it first if it is full. A non-nil return
// carries the separator key and new right-sibling page id that the
// caller must propagate one level up.
func insertToLeaf(b *bufferFacade, leafID PageId, key int32, rid relation.RecordId) (*pushUp, error) {
	v, _, err := b.readLeaf(leafID)
	if err != nil {
		return nil, err
	}
	size := v.size()
	full := size >= LeafCapacity || v.full()

	if !full {
		pos := size
		for i := 0; i < size; i++ {
			if v.key(i) > key {
				pos = i
				break
			}
		}
		for i := size; i > pos; i-- {
			v.setKey(i, v.key(i-1))
			v.setRid(i, v.rid(i-1))
		}
		v.setKey(pos, key)
		v.setRid(pos, rid)
		if err := b.unpin(leafID, true); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := b.unpin(leafID, false); err != nil {
		return nil, err
	}
	sepKey, newLeafID, err := splitLeaf(b, leafID)
	if err != nil {
		return nil, err
	}

	target := leafID
	if key >= sepKey {
		target = newLeafID
	}
	if _, err := insertToLeaf(b, target, key, rid); err != nil {
		return nil, err
	}
	return &pushUp{key: sepKey, pageNo: newLeafID}, nil
}

// splitLeaf moves the right half of a full leaf O into a freshly
// allocated leaf R, chains R into the leaf list in O's former
// position, and returns R's first key as the promoted separator.
func splitLeaf(b *bufferFacade, oldLeafID PageId) (int32, PageId, error) {
	o, _, err := b.readLeaf(oldLeafID)
	if err != nil {
		return 0, NullPage, err
	}
	newID, r, err := b.allocLeaf()
	if err != nil {
		return 0, NullPage, err
	}

	half := LeafCapacity / 2
	for i := half; i < LeafCapacity; i++ {
		r.setKey(i-half, o.key(i))
		r.setRid(i-half, o.rid(i))
		o.clearEntry(i)
	}
	r.setRightSibPageNo(o.rightSibPageNo())
	o.setRightSibPageNo(newID)
	sepKey := r.key(0)

	if err := b.unpin(newID, true); err != nil {
		return 0, NullPage, err
	}
	if err := b.unpin(oldLeafID, true); err != nil {
		return 0, NullPage, err
	}
	return sepKey, newID, nil
}

// insertToNonLeaf inserts the separator sep into the interior node at
// interiorID, splitting it first if it is full. A non-nil return
// carries the promoted median and new right interior sibling that the
// caller must propagate one level up (or, if interiorID is the root,
// fold into a new root via updateRoot).
func insertToNonLeaf(b *bufferFacade, interiorID PageId, sep pushUp) (*pushUp, error) {
	v, _, err := b.readNonLeaf(interiorID)
	if err != nil {
		return nil, err
	}
	size := v.size()
	full := size >= InteriorCapacity || v.full()

	if !full {
		pos := size
		for i := 0; i < size; i++ {
			if v.key(i) > sep.key {
				pos = i
				break
			}
		}
		for i := size; i > pos; i-- {
			v.setKey(i, v.key(i-1))
		}
		for i := size + 1; i > pos+1; i-- {
			v.setChild(i, v.child(i-1))
		}
		v.setKey(pos, sep.key)
		v.setChild(pos+1, sep.pageNo)
		if err := b.unpin(interiorID, true); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if err := b.unpin(interiorID, false); err != nil {
		return nil, err
	}
	medianKey, newInteriorID, err := splitNonLeaf(b, interiorID, sep)
	if err != nil {
		return nil, err
	}
	return &pushUp{key: medianKey, pageNo: newInteriorID}, nil
}

// splitNonLeaf splits a full interior node O while inserting sep,
// correcting the reference implementation's bug of always splicing the
// new separator at the right end of the new node regardless of sort
// order (see the design note on the interior split in the original
// reference): it materializes all N+1 keys and N+2 children in sorted
// order, picks the true median, and deals the halves from that order.
func splitNonLeaf(b *bufferFacade, oldID PageId, sep pushUp) (int32, PageId, error) {
	o, _, err := b.readNonLeaf(oldID)
	if err != nil {
		return 0, NullPage, err
	}
	level := o.level()

	const N = InteriorCapacity
	var allKeys [N + 1]int32
	var allChildren [N + 2]PageId

	pos := N
	for i := 0; i < N; i++ {
		if o.key(i) > sep.key {
			pos = i
			break
		}
	}
	for i := 0; i < pos; i++ {
		allKeys[i] = o.key(i)
	}
	allKeys[pos] = sep.key
	for i := pos; i < N; i++ {
		allKeys[i+1] = o.key(i)
	}

	for i := 0; i <= pos; i++ {
		allChildren[i] = o.child(i)
	}
	allChildren[pos+1] = sep.pageNo
	for i := pos + 1; i <= N; i++ {
		allChildren[i+1] = o.child(i)
	}

	mid := (N + 1) / 2
	medianKey := allKeys[mid]

	for i := 0; i < N; i++ {
		if i < mid {
			o.setKey(i, allKeys[i])
		} else {
			o.clearKey(i)
		}
	}
	for i := 0; i <= N; i++ {
		if i <= mid {
			o.setChild(i, allChildren[i])
		} else {
			o.clearChild(i)
		}
	}

	newID, r, err := b.allocNonLeaf(level)
	if err != nil {
		return 0, NullPage, err
	}
	rightKeyCount := N - mid
	for i := 0; i < rightKeyCount; i++ {
		r.setKey(i, allKeys[mid+1+i])
	}
	for i := 0; i <= rightKeyCount; i++ {
		r.setChild(i, allChildren[mid+1+i])
	}

	if err := b.unpin(newID, true); err != nil {
		return 0, NullPage, err
	}
	if err := b.unpin(oldID, true); err != nil {
		return 0, NullPage, err
	}
	return medianKey, newID, nil
}

// InsertEntry is the top-level insert operation: descend to the target
// leaf, insert, and propagate any promotion upward along the descent
// path the tree was actually walked through, rather than re-descending
// from the root per split as the reference design does.
func (idx *Index) InsertEntry(key int32, rid relation.RecordId) error {
	ctx, span := idx.metrics.tracer.Start(context.Background(), "btree.InsertEntry")
	defer span.End()
	start := time.Now()
	split := false
	defer func() { idx.metrics.recordInsert(ctx, start, split) }()

	meta, err := idx.readMeta()
	if err != nil {
		return err
	}

	if meta.RootIsLeaf {
		up, err := insertToLeaf(idx.buf, meta.RootPageNo, key, rid)
		if err != nil {
			return err
		}
		if up == nil {
			return nil
		}
		split = true
		idx.logger.Debug("leaf root split, growing tree height", zap.Int32("separatorKey", up.key))
		return idx.updateRoot(meta, *up, 0)
	}

	rootLevel, err := idx.readLevel(meta.RootPageNo)
	if err != nil {
		return err
	}
	stack, leafID, err := descendToLeaf(idx.buf, meta.RootPageNo, rootLevel, key)
	if err != nil {
		return err
	}
	up, err := insertToLeaf(idx.buf, leafID, key, rid)
	if err != nil {
		return err
	}
	if up == nil {
		return nil
	}
	split = true

	cur := *up
	for i := len(stack) - 1; i >= 0; i-- {
		next, err := insertToNonLeaf(idx.buf, stack[i].pageID, cur)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		cur = *next
	}
	return idx.updateRoot(meta, cur, rootLevel)
}

// updateRoot allocates a new interior root above the current one,
// promoting up and growing the tree's height by one.
func (idx *Index) updateRoot(meta IndexMetaInfo, up pushUp, oldRootLevel int) error {
	newRootID, v, err := idx.buf.allocNonLeaf(oldRootLevel + 1)
	if err != nil {
		return err
	}
	v.setKey(0, up.key)
	v.setChild(0, meta.RootPageNo)
	v.setChild(1, up.pageNo)
	if err := idx.buf.unpin(newRootID, true); err != nil {
		return err
	}
	meta.RootPageNo = newRootID
	meta.RootIsLeaf = false
	return idx.writeMeta(meta)
}
