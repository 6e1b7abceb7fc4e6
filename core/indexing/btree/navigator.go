package btree

// This file holds the routines that descend from the root to the
// target leaf for a given key, tracking level as they go. Descent for
// insert additionally records a stack of (pageId, childIndex) frames so
// that a split's promotion can propagate upward without re-descending
// from the root -- the corrected alternative to rediscovering the
// parent by searching from the root by level.

// descentFrame is one level of the path taken to reach a leaf: the
// interior page visited and the child index chosen from it.
type descentFrame struct {
	pageID     PageId
	childIndex int
}

// chooseChildIndex picks the child index to follow for key, per the
// descent rule: the smallest i such that keyArray[i] > key, or the
// slot where pageNoArray[i+1] is empty (an under-full rightmost run),
// clipped to InteriorCapacity.
func chooseChildIndex(v nonLeafNodeView, key int32) int {
	for i := 0; i < InteriorCapacity; i++ {
		if v.key(i) > key || v.child(i+1) == NullPage {
			return i
		}
	}
	return InteriorCapacity
}

// readLevel pins id just long enough to read its level field, for the
// common case of learning the root's level before a full descent.
func (idx *Index) readLevel(id PageId) (int, error) {
	v, _, err := idx.buf.readNonLeaf(id)
	if err != nil {
		return 0, err
	}
	level := v.level()
	if err := idx.buf.unpin(id, false); err != nil {
		return 0, err
	}
	return level, nil
}

// descendToLeaf walks from an interior root (rootLevel >= 1) down to
// the leaf that may contain key, unpinning every interior page it
// visits (none are modified) and returning the complete path as a
// stack of descentFrame plus the target leaf's id. The stack's last
// element is the immediate parent of the leaf.
func descendToLeaf(b *bufferFacade, rootPageNo PageId, rootLevel int, key int32) ([]descentFrame, PageId, error) {
	stack := make([]descentFrame, 0, rootLevel)
	curID := rootPageNo
	for level := rootLevel; level >= 1; level-- {
		v, _, err := b.readNonLeaf(curID)
		if err != nil {
			return nil, NullPage, err
		}
		idx := chooseChildIndex(v, key)
		child := v.child(idx)
		if err := b.unpin(curID, false); err != nil {
			return nil, NullPage, err
		}
		stack = append(stack, descentFrame{pageID: curID, childIndex: idx})
		curID = child
	}
	return stack, curID, nil
}
