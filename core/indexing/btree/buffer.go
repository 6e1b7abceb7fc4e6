package btree

import "github.com/relindex/bptree/core/storage_engine/bufferpool"

// bufferFacade is the thin adapter between the tree's algorithms and
// the external buffer manager, named after the vocabulary the core is
// specified against: alloc/read/unpin/flush. Every method here except
// flush pins or releases exactly one page reference; callers are responsible for
// matching every alloc/read with exactly one unpin before a public
// operation returns.
type bufferFacade struct {
	pool *bufferpool.Manager
}

func newBufferFacade(pool *bufferpool.Manager) *bufferFacade {
	return &bufferFacade{pool: pool}
}

func (b *bufferFacade) alloc() (PageId, *bufferpool.Frame, error) {
	return b.pool.Alloc()
}

func (b *bufferFacade) read(id PageId) (*bufferpool.Frame, error) {
	return b.pool.Read(id)
}

func (b *bufferFacade) unpin(id PageId, dirty bool) error {
	return b.pool.Unpin(id, dirty)
}

func (b *bufferFacade) flush() error {
	return b.pool.FlushAll()
}

// readLeaf pins page id and returns a leaf view over its bytes together
// with the frame, so the caller can unpin once done.
func (b *bufferFacade) readLeaf(id PageId) (leafNodeView, *bufferpool.Frame, error) {
	fr, err := b.read(id)
	if err != nil {
		return leafNodeView{}, nil, err
	}
	return newLeafView(fr.Data), fr, nil
}

func (b *bufferFacade) readNonLeaf(id PageId) (nonLeafNodeView, *bufferpool.Frame, error) {
	fr, err := b.read(id)
	if err != nil {
		return nonLeafNodeView{}, nil, err
	}
	return newNonLeafView(fr.Data), fr, nil
}

// allocLeaf allocates a page, initializes it as an empty leaf, and
// returns it pinned.
func (b *bufferFacade) allocLeaf() (PageId, leafNodeView, error) {
	id, fr, err := b.alloc()
	if err != nil {
		return NullPage, leafNodeView{}, err
	}
	initLeaf(fr.Data)
	return id, newLeafView(fr.Data), nil
}

func (b *bufferFacade) allocNonLeaf(level int) (PageId, nonLeafNodeView, error) {
	id, fr, err := b.alloc()
	if err != nil {
		return NullPage, nonLeafNodeView{}, err
	}
	initNonLeaf(fr.Data, level)
	return id, newNonLeafView(fr.Data), nil
}
