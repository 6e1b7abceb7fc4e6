package btree

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relindex/bptree/core/relation"
)

// newTestIndex opens a fresh, empty index in a temporary directory,
// with no bulk-load source. The caller's rid(k) helper (see below)
// should be used to build record ids for direct InsertEntry calls.
func newTestIndex(t *testing.T) *Index {
	t.Helper()
	dir := t.TempDir()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Dir = dir
	cfg.PoolCapacity = 64

	idx, _, err := Open(cfg, "student", 0, Integer, nil, logger, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

// rid builds a RecordId carrying k in a way that survives round-trip:
// pageNumber is offset by one so k=0 never collides with the
// "pageNumber == 0 means empty slot" sentinel.
func rid(k int32) relation.RecordId {
	return relation.RecordId{PageNumber: PageId(k + 1), SlotNumber: uint16(k)}
}

func ridKey(r relation.RecordId) int32 {
	return int32(r.PageNumber) - 1
}

// leftmostLeaf walks from the root down the leftmost path to the
// leftmost leaf, for invariant-checking tests that want to walk the
// whole leaf chain from the start.
func leftmostLeaf(t *testing.T, idx *Index) PageId {
	t.Helper()
	meta, err := idx.readMeta()
	require.NoError(t, err)
	if meta.RootIsLeaf {
		return meta.RootPageNo
	}
	cur := meta.RootPageNo
	for {
		v, _, err := idx.buf.readNonLeaf(cur)
		require.NoError(t, err)
		child := v.child(0)
		level := v.level()
		require.NoError(t, idx.buf.unpin(cur, false))
		if level == 1 {
			return child
		}
		cur = child
	}
}

// walkAllLeaves collects the rid of every entry reachable via the leaf
// chain starting at first, in left-to-right order.
func walkAllLeaves(t *testing.T, idx *Index, first PageId) []relation.RecordId {
	t.Helper()
	var out []relation.RecordId
	cur := first
	for cur != NullPage {
		v, _, err := idx.buf.readLeaf(cur)
		require.NoError(t, err)
		size := v.size()
		for i := 0; i < size; i++ {
			out = append(out, v.rid(i))
		}
		next := v.rightSibPageNo()
		require.NoError(t, idx.buf.unpin(cur, false))
		cur = next
	}
	return out
}

func walkAllKeys(t *testing.T, idx *Index, first PageId) []int32 {
	t.Helper()
	var out []int32
	cur := first
	for cur != NullPage {
		v, _, err := idx.buf.readLeaf(cur)
		require.NoError(t, err)
		size := v.size()
		for i := 0; i < size; i++ {
			out = append(out, v.key(i))
		}
		next := v.rightSibPageNo()
		require.NoError(t, idx.buf.unpin(cur, false))
		cur = next
	}
	return out
}
