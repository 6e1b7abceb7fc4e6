package btree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relindex/bptree/core/relation"
)

func TestUniversalInvariants_AscendingInsert(t *testing.T) {
	idx := newTestIndex(t)
	const n = 5000
	for k := int32(0); k < n; k++ {
		require.NoError(t, idx.InsertEntry(k, rid(k)))
	}

	keys := walkAllKeys(t, idx, leftmostLeaf(t, idx))
	require.Len(t, keys, n)
	for i := 1; i < len(keys); i++ {
		require.LessOrEqual(t, keys[i-1], keys[i], "keys must be non-decreasing across the leaf chain")
	}

	rids := walkAllLeaves(t, idx, leftmostLeaf(t, idx))
	seen := make(map[int32]bool, n)
	for _, r := range rids {
		seen[ridKey(r)] = true
	}
	require.Len(t, seen, n, "every inserted rid must appear exactly once")
}

func TestUniversalInvariants_DescendingInsert(t *testing.T) {
	idx := newTestIndex(t)
	const n = 5000
	for k := int32(n - 1); k >= 0; k-- {
		require.NoError(t, idx.InsertEntry(k, rid(k)))
	}

	keys := walkAllKeys(t, idx, leftmostLeaf(t, idx))
	require.Len(t, keys, n)
	for i := int32(0); i < n; i++ {
		require.Equal(t, i, keys[i], "leaf chain must read back in ascending order regardless of insert order")
	}
}

func TestUniversalInvariants_InteriorSeparatorOrdering(t *testing.T) {
	idx := newTestIndex(t)
	const n = 50000
	for k := int32(0); k < n; k++ {
		require.NoError(t, idx.InsertEntry(k, rid(k)))
	}

	meta, err := idx.readMeta()
	require.NoError(t, err)
	require.False(t, meta.RootIsLeaf, "50000 keys must have grown an interior root")

	var walk func(pageID PageId, level int)
	walk = func(pageID PageId, level int) {
		v, _, err := idx.buf.readNonLeaf(pageID)
		require.NoError(t, err)
		size := v.size()
		keys := make([]int32, size)
		children := make([]PageId, size+1)
		for i := 0; i < size; i++ {
			keys[i] = v.key(i)
		}
		for i := 0; i <= size; i++ {
			children[i] = v.child(i)
		}
		require.NoError(t, idx.buf.unpin(pageID, false))

		for i := 1; i < size; i++ {
			require.Less(t, keys[i-1], keys[i], "separator keys must be strictly increasing within a node")
		}
		if level > 1 {
			for _, c := range children {
				walk(c, level-1)
			}
		}
	}
	rootLevel, err := idx.readLevel(meta.RootPageNo)
	require.NoError(t, err)
	walk(meta.RootPageNo, rootLevel)
}

func TestRoundTrip_EveryInsertedKeyScansBack(t *testing.T) {
	idx := newTestIndex(t)
	const n = 2000
	for k := int32(0); k < n; k++ {
		require.NoError(t, idx.InsertEntry(k, rid(k)))
	}

	for k := int32(0); k < n; k++ {
		require.NoError(t, idx.StartScan(k, GTE, k, LTE))
		got, err := idx.ScanNext()
		require.NoError(t, err)
		require.Equal(t, k, ridKey(got))

		_, err = idx.ScanNext()
		require.ErrorIs(t, err, ErrIndexScanCompleted)
		require.NoError(t, idx.EndScan())
	}
}

func TestRoundTrip_DuplicateKeysAllSurviveScan(t *testing.T) {
	idx := newTestIndex(t)
	const copies = 100
	for i := int32(0); i < copies; i++ {
		require.NoError(t, idx.InsertEntry(7, relation.RecordId{PageNumber: PageId(i + 1), SlotNumber: uint16(i)}))
	}

	require.NoError(t, idx.StartScan(7, GTE, 7, LTE))
	seen := map[uint16]bool{}
	for i := 0; i < copies; i++ {
		got, err := idx.ScanNext()
		require.NoError(t, err)
		seen[got.SlotNumber] = true
	}
	require.Len(t, seen, copies)
	_, err := idx.ScanNext()
	require.ErrorIs(t, err, ErrIndexScanCompleted)
}
