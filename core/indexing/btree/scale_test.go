package btree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario 5: one million ascending keys grows the tree to height 3
// (per the spec's L=682/N=1023 fanout), the meta page reports an
// interior root, and a full forward scan equals the input. This is the
// slowest of the end-to-end scenarios, so it is skipped under -short;
// a plain `go test` still runs it.
func TestScenario_OneMillionKeysHeightThree(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large-scale scenario under -short")
	}

	idx := newTestIndex(t)
	const n = 1_000_000
	for k := int32(0); k < n; k++ {
		require.NoError(t, idx.InsertEntry(k, rid(k)))
	}

	meta, err := idx.readMeta()
	require.NoError(t, err)
	require.False(t, meta.RootIsLeaf)

	// A tree of height 3 (root / interior / leaf) has its root at
	// level 2: level 1 means a node's children are leaves, so a root
	// one tier above that is level 2.
	level, err := idx.readLevel(meta.RootPageNo)
	require.NoError(t, err)
	require.Equal(t, 2, level, "1,000,000 keys at L=682/N=1023 must grow the tree to height 3 (root at level 2)")

	keys := walkAllKeys(t, idx, leftmostLeaf(t, idx))
	require.Len(t, keys, n)
	for k := int32(0); k < n; k++ {
		require.Equal(t, k, keys[k])
	}
}
