package btree

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Scenario 1: empty index, full-range scan yields nothing.
func TestScenario_EmptyIndex(t *testing.T) {
	idx := newTestIndex(t)
	require.NoError(t, idx.StartScan(0, GTE, 100, LTE))
	_, err := idx.ScanNext()
	require.ErrorIs(t, err, ErrIndexScanCompleted)
}

// Scenario 2: ascending insert of 0..4999, scan (25, GT, 40, LT) yields
// 26..39 in order then completes.
func TestScenario_AscendingInsertRangeScan(t *testing.T) {
	idx := newTestIndex(t)
	for k := int32(0); k < 5000; k++ {
		require.NoError(t, idx.InsertEntry(k, rid(k)))
	}

	require.NoError(t, idx.StartScan(25, GT, 40, LT))
	var got []int32
	for {
		r, err := idx.ScanNext()
		if err != nil {
			require.ErrorIs(t, err, ErrIndexScanCompleted)
			break
		}
		got = append(got, ridKey(r))
	}
	expected := make([]int32, 0, 14)
	for k := int32(26); k < 40; k++ {
		expected = append(expected, k)
	}
	require.Equal(t, expected, got)
}

// Scenario 3: descending insert of 0..4999, leaf chain still reads back
// ascending.
func TestScenario_DescendingInsertLeafChainOrder(t *testing.T) {
	idx := newTestIndex(t)
	for k := int32(4999); k >= 0; k-- {
		require.NoError(t, idx.InsertEntry(k, rid(k)))
	}
	keys := walkAllKeys(t, idx, leftmostLeaf(t, idx))
	require.Len(t, keys, 5000)
	for k := int32(0); k < 5000; k++ {
		require.Equal(t, k, keys[k])
	}
}

// Scenario 4: 100 duplicate keys, all scanned back.
func TestScenario_DuplicateKeys(t *testing.T) {
	idx := newTestIndex(t)
	for i := int32(0); i < 100; i++ {
		require.NoError(t, idx.InsertEntry(7, rid(i)))
	}
	require.NoError(t, idx.StartScan(7, GTE, 7, LTE))
	count := 0
	for {
		_, err := idx.ScanNext()
		if err != nil {
			require.ErrorIs(t, err, ErrIndexScanCompleted)
			break
		}
		count++
	}
	require.Equal(t, 100, count)
}

// Scenario 6: reopening an index after close preserves its contents.
func TestScenario_ReopenAfterClose(t *testing.T) {
	dir := t.TempDir()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Dir = dir
	cfg.PoolCapacity = 64

	idx, name, err := Open(cfg, "student", 4, Integer, nil, logger, nil)
	require.NoError(t, err)
	for k := int32(0); k < 5000; k++ {
		require.NoError(t, idx.InsertEntry(k, rid(k)))
	}
	require.NoError(t, idx.Close())

	reopened, name2, err := Open(cfg, "student", 4, Integer, nil, logger, nil)
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, name, name2)

	require.NoError(t, reopened.StartScan(25, GT, 40, LT))
	var got []int32
	for {
		r, err := reopened.ScanNext()
		if err != nil {
			require.ErrorIs(t, err, ErrIndexScanCompleted)
			break
		}
		got = append(got, ridKey(r))
	}
	expected := make([]int32, 0, 14)
	for k := int32(26); k < 40; k++ {
		expected = append(expected, k)
	}
	require.Equal(t, expected, got)
}
