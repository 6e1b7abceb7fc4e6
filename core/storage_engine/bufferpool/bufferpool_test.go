package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relindex/bptree/core/storage_engine/diskmanager"
)

func newTestPool(t *testing.T, capacity int) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rel.0")
	dm, err := diskmanager.Open(path, 4096, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	return New(dm, capacity)
}

func TestAllocAndReadRoundTrip(t *testing.T) {
	pool := newTestPool(t, 4)
	id, fr, err := pool.Alloc()
	require.NoError(t, err)
	fr.Data[0] = 0xAB
	require.NoError(t, pool.Unpin(id, true))

	fr2, err := pool.Read(id)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), fr2.Data[0])
	require.NoError(t, pool.Unpin(id, false))
}

func TestEvictionRespectsPinnedPages(t *testing.T) {
	pool := newTestPool(t, 2)
	id1, _, err := pool.Alloc()
	require.NoError(t, err)
	id2, _, err := pool.Alloc()
	require.NoError(t, err)

	// Both pages are still pinned; a third alloc must fail.
	_, _, err = pool.Alloc()
	require.ErrorIs(t, err, ErrNoFreeFrame)

	require.NoError(t, pool.Unpin(id1, false))
	require.NoError(t, pool.Unpin(id2, false))

	id3, _, err := pool.Alloc()
	require.NoError(t, err)
	require.NoError(t, pool.Unpin(id3, true))

	stats := pool.Stats()
	require.GreaterOrEqual(t, stats.Evictions, int64(1))
}

func TestFlushWritesDirtyPagesBack(t *testing.T) {
	pool := newTestPool(t, 4)
	id, fr, err := pool.Alloc()
	require.NoError(t, err)
	fr.Data[10] = 42
	require.NoError(t, pool.Unpin(id, true))
	require.NoError(t, pool.Flush(id))

	onDisk := make([]byte, 4096)
	require.NoError(t, pool.disk.ReadPage(id, onDisk))
	require.Equal(t, byte(42), onDisk[10])

	fr2, err := pool.Read(id)
	require.NoError(t, err)
	require.Equal(t, byte(42), fr2.Data[10])
	require.NoError(t, pool.Unpin(id, false))
}
