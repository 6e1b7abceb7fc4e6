package diskmanager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen_CreateThenReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rel.0")

	_, err := Open(path, 4096, false)
	require.ErrorIs(t, err, ErrFileNotFound)

	dm, err := Open(path, 4096, true)
	require.NoError(t, err)
	require.Equal(t, PageId(0), dm.FirstPageNo())

	_, err = Open(path, 4096, true)
	require.NoError(t, dm.Close())
	require.ErrorIs(t, err, ErrFileExists)

	reopened, err := Open(path, 4096, false)
	require.NoError(t, err)
	require.NoError(t, reopened.Close())
}

func TestAllocateReadWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rel.4")
	dm, err := Open(path, 4096, true)
	require.NoError(t, err)
	defer dm.Close()

	id, err := dm.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, PageId(0), id)

	buf := make([]byte, 4096)
	for i := range buf {
		buf[i] = byte(i % 251)
	}
	require.NoError(t, dm.WritePage(id, buf))

	out := make([]byte, 4096)
	require.NoError(t, dm.ReadPage(id, out))
	require.Equal(t, buf, out)
}

func TestReopenPreservesPageCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rel.0")
	dm, err := Open(path, 4096, true)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := dm.AllocatePage()
		require.NoError(t, err)
	}
	require.NoError(t, dm.Sync())
	require.NoError(t, dm.Close())

	dm2, err := Open(path, 4096, false)
	require.NoError(t, err)
	defer dm2.Close()
	id, err := dm2.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, PageId(5), id)
}
