package btree

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relindex/bptree/core/relation"
	"github.com/relindex/bptree/core/storage_engine/bufferpool"
	"github.com/relindex/bptree/core/storage_engine/diskmanager"
)

const studentRecordSize = 16

func makeStudentRecord(id int32) []byte {
	buf := make([]byte, studentRecordSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(id))
	return buf
}

func TestOpen_BulkLoadsFromRelationScanner(t *testing.T) {
	dir := t.TempDir()

	relPath := filepath.Join(dir, "students.tbl")
	dm, err := diskmanager.Open(relPath, DefaultPageSize, true)
	require.NoError(t, err)
	pool := bufferpool.New(dm, 64)
	rel, err := relation.Create(pool, DefaultPageSize, studentRecordSize)
	require.NoError(t, err)

	const n = 3000
	for id := int32(0); id < n; id++ {
		_, err := rel.InsertRecord(makeStudentRecord(id))
		require.NoError(t, err)
	}

	logger, err := zap.NewDevelopment()
	require.NoError(t, err)
	cfg := DefaultConfig()
	cfg.Dir = dir
	cfg.PoolCapacity = 128

	idx, _, err := Open(cfg, "students", 0, Integer, rel, logger, nil)
	require.NoError(t, err)
	defer idx.Close()

	keys := walkAllKeys(t, idx, leftmostLeaf(t, idx))
	require.Len(t, keys, n)
	for id := int32(0); id < n; id++ {
		require.Equal(t, id, keys[id])
	}
}
