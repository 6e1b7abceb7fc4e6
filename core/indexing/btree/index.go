package btree

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"

	"go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/relindex/bptree/core/relation"
	"github.com/relindex/bptree/core/storage_engine/bufferpool"
	"github.com/relindex/bptree/core/storage_engine/diskmanager"
	"github.com/relindex/bptree/pkg/telemetry"
)

// Index is the top-level handle for one B+ tree index file: a
// (relationName, attrByteOffset) pair's mapping from integer keys to
// record identifiers, backed by one blob file through a buffer pool.
type Index struct {
	buf  *bufferFacade
	pool *bufferpool.Manager
	disk *diskmanager.DiskManager

	relationName   string
	attrByteOffset int32
	attrType       Datatype

	scan *scanState

	logger  *zap.Logger
	metrics *metrics
}

func indexFileName(relationName string, attrByteOffset int32) string {
	return fmt.Sprintf("%s.%d", relationName, attrByteOffset)
}

// Open creates or opens the index file for (relationName,
// attrByteOffset). If the file does not already exist it is created --
// a header page and an initial empty leaf root are allocated, and, if
// src is non-nil, the index is bulk-loaded by scanning src and
// inserting every tuple's key at attrByteOffset. If it already exists,
// it is used as is and src is ignored; its page 0 metadata is not
// checked at open time and is re-read by every later public call.
func Open(cfg Config, relationName string, attrByteOffset int32, attrType Datatype, src *relation.Relation, logger *zap.Logger, tel *telemetry.Telemetry) (idx *Index, outIndexName string, err error) {
	if attrType != Integer {
		return nil, "", ErrUnsupportedDatatype
	}
	if cfg.PageSize != DefaultPageSize {
		return nil, "", ErrUnsupportedPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	outIndexName = indexFileName(relationName, attrByteOffset)
	path := filepath.Join(cfg.Dir, outIndexName)

	disk, err := diskmanager.Open(path, cfg.PageSize, false)
	created := false
	if err != nil {
		if !errors.Is(err, diskmanager.ErrFileNotFound) {
			return nil, "", err
		}
		disk, err = diskmanager.Open(path, cfg.PageSize, true)
		if err != nil {
			return nil, "", err
		}
		created = true
	}

	pool := bufferpool.New(disk, cfg.PoolCapacity)
	var tracer = nooptrace.NewTracerProvider().Tracer("")
	var meter = noop.NewMeterProvider().Meter("")
	if tel != nil {
		tracer = tel.Tracer
		meter = tel.Meter
	}
	m, err := newMetrics(meter, tracer)
	if err != nil {
		return nil, "", err
	}

	idx = &Index{
		buf:            newBufferFacade(pool),
		pool:           pool,
		disk:           disk,
		relationName:   relationName,
		attrByteOffset: attrByteOffset,
		attrType:       attrType,
		logger:         logger,
		metrics:        m,
	}

	if created {
		logger.Info("creating new index file", zap.String("path", path), zap.String("relation", relationName), zap.Int32("attrByteOffset", attrByteOffset))
		if err := idx.createEmpty(relationName, attrByteOffset, attrType); err != nil {
			return nil, "", err
		}
		if src != nil {
			if err := idx.bulkLoad(src); err != nil {
				return nil, "", err
			}
		}
	} else {
		logger.Info("opened existing index file", zap.String("path", path))
	}

	return idx, outIndexName, nil
}

// createEmpty allocates page 0 (IndexMetaInfo) and page 1 (the initial
// empty leaf root) of a freshly created blob file.
func (idx *Index) createEmpty(relationName string, attrByteOffset int32, attrType Datatype) error {
	metaID, metaFr, err := idx.buf.alloc()
	if err != nil {
		return err
	}
	leafID, _, err := idx.buf.allocLeaf()
	if err != nil {
		return err
	}
	encodeMeta(metaFr.Data, IndexMetaInfo{
		RelationName:   relationName,
		AttrByteOffset: attrByteOffset,
		AttrType:       attrType,
		RootPageNo:     leafID,
		RootIsLeaf:     true,
	})
	if err := idx.buf.unpin(metaID, true); err != nil {
		return err
	}
	return idx.buf.unpin(leafID, true)
}

// bulkLoad drives InsertEntry from every record in src, mirroring the
// original reference constructor's per-tuple FileScan/insertEntry loop
// over EndOfFileException.
func (idx *Index) bulkLoad(src *relation.Relation) error {
	scanner := relation.OpenScan(src)
	for {
		rid, err := scanner.ScanNext()
		if err != nil {
			if errors.Is(err, relation.ErrEndOfFile) {
				break
			}
			return err
		}
		rec, err := scanner.GetRecord(rid)
		if err != nil {
			return err
		}
		key := int32(binary.LittleEndian.Uint32(rec[idx.attrByteOffset : idx.attrByteOffset+4]))
		if err := idx.InsertEntry(key, rid); err != nil {
			return err
		}
	}
	scanner.EndScan()
	idx.logger.Info("bulk load complete", zap.String("relation", idx.relationName))
	return nil
}

func (idx *Index) readMeta() (IndexMetaInfo, error) {
	fr, err := idx.buf.read(0)
	if err != nil {
		return IndexMetaInfo{}, err
	}
	m := decodeMeta(fr.Data)
	if err := idx.buf.unpin(0, false); err != nil {
		return IndexMetaInfo{}, err
	}
	return m, nil
}

func (idx *Index) writeMeta(m IndexMetaInfo) error {
	fr, err := idx.buf.read(0)
	if err != nil {
		return err
	}
	encodeMeta(fr.Data, m)
	return idx.buf.unpin(0, true)
}

// Stats reports the buffer pool's cumulative hit/miss/eviction counts.
func (idx *Index) Stats() bufferpool.Stats {
	return idx.pool.Stats()
}

// Close ends any open scan silently, flushes all dirty pages, and
// closes the underlying blob file.
func (idx *Index) Close() error {
	if idx.scan != nil {
		_ = idx.EndScan()
	}
	idx.logger.Info("closing index", zap.String("relation", idx.relationName))
	return idx.pool.Close()
}
