package btree

import (
	"encoding/binary"

	"github.com/relindex/bptree/core/relation"
)

// This file holds the fixed-size page layout codecs: pure views over a
// page's raw bytes with no hidden allocation beyond the slices they
// return. Nothing here pins or unpins pages; that is buffer.go's job.

var byteOrder = binary.LittleEndian

// --- IndexMetaInfo, page 0 ---

// metaRelationNameOff etc. lay out IndexMetaInfo within page 0. The
// remainder of the page is unused padding.
const (
	metaRelationNameOff = 0
	metaAttrOffsetOff   = metaRelationNameOff + RelationNameSize
	metaAttrTypeOff     = metaAttrOffsetOff + 4
	metaRootPageNoOff   = metaAttrTypeOff + 1
	metaRootIsLeafOff   = metaRootPageNoOff + 4
	metaSize            = metaRootIsLeafOff + 1
)

// IndexMetaInfo is the decoded view of page 0.
type IndexMetaInfo struct {
	RelationName   string
	AttrByteOffset int32
	AttrType       Datatype
	RootPageNo     PageId
	RootIsLeaf     bool
}

func decodeMeta(page []byte) IndexMetaInfo {
	nameBytes := page[metaRelationNameOff : metaRelationNameOff+RelationNameSize]
	end := 0
	for end < len(nameBytes) && nameBytes[end] != 0 {
		end++
	}
	return IndexMetaInfo{
		RelationName:   string(nameBytes[:end]),
		AttrByteOffset: int32(byteOrder.Uint32(page[metaAttrOffsetOff:])),
		AttrType:       Datatype(page[metaAttrTypeOff]),
		RootPageNo:     PageId(byteOrder.Uint32(page[metaRootPageNoOff:])),
		RootIsLeaf:     page[metaRootIsLeafOff] != 0,
	}
}

func encodeMeta(page []byte, m IndexMetaInfo) {
	for i := range page[metaRelationNameOff : metaRelationNameOff+RelationNameSize] {
		page[metaRelationNameOff+i] = 0
	}
	copy(page[metaRelationNameOff:metaRelationNameOff+RelationNameSize], m.RelationName)
	byteOrder.PutUint32(page[metaAttrOffsetOff:], uint32(m.AttrByteOffset))
	page[metaAttrTypeOff] = byte(m.AttrType)
	byteOrder.PutUint32(page[metaRootPageNoOff:], uint32(m.RootPageNo))
	if m.RootIsLeaf {
		page[metaRootIsLeafOff] = 1
	} else {
		page[metaRootIsLeafOff] = 0
	}
}

// --- LeafNode ---

// leafEntrySize is one (key, rid) slot: a 4-byte int32 key, a 4-byte
// rid page number, and a 4-byte rid slot number (stored widened from
// relation.RecordId's uint16 field for alignment).
const leafEntrySize = 4 + 4 + 4

const (
	leafRightSibOff = 0
	leafEntriesOff  = leafRightSibOff + 4
)

// leafNodeView overlays a page's bytes with leaf-node accessors. It
// holds no copy of the data; every accessor reads/writes through to
// the underlying page slice, which the caller owns for the duration of
// its pin.
type leafNodeView struct {
	data []byte
}

func newLeafView(data []byte) leafNodeView { return leafNodeView{data: data} }

func (v leafNodeView) rightSibPageNo() PageId {
	return PageId(byteOrder.Uint32(v.data[leafRightSibOff:]))
}

func (v leafNodeView) setRightSibPageNo(p PageId) {
	byteOrder.PutUint32(v.data[leafRightSibOff:], uint32(p))
}

func (v leafNodeView) entryOffset(i int) int {
	return leafEntriesOff + i*leafEntrySize
}

func (v leafNodeView) key(i int) int32 {
	off := v.entryOffset(i)
	return int32(byteOrder.Uint32(v.data[off:]))
}

func (v leafNodeView) setKey(i int, k int32) {
	off := v.entryOffset(i)
	byteOrder.PutUint32(v.data[off:], uint32(k))
}

func (v leafNodeView) rid(i int) relation.RecordId {
	off := v.entryOffset(i) + 4
	return relation.RecordId{
		PageNumber: PageId(byteOrder.Uint32(v.data[off:])),
		SlotNumber: uint16(byteOrder.Uint32(v.data[off+4:])),
	}
}

func (v leafNodeView) setRid(i int, r relation.RecordId) {
	off := v.entryOffset(i) + 4
	byteOrder.PutUint32(v.data[off:], uint32(r.PageNumber))
	byteOrder.PutUint32(v.data[off+4:], uint32(r.SlotNumber))
}

func (v leafNodeView) clearEntry(i int) {
	off := v.entryOffset(i)
	for j := 0; j < leafEntrySize; j++ {
		v.data[off+j] = 0
	}
}

// size returns the smallest i with an empty rid slot, else LeafCapacity.
func (v leafNodeView) size() int {
	for i := 0; i < LeafCapacity; i++ {
		if v.rid(i).PageNumber == NullPage {
			return i
		}
	}
	return LeafCapacity
}

func (v leafNodeView) full() bool {
	return v.rid(LeafCapacity-1).PageNumber != NullPage
}

// initLeaf zeroes a fresh page into an empty leaf with no siblings.
func initLeaf(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

// --- NonLeafNode ---

const (
	nonLeafLevelOff  = 0
	nonLeafKeysOff   = nonLeafLevelOff + 4
	nonLeafChildsOff = nonLeafKeysOff + 4*InteriorCapacity
)

type nonLeafNodeView struct {
	data []byte
}

func newNonLeafView(data []byte) nonLeafNodeView { return nonLeafNodeView{data: data} }

func (v nonLeafNodeView) level() int {
	return int(byteOrder.Uint32(v.data[nonLeafLevelOff:]))
}

func (v nonLeafNodeView) setLevel(l int) {
	byteOrder.PutUint32(v.data[nonLeafLevelOff:], uint32(l))
}

func (v nonLeafNodeView) key(i int) int32 {
	off := nonLeafKeysOff + i*4
	return int32(byteOrder.Uint32(v.data[off:]))
}

func (v nonLeafNodeView) setKey(i int, k int32) {
	off := nonLeafKeysOff + i*4
	byteOrder.PutUint32(v.data[off:], uint32(k))
}

func (v nonLeafNodeView) child(i int) PageId {
	off := nonLeafChildsOff + i*4
	return PageId(byteOrder.Uint32(v.data[off:]))
}

func (v nonLeafNodeView) setChild(i int, p PageId) {
	off := nonLeafChildsOff + i*4
	byteOrder.PutUint32(v.data[off:], uint32(p))
}

func (v nonLeafNodeView) clearKey(i int) {
	off := nonLeafKeysOff + i*4
	byteOrder.PutUint32(v.data[off:], 0)
}

func (v nonLeafNodeView) clearChild(i int) {
	off := nonLeafChildsOff + i*4
	byteOrder.PutUint32(v.data[off:], 0)
}

// size returns the smallest i with pageNoArray[i+1] empty, else N.
func (v nonLeafNodeView) size() int {
	for i := 0; i < InteriorCapacity; i++ {
		if v.child(i+1) == NullPage {
			return i
		}
	}
	return InteriorCapacity
}

func (v nonLeafNodeView) full() bool {
	return v.child(InteriorCapacity) != NullPage
}

func initNonLeaf(data []byte, level int) {
	for i := range data {
		data[i] = 0
	}
	newNonLeafView(data).setLevel(level)
}
