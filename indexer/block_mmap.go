package indexer

import (
	"github.com/ic-timon/annbench/indexer/store"
)

// DataBlockMmap is a Block backed by a mapped file region. Blocks of a loaded
// index are read-only; blocks of an on-disk build write through to the file.
type DataBlockMmap struct {
	store           store.BlockStore
	offset          int64
	vectorsPerBlock int
	dim             int
	slots           int // vectors backed by the file, <= vectorsPerBlock
	writable        bool
}

// NewDataBlockMmap creates a block view from the store at the given offset.
// slots is the number of vectors actually present in the file at that offset.
func NewDataBlockMmap(s store.BlockStore, offset int64, vectorsPerBlock, dim, slots int, writable bool) *DataBlockMmap {
	if vectorsPerBlock <= 0 {
		vectorsPerBlock = defaultVectorsPerBlock
	}
	if slots > vectorsPerBlock {
		slots = vectorsPerBlock
	}
	return &DataBlockMmap{
		store:           s,
		offset:          offset,
		vectorsPerBlock: vectorsPerBlock,
		dim:             dim,
		slots:           slots,
		writable:        writable,
	}
}

// VectorsPerBlock returns the number of vectors in the block.
func (b *DataBlockMmap) VectorsPerBlock() int {
	return b.vectorsPerBlock
}

// Dim returns the vector dimension.
func (b *DataBlockMmap) Dim() int {
	return b.dim
}

// Data returns a view of the backed vectors. The store may remap while an
// on-disk build grows, so the view is fetched on every call.
func (b *DataBlockMmap) Data() []float32 {
	return b.store.View(b.offset, b.slots*b.dim)
}

// SetVector writes the vector at slot; no-op for read-only blocks.
func (b *DataBlockMmap) SetVector(slot int, vec []float32) {
	if !b.writable {
		return
	}
	setVector(b.Data(), b.dim, slot, vec)
}

// Vector returns a view of the vector at slot.
func (b *DataBlockMmap) Vector(slot int) []float32 {
	return vectorView(b.Data(), b.dim, slot)
}

// Close is a no-op for mmap blocks (store owns the mapping).
func (b *DataBlockMmap) Close() {}

// mmapBlocks lays nItems contiguous vectors starting at store.DataOffset out as blocks.
func mmapBlocks(s store.BlockStore, nItems, vectorsPerBlock, dim int, writable bool) []Block {
	rowBytes := int64(dim) * 4
	nBlocks := (nItems + vectorsPerBlock - 1) / vectorsPerBlock
	blocks := make([]Block, 0, nBlocks)
	for b := 0; b < nBlocks; b++ {
		slots := nItems - b*vectorsPerBlock
		offset := store.DataOffset + int64(b*vectorsPerBlock)*rowBytes
		blocks = append(blocks, NewDataBlockMmap(s, offset, vectorsPerBlock, dim, slots, writable))
	}
	return blocks
}
