//go:build cgo

package indexer

/*
#include <stdlib.h>
*/
import "C"

import "unsafe"

// DataBlockOffheap is an off-heap block allocated with C.malloc, reducing GC pressure.
type DataBlockOffheap struct {
	ptr             unsafe.Pointer
	vectorsPerBlock int
	dim             int
}

// NewDataBlockOffheap creates a zeroed off-heap block.
func NewDataBlockOffheap(vectorsPerBlock, dim int) *DataBlockOffheap {
	if vectorsPerBlock <= 0 {
		vectorsPerBlock = defaultVectorsPerBlock
	}
	n := vectorsPerBlock * dim
	if n <= 0 {
		return nil
	}
	ptr := C.calloc(C.size_t(n), C.size_t(4)) // sizeof(float32)
	if ptr == nil {
		return nil
	}
	return &DataBlockOffheap{
		ptr:             unsafe.Pointer(ptr),
		vectorsPerBlock: vectorsPerBlock,
		dim:             dim,
	}
}

// VectorsPerBlock returns the number of vectors in the block.
func (b *DataBlockOffheap) VectorsPerBlock() int {
	return b.vectorsPerBlock
}

// Dim returns the vector dimension.
func (b *DataBlockOffheap) Dim() int {
	return b.dim
}

// Data returns a slice view of the off-heap memory.
func (b *DataBlockOffheap) Data() []float32 {
	if b.ptr == nil {
		return nil
	}
	return unsafe.Slice((*float32)(b.ptr), b.vectorsPerBlock*b.dim)
}

// SetVector writes the vector at slot (0-based).
func (b *DataBlockOffheap) SetVector(slot int, vec []float32) {
	setVector(b.Data(), b.dim, slot, vec)
}

// Vector returns a view of the vector at slot.
func (b *DataBlockOffheap) Vector(slot int) []float32 {
	return vectorView(b.Data(), b.dim, slot)
}

// Close frees the C-allocated memory.
func (b *DataBlockOffheap) Close() {
	if b.ptr != nil {
		C.free(b.ptr)
		b.ptr = nil
	}
}

// allocBlockOffheap 分配 Off-heap 块（仅 CGO 构建时存在）
func allocBlockOffheap(vectorsPerBlock, dim int) Block {
	if b := NewDataBlockOffheap(vectorsPerBlock, dim); b != nil {
		return b
	}
	return nil
}
