package indexer

// Block is a fixed-size run of item vectors, supporting heap, off-heap and
// mmap-backed implementations. Slot s of block b holds item b*VectorsPerBlock+s.
type Block interface {
	VectorsPerBlock() int
	Dim() int
	Data() []float32
	SetVector(slot int, vec []float32)
	// Vector returns a view of the vector at slot, or nil if slot is not backed.
	Vector(slot int) []float32
	Close() // releases resources; no-op for heap blocks, C.free for off-heap
}

// DataBlock stores vectors in heap memory. Layout: [v0_0..v0_dim-1, v1_0..v1_dim-1, ...]
type DataBlock struct {
	data            []float32
	vectorsPerBlock int
	dim             int
}

// NewDataBlock creates a new block of vectorsPerBlock vectors of dim components.
func NewDataBlock(vectorsPerBlock, dim int) *DataBlock {
	if vectorsPerBlock <= 0 {
		vectorsPerBlock = defaultVectorsPerBlock
	}
	return &DataBlock{
		data:            make([]float32, vectorsPerBlock*dim),
		vectorsPerBlock: vectorsPerBlock,
		dim:             dim,
	}
}

// VectorsPerBlock returns the number of vectors in the block.
func (b *DataBlock) VectorsPerBlock() int {
	return b.vectorsPerBlock
}

// Dim returns the vector dimension.
func (b *DataBlock) Dim() int {
	return b.dim
}

// Data returns the underlying slice.
func (b *DataBlock) Data() []float32 {
	return b.data
}

// SetVector writes the vector at slot (0-based).
func (b *DataBlock) SetVector(slot int, vec []float32) {
	setVector(b.data, b.dim, slot, vec)
}

// Vector returns a view of the vector at slot.
func (b *DataBlock) Vector(slot int) []float32 {
	return vectorView(b.data, b.dim, slot)
}

// Close is a no-op for heap blocks.
func (b *DataBlock) Close() {}

func setVector(data []float32, dim, slot int, vec []float32) {
	if slot < 0 || len(vec) != dim || (slot+1)*dim > len(data) {
		return
	}
	copy(data[slot*dim:(slot+1)*dim], vec)
}

func vectorView(data []float32, dim, slot int) []float32 {
	if slot < 0 || dim <= 0 || (slot+1)*dim > len(data) {
		return nil
	}
	return data[slot*dim : (slot+1)*dim : (slot+1)*dim]
}
