package indexer

import (
	"runtime"
	"sync"
)

// Pool allocates item Blocks (heap or off-heap) and owns them until Close.
type Pool struct {
	mu              sync.Mutex
	blocks          []Block
	vectorsPerBlock int
	dim             int
	UseOffheap      bool // when true and CGO available, use C.calloc
}

// NewPool creates a memory pool for blocks of vectorsPerBlock vectors of dim components.
func NewPool(vectorsPerBlock, dim int) *Pool {
	if vectorsPerBlock <= 0 {
		vectorsPerBlock = defaultVectorsPerBlock
	}
	p := &Pool{
		blocks:          make([]Block, 0),
		vectorsPerBlock: vectorsPerBlock,
		dim:             dim,
	}
	runtime.SetFinalizer(p, (*Pool).Close)
	return p
}

// AllocBlock allocates a new zeroed Block. Uses off-heap when UseOffheap is true (requires CGO).
func (p *Pool) AllocBlock() Block {
	p.mu.Lock()
	defer p.mu.Unlock()
	var b Block
	if p.UseOffheap {
		b = allocBlockOffheap(p.vectorsPerBlock, p.dim)
	}
	if b == nil {
		b = NewDataBlock(p.vectorsPerBlock, p.dim)
	}
	p.blocks = append(p.blocks, b)
	return b
}

// BlockCount returns the number of allocated blocks.
func (p *Pool) BlockCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.blocks)
}

// Close releases all off-heap blocks. Call when the pool is no longer needed.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, b := range p.blocks {
		b.Close()
	}
	p.blocks = nil
	runtime.SetFinalizer(p, nil)
}
