package indexer

import "sync"

const (
	queueBufCap      = 64
	candidatesBufCap = 4096
)

// pqEntry is a node waiting in the search queue with its priority (the
// smallest margin seen on the path to it; larger is more promising).
type pqEntry struct {
	priority float32
	node     Node
}

// nodeQueue is a max-heap of pqEntry ordered by priority.
type nodeQueue []pqEntry

func (q nodeQueue) Len() int            { return len(q) }
func (q nodeQueue) Less(i, j int) bool  { return q[i].priority > q[j].priority }
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(pqEntry)) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	old[n-1] = pqEntry{}
	*q = old[:n-1]
	return x
}

// searchBufs holds reusable per-query buffers.
type searchBufs struct {
	queue      nodeQueue
	candidates []uint32
	results    []SearchResult
}

func newSearchBufs() *searchBufs {
	return &searchBufs{
		queue:      make(nodeQueue, 0, queueBufCap),
		candidates: make([]uint32, 0, candidatesBufCap),
		results:    make([]SearchResult, 0, candidatesBufCap),
	}
}

func (b *searchBufs) reset() {
	for i := range b.queue {
		b.queue[i] = pqEntry{}
	}
	b.queue = b.queue[:0]
	b.candidates = b.candidates[:0]
	b.results = b.results[:0]
}

var searchBufsPool = sync.Pool{
	New: func() interface{} { return newSearchBufs() },
}
