package indexer

import (
	"cmp"
	"container/heap"
	"math"
	"slices"

	"github.com/pkg/errors"
)

// SearchResult holds a single neighbour returned by GetNNsByItem or GetNNsByVector.
type SearchResult struct {
	Item     uint32  // item id passed to AddItem
	Distance float32 // normalized distance to the query (a·b for Dot)
}

// GetNNsByItem returns up to n nearest neighbours of item, the item itself
// included. searchK bounds the candidates inspected; searchK <= 0 uses n*GetNTrees().
func (t *Index) GetNNsByItem(item, n, searchK int) ([]SearchResult, error) {
	query, err := t.itemQuery(item)
	if err != nil {
		return nil, err
	}
	return t.search(query, n, searchK)
}

// GetNNsByVector returns up to n nearest neighbours of vec.
func (t *Index) GetNNsByVector(vec []float32, n, searchK int) ([]SearchResult, error) {
	if len(vec) != t.cfg.Dim {
		return nil, &ErrDimensionMismatch{Expected: t.cfg.Dim, Actual: len(vec)}
	}
	return t.search(vec, n, searchK)
}

func (t *Index) search(query []float32, n, searchK int) ([]SearchResult, error) {
	if !t.built {
		return nil, ErrNotBuilt
	}
	if n <= 0 {
		return nil, errors.Wrapf(ErrInvalidN, "n=%d", n)
	}
	if t.searchPool != nil {
		return t.searchPool.Search(query, n, searchK), nil
	}
	bufs := searchBufsPool.Get().(*searchBufs)
	defer searchBufsPool.Put(bufs)
	return t.searchImpl(query, n, searchK, bufs), nil
}

// searchImpl descends all trees best-first until searchK candidates are
// gathered, then ranks the distinct candidates by exact distance.
func (t *Index) searchImpl(query []float32, n, searchK int, bufs *searchBufs) []SearchResult {
	bufs.reset()
	if searchK <= 0 {
		searchK = n * len(t.roots)
	}
	inf := float32(math.Inf(1))
	for _, r := range t.roots {
		heap.Push(&bufs.queue, pqEntry{priority: inf, node: r})
	}
	for len(bufs.candidates) < searchK && bufs.queue.Len() > 0 {
		top := heap.Pop(&bufs.queue).(pqEntry)
		switch nd := top.node.(type) {
		case *LeafNode:
			bufs.candidates = append(bufs.candidates, nd.items...)
		case *SplitNode:
			m := t.dist.margin(nd, query)
			heap.Push(&bufs.queue, pqEntry{priority: min(top.priority, m), node: nd.children[1]})
			heap.Push(&bufs.queue, pqEntry{priority: min(top.priority, -m), node: nd.children[0]})
		}
	}

	slices.Sort(bufs.candidates)
	bufs.candidates = slices.Compact(bufs.candidates)
	for _, id := range bufs.candidates {
		v := t.vectorView(id)
		if v == nil {
			continue
		}
		bufs.results = append(bufs.results, SearchResult{Item: id, Distance: t.dist.raw(query, v)})
	}
	slices.SortFunc(bufs.results, func(a, b SearchResult) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Item, b.Item)
	})
	if n > len(bufs.results) {
		n = len(bufs.results)
	}
	out := make([]SearchResult, n)
	for i := 0; i < n; i++ {
		out[i] = SearchResult{Item: bufs.results[i].Item, Distance: t.dist.normalized(bufs.results[i].Distance)}
	}
	return out
}
