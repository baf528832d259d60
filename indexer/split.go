package indexer

import (
	"context"
	"math/rand"

	"github.com/ic-timon/annbench/simd"
)

const (
	twoMeansSteps   = 200
	splitAttempts   = 3
	maxImbalance    = 0.95
	randomImbalance = 0.99
)

// makeTree recursively splits items until every leaf holds at most leafSize ids.
func (t *Index) makeTree(ctx context.Context, items []uint32, rng *rand.Rand) (Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(items) <= t.cfg.LeafSize || len(items) < 2 {
		leaf := &LeafNode{items: make([]uint32, len(items))}
		copy(leaf.items, items)
		return leaf, nil
	}
	vecs := make([][]float32, len(items))
	for i, id := range items {
		vecs[i] = t.vectorView(id)
	}

	n := &SplitNode{descendants: len(items)}
	var sides [2][]uint32
	for attempt := 0; attempt < splitAttempts; attempt++ {
		sides[0], sides[1] = sides[0][:0], sides[1][:0]
		t.dist.createSplit(vecs, rng, n)
		for i, v := range vecs {
			s := side(t.dist.margin(n, v), rng)
			sides[s] = append(sides[s], items[i])
		}
		if splitImbalance(sides) < maxImbalance {
			break
		}
	}
	// 两均值无法分开（如重复向量）时退化为随机划分
	for splitImbalance(sides) > randomImbalance {
		for i := range n.normal {
			n.normal[i] = 0
		}
		n.offset = 0
		sides[0], sides[1] = sides[0][:0], sides[1][:0]
		for _, id := range items {
			s := rng.Intn(2)
			sides[s] = append(sides[s], id)
		}
	}
	vecs = nil

	for i := 0; i < 2; i++ {
		child, err := t.makeTree(ctx, sides[i], rng)
		if err != nil {
			return nil, err
		}
		n.children[i] = child
	}
	return n, nil
}

// side returns 1 for a positive margin, 0 for a negative one and a coin flip on the plane.
func side(margin float32, rng *rand.Rand) int {
	if margin > 0 {
		return 1
	}
	if margin < 0 {
		return 0
	}
	return rng.Intn(2)
}

func splitImbalance(sides [2][]uint32) float64 {
	ls, rs := float64(len(sides[0])), float64(len(sides[1]))
	if ls+rs == 0 {
		return 1
	}
	f := ls / (ls + rs)
	if f < 1-f {
		f = 1 - f
	}
	return f
}

// twoMeans runs incremental 2-means over random picks from vectors and returns
// the two centroids. With cosine set, centroids are built from normalized vectors.
func twoMeans(vectors [][]float32, rng *rand.Rand, cosine bool, dist func(a, b []float32) float32) (p, q []float32) {
	n := len(vectors)
	i := rng.Intn(n)
	j := rng.Intn(n - 1)
	if j >= i {
		j++
	}
	p = copyVec(vectors[i])
	q = copyVec(vectors[j])
	if cosine {
		simd.Normalize(p)
		simd.Normalize(q)
	}
	ic, jc := float32(1), float32(1)
	for step := 0; step < twoMeansSteps; step++ {
		v := vectors[rng.Intn(n)]
		di := ic * dist(p, v)
		dj := jc * dist(q, v)
		norm := float32(1)
		if cosine {
			norm = simd.Norm(v)
			if !(norm > 0) {
				continue
			}
		}
		if di < dj {
			for z := range p {
				p[z] = (p[z]*ic + v[z]/norm) / (ic + 1)
			}
			ic++
		} else if dj < di {
			for z := range q {
				q[z] = (q[z]*jc + v[z]/norm) / (jc + 1)
			}
			jc++
		}
	}
	return p, q
}
