package indexer

import (
	"math"
	"math/rand"
	"strings"

	"github.com/pkg/errors"

	"github.com/ic-timon/annbench/simd"
)

// Metric selects the distance function of an index.
type Metric uint8

const (
	// Angular is sqrt(2-2*cos(a,b)), the euclidean distance of the normalized vectors.
	Angular Metric = iota
	// Euclidean is the L2 distance.
	Euclidean
	// Manhattan is the L1 distance.
	Manhattan
	// Dot ranks by descending inner product; reported distances are a·b.
	Dot
)

func (m Metric) String() string {
	switch m {
	case Angular:
		return "angular"
	case Euclidean:
		return "euclidean"
	case Manhattan:
		return "manhattan"
	case Dot:
		return "dot"
	default:
		return "unknown"
	}
}

// ParseMetric parses a metric name as accepted by String.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "angular":
		return Angular, nil
	case "euclidean":
		return Euclidean, nil
	case "manhattan":
		return Manhattan, nil
	case "dot":
		return Dot, nil
	}
	return 0, errors.Errorf("unknown metric %q", s)
}

// distance is the per-metric behaviour used by build and search.
type distance interface {
	// raw returns the distance used for ranking (smaller is closer).
	raw(a, b []float32) float32
	// normalized converts a raw distance into the reported distance.
	normalized(d float32) float32
	// margin returns the signed distance of v to the split hyperplane.
	margin(n *SplitNode, v []float32) float32
	// createSplit fills n.normal and n.offset from the node's item vectors.
	createSplit(vecs [][]float32, rng *rand.Rand, n *SplitNode)
}

func newDistance(m Metric) distance {
	switch m {
	case Euclidean:
		return euclidean{}
	case Manhattan:
		return manhattan{}
	case Dot:
		return dot{}
	default:
		return angular{}
	}
}

type angular struct{}

func (angular) raw(a, b []float32) float32 {
	pp := simd.Dot(a, a)
	qq := simd.Dot(b, b)
	pq := simd.Dot(a, b)
	ppqq := float64(pp) * float64(qq)
	if ppqq > 0 {
		return float32(2 - 2*float64(pq)/math.Sqrt(ppqq))
	}
	return 2
}

func (angular) normalized(d float32) float32 {
	return float32(math.Sqrt(math.Max(float64(d), 0)))
}

func (angular) margin(n *SplitNode, v []float32) float32 {
	return simd.Dot(n.normal, v)
}

func (a angular) createSplit(vecs [][]float32, rng *rand.Rand, n *SplitNode) {
	p, q := twoMeans(vecs, rng, true, a.raw)
	n.normal = subtract(p, q)
	simd.Normalize(n.normal)
	n.offset = 0
}

type euclidean struct{}

func (euclidean) raw(a, b []float32) float32 {
	return simd.SquaredL2(a, b)
}

func (euclidean) normalized(d float32) float32 {
	return float32(math.Sqrt(math.Max(float64(d), 0)))
}

func (euclidean) margin(n *SplitNode, v []float32) float32 {
	return n.offset + simd.Dot(n.normal, v)
}

func (e euclidean) createSplit(vecs [][]float32, rng *rand.Rand, n *SplitNode) {
	minkowskiSplit(vecs, rng, n, e.raw)
}

type manhattan struct{}

func (manhattan) raw(a, b []float32) float32 {
	return simd.Manhattan(a, b)
}

func (manhattan) normalized(d float32) float32 {
	return float32(math.Max(float64(d), 0))
}

func (manhattan) margin(n *SplitNode, v []float32) float32 {
	return n.offset + simd.Dot(n.normal, v)
}

func (m manhattan) createSplit(vecs [][]float32, rng *rand.Rand, n *SplitNode) {
	minkowskiSplit(vecs, rng, n, m.raw)
}

// dot splits like angular but ranks by raw inner product.
type dot struct{}

func (dot) raw(a, b []float32) float32 {
	return -simd.Dot(a, b)
}

func (dot) normalized(d float32) float32 {
	return -d
}

func (dot) margin(n *SplitNode, v []float32) float32 {
	return simd.Dot(n.normal, v)
}

func (dot) createSplit(vecs [][]float32, rng *rand.Rand, n *SplitNode) {
	angular{}.createSplit(vecs, rng, n)
}

// minkowskiSplit places the hyperplane halfway between the two means.
func minkowskiSplit(vecs [][]float32, rng *rand.Rand, n *SplitNode, raw func(a, b []float32) float32) {
	p, q := twoMeans(vecs, rng, false, raw)
	n.normal = subtract(p, q)
	simd.Normalize(n.normal)
	mid := make([]float32, len(p))
	for i := range p {
		mid[i] = (p[i] + q[i]) / 2
	}
	n.offset = -simd.Dot(n.normal, mid)
}

func subtract(a, b []float32) []float32 {
	out := make([]float32, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}
