package indexer

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateSplitSeparatesTwoPoints(t *testing.T) {
	vecs := [][]float32{{3, 1}, {-1, -4}}
	for _, m := range []Metric{Angular, Euclidean, Manhattan, Dot} {
		t.Run(m.String(), func(t *testing.T) {
			rng := rand.New(rand.NewSource(1))
			d := newDistance(m)
			n := &SplitNode{}
			d.createSplit(vecs, rng, n)
			m0, m1 := d.margin(n, vecs[0]), d.margin(n, vecs[1])
			assert.NotZero(t, m0)
			assert.NotZero(t, m1)
			assert.NotEqual(t, m0 > 0, m1 > 0)
		})
	}
}

func TestSplitImbalance(t *testing.T) {
	assert.Equal(t, 0.5, splitImbalance([2][]uint32{{1}, {2}}))
	assert.Equal(t, 1.0, splitImbalance([2][]uint32{{1, 2}, nil}))
	assert.Equal(t, 0.75, splitImbalance([2][]uint32{{1}, {2, 3, 4}}))
	assert.Equal(t, 1.0, splitImbalance([2][]uint32{}))
}

func TestSide(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, 1, side(0.5, rng))
	assert.Equal(t, 0, side(-0.5, rng))
	s := side(0, rng)
	assert.True(t, s == 0 || s == 1)
}
