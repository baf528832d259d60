package indexer

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

const testDim = 16

func randomVectors(n, dim int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float32, n)
	for i := 0; i < n; i++ {
		v := make([]float32, dim)
		for j := 0; j < dim; j++ {
			v[j] = rng.Float32()*2 - 1
		}
		out[i] = v
	}
	return out
}

func testConfig(metric Metric) *Config {
	cfg := DefaultConfig(testDim)
	cfg.Metric = metric
	cfg.LeafSize = 8
	cfg.VectorsPerBlock = 16
	cfg.Seed = 7
	return cfg
}

func buildIndex(t *testing.T, cfg *Config, vecs [][]float32, trees int) *Index {
	t.Helper()
	idx := NewIndex(cfg)
	t.Cleanup(func() { idx.Close() })
	for i, v := range vecs {
		require.NoError(t, idx.AddItem(i, v))
	}
	require.NoError(t, idx.Build(context.Background(), trees))
	return idx
}

func resultItems(rs []SearchResult) []uint32 {
	out := make([]uint32, len(rs))
	for i, r := range rs {
		out[i] = r.Item
	}
	return out
}
