// Package gen 提供压测用随机向量生成
package gen

import (
	"math/rand"

	"github.com/sirupsen/logrus"
)

// ComponentRange is the exclusive upper bound of generated components (2^32).
const ComponentRange = 1 << 32

// RandomVectors 生成 n 个 dim 维随机整数向量，分量均匀分布于 [0, 2^32)。
// Progress is logged at info level every 10%; log may be nil.
func RandomVectors(n, dim int, seed int64, log logrus.FieldLogger) [][]uint32 {
	if log != nil {
		log.WithField("size", n).WithField("dim", dim).Info("generating vectors")
	}
	rng := rand.New(rand.NewSource(seed))
	out := make([][]uint32, n)
	step := n / 10
	for i := 0; i < n; i++ {
		v := make([]uint32, dim)
		for j := range v {
			v[j] = uint32(rng.Float64() * ComponentRange)
		}
		out[i] = v
		if log != nil && step > 0 && (i+1)%step == 0 {
			log.WithField("done", i+1).WithField("percent", (i+1)*100/n).Debug("generating vectors")
		}
	}
	return out
}

// RandomVector 生成重建探针向量，分量为 [0, 2^32) 内的浮点数
func RandomVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for j := range v {
		v[j] = float32(rng.Float64() * ComponentRange)
	}
	return v
}
