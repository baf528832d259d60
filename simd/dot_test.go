package simd

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

const dim = 128

func initBenchVectors() (va, vb []float32) {
	rng := rand.New(rand.NewSource(42))
	va = make([]float32, dim)
	vb = make([]float32, dim)
	for i := range va {
		va[i] = rng.Float32()*2 - 1
		vb[i] = rng.Float32()*2 - 1
	}
	return va, vb
}

func TestKernelsMatchReference(t *testing.T) {
	va, vb := initBenchVectors()
	var dot, l2, l1 float64
	for i := range va {
		dot += float64(va[i]) * float64(vb[i])
		d := float64(va[i]) - float64(vb[i])
		l2 += d * d
		l1 += math.Abs(d)
	}
	assert.InDelta(t, dot, float64(Dot(va, vb)), 1e-3)
	assert.InDelta(t, l2, float64(SquaredL2(va, vb)), 1e-3)
	assert.InDelta(t, l1, float64(Manhattan(va, vb)), 1e-3)
}

func TestOddLengths(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5}
	b := []float32{5, 4, 3, 2, 1}
	assert.Equal(t, float32(35), Dot(a, b))
	assert.InDelta(t, 40, SquaredL2(a, b), 1e-4)
	assert.Equal(t, float32(12), Manhattan(a, b))
}

func TestMismatchedLengths(t *testing.T) {
	assert.Zero(t, Dot([]float32{1}, []float32{1, 2}))
	assert.Zero(t, SquaredL2(nil, nil))
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	Normalize(v)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	Normalize(zero)
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestDesc(t *testing.T) {
	assert.NotEmpty(t, Desc())
}

func BenchmarkDot_Go(b *testing.B) {
	va, vb := initBenchVectors()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = dotGo(va, vb)
	}
}

func BenchmarkDot_Auto(b *testing.B) {
	va, vb := initBenchVectors()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Dot(va, vb)
	}
}

func BenchmarkSquaredL2_Auto(b *testing.B) {
	va, vb := initBenchVectors()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = SquaredL2(va, vb)
	}
}
