// Package simd provides the float32 vector kernels used by the indexer.
// On amd64 with AVX2+FMA the kernels dispatch to github.com/viterin/vek;
// everywhere else an unrolled pure Go loop is used.
package simd

import "math"

var (
	dotImpl       func(a, b []float32) float32
	squaredL2Impl func(a, b []float32) float32
	implDesc      string
)

func init() {
	// Default; dispatch.go overrides in init() based on CPU features.
	if dotImpl == nil {
		dotImpl = dotGo
		squaredL2Impl = squaredL2Go
		implDesc = "Go"
	}
}

// Dot returns the dot product of a and b. Returns 0 if the lengths differ.
func Dot(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return dotImpl(a, b)
}

// SquaredL2 returns the squared euclidean distance between a and b.
func SquaredL2(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return squaredL2Impl(a, b)
}

// Manhattan returns the L1 distance between a and b.
func Manhattan(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}

// Norm returns the L2 norm of v.
func Norm(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return float32(math.Sqrt(float64(dotImpl(v, v))))
}

// Normalize scales v in place to unit length. Zero vectors are left untouched.
func Normalize(v []float32) {
	n := Norm(v)
	if n <= 0 {
		return
	}
	inv := 1 / n
	for i := range v {
		v[i] *= inv
	}
}

// Desc describes the kernel implementation selected at startup (for logging).
func Desc() string {
	if implDesc != "" {
		return implDesc
	}
	return "Go"
}

// dotGo is the pure Go implementation (4-way unroll with scalar tail).
func dotGo(a, b []float32) float32 {
	var s0, s1, s2, s3 float32
	n := len(a)
	i := 0
	for ; i+4 <= n; i += 4 {
		s0 += a[i+0] * b[i+0]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	for ; i < n; i++ {
		s0 += a[i] * b[i]
	}
	return s0 + s1 + s2 + s3
}

func squaredL2Go(a, b []float32) float32 {
	var s0, s1 float32
	n := len(a)
	i := 0
	for ; i+2 <= n; i += 2 {
		d0 := a[i] - b[i]
		d1 := a[i+1] - b[i+1]
		s0 += d0 * d0
		s1 += d1 * d1
	}
	for ; i < n; i++ {
		d := a[i] - b[i]
		s0 += d * d
	}
	return s0 + s1
}
