package simd

import (
	"runtime"

	"github.com/viterin/vek/vek32"
	"golang.org/x/sys/cpu"
)

func init() {
	if runtime.GOARCH == "amd64" && cpu.X86.HasAVX2 && cpu.X86.HasFMA {
		dotImpl = vek32.Dot
		squaredL2Impl = squaredL2Vek
		implDesc = "AVX2 (vek)"
	}
}

// squaredL2Vek squares vek's euclidean distance; vek has no squared variant.
func squaredL2Vek(a, b []float32) float32 {
	d := vek32.Distance(a, b)
	return d * d
}
