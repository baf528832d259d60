//go:build unix

package store

import "golang.org/x/sys/unix"

// adviseRandom hints that tree search touches item pages in random order.
func adviseRandom(b []byte) {
	if len(b) == 0 {
		return
	}
	_ = unix.Madvise(b, unix.MADV_RANDOM)
}
