//go:build !unix

package store

func adviseRandom(b []byte) {}
