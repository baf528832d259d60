package indexer

import (
	"io"
	"runtime"

	"github.com/sirupsen/logrus"
)

const (
	defaultVectorsPerBlock = 64
	// DefaultTrees is used when Build is called with nTrees <= 0.
	DefaultTrees = 10
)

// Config holds index parameters.
type Config struct {
	Dim             int                // vector dimension; 0 is only valid before Load, which adopts the file's
	Metric          Metric             // distance metric, default Angular
	LeafSize        int                // max items per leaf, default Dim+2
	VectorsPerBlock int                // vectors per storage block, default 64
	Seed            int64              // tree i is built with Seed+i
	BuildWorkers    int                // trees built concurrently, default NumCPU
	SearchWorkers   int                // when >0, queries run on a bounded worker pool
	UseOffheap      bool               // use C.malloc for blocks (requires CGO), reduces GC pressure
	Logger          logrus.FieldLogger // default discards
}

// DefaultConfig returns the default configuration for dim-dimensional vectors.
func DefaultConfig(dim int) *Config {
	c := &Config{Dim: dim}
	return c.OrDefault()
}

// OrDefault returns DefaultConfig(0) if c is nil, otherwise normalizes c.
func (c *Config) OrDefault() *Config {
	if c == nil {
		return DefaultConfig(0)
	}
	if c.LeafSize <= 0 {
		c.LeafSize = c.Dim + 2
	}
	if c.VectorsPerBlock <= 0 {
		c.VectorsPerBlock = defaultVectorsPerBlock
	}
	if c.BuildWorkers <= 0 {
		c.BuildWorkers = runtime.NumCPU()
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = l
	}
	return c
}
