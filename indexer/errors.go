package indexer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrIndexBuilt is returned when items are added to a built index.
	ErrIndexBuilt = errors.New("index is built; use Rebuild to add items")
	// ErrIndexLoaded is returned when a loaded (read-only) index is modified or saved.
	ErrIndexLoaded = errors.New("index is loaded from file and read-only")
	// ErrNotBuilt is returned by queries and Save on an index without trees.
	ErrNotBuilt = errors.New("index is not built")
	// ErrNoItems is returned by Build on an empty index.
	ErrNoItems = errors.New("index has no items")
	// ErrItemOutOfRange is returned for item ids outside [0, NItems).
	ErrItemOutOfRange = errors.New("item out of range")
	// ErrInvalidN is returned when the requested neighbour count is not positive.
	ErrInvalidN = errors.New("n must be positive")
	// ErrOnDisk is returned when an on-disk build is requested too late or saved elsewhere.
	ErrOnDisk = errors.New("on-disk build must be requested before adding items")
)

// ErrDimensionMismatch indicates a vector/index dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrMetricMismatch indicates a loaded file was built with another metric.
type ErrMetricMismatch struct {
	Expected Metric
	Actual   Metric
}

func (e *ErrMetricMismatch) Error() string {
	return fmt.Sprintf("metric mismatch: expected %s, file has %s", e.Expected, e.Actual)
}
