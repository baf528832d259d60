// Package suite times the life cycle of an index over one dataset: build,
// load, find and rebuild.
package suite

import (
	"context"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ic-timon/annbench/bench/dataset"
	"github.com/ic-timon/annbench/bench/gen"
	"github.com/ic-timon/annbench/bench/metrics"
	"github.com/ic-timon/annbench/indexer"
)

// ErrItemCountMismatch is returned when a built index does not hold one item per dataset vector.
var ErrItemCountMismatch = errors.New("index item count does not match dataset size")

// Options configures one run over one dataset.
type Options struct {
	RunID       string
	Label       string
	DataDir     string
	Dim         int
	Trees       int
	Reads       int
	NNs         int
	SearchK     int
	Metric      indexer.Metric
	OnDisk      bool
	Concurrency int
	Seed        int64
	// SearchWorkers > 0 routes queries through the index worker pool.
	SearchWorkers int
	// Offheap allocates in-memory item blocks with C.calloc when cgo is available.
	Offheap bool
	Logger  logrus.FieldLogger
}

func (o *Options) indexConfig() *indexer.Config {
	cfg := indexer.DefaultConfig(o.Dim)
	cfg.Metric = o.Metric
	cfg.Seed = o.Seed
	cfg.SearchWorkers = o.SearchWorkers
	cfg.UseOffheap = o.Offheap
	cfg.Logger = o.Logger
	return cfg
}

// Run benchmarks the dataset o.Label in o.DataDir:
//
//   - build: read the dataset, add every vector, build o.Trees trees and leave
//     the index in <label>.ann (saved afterwards, or written during an on-disk build)
//   - load: map <label>.ann into a fresh index
//   - find: mean wall time of o.Reads queries for the o.NNs neighbours of a random item
//   - rebuild: copy every item of the loaded index into a new one, add one
//     random vector, build and save over <label>.ann
func Run(ctx context.Context, o Options) (_ *metrics.Result, err error) {
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	log := o.Logger.WithField("dataset", o.Label).WithField("on_disk", o.OnDisk)
	jsonPath := dataset.JSONPath(o.DataDir, o.Label)
	indexPath := dataset.IndexPath(o.DataDir, o.Label)
	rng := rand.New(rand.NewSource(o.Seed))
	res := &metrics.Result{
		RunID:     o.RunID,
		Label:     o.Label,
		OnDisk:    o.OnDisk,
		Trees:     o.Trees,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	metrics.GC()
	before := metrics.Take()
	start := time.Now()
	heap, err := build(ctx, &o, jsonPath, indexPath)
	if err != nil {
		return nil, err
	}
	res.Build = time.Since(start).Seconds()
	res.HeapAllocMB = heap.HeapAllocMB()
	allocRate, gcs := metrics.Diff(before, heap)
	res.BuildAllocMBps = allocRate / (1 << 20)
	res.BuildGCs = gcs
	if fi, err := os.Stat(indexPath); err == nil {
		res.IndexBytes = fi.Size()
	}
	log.WithFields(heap.Fields()).WithField("took", res.Build).Info("index built")

	start = time.Now()
	idx := indexer.NewIndex(o.indexConfig())
	defer func() {
		if cerr := idx.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close loaded index")
		}
	}()
	if err := idx.Load(indexPath); err != nil {
		return nil, err
	}
	res.Load = time.Since(start).Seconds()
	res.Size = idx.GetNItems()

	if res.Size > 0 && o.Reads > 0 {
		durations, elapsed, err := find(idx, &o, rng)
		if err != nil {
			return nil, err
		}
		res.Find = elapsed.Seconds() / float64(o.Reads)
		stats := metrics.LatencyStatsFromDurations(durations)
		res.FindP50Ms, res.FindP95Ms, res.FindP99Ms = stats.P50Ms, stats.P95Ms, stats.P99Ms
		res.FindMeanMs = stats.AvgMs
	}

	start = time.Now()
	extra := [][]float32{gen.RandomVector(rng, o.Dim)}
	rebuilt, err := idx.Rebuild(ctx, extra, o.Trees, indexPath)
	if err != nil {
		return nil, errors.Wrap(err, "rebuild")
	}
	res.Rebuild = time.Since(start).Seconds()
	if err := rebuilt.Close(); err != nil {
		return nil, err
	}
	log.WithField("size", res.Size).Info(res.String())
	return res, nil
}

// build creates the index file and returns the runtime snapshot taken with
// the index still in memory. A close error (for an on-disk build, a failed
// flush or unmap) fails the build.
func build(ctx context.Context, o *Options, jsonPath, indexPath string) (metrics.Snapshot, error) {
	vecs, err := dataset.Load(jsonPath)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	idx := indexer.NewIndex(o.indexConfig())
	err = fill(ctx, idx, o, vecs, indexPath)
	snap := metrics.Take()
	if cerr := idx.Close(); cerr != nil && err == nil {
		err = errors.Wrap(cerr, "close built index")
	}
	if err != nil {
		return metrics.Snapshot{}, err
	}
	return snap, nil
}

// fill adds vecs to idx, builds it and leaves the complete index at indexPath.
func fill(ctx context.Context, idx *indexer.Index, o *Options, vecs [][]float32, indexPath string) error {
	if o.OnDisk {
		if err := idx.OnDiskBuild(indexPath); err != nil {
			return err
		}
	}
	for i, v := range vecs {
		if err := idx.AddItem(i, v); err != nil {
			return errors.Wrapf(err, "add item %d", i)
		}
	}
	if err := idx.Build(ctx, o.Trees); err != nil {
		return err
	}
	if idx.GetNItems() != len(vecs) {
		return errors.Wrapf(ErrItemCountMismatch, "%d items, %d vectors", idx.GetNItems(), len(vecs))
	}
	if !o.OnDisk {
		return idx.Save(indexPath)
	}
	return nil
}

// find issues o.Reads queries from o.Concurrency goroutines and returns the
// per-query latencies and the total wall time.
func find(idx *indexer.Index, o *Options, rng *rand.Rand) ([]time.Duration, time.Duration, error) {
	items := make([]int, o.Reads)
	for i := range items {
		items[i] = rng.Intn(idx.GetNItems())
	}
	durations := make([]time.Duration, len(items))
	var next int
	var mu sync.Mutex

	var g errgroup.Group
	start := time.Now()
	for w := 0; w < o.Concurrency; w++ {
		g.Go(func() error {
			for {
				mu.Lock()
				i := next
				next++
				mu.Unlock()
				if i >= len(items) {
					return nil
				}
				t0 := time.Now()
				if _, err := idx.GetNNsByItem(items[i], o.NNs, o.SearchK); err != nil {
					return errors.Wrapf(err, "find neighbours of %d", items[i])
				}
				durations[i] = time.Since(t0)
			}
		})
	}
	err := g.Wait()
	return durations, time.Since(start), err
}
