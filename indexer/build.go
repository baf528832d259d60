package indexer

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Build grows nTrees trees over the added items; nTrees <= 0 selects DefaultTrees.
// Trees are built concurrently by up to Config.BuildWorkers goroutines; tree i
// uses seed Config.Seed+i, so a given seed always yields the same forest.
// After Build the index is immutable. For an on-disk build the trees and header
// are appended to the file, which then is a complete index.
func (t *Index) Build(ctx context.Context, nTrees int) error {
	if t.mapped != nil {
		return ErrIndexLoaded
	}
	if t.built {
		return ErrIndexBuilt
	}
	if t.present.IsEmpty() {
		return ErrNoItems
	}
	if nTrees <= 0 {
		nTrees = DefaultTrees
	}
	start := time.Now()
	items := t.present.ToArray()
	roots := make([]Node, nTrees)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.BuildWorkers)
	for i := 0; i < nTrees; i++ {
		i := i
		g.Go(func() error {
			rng := rand.New(rand.NewSource(t.cfg.Seed + int64(i)))
			root, err := t.makeTree(gctx, items, rng)
			if err != nil {
				return err
			}
			roots[i] = root
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "build trees")
	}
	t.roots = roots
	t.built = true

	if t.disk != nil {
		if err := t.finishOnDisk(); err != nil {
			return err
		}
	}
	t.log.WithField("items", t.nItems).
		WithField("trees", nTrees).
		WithField("nodes", t.nodeCount()).
		WithField("pooled_blocks", t.pool.BlockCount()).
		WithField("took", time.Since(start)).
		Debug("index built")
	return nil
}

// Unbuild drops the trees so more items can be added. Not available for
// loaded indexes or on-disk builds, whose files already hold the trees.
func (t *Index) Unbuild() error {
	if t.mapped != nil {
		return ErrIndexLoaded
	}
	if t.disk != nil && t.built {
		return ErrOnDisk
	}
	t.roots = nil
	t.built = false
	return nil
}

func (t *Index) nodeCount() int {
	total := 0
	for _, r := range t.roots {
		total += countNodes(r)
	}
	return total
}
