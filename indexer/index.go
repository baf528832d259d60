package indexer

import (
	"math"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ic-timon/annbench/indexer/store"
)

// Index is a forest of random projection trees over a set of item vectors.
//
// Items are added with AddItem and become searchable after Build. A built
// index is immutable. Queries are safe for concurrent use; AddItem, Build,
// Save, Load and Unload are not.
type Index struct {
	cfg        *Config
	dist       distance
	log        logrus.FieldLogger
	pool       *Pool
	blocks     []Block
	nItems     int
	present    *roaring.Bitmap // ids passed to AddItem; the others are zero vectors outside every tree
	roots      []Node
	built      bool
	disk       *store.FileStore      // set by OnDiskBuild
	mapped     *store.MmapBlockStore // set by Load
	searchPool *searchPool
}

// NewIndex creates an empty index. Uses default config if cfg is nil.
func NewIndex(cfg *Config) *Index {
	cfg = cfg.OrDefault()
	t := &Index{
		cfg:     cfg,
		dist:    newDistance(cfg.Metric),
		log:     cfg.Logger.WithField("component", "indexer"),
		present: roaring.New(),
	}
	t.resetPool()
	if cfg.SearchWorkers > 0 {
		t.searchPool = newSearchPool(t, cfg.SearchWorkers, 64)
	}
	return t
}

func (t *Index) resetPool() {
	pool := NewPool(t.cfg.VectorsPerBlock, t.cfg.Dim)
	pool.UseOffheap = t.cfg.UseOffheap
	t.pool = pool
}

// Config returns the current configuration.
func (t *Index) Config() *Config {
	return t.cfg
}

// Dim returns the vector dimension.
func (t *Index) Dim() int {
	return t.cfg.Dim
}

// Metric returns the distance metric.
func (t *Index) Metric() Metric {
	return t.cfg.Metric
}

// GetNItems returns the number of items: one past the largest id added.
func (t *Index) GetNItems() int {
	return t.nItems
}

// GetNTrees returns the number of trees.
func (t *Index) GetNTrees() int {
	return len(t.roots)
}

// Built reports whether the index has trees and is therefore immutable.
func (t *Index) Built() bool {
	return t.built
}

// Loaded reports whether the index is mapped read-only from a file.
func (t *Index) Loaded() bool {
	return t.mapped != nil
}

// AddItem stores vec under id item. Ids need not be contiguous; ids never
// added read back as zero vectors and are not part of any tree.
func (t *Index) AddItem(item int, vec []float32) error {
	if t.mapped != nil {
		return ErrIndexLoaded
	}
	if t.built {
		return ErrIndexBuilt
	}
	if item < 0 || uint64(item) >= math.MaxUint32 {
		return errors.Wrapf(ErrItemOutOfRange, "item %d", item)
	}
	if t.cfg.Dim <= 0 || len(vec) != t.cfg.Dim {
		return &ErrDimensionMismatch{Expected: t.cfg.Dim, Actual: len(vec)}
	}
	vpb := t.cfg.VectorsPerBlock
	for len(t.blocks)*vpb <= item {
		b, err := t.allocBlock(len(t.blocks))
		if err != nil {
			return err
		}
		t.blocks = append(t.blocks, b)
	}
	t.blocks[item/vpb].SetVector(item%vpb, vec)
	t.present.Add(uint32(item))
	if item >= t.nItems {
		t.nItems = item + 1
	}
	return nil
}

// allocBlock returns block b: file-backed during an on-disk build, pooled otherwise.
func (t *Index) allocBlock(b int) (Block, error) {
	if t.disk == nil {
		return t.pool.AllocBlock(), nil
	}
	vpb := t.cfg.VectorsPerBlock
	rowBytes := int64(t.cfg.Dim) * 4
	offset := store.DataOffset + int64(b*vpb)*rowBytes
	if err := t.disk.Grow(offset + int64(vpb)*rowBytes); err != nil {
		return nil, errors.Wrap(err, "grow on-disk index")
	}
	return NewDataBlockMmap(t.disk, offset, vpb, t.cfg.Dim, vpb, true), nil
}

// vectorView returns the stored vector of item without copying, or nil.
func (t *Index) vectorView(item uint32) []float32 {
	vpb := t.cfg.VectorsPerBlock
	b := int(item) / vpb
	if int(item) >= t.nItems || b >= len(t.blocks) {
		return nil
	}
	return t.blocks[b].Vector(int(item) % vpb)
}

// GetItemVector returns a copy of the vector stored for item.
func (t *Index) GetItemVector(item int) ([]float32, error) {
	v, err := t.itemQuery(item)
	if err != nil {
		return nil, err
	}
	return copyVec(v), nil
}

// GetDistance returns the normalized distance between items i and j.
func (t *Index) GetDistance(i, j int) (float32, error) {
	a, err := t.itemQuery(i)
	if err != nil {
		return 0, err
	}
	b, err := t.itemQuery(j)
	if err != nil {
		return 0, err
	}
	return t.dist.normalized(t.dist.raw(a, b)), nil
}

func (t *Index) itemQuery(item int) ([]float32, error) {
	if item < 0 || item >= t.nItems {
		return nil, errors.Wrapf(ErrItemOutOfRange, "item %d of %d", item, t.nItems)
	}
	v := t.vectorView(uint32(item))
	if v == nil {
		return nil, errors.Wrapf(ErrItemOutOfRange, "item %d not backed", item)
	}
	return v, nil
}

// Close unloads the index and stops its search workers.
func (t *Index) Close() error {
	err := t.Unload()
	if t.searchPool != nil {
		t.searchPool.Close()
		t.searchPool = nil
	}
	return err
}
