package indexer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ic-timon/annbench/indexer/store"
)

// OnDiskBuild makes the index write item vectors straight into path while
// items are added; Build then appends the trees, leaving a complete index file
// without ever holding the items in memory. Must be called before AddItem.
func (t *Index) OnDiskBuild(path string) error {
	if t.mapped != nil {
		return ErrIndexLoaded
	}
	if t.built || t.nItems > 0 || t.disk != nil {
		return ErrOnDisk
	}
	fs, err := store.OpenWritable(path)
	if err != nil {
		return err
	}
	t.disk = fs
	t.log.WithField("path", path).Debug("on-disk build started")
	return nil
}

// finishOnDisk appends the tree section and header to the on-disk file and
// shrinks it to its final size.
func (t *Index) finishOnDisk() error {
	var treeBuf bytes.Buffer
	if err := serializeForest(&treeBuf, t.roots); err != nil {
		return err
	}
	h := t.header(int64(treeBuf.Len()))
	headerBytes, err := store.EncodeHeader(h)
	if err != nil {
		return err
	}
	if err := t.disk.WriteAt(treeBuf.Bytes(), int64(h.TreeOffset)); err != nil {
		return errors.Wrap(err, "write trees")
	}
	if err := t.disk.WriteAt(headerBytes, 0); err != nil {
		return errors.Wrap(err, "write header")
	}
	if err := t.disk.Truncate(int64(h.TreeOffset + h.TreeLen)); err != nil {
		return err
	}
	if err := t.disk.Flush(); err != nil {
		return err
	}
	// The last block may extend past the data section; lay the blocks out again over the exact item count.
	t.blocks = mmapBlocks(t.disk, t.nItems, t.cfg.VectorsPerBlock, t.cfg.Dim, false)
	return nil
}

func (t *Index) header(treeLen int64) *store.Header {
	return &store.Header{
		Metric:     uint8(t.cfg.Metric),
		Dim:        uint32(t.cfg.Dim),
		NItems:     uint32(t.nItems),
		NTrees:     uint32(len(t.roots)),
		LeafSize:   uint32(t.cfg.LeafSize),
		DataOffset: uint64(store.DataOffset),
		TreeOffset: uint64(store.TreeOffsetFor(t.nItems, t.cfg.Dim)),
		TreeLen:    uint64(treeLen),
	}
}

// Save writes a built in-memory index to path atomically (write to path+".tmp", then rename).
// The index stays usable in memory.
func (t *Index) Save(path string) error {
	if !t.built {
		return ErrNotBuilt
	}
	if t.mapped != nil {
		return ErrIndexLoaded
	}
	if t.disk != nil {
		return errors.Wrapf(ErrOnDisk, "index already lives in %s", t.disk.Path())
	}
	start := time.Now()
	tmp := path + ".tmp"
	if err := t.saveTo(tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	_ = os.Remove(path) // Rename on Windows fails if the target exists
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrap(err, "rename index file")
	}
	t.log.WithField("path", path).WithField("took", time.Since(start)).Debug("index saved")
	return nil
}

func (t *Index) saveTo(path string) error {
	var treeBuf bytes.Buffer
	if err := serializeForest(&treeBuf, t.roots); err != nil {
		return err
	}
	h := t.header(int64(treeBuf.Len()))
	headerBytes, err := store.EncodeHeader(h)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create index file")
	}
	defer f.Close()
	w := bufio.NewWriterSize(f, 1<<20)

	if _, err := w.Write(headerBytes); err != nil {
		return err
	}
	if err := writeZeros(w, store.DataOffset-int64(len(headerBytes))); err != nil {
		return err
	}
	// Item data, block by block; the last block is cut at nItems.
	vpb := t.cfg.VectorsPerBlock
	for b, blk := range t.blocks {
		n := t.nItems - b*vpb
		if n <= 0 {
			break
		}
		if n > vpb {
			n = vpb
		}
		if err := binary.Write(w, binary.LittleEndian, blk.Data()[:n*t.cfg.Dim]); err != nil {
			return errors.Wrap(err, "write item data")
		}
	}
	if err := writeZeros(w, int64(h.TreeOffset)-h.DataEnd()); err != nil {
		return err
	}
	if _, err := w.Write(treeBuf.Bytes()); err != nil {
		return errors.Wrap(err, "write trees")
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

func writeZeros(w io.Writer, n int64) error {
	if n <= 0 {
		return nil
	}
	_, err := w.Write(make([]byte, n))
	return err
}

// Load maps the index file at path read-only and parses its trees. Any
// previous contents of the index are released first. A zero Config.Dim adopts
// the file's dimension; otherwise dimension and metric must match.
func (t *Index) Load(path string) error {
	if err := t.Unload(); err != nil {
		return err
	}
	start := time.Now()
	ms, err := store.OpenMmap(path)
	if err != nil {
		return err
	}
	data := ms.Bytes()
	h, err := store.DecodeHeader(data)
	if err == nil {
		err = h.Validate(int64(len(data)))
	}
	if err == nil && t.cfg.Dim != 0 && int(h.Dim) != t.cfg.Dim {
		err = &ErrDimensionMismatch{Expected: t.cfg.Dim, Actual: int(h.Dim)}
	}
	if err == nil && t.cfg.Dim != 0 && Metric(h.Metric) != t.cfg.Metric {
		err = &ErrMetricMismatch{Expected: t.cfg.Metric, Actual: Metric(h.Metric)}
	}
	var roots []Node
	if err == nil {
		treeBuf := data[h.TreeOffset : h.TreeOffset+h.TreeLen]
		roots, err = parseForest(treeBuf, int(h.NTrees), int(h.Dim), h.NItems)
	}
	if err != nil {
		ms.Close()
		return errors.Wrapf(err, "load %s", path)
	}

	t.cfg.Dim = int(h.Dim)
	t.cfg.Metric = Metric(h.Metric)
	t.cfg.LeafSize = int(h.LeafSize)
	t.dist = newDistance(t.cfg.Metric)
	t.nItems = int(h.NItems)
	t.blocks = mmapBlocks(ms, t.nItems, t.cfg.VectorsPerBlock, t.cfg.Dim, false)
	t.roots = roots
	if len(roots) > 0 {
		t.present.AddMany(collectItems(roots[0], nil))
	}
	t.built = true
	t.mapped = ms
	t.log.WithField("path", path).
		WithField("items", t.nItems).
		WithField("trees", len(roots)).
		WithField("took", time.Since(start)).
		Debug("index loaded")
	return nil
}

// Unload releases the mapped file or on-disk store and all items and trees,
// leaving an empty index with the same configuration.
func (t *Index) Unload() error {
	var result *multierror.Error
	if t.mapped != nil {
		if err := t.mapped.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		t.mapped = nil
	}
	if t.disk != nil {
		if err := t.disk.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		t.disk = nil
	}
	t.pool.Close()
	t.resetPool()
	t.blocks = nil
	t.roots = nil
	t.nItems = 0
	t.present.Clear()
	t.built = false
	return result.ErrorOrNil()
}

// Rebuild copies every item of a built index into a fresh in-memory index,
// appends extra at ids GetNItems(), GetNItems()+1, ..., builds nTrees trees and
// saves the result to path. Rebuild is how vectors are added to an immutable index.
func (t *Index) Rebuild(ctx context.Context, extra [][]float32, nTrees int, path string) (*Index, error) {
	if !t.built {
		return nil, ErrNotBuilt
	}
	cfg := *t.cfg
	next := NewIndex(&cfg)
	it := t.present.Iterator()
	for it.HasNext() {
		i := it.Next()
		v := t.vectorView(i)
		if v == nil {
			next.Close()
			return nil, errors.Wrapf(ErrItemOutOfRange, "item %d not backed", i)
		}
		if err := next.AddItem(int(i), v); err != nil {
			next.Close()
			return nil, errors.Wrapf(err, "copy item %d", i)
		}
	}
	for j, v := range extra {
		if err := next.AddItem(t.nItems+j, v); err != nil {
			next.Close()
			return nil, errors.Wrapf(err, "append item %d", t.nItems+j)
		}
	}
	if err := next.Build(ctx, nTrees); err != nil {
		next.Close()
		return nil, err
	}
	if err := next.Save(path); err != nil {
		next.Close()
		return nil, err
	}
	return next, nil
}
