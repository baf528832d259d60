package indexer

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ic-timon/annbench/indexer/store"
)

func TestPersist_SerializeDeserializeRoundtrip(t *testing.T) {
	vecs := randomVectors(200, testDim, 20)
	idx := buildIndex(t, testConfig(Euclidean), vecs, 3)

	var buf bytes.Buffer
	require.NoError(t, serializeForest(&buf, idx.roots))
	roots, err := parseForest(buf.Bytes(), 3, testDim, uint32(len(vecs)))
	require.NoError(t, err)
	require.Len(t, roots, 3)
	for i := range roots {
		assert.Equal(t, idx.roots[i], roots[i])
	}
}

func TestPersist_DeserializeRejectsBadItem(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, serializeNode(&buf, &LeafNode{items: []uint32{0, 9}}))
	_, err := parseForest(buf.Bytes(), 1, testDim, 5)
	assert.ErrorIs(t, err, ErrItemOutOfRange)

	_, err = parseForest([]byte{7}, 1, testDim, 5)
	assert.Error(t, err)
	_, err = parseForest(buf.Bytes()[:3], 1, testDim, 5)
	assert.Error(t, err)
}

func TestPersist_SaveLoadConsistency(t *testing.T) {
	vecs := randomVectors(500, testDim, 21)
	idx := buildIndex(t, testConfig(Angular), vecs, 4)
	path := filepath.Join(t.TempDir(), "index.ann")
	require.NoError(t, idx.Save(path))
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file left behind")

	loaded := NewIndex(testConfig(Angular))
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))
	assert.True(t, loaded.Loaded())
	assert.True(t, loaded.Built())
	assert.Equal(t, len(vecs), loaded.GetNItems())
	assert.Equal(t, 4, loaded.GetNTrees())

	for _, item := range []int{0, 123, 499} {
		v, err := loaded.GetItemVector(item)
		require.NoError(t, err)
		assert.Equal(t, vecs[item], v)

		want, err := idx.GetNNsByItem(item, 20, -1)
		require.NoError(t, err)
		got, err := loaded.GetNNsByItem(item, 20, -1)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assert.ErrorIs(t, loaded.AddItem(500, vecs[0]), ErrIndexLoaded)
	assert.ErrorIs(t, loaded.Save(path), ErrIndexLoaded)
}

func TestPersist_LoadAdoptsFileConfig(t *testing.T) {
	vecs := randomVectors(50, testDim, 22)
	idx := buildIndex(t, testConfig(Manhattan), vecs, 2)
	path := filepath.Join(t.TempDir(), "index.ann")
	require.NoError(t, idx.Save(path))

	loaded := NewIndex(&Config{})
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, testDim, loaded.Dim())
	assert.Equal(t, Manhattan, loaded.Metric())
	assert.Equal(t, 8, loaded.Config().LeafSize)
}

func TestPersist_LoadMismatch(t *testing.T) {
	vecs := randomVectors(30, testDim, 23)
	idx := buildIndex(t, testConfig(Euclidean), vecs, 1)
	path := filepath.Join(t.TempDir(), "index.ann")
	require.NoError(t, idx.Save(path))

	wrongDim := NewIndex(DefaultConfig(testDim * 2))
	defer wrongDim.Close()
	var dm *ErrDimensionMismatch
	assert.ErrorAs(t, wrongDim.Load(path), &dm)
	assert.False(t, wrongDim.Loaded())

	wrongMetric := NewIndex(testConfig(Dot))
	defer wrongMetric.Close()
	var mm *ErrMetricMismatch
	require.ErrorAs(t, wrongMetric.Load(path), &mm)
	assert.Equal(t, Dot, mm.Expected)
	assert.Equal(t, Euclidean, mm.Actual)
}

func TestPersist_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.ann")
	require.NoError(t, os.WriteFile(garbage, bytes.Repeat([]byte{0xAB}, 8192), 0o644))
	idx := NewIndex(testConfig(Angular))
	defer idx.Close()
	assert.ErrorIs(t, idx.Load(garbage), store.ErrInvalidMagic)

	assert.Error(t, idx.Load(filepath.Join(dir, "missing.ann")))
}

func TestPersist_SaveRequiresBuild(t *testing.T) {
	idx := NewIndex(testConfig(Angular))
	defer idx.Close()
	require.NoError(t, idx.AddItem(0, randomVectors(1, testDim, 24)[0]))
	assert.ErrorIs(t, idx.Save(filepath.Join(t.TempDir(), "x.ann")), ErrNotBuilt)
}

func TestPersist_OnDiskBuild(t *testing.T) {
	// 37 items over blocks of 16 leaves the last block partly filled.
	vecs := randomVectors(37, testDim, 25)
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.ann")

	idx := NewIndex(testConfig(Euclidean))
	defer idx.Close()
	require.NoError(t, idx.OnDiskBuild(path))
	for i, v := range vecs {
		require.NoError(t, idx.AddItem(i, v))
	}
	require.NoError(t, idx.Build(context.Background(), 3))
	assert.Equal(t, len(vecs), idx.GetNItems())
	assert.ErrorIs(t, idx.Save(filepath.Join(dir, "other.ann")), ErrOnDisk)

	inMem, err := idx.GetNNsByItem(5, 10, -1)
	require.NoError(t, err)
	last, err := idx.GetItemVector(36)
	require.NoError(t, err)
	assert.Equal(t, vecs[36], last)

	fi, err := os.Stat(path)
	require.NoError(t, err)
	h := idx.header(0)
	assert.Greater(t, fi.Size(), int64(h.TreeOffset))

	loaded := NewIndex(testConfig(Euclidean))
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, len(vecs), loaded.GetNItems())
	fromFile, err := loaded.GetNNsByItem(5, 10, -1)
	require.NoError(t, err)
	assert.Equal(t, inMem, fromFile)
}

func TestPersist_OnDiskBuildTooLate(t *testing.T) {
	idx := NewIndex(testConfig(Euclidean))
	defer idx.Close()
	require.NoError(t, idx.AddItem(0, randomVectors(1, testDim, 26)[0]))
	assert.ErrorIs(t, idx.OnDiskBuild(filepath.Join(t.TempDir(), "late.ann")), ErrOnDisk)
}

func TestPersist_Rebuild(t *testing.T) {
	vecs := randomVectors(60, testDim, 27)
	dir := t.TempDir()
	path := filepath.Join(dir, "index.ann")
	idx := buildIndex(t, testConfig(Angular), vecs, 2)
	require.NoError(t, idx.Save(path))

	loaded := NewIndex(testConfig(Angular))
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))

	extra := randomVectors(1, testDim, 28)
	rebuilt, err := loaded.Rebuild(context.Background(), extra, 2, filepath.Join(dir, "rebuilt.ann"))
	require.NoError(t, err)
	defer rebuilt.Close()
	assert.Equal(t, len(vecs)+1, rebuilt.GetNItems())
	assert.Equal(t, 2, rebuilt.GetNTrees())

	res, err := rebuilt.GetNNsByItem(len(vecs), 1, -1)
	require.NoError(t, err)
	assert.Equal(t, uint32(len(vecs)), res[0].Item)

	reloaded := NewIndex(testConfig(Angular))
	defer reloaded.Close()
	require.NoError(t, reloaded.Load(filepath.Join(dir, "rebuilt.ann")))
	assert.Equal(t, len(vecs)+1, reloaded.GetNItems())

	unbuilt := NewIndex(testConfig(Angular))
	defer unbuilt.Close()
	_, err = unbuilt.Rebuild(context.Background(), extra, 1, filepath.Join(dir, "x.ann"))
	assert.ErrorIs(t, err, ErrNotBuilt)
}

func TestPersist_Unload(t *testing.T) {
	vecs := randomVectors(40, testDim, 29)
	idx := buildIndex(t, testConfig(Euclidean), vecs, 1)
	path := filepath.Join(t.TempDir(), "index.ann")
	require.NoError(t, idx.Save(path))

	loaded := NewIndex(testConfig(Euclidean))
	defer loaded.Close()
	require.NoError(t, loaded.Load(path))
	require.NoError(t, loaded.Unload())
	assert.False(t, loaded.Loaded())
	assert.False(t, loaded.Built())
	assert.Zero(t, loaded.GetNItems())

	// An unloaded index accepts items again.
	require.NoError(t, loaded.AddItem(0, vecs[0]))
	require.NoError(t, loaded.Load(path))
	assert.Equal(t, len(vecs), loaded.GetNItems())
}
