// Package dataset names the benchmark datasets and persists them as JSON
// arrays of integer vectors, the layout the index builders read back.
package dataset

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"

	gojson "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Dataset sizes by label. xxl needs tens of GB of RAM and is never part of the default plan.
var sizes = map[string]int{
	"s":   10_000,
	"m":   100_000,
	"l":   1_000_000,
	"xl":  2_000_000,
	"xxl": 40_000_000,
}

// DefaultLabels is the order datasets are generated and benchmarked in.
var DefaultLabels = []string{"s", "m", "l", "xl"}

// ErrUnknownLabel is returned for a label without a known size.
var ErrUnknownLabel = errors.New("unknown dataset label")

// Size returns the number of vectors in the dataset with the given label.
func Size(label string) (int, error) {
	n, ok := sizes[label]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownLabel, "%q", label)
	}
	return n, nil
}

// Labels returns all known labels ordered by size.
func Labels() []string {
	out := make([]string, 0, len(sizes))
	for l := range sizes {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return sizes[out[i]] < sizes[out[j]] })
	return out
}

// JSONPath returns the dataset file of label in dir.
func JSONPath(dir, label string) string {
	return filepath.Join(dir, label+".json")
}

// IndexPath returns the index file of label in dir.
func IndexPath(dir, label string) string {
	return filepath.Join(dir, label+".ann")
}

// Save writes vecs to path as one JSON array of integer arrays, a row at a time.
func Save(path string, vecs [][]uint32) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create dataset dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create dataset file")
	}
	defer f.Close()
	w := bufio.NewWriterSize(f, 1<<20)

	if err := w.WriteByte('['); err != nil {
		return err
	}
	var row []byte
	for i, v := range vecs {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		row, err = appendRow(row[:0], v)
		if err != nil {
			return errors.Wrapf(err, "encode row %d", i)
		}
		if _, err := w.Write(row); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	if err := w.WriteByte(']'); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "flush dataset")
	}
	return f.Close()
}

func appendRow(dst []byte, v []uint32) ([]byte, error) {
	b, err := gojson.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(dst, b...), nil
}

// Load reads a dataset written by Save. Rows must all have the same length.
func Load(path string) ([][]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open dataset")
	}
	defer f.Close()

	var vecs [][]float32
	if err := gojson.NewDecoder(bufio.NewReaderSize(f, 1<<20)).Decode(&vecs); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	for i := 1; i < len(vecs); i++ {
		if len(vecs[i]) != len(vecs[0]) {
			return nil, errors.Errorf("%s: row %d has %d components, row 0 has %d", path, i, len(vecs[i]), len(vecs[0]))
		}
	}
	return vecs, nil
}
