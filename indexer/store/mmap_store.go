package store

import (
	"os"
	"unsafe"

	"github.com/edsrzf/mmap-go"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// MmapBlockStore is a read-only BlockStore backed by an mmap'd file.
type MmapBlockStore struct {
	f    *os.File
	data mmap.MMap
}

// OpenMmap opens a file and returns a read-only BlockStore.
func OpenMmap(path string) (*MmapBlockStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open index file")
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "mmap %s", path)
	}
	adviseRandom(m)
	return &MmapBlockStore{f: f, data: m}, nil
}

// Bytes returns the full mapped file.
func (s *MmapBlockStore) Bytes() []byte {
	return s.data
}

// View returns a []float32 view of floats values at offset.
// The slice is valid until Close. Caller must not modify it.
func (s *MmapBlockStore) View(offset int64, floats int) []float32 {
	return viewFloats(s.data, offset, floats)
}

// Close unmaps the file and closes it.
func (s *MmapBlockStore) Close() error {
	var result *multierror.Error
	if s.data != nil {
		if err := s.data.Unmap(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "unmap index file"))
		}
		s.data = nil
	}
	if s.f != nil {
		if err := s.f.Close(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "close index file"))
		}
		s.f = nil
	}
	return result.ErrorOrNil()
}

func viewFloats(data []byte, offset int64, floats int) []float32 {
	if data == nil || floats <= 0 {
		return nil
	}
	if offset < 0 || offset+int64(floats)*4 > int64(len(data)) {
		return nil
	}
	ptr := unsafe.Pointer(&data[offset])
	return unsafe.Slice((*float32)(ptr), floats)
}
