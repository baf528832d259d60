package store

import (
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// minFileCapacity is the smallest mapping a FileStore grows to.
const minFileCapacity = 1 << 20

// FileStore is a writable, growable mmap of a file. It backs on-disk builds:
// item vectors are written straight into the mapping and the file is truncated
// to its final size once the trees are appended.
type FileStore struct {
	f    *os.File
	path string
	data mmap.MMap
	cap  int64
}

// OpenWritable creates (or truncates) path and returns an empty FileStore.
func OpenWritable(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "create index file")
	}
	return &FileStore{f: f, path: path}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Cap returns the current mapped size in bytes.
func (s *FileStore) Cap() int64 {
	return s.cap
}

// Grow ensures at least size bytes are mapped, doubling the capacity as needed.
// Views obtained before Grow are invalidated.
func (s *FileStore) Grow(size int64) error {
	if size <= s.cap {
		return nil
	}
	newCap := s.cap * 2
	if newCap < minFileCapacity {
		newCap = minFileCapacity
	}
	for newCap < size {
		newCap *= 2
	}
	return s.remap(AlignUp(newCap, PageSize))
}

// Truncate resizes the file and mapping to exactly size bytes.
func (s *FileStore) Truncate(size int64) error {
	return s.remap(size)
}

func (s *FileStore) remap(size int64) error {
	if s.data != nil {
		if err := s.data.Flush(); err != nil {
			return errors.Wrap(err, "flush before remap")
		}
		if err := s.data.Unmap(); err != nil {
			return errors.Wrap(err, "unmap before remap")
		}
		s.data = nil
	}
	if err := s.f.Truncate(size); err != nil {
		return errors.Wrapf(err, "resize %s to %d bytes", s.path, size)
	}
	s.cap = size
	if size == 0 {
		return nil
	}
	m, err := mmap.MapRegion(s.f, int(size), mmap.RDWR, 0, 0)
	if err != nil {
		return errors.Wrapf(err, "mmap %s", s.path)
	}
	s.data = m
	return nil
}

// Bytes returns the mapped region.
func (s *FileStore) Bytes() []byte {
	return s.data
}

// View returns a writable []float32 view of floats values at offset.
func (s *FileStore) View(offset int64, floats int) []float32 {
	return viewFloats(s.data, offset, floats)
}

// WriteAt copies b into the mapping at offset, growing it if necessary.
func (s *FileStore) WriteAt(b []byte, offset int64) error {
	if err := s.Grow(offset + int64(len(b))); err != nil {
		return err
	}
	copy(s.data[offset:], b)
	return nil
}

// Flush writes dirty pages back to the file.
func (s *FileStore) Flush() error {
	if s.data == nil {
		return nil
	}
	return errors.Wrap(s.data.Flush(), "flush index file")
}

// Close flushes, unmaps and closes the file.
func (s *FileStore) Close() error {
	var result *multierror.Error
	if s.data != nil {
		if err := s.data.Flush(); err != nil {
			result = multierror.Append(result, errors.Wrap(err, "flush index file"))
		}
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
