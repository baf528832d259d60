package store

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	// HeaderSize is the fixed header size.
	HeaderSize = 64

	// Magic identifies a valid index file.
	Magic = "ANNF"

	// FormatVersion is the current file format version.
	FormatVersion uint16 = 1

	// PageSize is the alignment of the item data section.
	PageSize = 4096

	// DataOffset is where item vectors start in every index file.
	DataOffset int64 = PageSize
)

var (
	ErrHeaderTooShort     = errors.New("header too short")
	ErrInvalidMagic       = errors.New("invalid magic")
	ErrUnsupportedVersion = errors.New("unsupported format version")
)

// Header holds the persisted index metadata.
type Header struct {
	Magic      [4]byte
	Version    uint16
	Metric     uint8
	_          uint8
	Dim        uint32
	NItems     uint32
	NTrees     uint32
	LeafSize   uint32
	DataOffset uint64
	TreeOffset uint64
	TreeLen    uint64
	Reserved   [16]byte // pad to 64 bytes
}

// RowBytes returns the size in bytes of one item vector.
func (h *Header) RowBytes() int64 {
	return int64(h.Dim) * 4
}

// DataEnd returns the file offset just past the last item vector.
func (h *Header) DataEnd() int64 {
	return int64(h.DataOffset) + int64(h.NItems)*h.RowBytes()
}

// TreeOffsetFor returns the tree section offset for an index of n items of dim components.
func TreeOffsetFor(n, dim int) int64 {
	return AlignUp(DataOffset+int64(n)*int64(dim)*4, 8)
}

// AlignUp rounds x up to a multiple of align.
func AlignUp(x, align int64) int64 {
	if x%align == 0 {
		return x
	}
	return (x/align + 1) * align
}

// EncodeHeader writes the header to a byte slice, padded to HeaderSize.
func EncodeHeader(h *Header) ([]byte, error) {
	if h == nil {
		return nil, errors.New("header is nil")
	}
	copy(h.Magic[:], Magic)
	h.Version = FormatVersion
	var w bytes.Buffer
	if err := binary.Write(&w, binary.LittleEndian, h); err != nil {
		return nil, errors.Wrap(err, "encode header")
	}
	b := w.Bytes()
	if len(b) < HeaderSize {
		padded := make([]byte, HeaderSize)
		copy(padded, b)
		return padded, nil
	}
	return b, nil
}

// DecodeHeader reads the header from src. Returns error if magic/version invalid
// or the recorded sections do not fit in src.
func DecodeHeader(src []byte) (*Header, error) {
	if len(src) < HeaderSize {
		return nil, ErrHeaderTooShort
	}
	var h Header
	r := bytes.NewReader(src[:HeaderSize])
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrap(err, "decode header")
	}
	if string(h.Magic[:]) != Magic {
		return nil, ErrInvalidMagic
	}
	if h.Version != FormatVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", h.Version)
	}
	return &h, nil
}

// Validate checks that every section described by h lies within a file of size bytes.
func (h *Header) Validate(size int64) error {
	if h.Dim == 0 {
		return errors.New("index file has zero dimension")
	}
	if h.DataEnd() > size {
		return errors.Errorf("index file truncated: item data ends at %d, file has %d bytes", h.DataEnd(), size)
	}
	if int64(h.TreeOffset) < h.DataEnd() {
		return errors.Errorf("tree section at %d overlaps item data ending at %d", h.TreeOffset, h.DataEnd())
	}
	if int64(h.TreeOffset+h.TreeLen) > size {
		return errors.Errorf("index file truncated: tree section ends at %d, file has %d bytes", h.TreeOffset+h.TreeLen, size)
	}
	return nil
}
