package store

// BlockStore provides access to item vectors held in a mapped file.
type BlockStore interface {
	// View returns a []float32 view of floats values starting at the given file offset.
	// The slice is valid until the store is remapped or closed. Read-only stores must not be modified.
	View(offset int64, floats int) []float32
	// Bytes returns the full mapped file as []byte, or nil if not available.
	Bytes() []byte
	// Close releases resources (e.g. unmaps the file).
	Close() error
}
