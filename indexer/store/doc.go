// Package store provides the index file format and the mmap-backed stores
// used by indexer.Save, indexer.Load and indexer.OnDiskBuild.
//
// The file format consists of:
//   - Header (64 bytes): magic, version, metric, dimension, counts, section offsets
//   - Item data (page aligned): nItems contiguous float32 vectors of Dim components
//   - Tree section: every tree serialized in pre-order
package store
