// Package indexer provides an approximate nearest neighbour index built as a
// forest of random projection trees.
//
// Every tree recursively splits the items with a hyperplane chosen by two-means
// clustering until a node holds at most LeafSize items. A query descends all
// trees at once through a priority queue ordered by the margin to each
// hyperplane, gathers search_k candidates and ranks them by exact distance.
//
// Quick start:
//
//	idx := indexer.NewIndex(indexer.DefaultConfig(128))
//	for i, v := range vecs {
//		idx.AddItem(i, v)
//	}
//	idx.Build(ctx, 10)
//	idx.Save("vectors.ann")
//
//	loaded := indexer.NewIndex(indexer.DefaultConfig(128))
//	loaded.Load("vectors.ann") // mmap, read-only
//	results, _ := loaded.GetNNsByItem(0, 10, -1)
//
// An index is immutable once built. To add vectors, copy it with Rebuild.
package indexer
