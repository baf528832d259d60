package indexer

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// deserializeNode reads a subtree written by serializeNode. Item ids are
// checked against nItems so a corrupt file cannot index past the item data.
func deserializeNode(r io.Reader, dim int, nItems uint32) (Node, error) {
	var tag uint8
	if err := binary.Read(r, binary.LittleEndian, &tag); err != nil {
		return nil, err
	}
	switch tag {
	case nodeTagLeaf:
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return nil, err
		}
		if count > nItems {
			return nil, errors.Errorf("leaf holds %d items, index has %d", count, nItems)
		}
		items := make([]uint32, count)
		if err := binary.Read(r, binary.LittleEndian, items); err != nil {
			return nil, err
		}
		for _, id := range items {
			if id >= nItems {
				return nil, errors.Wrapf(ErrItemOutOfRange, "leaf item %d of %d", id, nItems)
			}
		}
		return &LeafNode{items: items}, nil
	case nodeTagSplit:
		var descendants uint32
		if err := binary.Read(r, binary.LittleEndian, &descendants); err != nil {
			return nil, err
		}
		n := &SplitNode{
			normal:      make([]float32, dim),
			descendants: int(descendants),
		}
		if err := binary.Read(r, binary.LittleEndian, n.normal); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n.offset); err != nil {
			return nil, err
		}
		for i := 0; i < 2; i++ {
			child, err := deserializeNode(r, dim, nItems)
			if err != nil {
				return nil, err
			}
			n.children[i] = child
		}
		return n, nil
	}
	return nil, errors.Errorf("unknown node tag %d", tag)
}

// parseForest reads nTrees trees from data.
func parseForest(data []byte, nTrees, dim int, nItems uint32) ([]Node, error) {
	r := bytes.NewReader(data)
	roots := make([]Node, 0, nTrees)
	for i := 0; i < nTrees; i++ {
		root, err := deserializeNode(r, dim, nItems)
		if err != nil {
			return nil, errors.Wrapf(err, "parse tree %d", i)
		}
		roots = append(roots, root)
	}
	return roots, nil
}
