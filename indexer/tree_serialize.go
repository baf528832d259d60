package indexer

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	nodeTagSplit = 0
	nodeTagLeaf  = 1
)

// serializeNode writes the subtree rooted at n to w in pre-order.
//
//	leaf:  tag u8, count u32, ids [count]u32
//	split: tag u8, descendants u32, normal [dim]f32, offset f32, left, right
func serializeNode(w io.Writer, n Node) error {
	switch nd := n.(type) {
	case *LeafNode:
		if err := binary.Write(w, binary.LittleEndian, uint8(nodeTagLeaf)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(nd.items))); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, nd.items)
	case *SplitNode:
		if err := binary.Write(w, binary.LittleEndian, uint8(nodeTagSplit)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(nd.descendants)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, nd.normal); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, nd.offset); err != nil {
			return err
		}
		for i := 0; i < 2; i++ {
			if err := serializeNode(w, nd.children[i]); err != nil {
				return err
			}
		}
		return nil
	}
	return errors.Errorf("cannot serialize node of type %T", n)
}

// serializeForest writes every root in order.
func serializeForest(w io.Writer, roots []Node) error {
	for i, r := range roots {
		if err := serializeNode(w, r); err != nil {
			return errors.Wrapf(err, "serialize tree %d", i)
		}
	}
	return nil
}
