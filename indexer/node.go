package indexer

// Node is the tree node interface.
type Node interface {
	// IsLeaf returns true if this is a leaf node.
	IsLeaf() bool
	// Descendants returns the number of items below the node.
	Descendants() int
}

// LeafNode holds up to LeafSize item ids.
type LeafNode struct {
	items []uint32
}

// IsLeaf implements Node.
func (*LeafNode) IsLeaf() bool { return true }

// Descendants implements Node.
func (n *LeafNode) Descendants() int { return len(n.items) }

// Items returns the item ids of the leaf.
func (n *LeafNode) Items() []uint32 { return n.items }

// SplitNode divides its items by the hyperplane normal·v + offset = 0.
// children[1] holds the items with a positive margin.
type SplitNode struct {
	normal      []float32
	offset      float32
	children    [2]Node
	descendants int
}

// IsLeaf implements Node.
func (*SplitNode) IsLeaf() bool { return false }

// Descendants implements Node.
func (n *SplitNode) Descendants() int { return n.descendants }

// Child returns the i-th child node (0 or 1).
func (n *SplitNode) Child(i int) Node {
	if i < 0 || i > 1 {
		return nil
	}
	return n.children[i]
}

// countNodes returns the number of nodes in the subtree rooted at n.
func countNodes(n Node) int {
	if n == nil {
		return 0
	}
	if s, ok := n.(*SplitNode); ok {
		return 1 + countNodes(s.children[0]) + countNodes(s.children[1])
	}
	return 1
}

// collectItems appends every item id under n to dst.
func collectItems(n Node, dst []uint32) []uint32 {
	switch nd := n.(type) {
	case *LeafNode:
		return append(dst, nd.items...)
	case *SplitNode:
		dst = collectItems(nd.children[0], dst)
		return collectItems(nd.children[1], dst)
	}
	return dst
}

func copyVec(v []float32) []float32 {
	if v == nil {
		return nil
	}
	o := make([]float32, len(v))
	copy(o, v)
	return o
}
