// Package tree implements CART decision trees: recursive binary
// partitioning with Gini, entropy or variance splitting criteria, for
// classification and regression. It provides both the low-level tree
// structure used by the ensemble package and scikit-learn-style estimators.
package tree

// Task identifies the learning task a tree was built for.
type Task string

const (
	// TaskClassification predicts discrete class indices.
	TaskClassification Task = "classification"
	// TaskRegression predicts continuous values.
	TaskRegression Task = "regression"
)

// Valid reports whether the task is one of the recognized values.
func (t Task) Valid() bool {
	return t == TaskClassification || t == TaskRegression
}

// NodeType represents the type of a tree node.
type NodeType int

const (
	// LeafNode is a terminal node holding a prediction value.
	LeafNode NodeType = iota
	// SplitNode is an internal node with a numerical threshold split.
	SplitNode
)

// Node is a single node in a decision tree. Nodes are stored in a flat
// slice and reference their children by index, which keeps traversal
// cache-friendly and makes the structure trivially serializable.
type Node struct {
	NodeType   NodeType `json:"node_type"`
	LeftChild  int      `json:"left_child"`  // -1 for leaves
	RightChild int      `json:"right_child"` // -1 for leaves

	// Split information (split nodes)
	SplitFeature int     `json:"split_feature"`
	Threshold    float64 `json:"threshold"`
	Gain         float64 `json:"gain"` // impurity decrease achieved by the split

	// Leaf information (leaf nodes)
	LeafValue float64 `json:"leaf_value"`

	// Distribution holds per-class probabilities at classification leaves
	// when the builder was told the class count; nil otherwise.
	Distribution []float64 `json:"distribution,omitempty"`

	// Statistics, kept on every node
	Impurity    float64 `json:"impurity"`
	SampleCount int     `json:"sample_count"`
}

// IsLeaf returns true if the node is a leaf node.
func (n *Node) IsLeaf() bool {
	return n.NodeType == LeafNode
}

// Tree is one trained CART tree: a flat node arena rooted at index 0 plus
// the configuration and sampling bookkeeping recorded at training time.
type Tree struct {
	Nodes []Node `json:"nodes"`
	Task  Task   `json:"task"`

	// NumFeatures is the width of the full feature space the tree expects
	// at prediction time (not the size of the sampled subset).
	NumFeatures int `json:"num_features"`

	// FeatureIndices is the sorted feature subset the tree was allowed to
	// split on. Empty means all features.
	FeatureIndices []int `json:"feature_indices,omitempty"`

	// OOBIndices are the dataset rows left out of this tree's bootstrap
	// sample, recorded for ensemble out-of-bag validation.
	OOBIndices []int `json:"oob_indices,omitempty"`

	MaxDepth       int `json:"max_depth"`
	MinSamplesLeaf int `json:"min_samples_leaf"`
}

// Traverse walks a node arena from the root and returns the leaf prediction
// for the given feature vector. The comparison features[f] <= threshold
// descends left; anything else, including NaN, descends right.
func Traverse(nodes []Node, features []float64) float64 {
	idx := 0
	for idx >= 0 && idx < len(nodes) {
		node := &nodes[idx]
		if node.IsLeaf() {
			return node.LeafValue
		}
		if features[node.SplitFeature] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
	return 0
}

// TraverseLeaf walks a node arena like Traverse but returns the leaf node
// reached, giving callers access to its distribution and statistics.
func TraverseLeaf(nodes []Node, features []float64) *Node {
	idx := 0
	for idx >= 0 && idx < len(nodes) {
		node := &nodes[idx]
		if node.IsLeaf() {
			return node
		}
		if features[node.SplitFeature] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
	return nil
}

// Predict returns the tree's prediction for one feature vector, whose length
// must match the feature-space width seen at training.
func (t *Tree) Predict(features []float64) (float64, error) {
	if len(features) != t.NumFeatures {
		return 0, newPredictDimensionError(t.NumFeatures, len(features))
	}
	return Traverse(t.Nodes, features), nil
}

// Depth returns the depth of the tree: the number of edges on the longest
// path from the root to a leaf. A single-leaf tree has depth 0.
func (t *Tree) Depth() int {
	return nodeDepth(t.Nodes, 0)
}

func nodeDepth(nodes []Node, idx int) int {
	if idx < 0 || idx >= len(nodes) || nodes[idx].IsLeaf() {
		return 0
	}
	left := nodeDepth(nodes, nodes[idx].LeftChild)
	right := nodeDepth(nodes, nodes[idx].RightChild)
	if left > right {
		return left + 1
	}
	return right + 1
}

// NumLeaves returns the number of leaf nodes in the tree.
func (t *Tree) NumLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}

// NumSplits returns the number of internal (split) nodes in the tree.
func (t *Tree) NumSplits() int {
	return len(t.Nodes) - t.NumLeaves()
}
