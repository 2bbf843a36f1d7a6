package tree

import (
	"fmt"

	"github.com/YuminosukeSato/dtreegen/pkg/errors"
)

const (
	// TreeLeaf marks the children of a leaf node.
	TreeLeaf = -1
	// TreeUndefined marks the feature and threshold of a leaf node.
	TreeUndefined = -2
)

// Tree is the fitted binary tree in parallel-array form. Node 0 is the root
// and node ids follow pre-order (left subtree before right subtree).
//
// For an internal node i, samples with x[Feature[i]] <= Threshold[i] go to
// ChildrenLeft[i], the others to ChildrenRight[i].
type Tree struct {
	ChildrenLeft  []int
	ChildrenRight []int
	Feature       []int
	Threshold     []float64
	Impurity      []float64
	NNodeSamples  []int
	// Value holds the training class counts of each node, indexed like Classes.
	Value [][]float64
	// Classes are the class codes in ascending order.
	Classes []int

	MaxDepth int
}

func newTree(classes []int) *Tree {
	return &Tree{Classes: classes}
}

func (t *Tree) addNode(counts []float64, impurity float64, nSamples int) int {
	id := len(t.Feature)
	t.ChildrenLeft = append(t.ChildrenLeft, TreeLeaf)
	t.ChildrenRight = append(t.ChildrenRight, TreeLeaf)
	t.Feature = append(t.Feature, TreeUndefined)
	t.Threshold = append(t.Threshold, TreeUndefined)
	t.Impurity = append(t.Impurity, impurity)
	t.NNodeSamples = append(t.NNodeSamples, nSamples)
	t.Value = append(t.Value, counts)
	return id
}

// NodeCount returns the number of nodes.
func (t *Tree) NodeCount() int {
	return len(t.Feature)
}

// IsLeaf reports whether node has no children.
func (t *Tree) IsLeaf(node int) bool {
	return t.ChildrenLeft[node] == TreeLeaf
}

// Split returns the feature index and threshold tested at node.
func (t *Tree) Split(node int) (feature int, threshold float64) {
	return t.Feature[node], t.Threshold[node]
}

// Children returns the left and right child ids of node.
func (t *Tree) Children(node int) (left, right int) {
	return t.ChildrenLeft[node], t.ChildrenRight[node]
}

// MajorityClass returns the class code with the largest training count at
// node. Ties go to the lowest class index.
func (t *Tree) MajorityClass(node int) int {
	return t.Classes[argmax(t.Value[node])]
}

// Depth returns the depth of the deepest leaf. A single-leaf tree has depth 0.
func (t *Tree) Depth() int {
	return t.MaxDepth
}

// NLeaves returns the number of leaves.
func (t *Tree) NLeaves() int {
	n := 0
	for i := range t.ChildrenLeft {
		if t.IsLeaf(i) {
			n++
		}
	}
	return n
}

// apply returns the leaf reached by x.
func (t *Tree) apply(x []float64) int {
	node := 0
	for !t.IsLeaf(node) {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return node
}

// featureImportances は各特徴量の重み付き不純度減少量の合計を正規化して返す。
// 分割が1つもない場合は全て0。
func (t *Tree) featureImportances(nFeatures int) []float64 {
	imp := make([]float64, nFeatures)
	if t.NodeCount() == 0 {
		return imp
	}
	for i := 0; i < t.NodeCount(); i++ {
		if t.IsLeaf(i) {
			continue
		}
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		imp[t.Feature[i]] += float64(t.NNodeSamples[i])*t.Impurity[i] -
			float64(t.NNodeSamples[l])*t.Impurity[l] -
			float64(t.NNodeSamples[r])*t.Impurity[r]
	}

	total := 0.0
	root := float64(t.NNodeSamples[0])
	for f := range imp {
		imp[f] = errors.SafeDivide(imp[f], root)
		total += imp[f]
	}
	// 改善量ゼロの分割だけなら全て0のまま
	for f := range imp {
		imp[f] = errors.SafeDivide(imp[f], total)
	}
	return imp
}

// String renders the tree for debugging.
func (t *Tree) String() string {
	s := ""
	var walk func(node, depth int)
	walk = func(node, depth int) {
		pad := fmt.Sprintf("%*s", depth*2, "")
		if t.IsLeaf(node) {
			s += fmt.Sprintf("%sleaf #%d class=%d value=%v\n", pad, node, t.MajorityClass(node), t.Value[node])
			return
		}
		s += fmt.Sprintf("%s#%d x[%d] <= %g (impurity=%.4f, n=%d)\n", pad, node, t.Feature[node], t.Threshold[node], t.Impurity[node], t.NNodeSamples[node])
		walk(t.ChildrenLeft[node], depth+1)
		walk(t.ChildrenRight[node], depth+1)
	}
	if t.NodeCount() > 0 {
		walk(0, 0)
	}
	return s
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
