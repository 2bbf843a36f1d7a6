package tree

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the impurity measure: "gini" (default), "entropy" or "log_loss".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth bounds the depth of the tree. The root has depth 0.
// A value <= 0 grows the tree until every leaf is pure or cannot be split.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples each child must keep.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMinImpurityDecrease makes a node a leaf unless its best split decreases
// the weighted impurity by at least v.
func WithMinImpurityDecrease(v float64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minImpurityDecrease = v
	}
}

// WithParallelThreshold sets the number of features above which the split
// search runs on several goroutines.
func WithParallelThreshold(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.parallelThreshold = n
	}
}
