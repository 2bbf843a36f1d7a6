// Package tree implements a CART decision tree classifier compatible with
// scikit-learn's DecisionTreeClassifier.
package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/dtreegen/core/model"
	"github.com/YuminosukeSato/dtreegen/pkg/errors"
)

const modelName = "DecisionTreeClassifier"

// DecisionTreeClassifier is a binary-split CART classifier.
//
// Splits are chosen greedily by the largest impurity decrease over every
// feature and every midpoint threshold. The search is deterministic: equal
// decreases go to the lowest feature index, then the lowest threshold.
type DecisionTreeClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	criterion           string  // "gini", "entropy", "log_loss"
	maxDepth            int     // <= 0 means unbounded
	minSamplesSplit     int     // Minimum samples to split an internal node
	minSamplesLeaf      int     // Minimum samples in each leaf
	minImpurityDecrease float64 // Minimum weighted impurity decrease per split
	parallelThreshold   int     // Features above which the split search is parallel

	// Model parameters
	tree_               *Tree
	classes_            []int     // Sorted class codes
	nClasses_           int       // Number of classes
	nFeatures_          int       // Number of features
	featureImportances_ []float64 // Normalised impurity-based importances
}

var (
	_ model.Classifier         = (*DecisionTreeClassifier)(nil)
	_ model.FeatureImportancer = (*DecisionTreeClassifier)(nil)
)

// NewDecisionTreeClassifier creates a new DecisionTreeClassifier.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:             model.NewStateManager(),
		criterion:         "gini",
		maxDepth:          -1,
		minSamplesSplit:   2,
		minSamplesLeaf:    1,
		parallelThreshold: 8,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// Fit builds the tree from X (n×p) and y (n×1 integer class codes).
//
// With fewer than two distinct classes the fit succeeds with a single leaf
// and a TrivialTreeWarning is raised.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")

	impurity, err := dt.validateParams()
	if err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTreeClassifier.Fit")
	}
	if nSamples != yRows {
		return errors.NewDimensionError("Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewInputShapeError("training", []int{nSamples, 1}, []int{yRows, yCols})
	}
	if err := errors.CheckMatrix("Fit", X, nSamples, nFeatures); err != nil {
		return err
	}

	dt.state.Reset()

	yIdx, err := dt.extractClasses(y)
	if err != nil {
		return err
	}
	dt.nFeatures_ = nFeatures

	cols := make([][]float64, nFeatures)
	for f := 0; f < nFeatures; f++ {
		cols[f] = make([]float64, nSamples)
		for i := 0; i < nSamples; i++ {
			cols[f][i] = X.At(i, f)
		}
	}

	b := &builder{
		cols:                cols,
		y:                   yIdx,
		nClasses:            dt.nClasses_,
		impurity:            impurity,
		maxDepth:            dt.maxDepth,
		minSamplesSplit:     dt.minSamplesSplit,
		minSamplesLeaf:      dt.minSamplesLeaf,
		minImpurityDecrease: dt.minImpurityDecrease,
		parallelThreshold:   dt.parallelThreshold,
		nTotal:              nSamples,
		tree:                newTree(dt.classes_),
	}
	samples := make([]int, nSamples)
	for i := range samples {
		samples[i] = i
	}
	b.grow(samples, 0)

	dt.tree_ = b.tree
	dt.featureImportances_ = dt.tree_.featureImportances(nFeatures)

	if dt.nClasses_ < 2 {
		errors.Warn(errors.NewTrivialTreeWarning(dt.nClasses_, nSamples))
	}

	dt.state.SetFitted(nFeatures, nSamples)
	return nil
}

func (dt *DecisionTreeClassifier) validateParams() (impurityFunc, error) {
	impurity, err := criterionFunc(dt.criterion)
	if err != nil {
		return nil, err
	}
	if dt.minSamplesSplit < 2 {
		return nil, errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return nil, errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	if dt.minImpurityDecrease < 0 {
		return nil, errors.NewValidationError("min_impurity_decrease", "must be non-negative", dt.minImpurityDecrease)
	}
	return impurity, nil
}

// extractClasses はクラスコードを昇順に並べ、各サンプルのクラスインデックスを返す
func (dt *DecisionTreeClassifier) extractClasses(y mat.Matrix) ([]int, error) {
	rows, _ := y.Dims()
	codes := make([]int, rows)
	seen := make(map[int]bool)
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, errors.NewValueError("Fit", "class codes must be integers")
		}
		codes[i] = int(v)
		seen[codes[i]] = true
	}

	dt.classes_ = make([]int, 0, len(seen))
	for c := range seen {
		dt.classes_ = append(dt.classes_, c)
	}
	sort.Ints(dt.classes_)
	dt.nClasses_ = len(dt.classes_)

	index := make(map[int]int, dt.nClasses_)
	for i, c := range dt.classes_ {
		index[c] = i
	}
	for i, c := range codes {
		codes[i] = index[c]
	}
	return codes, nil
}

func (dt *DecisionTreeClassifier) checkPredictInput(method string, X mat.Matrix) error {
	if err := dt.state.RequireFitted(modelName, method); err != nil {
		return err
	}
	_, cols := X.Dims()
	return dt.state.RequireFeatures(method, cols)
}

func row(X mat.Matrix, i, nFeatures int) []float64 {
	x := make([]float64, nFeatures)
	for j := range x {
		x[j] = X.At(i, j)
	}
	return x
}

// Predict returns the majority class code of the leaf reached by each sample.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredictInput("Predict", X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	pred := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		leaf := dt.tree_.apply(row(X, i, dt.nFeatures_))
		pred.Set(i, 0, float64(dt.tree_.MajorityClass(leaf)))
	}
	return pred, nil
}

// PredictProba returns the class fractions of the reached leaf, one column
// per entry of Classes.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredictInput("PredictProba", X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	proba := mat.NewDense(rows, dt.nClasses_, nil)
	for i := 0; i < rows; i++ {
		leaf := dt.tree_.apply(row(X, i, dt.nFeatures_))
		n := float64(dt.tree_.NNodeSamples[leaf])
		for k, c := range dt.tree_.Value[leaf] {
			proba.Set(i, k, c/n)
		}
	}
	return proba, nil
}

// Apply returns the id of the leaf each sample ends up in.
func (dt *DecisionTreeClassifier) Apply(X mat.Matrix) ([]int, error) {
	if err := dt.checkPredictInput("Apply", X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	leaves := make([]int, rows)
	for i := range leaves {
		leaves[i] = dt.tree_.apply(row(X, i, dt.nFeatures_))
	}
	return leaves, nil
}

// Score returns the mean accuracy on the given data. It returns 0 if the
// model cannot predict X.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0.0
	}

	nSamples, _ := X.Dims()
	if nSamples == 0 {
		return 0.0
	}
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// Tree returns the fitted tree.
func (dt *DecisionTreeClassifier) Tree() (*Tree, error) {
	if err := dt.state.RequireFitted(modelName, "Tree"); err != nil {
		return nil, err
	}
	return dt.tree_, nil
}

// Classes returns the class codes seen during Fit in ascending order.
func (dt *DecisionTreeClassifier) Classes() []int {
	return append([]int(nil), dt.classes_...)
}

// GetFeatureImportances returns the normalised impurity-based importances,
// or nil before Fit.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	if dt.featureImportances_ == nil {
		return nil
	}
	return append([]float64(nil), dt.featureImportances_...)
}

// GetDepth returns the depth of the fitted tree, or 0 before Fit.
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.Depth()
}

// GetNLeaves returns the number of leaves of the fitted tree, or 0 before Fit.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.NLeaves()
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             dt.criterion,
		"max_depth":             dt.maxDepth,
		"min_samples_split":     dt.minSamplesSplit,
		"min_samples_leaf":      dt.minSamplesLeaf,
		"min_impurity_decrease": dt.minImpurityDecrease,
	}
}

// SetParams sets hyperparameters by their scikit-learn names.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "criterion":
			ok = setParam(&dt.criterion, value)
		case "max_depth":
			ok = setParam(&dt.maxDepth, value)
		case "min_samples_split":
			ok = setParam(&dt.minSamplesSplit, value)
		case "min_samples_leaf":
			ok = setParam(&dt.minSamplesLeaf, value)
		case "min_impurity_decrease":
			ok = setParam(&dt.minImpurityDecrease, value)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "unexpected type", value)
		}
	}
	return nil
}

func setParam[T any](dst *T, value interface{}) bool {
	v, ok := value.(T)
	if ok {
		*dst = v
	}
	return ok
}
