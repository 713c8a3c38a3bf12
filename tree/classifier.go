package tree

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/PavloICSA/netcraft-ai-sub000/core/model"
	"github.com/PavloICSA/netcraft-ai-sub000/metrics"
	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
	"github.com/PavloICSA/netcraft-ai-sub000/pkg/log"
)

// Option configures a decision tree estimator.
type Option func(*estimatorOptions)

type estimatorOptions struct {
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
}

// WithCriterion sets the splitting criterion ("gini" or "entropy" for
// classification; regressors always use variance).
func WithCriterion(criterion string) Option {
	return func(o *estimatorOptions) {
		o.criterion = criterion
	}
}

// WithMaxDepth sets the maximum tree depth. Zero means unlimited.
func WithMaxDepth(depth int) Option {
	return func(o *estimatorOptions) {
		o.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split
// a node.
func WithMinSamplesSplit(n int) Option {
	return func(o *estimatorOptions) {
		o.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples per leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(o *estimatorOptions) {
		o.minSamplesLeaf = n
	}
}

// DecisionTreeClassifier is a CART classifier with a scikit-learn-like API.
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int

	// Learned state
	tree         *Tree
	classes_     []float64
	nClasses_    int
	nFeatures_   int
	importances_ []float64
}

// NewDecisionTreeClassifier creates a classifier with the given options.
// Defaults: gini criterion, unlimited depth, min_samples_split=2,
// min_samples_leaf=1.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	o := &estimatorOptions{
		criterion:       string(CriterionGini),
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       o.criterion,
		maxDepth:        o.maxDepth,
		minSamplesSplit: o.minSamplesSplit,
		minSamplesLeaf:  o.minSamplesLeaf,
	}
}

// Fit trains the classifier. y must be an n×1 matrix of class labels; the
// distinct labels are remembered and may be arbitrary numeric values.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("Fit", 1, yCols, 1)
	}
	if rows == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTreeClassifier.Fit")
	}

	// Collect distinct labels and remap targets onto 0..k-1 so leaves can
	// carry dense probability distributions.
	seen := make(map[float64]bool)
	for i := 0; i < rows; i++ {
		seen[y.At(i, 0)] = true
	}
	classes := make([]float64, 0, len(seen))
	for label := range seen {
		classes = append(classes, label)
	}
	sort.Float64s(classes)

	classIndex := make(map[float64]int, len(classes))
	for i, label := range classes {
		classIndex[label] = i
	}

	targets := make([]float64, rows)
	for i := 0; i < rows; i++ {
		targets[i] = float64(classIndex[y.At(i, 0)])
	}

	allRows := make([]int, rows)
	for i := range allRows {
		allRows[i] = i
	}

	t, err := Build(X, targets, allRows, BuildOptions{
		Task:            TaskClassification,
		Criterion:       Criterion(dt.criterion),
		MaxDepth:        dt.maxDepth,
		MinSamplesSplit: dt.minSamplesSplit,
		MinSamplesLeaf:  dt.minSamplesLeaf,
		NumClasses:      len(classes),
	})
	if err != nil {
		return err
	}

	dt.tree = t
	dt.classes_ = classes
	dt.nClasses_ = len(classes)
	dt.nFeatures_ = cols
	dt.importances_ = treeImportances(t, cols)
	dt.state.SetDimensions(cols, rows)
	dt.state.SetTrained()

	logger := log.GetLoggerWithName("tree.classifier")
	logger.Debug("Classifier trained",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"classes", len(classes),
		"depth", t.Depth(),
		"splits", t.NumSplits())

	return nil
}

// Predict returns the predicted class label for each input row as an n×1
// matrix.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !dt.state.IsTrained() {
		return nil, errors.NewNotTrainedError("DecisionTreeClassifier", "Predict")
	}

	rows, cols := X.Dims()
	if cols != dt.nFeatures_ {
		return nil, errors.NewDimensionError("Predict", dt.nFeatures_, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		idx := int(Traverse(dt.tree.Nodes, features) + 0.5)
		out.Set(i, 0, dt.classes_[idx])
	}
	return out, nil
}

// PredictProba returns an n×k matrix of class probabilities, columns ordered
// by ascending class label.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if !dt.state.IsTrained() {
		return nil, errors.NewNotTrainedError("DecisionTreeClassifier", "PredictProba")
	}

	rows, cols := X.Dims()
	if cols != dt.nFeatures_ {
		return nil, errors.NewDimensionError("PredictProba", dt.nFeatures_, cols, 1)
	}

	out := mat.NewDense(rows, dt.nClasses_, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		leaf := TraverseLeaf(dt.tree.Nodes, features)
		if leaf == nil || leaf.Distribution == nil {
			continue
		}
		for j := 0; j < dt.nClasses_; j++ {
			out.Set(i, j, leaf.Distribution[j])
		}
	}
	return out, nil
}

// Score returns the accuracy of the classifier on the given data.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	if !dt.state.IsTrained() {
		return 0, errors.NewNotTrainedError("DecisionTreeClassifier", "Score")
	}

	predictions, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}

	rows, _ := y.Dims()
	yVec := mat.NewVecDense(rows, nil)
	predVec := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yVec.SetVec(i, y.At(i, 0))
		predVec.SetVec(i, predictions.At(i, 0))
	}
	return metrics.Accuracy(yVec, predVec)
}

// Classes returns the distinct class labels seen during fitting, ascending.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return dt.classes_
}

// GetFeatureImportances returns the normalized mean-decrease-in-impurity
// importance of each feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return dt.importances_
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.Depth()
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.NumLeaves()
}

// GetParams returns the classifier's hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
	}
}

// SetParams sets hyperparameters by name. Unknown keys are ignored.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "criterion":
			if v, ok := value.(string); ok {
				dt.criterion = v
			}
		case "max_depth":
			if v, ok := value.(int); ok {
				dt.maxDepth = v
			}
		case "min_samples_split":
			if v, ok := value.(int); ok {
				dt.minSamplesSplit = v
			}
		case "min_samples_leaf":
			if v, ok := value.(int); ok {
				dt.minSamplesLeaf = v
			}
		}
	}
	return nil
}

// treeImportances accumulates impurity-decrease importance over the split
// nodes of one tree and normalizes the vector to sum to 1 (all-zero when no
// split contributed).
func treeImportances(t *Tree, numFeatures int) []float64 {
	importances := make([]float64, numFeatures)
	for i := range t.Nodes {
		node := &t.Nodes[i]
		if node.IsLeaf() {
			continue
		}
		importances[node.SplitFeature] += node.Gain * float64(node.SampleCount)
	}

	total := 0.0
	for _, v := range importances {
		total += v
	}
	if total > 0 {
		for i := range importances {
			importances[i] /= total
		}
	}
	return importances
}
