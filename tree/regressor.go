package tree

import (
	"gonum.org/v1/gonum/mat"

	"github.com/PavloICSA/netcraft-ai-sub000/core/model"
	"github.com/PavloICSA/netcraft-ai-sub000/metrics"
	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
	"github.com/PavloICSA/netcraft-ai-sub000/pkg/log"
)

// DecisionTreeRegressor is a CART regressor with a scikit-learn-like API.
// Splits minimize within-node variance; leaves predict the target mean.
type DecisionTreeRegressor struct {
	state *model.StateManager

	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int

	tree         *Tree
	nFeatures_   int
	importances_ []float64
}

// NewDecisionTreeRegressor creates a regressor with the given options. The
// criterion option is accepted for interface symmetry but regressors always
// split on variance.
func NewDecisionTreeRegressor(opts ...Option) *DecisionTreeRegressor {
	o := &estimatorOptions{
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return &DecisionTreeRegressor{
		state:           model.NewStateManager(),
		maxDepth:        o.maxDepth,
		minSamplesSplit: o.minSamplesSplit,
		minSamplesLeaf:  o.minSamplesLeaf,
	}
}

// Fit trains the regressor on X and the n×1 target matrix y.
func (dt *DecisionTreeRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeRegressor.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("Fit", 1, yCols, 1)
	}
	if rows == 0 {
		return errors.Wrap(errors.ErrEmptyData, "DecisionTreeRegressor.Fit")
	}

	targets := make([]float64, rows)
	for i := 0; i < rows; i++ {
		targets[i] = y.At(i, 0)
	}

	allRows := make([]int, rows)
	for i := range allRows {
		allRows[i] = i
	}

	t, err := Build(X, targets, allRows, BuildOptions{
		Task:            TaskRegression,
		Criterion:       CriterionMSE,
		MaxDepth:        dt.maxDepth,
		MinSamplesSplit: dt.minSamplesSplit,
		MinSamplesLeaf:  dt.minSamplesLeaf,
	})
	if err != nil {
		return err
	}

	dt.tree = t
	dt.nFeatures_ = cols
	dt.importances_ = treeImportances(t, cols)
	dt.state.SetDimensions(cols, rows)
	dt.state.SetTrained()

	logger := log.GetLoggerWithName("tree.regressor")
	logger.Debug("Regressor trained",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"depth", t.Depth(),
		"splits", t.NumSplits())

	return nil
}

// Predict returns the predicted value for each input row as an n×1 matrix.
func (dt *DecisionTreeRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !dt.state.IsTrained() {
		return nil, errors.NewNotTrainedError("DecisionTreeRegressor", "Predict")
	}

	rows, cols := X.Dims()
	if cols != dt.nFeatures_ {
		return nil, errors.NewDimensionError("Predict", dt.nFeatures_, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		out.Set(i, 0, Traverse(dt.tree.Nodes, features))
	}
	return out, nil
}

// Score returns the coefficient of determination R² on the given data.
func (dt *DecisionTreeRegressor) Score(X, y mat.Matrix) (float64, error) {
	if !dt.state.IsTrained() {
		return 0, errors.NewNotTrainedError("DecisionTreeRegressor", "Score")
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
	return metrics.R2Score(yVec, predVec)
}

// GetFeatureImportances returns the normalized impurity-decrease importance
// of each feature.
func (dt *DecisionTreeRegressor) GetFeatureImportances() []float64 {
	return dt.importances_
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeRegressor) GetDepth() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.Depth()
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeRegressor) GetNLeaves() int {
	if dt.tree == nil {
		return 0
	}
	return dt.tree.NumLeaves()
}

// GetParams returns the regressor's hyperparameters.
func (dt *DecisionTreeRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
	}
}

// SetParams sets hyperparameters by name. Unknown keys are ignored.
func (dt *DecisionTreeRegressor) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
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
