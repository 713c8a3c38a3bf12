package ensemble

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/PavloICSA/netcraft-ai-sub000/core/model"
	"github.com/PavloICSA/netcraft-ai-sub000/core/parallel"
	"github.com/PavloICSA/netcraft-ai-sub000/metrics"
	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
	"github.com/PavloICSA/netcraft-ai-sub000/pkg/log"
	"github.com/PavloICSA/netcraft-ai-sub000/tree"
)

// Prediction is the result of running one feature vector through the forest.
type Prediction struct {
	// Value is the aggregated prediction: the majority class for
	// classification, the mean for regression.
	Value float64 `json:"prediction"`

	// Confidence is the tree agreement score in (0, 1].
	Confidence float64 `json:"confidence"`

	// TreeVotes are the raw per-tree predictions in tree order.
	TreeVotes []float64 `json:"treeVotes,omitempty"`
}

// TrainingHistory records how training progressed: the completion counts in
// the order progress was reported, the out-of-bag score after each tree in
// tree order, and the total wall time in milliseconds.
type TrainingHistory struct {
	TreesCompleted []int     `json:"treesCompleted"`
	OOBScores      []float64 `json:"oobScores"`
	TrainingTime   int64     `json:"trainingTime"`
}

// RandomForest is a bagging ensemble of CART trees. Each tree trains on an
// independent bootstrap sample restricted to an independent feature subset;
// predictions aggregate over all trees and the rows left out of each
// bootstrap provide a validation score without a held-out test set.
//
// A forest is built once per Fit call and never mutated afterwards; fitting
// again replaces the trained state wholesale.
type RandomForest struct {
	state  *model.StateManager
	logger log.Logger

	config       Config
	featureNames []string
	progress     ProgressFunc
	callbacks    *CallbackList

	trees       []*tree.Tree
	importances []float64
	oobScore    float64
	history     TrainingHistory
}

// errStopTraining signals cooperative truncation requested by a callback.
var errStopTraining = errors.New("stop training")

// New creates an untrained forest after validating the config. Invalid
// configs are rejected with a ConfigError naming every violation.
func New(config Config) (*RandomForest, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &RandomForest{
		state:     model.NewStateManager(),
		logger:    log.GetLoggerWithName("ensemble.forest"),
		config:    config,
		callbacks: NewCallbackList(),
	}, nil
}

// Config returns the training configuration.
func (rf *RandomForest) Config() Config {
	return rf.config
}

// SetFeatureNames records column names for importance reporting. The length
// is checked against the training matrix at Fit time.
func (rf *RandomForest) SetFeatureNames(names []string) {
	rf.featureNames = names
}

// FeatureNames returns the recorded column names, nil when unset.
func (rf *RandomForest) FeatureNames() []string {
	return rf.featureNames
}

// SetProgress registers a progress callback invoked after each completed
// tree round.
func (rf *RandomForest) SetProgress(fn ProgressFunc) {
	rf.progress = fn
}

// AddCallback registers a per-round training callback.
func (rf *RandomForest) AddCallback(cb Callback) {
	rf.callbacks.Add(cb)
}

// Fit trains the forest on X and the n×1 target matrix y.
func (rf *RandomForest) Fit(X, y mat.Matrix) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext trains the forest, checking ctx between tree rounds so a
// caller can cancel a long run. On cancellation the context error is
// returned and the forest stays untrained.
//
// Tree rounds are independent and fan out over a bounded worker pool. Each
// round derives its own random stream from the configured seed and its tree
// index, so seeded runs build identical forests regardless of scheduling.
// A round that cannot produce a tree is logged and skipped; training fails
// only when no tree at all could be built.
func (rf *RandomForest) FitContext(ctx context.Context, X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForest.Fit")

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows != yRows {
		return errors.NewDimensionError("Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("Fit", 1, yCols, 1)
	}
	if rows == 0 {
		return errors.Wrap(errors.ErrEmptyData, "RandomForest.Fit")
	}
	if err := rf.config.Validate(); err != nil {
		return err
	}
	if rf.featureNames != nil && len(rf.featureNames) != cols {
		return errors.NewDimensionError("Fit", cols, len(rf.featureNames), 1)
	}

	targets := make([]float64, rows)
	for i := 0; i < rows; i++ {
		targets[i] = y.At(i, 0)
	}

	baseSeed := time.Now().UnixNano()
	if rf.config.RandomSeed != nil {
		baseSeed = *rf.config.RandomSeed
	}

	numTrees := rf.config.NumTrees
	featureCount := FeatureSampleSize(cols, rf.config.FeatureSamplingRatio)

	rf.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseTraining,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.TreesKey, numTrees,
		"feature_subset_size", featureCount,
		log.RandomSeedKey, baseSeed)

	begin := time.Now()
	built := make([]*tree.Tree, numTrees)

	var mu sync.Mutex
	completed := 0
	var completedOrder []int
	stopped := false

	workers := runtime.NumCPU()
	if workers > numTrees {
		workers = numTrees
	}

	trainErr := parallel.ForEach(ctx, numTrees, workers, func(i int) error {
		mu.Lock()
		stop := stopped
		mu.Unlock()
		if stop {
			return errStopTraining
		}

		rng := rand.New(rand.NewSource(baseSeed + int64(i)))

		sampleRows, oob, err := BootstrapSample(rng, rows, rf.config.BootstrapSampleRatio)
		if err != nil {
			return err
		}
		featureSubset := SampleFeatures(rng, cols, featureCount)

		t, buildErr := tree.Build(X, targets, sampleRows, tree.BuildOptions{
			Task:           rf.config.TaskType,
			MaxDepth:       rf.config.MaxDepth.Resolve(),
			MinSamplesLeaf: rf.config.MinSamplesLeaf,
			FeatureIndices: featureSubset,
			OOBIndices:     oob,
		})

		mu.Lock()
		defer mu.Unlock()

		if buildErr != nil {
			errors.Warn(errors.NewDegenerateTreeWarning(i, buildErr.Error()))
		} else {
			built[i] = t
		}

		completed++
		completedOrder = append(completedOrder, completed)
		percent := float64(completed) / float64(numTrees) * 100
		if rf.progress != nil {
			rf.progress(percent, completed)
		}

		env := &CallbackEnv{
			TreesCompleted: completed,
			TotalTrees:     numTrees,
			BeginTime:      begin,
		}
		if cbErr := rf.callbacks.Run(env); cbErr != nil {
			return cbErr
		}
		if env.StopTraining {
			stopped = true
		}
		return nil
	})
	if trainErr != nil && !errors.Is(trainErr, errStopTraining) {
		return trainErr
	}

	trees := make([]*tree.Tree, 0, numTrees)
	for _, t := range built {
		if t != nil {
			trees = append(trees, t)
		}
	}
	if len(trees) == 0 {
		return errors.NewModelError("RandomForest.Fit", "training",
			errors.New("no tree could be built from the training data"))
	}

	oobTrace := oobScoreTrace(trees, X, targets, rf.config.TaskType)

	rf.trees = trees
	rf.importances = ForestImportances(trees, cols)
	rf.history = TrainingHistory{
		TreesCompleted: completedOrder,
		OOBScores:      oobTrace,
		TrainingTime:   time.Since(begin).Milliseconds(),
	}
	rf.oobScore = 0
	if len(oobTrace) > 0 {
		rf.oobScore = oobTrace[len(oobTrace)-1]
	}
	rf.state.SetDimensions(cols, rows)
	rf.state.SetTrained()

	rf.logger.Info("Training finished",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhaseValidation,
		log.TreesCompletedKey, len(trees),
		log.OOBScoreKey, rf.oobScore,
		log.DurationMsKey, rf.history.TrainingTime)

	return nil
}

// oobAccum folds the out-of-bag predictions for one sample. Classification
// keeps vote counts with the same first-to-reach-maximum tie-break as
// AggregatePredictions; regression keeps a running mean.
type oobAccum struct {
	votes     map[float64]int
	best      float64
	bestCount int
	sum       float64
	count     int
}

// oobScoreTrace computes the out-of-bag score after each tree, in tree
// order. For every sample held out of at least one bootstrap, predictions
// aggregate only over the trees holding that sample out. Classification
// scores exact matches; regression counts a prediction correct when its
// absolute error is within 10% of the target magnitude, a coarse accuracy
// proxy rather than a calibrated regression score.
func oobScoreTrace(trees []*tree.Tree, X mat.Matrix, targets []float64, task tree.Task) []float64 {
	_, cols := X.Dims()
	accums := make(map[int]*oobAccum)
	features := make([]float64, cols)
	trace := make([]float64, 0, len(trees))

	for _, t := range trees {
		for _, idx := range t.OOBIndices {
			mat.Row(features, idx, X)
			pred := tree.Traverse(t.Nodes, features)
			if err := errors.CheckScalar("oob_prediction", pred, idx); err != nil {
				errors.Warn(err)
				continue
			}

			acc := accums[idx]
			if acc == nil {
				acc = &oobAccum{}
				if task == tree.TaskClassification {
					acc.votes = make(map[float64]int)
				}
				accums[idx] = acc
			}
			if task == tree.TaskClassification {
				acc.votes[pred]++
				if acc.votes[pred] > acc.bestCount {
					acc.bestCount = acc.votes[pred]
					acc.best = pred
				}
			} else {
				acc.sum += pred
				acc.count++
			}
		}
		trace = append(trace, oobScoreOf(accums, targets, task))
	}
	return trace
}

func oobScoreOf(accums map[int]*oobAccum, targets []float64, task tree.Task) float64 {
	if len(accums) == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("oob_score", "empty out-of-bag set", 0))
		return 0
	}
	correct := 0
	for idx, acc := range accums {
		truth := targets[idx]
		if task == tree.TaskClassification {
			if acc.best == truth {
				correct++
			}
			continue
		}
		pred := acc.sum / float64(acc.count)
		if math.Abs(pred-truth) <= 0.1*math.Abs(truth) {
			correct++
		}
	}
	return float64(correct) / float64(len(accums))
}

// Predict runs one feature vector through every tree and aggregates the
// votes into a Prediction.
func (rf *RandomForest) Predict(features []float64) (*Prediction, error) {
	if !rf.state.IsTrained() {
		return nil, errors.NewNotTrainedError("RandomForest", "Predict")
	}
	nFeatures, _ := rf.state.GetDimensions()
	if len(features) != nFeatures {
		return nil, errors.NewDimensionError("Predict", nFeatures, len(features), 1)
	}

	votes := make([]float64, len(rf.trees))
	for i, t := range rf.trees {
		votes[i] = tree.Traverse(t.Nodes, features)
	}

	value, err := AggregatePredictions(votes, rf.config.TaskType)
	if err != nil {
		return nil, err
	}
	return &Prediction{
		Value:      value,
		Confidence: PredictionConfidence(votes, rf.config.TaskType, value),
		TreeVotes:  votes,
	}, nil
}

// PredictBatch maps Predict over the given vectors, fanning out over a
// worker pool. Results are element-wise identical to sequential Predict
// calls.
func (rf *RandomForest) PredictBatch(vectors [][]float64) ([]*Prediction, error) {
	if !rf.state.IsTrained() {
		return nil, errors.NewNotTrainedError("RandomForest", "PredictBatch")
	}

	results := make([]*Prediction, len(vectors))
	workers := runtime.NumCPU()
	err := parallel.ForEach(context.Background(), len(vectors), workers, func(i int) error {
		p, err := rf.Predict(vectors[i])
		if err != nil {
			return err
		}
		results[i] = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// PredictMatrix predicts every row of X and returns an n×1 matrix of
// aggregated values, the estimator-style surface over Predict. Rows fan out
// over CPU cores in contiguous chunks.
func (rf *RandomForest) PredictMatrix(X mat.Matrix) (mat.Matrix, error) {
	if !rf.state.IsTrained() {
		return nil, errors.NewNotTrainedError("RandomForest", "PredictMatrix")
	}

	rows, cols := X.Dims()
	nFeatures, _ := rf.state.GetDimensions()
	if cols != nFeatures {
		return nil, errors.NewDimensionError("PredictMatrix", nFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	var (
		mu      sync.Mutex
		predErr error
	)
	parallel.Parallelize(rows, func(start, end int) {
		features := make([]float64, cols)
		for i := start; i < end; i++ {
			mat.Row(features, i, X)
			p, err := rf.Predict(features)
			if err != nil {
				mu.Lock()
				if predErr == nil {
					predErr = err
				}
				mu.Unlock()
				return
			}
			out.Set(i, 0, p.Value)
		}
	})
	if predErr != nil {
		return nil, predErr
	}
	return out, nil
}

// Score evaluates the forest on X against y: accuracy for classification,
// R² for regression.
func (rf *RandomForest) Score(X, y mat.Matrix) (float64, error) {
	if !rf.state.IsTrained() {
		return 0, errors.NewNotTrainedError("RandomForest", "Score")
	}

	predictions, err := rf.PredictMatrix(X)
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

	if rf.config.TaskType == tree.TaskClassification {
		return metrics.Accuracy(yVec, predVec)
	}
	return metrics.R2Score(yVec, predVec)
}

// IsTrained reports whether the forest has been fitted.
func (rf *RandomForest) IsTrained() bool {
	return rf.state.IsTrained()
}

// NumTrees returns the number of trees actually built.
func (rf *RandomForest) NumTrees() int {
	return len(rf.trees)
}

// Trees returns the trained trees in order. The slice must not be modified.
func (rf *RandomForest) Trees() []*tree.Tree {
	return rf.trees
}

// OOBScore returns the final out-of-bag score.
func (rf *RandomForest) OOBScore() float64 {
	return rf.oobScore
}

// History returns the training history.
func (rf *RandomForest) History() TrainingHistory {
	return rf.history
}

// FeatureImportances returns the normalized mean-decrease-in-impurity
// vector, one entry per feature column.
func (rf *RandomForest) FeatureImportances() []float64 {
	return rf.importances
}

// ImportanceByName maps feature names to importances. Columns fall back to
// their index when no names were set.
func (rf *RandomForest) ImportanceByName() map[string]float64 {
	out := make(map[string]float64, len(rf.importances))
	for i, v := range rf.importances {
		name := ""
		if i < len(rf.featureNames) {
			name = rf.featureNames[i]
		}
		if name == "" {
			name = "feature_" + strconv.Itoa(i)
		}
		out[name] = v
	}
	return out
}
