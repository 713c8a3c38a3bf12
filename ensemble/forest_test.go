package ensemble

import (
	"context"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
	"github.com/PavloICSA/netcraft-ai-sub000/tree"
)

func seededConfig(task tree.Task, numTrees int, seed int64) Config {
	c := DefaultConfig(task)
	c.NumTrees = numTrees
	c.RandomSeed = &seed
	return c
}

// classificationData returns two well-separated clusters.
func classificationData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(12, 2, []float64{
		0.0, 0.1,
		0.2, 0.0,
		0.1, 0.3,
		0.3, 0.2,
		0.0, 0.4,
		0.4, 0.1,
		5.0, 5.1,
		5.2, 5.0,
		5.1, 5.3,
		5.3, 5.2,
		5.0, 5.4,
		5.4, 5.1,
	})
	y := mat.NewDense(12, 1, []float64{
		0, 0, 0, 0, 0, 0,
		1, 1, 1, 1, 1, 1,
	})
	return X, y
}

// TestRandomForest_FitPredict_Classification trains on separable clusters
// and checks predictions, confidence and votes.
func TestRandomForest_FitPredict_Classification(t *testing.T) {
	X, y := classificationData()

	cfg := seededConfig(tree.TaskClassification, 30, 42)
	cfg.FeatureSamplingRatio = RatioAll
	rf, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create forest: %v", err)
	}

	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit forest: %v", err)
	}
	if !rf.IsTrained() {
		t.Fatal("Forest should be trained after Fit")
	}
	if rf.NumTrees() == 0 {
		t.Fatal("Forest should hold at least one tree")
	}

	p, err := rf.Predict([]float64{0.1, 0.2})
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	if p.Value != 0 {
		t.Errorf("Point near cluster 0 should predict class 0, got %v", p.Value)
	}
	if p.Confidence <= 0 || p.Confidence > 1 {
		t.Errorf("Confidence should be in (0, 1], got %v", p.Confidence)
	}
	if len(p.TreeVotes) != rf.NumTrees() {
		t.Errorf("Expected %d votes, got %d", rf.NumTrees(), len(p.TreeVotes))
	}

	p, err = rf.Predict([]float64{5.2, 5.2})
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	if p.Value != 1 {
		t.Errorf("Point near cluster 1 should predict class 1, got %v", p.Value)
	}

	score, err := rf.Score(X, y)
	if err != nil {
		t.Fatalf("Failed to score: %v", err)
	}
	if score != 1.0 {
		t.Errorf("Expected perfect training accuracy on separated clusters, got %v", score)
	}
}

// TestRandomForest_FitPredict_Regression trains on a noiseless linear
// relation and checks the mean aggregation stays close.
func TestRandomForest_FitPredict_Regression(t *testing.T) {
	n := 40
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		y.Set(i, 0, 2*float64(i))
	}

	cfg := seededConfig(tree.TaskRegression, 30, 7)
	cfg.FeatureSamplingRatio = RatioAll
	rf, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create forest: %v", err)
	}
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit forest: %v", err)
	}

	p, err := rf.Predict([]float64{20})
	if err != nil {
		t.Fatalf("Failed to predict: %v", err)
	}
	if math.Abs(p.Value-40) > 6 {
		t.Errorf("Prediction for x=20 should be near 40, got %v", p.Value)
	}

	score, err := rf.Score(X, y)
	if err != nil {
		t.Fatalf("Failed to score: %v", err)
	}
	if score < 0.9 {
		t.Errorf("Expected high R² on a noiseless relation, got %v", score)
	}
}

// TestRandomForest_OOBScore verifies the OOB trace is recorded and that the
// final score lands in a sensible range for easy data.
func TestRandomForest_OOBScore(t *testing.T) {
	X, y := classificationData()

	cfg := seededConfig(tree.TaskClassification, 50, 11)
	rf, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create forest: %v", err)
	}
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit forest: %v", err)
	}

	if rf.OOBScore() < 0 || rf.OOBScore() > 1 {
		t.Errorf("OOB score should be in [0, 1], got %v", rf.OOBScore())
	}

	history := rf.History()
	if len(history.OOBScores) != rf.NumTrees() {
		t.Errorf("Expected one OOB entry per tree (%d), got %d", rf.NumTrees(), len(history.OOBScores))
	}
	if len(history.OOBScores) > 0 {
		last := history.OOBScores[len(history.OOBScores)-1]
		if last != rf.OOBScore() {
			t.Errorf("Final trace entry %v should equal OOB score %v", last, rf.OOBScore())
		}
	}
	if history.TrainingTime < 0 {
		t.Errorf("Training time should be non-negative, got %v", history.TrainingTime)
	}

	// Separated clusters should validate well out-of-bag.
	if rf.OOBScore() < 0.8 {
		t.Errorf("Expected high OOB score on separated clusters, got %v", rf.OOBScore())
	}
}

// TestRandomForest_FeatureImportance verifies normalization and that the
// informative feature dominates.
func TestRandomForest_FeatureImportance(t *testing.T) {
	// Feature 0 carries all the signal, feature 1 is constant.
	n := 20
	X := mat.NewDense(n, 2, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, 1.0)
		if i >= n/2 {
			y.Set(i, 0, 1)
		}
	}

	cfg := seededConfig(tree.TaskClassification, 20, 5)
	cfg.FeatureSamplingRatio = RatioAll
	rf, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create forest: %v", err)
	}
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit forest: %v", err)
	}

	importances := rf.FeatureImportances()
	if len(importances) != 2 {
		t.Fatalf("Expected 2 importances, got %d", len(importances))
	}

	sum := 0.0
	for _, v := range importances {
		if v < 0 {
			t.Errorf("Importance must be non-negative, got %v", v)
		}
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("Importances should sum to 1, got %v", sum)
	}
	if importances[0] <= importances[1] {
		t.Errorf("Informative feature should dominate: %v", importances)
	}
}

// TestForestImportances_AllLeafForest verifies the all-zero vector when no
// tree contains a split.
func TestForestImportances_AllLeafForest(t *testing.T) {
	// A single-leaf tree: no split, no importance.
	leaf := &tree.Tree{
		Nodes: []tree.Node{{
			NodeType:   tree.LeafNode,
			LeftChild:  -1,
			RightChild: -1,
			LeafValue:  1,
		}},
		NumFeatures: 3,
	}

	importances := ForestImportances([]*tree.Tree{leaf, leaf}, 3)
	for i, v := range importances {
		if v != 0 {
			t.Errorf("Importance[%d] should be 0 for an all-leaf forest, got %v", i, v)
		}
	}
}

// TestRandomForest_PredictBatch verifies batch results match sequential
// Predict calls element-wise.
func TestRandomForest_PredictBatch(t *testing.T) {
	X, y := classificationData()

	rf, err := New(seededConfig(tree.TaskClassification, 15, 3))
	if err != nil {
		t.Fatalf("Failed to create forest: %v", err)
	}
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit forest: %v", err)
	}

	vectors := [][]float64{
		{0.1, 0.1},
		{5.0, 5.0},
		{2.5, 2.5},
		{0.0, 0.3},
	}

	batch, err := rf.PredictBatch(vectors)
	if err != nil {
		t.Fatalf("Failed to predict batch: %v", err)
	}
	if len(batch) != len(vectors) {
		t.Fatalf("Expected %d results, got %d", len(vectors), len(batch))
	}

	for i, v := range vectors {
		single, err := rf.Predict(v)
		if err != nil {
			t.Fatalf("Failed to predict vector %d: %v", i, err)
		}
		if !reflect.DeepEqual(batch[i], single) {
			t.Errorf("Batch result %d differs from sequential: %+v vs %+v", i, batch[i], single)
		}
	}
}

// TestRandomForest_PredictMatrix verifies the chunked matrix surface matches
// row-by-row Predict calls and rejects a column-count mismatch.
func TestRandomForest_PredictMatrix(t *testing.T) {
	X, y := classificationData()

	rf, err := New(seededConfig(tree.TaskClassification, 15, 3))
	if err != nil {
		t.Fatalf("Failed to create forest: %v", err)
	}
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit forest: %v", err)
	}

	out, err := rf.PredictMatrix(X)
	if err != nil {
		t.Fatalf("Failed to predict matrix: %v", err)
	}
	rows, cols := X.Dims()
	features := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(features, i, X)
		single, err := rf.Predict(features)
		if err != nil {
			t.Fatalf("Failed to predict row %d: %v", i, err)
		}
		if out.At(i, 0) != single.Value {
			t.Errorf("Row %d differs from sequential Predict: %v vs %v", i, out.At(i, 0), single.Value)
		}
	}

	bad := mat.NewDense(2, 3, nil)
	if _, err := rf.PredictMatrix(bad); err == nil {
		t.Error("Expected a dimension error for a column-count mismatch")
	}
}

// TestOOBScore_EmptySetWarns verifies an out-of-bag score over an empty set
// raises an UndefinedMetricWarning and reports 0.
func TestOOBScore_EmptySetWarns(t *testing.T) {
	var captured []error
	errors.SetZerologWarnFunc(func(w error) {
		captured = append(captured, w)
	})
	defer errors.SetZerologWarnFunc(nil)

	score := oobScoreOf(map[int]*oobAccum{}, nil, tree.TaskClassification)
	if score != 0 {
		t.Errorf("Empty out-of-bag set should score 0, got %v", score)
	}
	if len(captured) != 1 {
		t.Fatalf("Expected 1 warning, got %d", len(captured))
	}
	var warning *errors.UndefinedMetricWarning
	if !errors.As(captured[0], &warning) {
		t.Fatalf("Warning should be a *UndefinedMetricWarning, got %T", captured[0])
	}
	if warning.Metric != "oob_score" {
		t.Errorf("Warning should name the metric, got %v", warning.Metric)
	}
}

// TestRandomForest_Determinism verifies two seeded runs build identical
// forests.
func TestRandomForest_Determinism(t *testing.T) {
	X, y := classificationData()

	build := func() *RandomForest {
		rf, err := New(seededConfig(tree.TaskClassification, 10, 99))
		if err != nil {
			t.Fatalf("Failed to create forest: %v", err)
		}
		if err := rf.Fit(X, y); err != nil {
			t.Fatalf("Failed to fit forest: %v", err)
		}
		return rf
	}

	a := build()
	b := build()

	if a.NumTrees() != b.NumTrees() {
		t.Fatalf("Tree counts differ: %d vs %d", a.NumTrees(), b.NumTrees())
	}
	for i := range a.Trees() {
		if !reflect.DeepEqual(a.Trees()[i].Nodes, b.Trees()[i].Nodes) {
			t.Errorf("Tree %d structure differs between seeded runs", i)
		}
	}
	if !reflect.DeepEqual(a.FeatureImportances(), b.FeatureImportances()) {
		t.Errorf("Feature importances differ between seeded runs")
	}
	if a.OOBScore() != b.OOBScore() {
		t.Errorf("OOB scores differ: %v vs %v", a.OOBScore(), b.OOBScore())
	}
}

// TestRandomForest_Progress verifies progress callbacks arrive in
// completion order and end at 100 percent.
func TestRandomForest_Progress(t *testing.T) {
	X, y := classificationData()

	rf, err := New(seededConfig(tree.TaskClassification, 12, 1))
	if err != nil {
		t.Fatalf("Failed to create forest: %v", err)
	}

	var counts []int
	var lastPercent float64
	rf.SetProgress(func(percent float64, treesCompleted int) {
		counts = append(counts, treesCompleted)
		lastPercent = percent
	})

	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit forest: %v", err)
	}

	if len(counts) != 12 {
		t.Fatalf("Expected 12 progress calls, got %d", len(counts))
	}
	for i, c := range counts {
		if c != i+1 {
			t.Errorf("Progress call %d reported count %d, want %d", i, c, i+1)
		}
	}
	if lastPercent != 100 {
		t.Errorf("Final percent should be 100, got %v", lastPercent)
	}
}

// TestRandomForest_Cancellation verifies a canceled context aborts training
// and leaves the forest untrained.
func TestRandomForest_Cancellation(t *testing.T) {
	X, y := classificationData()

	rf, err := New(seededConfig(tree.TaskClassification, 200, 1))
	if err != nil {
		t.Fatalf("Failed to create forest: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = rf.FitContext(ctx, X, y)
	if err == nil {
		t.Fatal("Expected error from canceled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if rf.IsTrained() {
		t.Error("Forest should stay untrained after cancellation")
	}
}

// TestRandomForest_Serialization verifies the JSON round trip preserves
// predictions, importance and metadata.
func TestRandomForest_Serialization(t *testing.T) {
	X, y := classificationData()

	rf, err := New(seededConfig(tree.TaskClassification, 10, 21))
	if err != nil {
		t.Fatalf("Failed to create forest: %v", err)
	}
	rf.SetFeatureNames([]string{"width", "height"})
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit forest: %v", err)
	}

	data, err := rf.Serialize()
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	restored, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Failed to deserialize: %v", err)
	}
	if !restored.IsTrained() {
		t.Fatal("Restored forest should be trained")
	}
	if restored.NumTrees() != rf.NumTrees() {
		t.Errorf("Tree counts differ after round trip: %d vs %d", restored.NumTrees(), rf.NumTrees())
	}
	if restored.OOBScore() != rf.OOBScore() {
		t.Errorf("OOB scores differ after round trip")
	}
	if !reflect.DeepEqual(restored.FeatureImportances(), rf.FeatureImportances()) {
		t.Errorf("Feature importances differ after round trip")
	}
	if !reflect.DeepEqual(restored.FeatureNames(), rf.FeatureNames()) {
		t.Errorf("Feature names differ after round trip")
	}

	vectors := [][]float64{
		{0.1, 0.1},
		{5.0, 5.0},
		{2.5, 2.5},
	}
	for i, v := range vectors {
		orig, err := rf.Predict(v)
		if err != nil {
			t.Fatalf("Original predict failed: %v", err)
		}
		rest, err := restored.Predict(v)
		if err != nil {
			t.Fatalf("Restored predict failed: %v", err)
		}
		if !reflect.DeepEqual(orig, rest) {
			t.Errorf("Vector %d: predictions differ after round trip: %+v vs %+v", i, orig, rest)
		}
	}
}

// TestRandomForest_SaveLoadFile verifies the file helpers.
func TestRandomForest_SaveLoadFile(t *testing.T) {
	X, y := classificationData()

	rf, err := New(seededConfig(tree.TaskClassification, 5, 2))
	if err != nil {
		t.Fatalf("Failed to create forest: %v", err)
	}
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit forest: %v", err)
	}

	path := filepath.Join(t.TempDir(), "forest.json")
	if err := rf.SaveToJSON(path); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	restored, err := LoadFromJSON(path)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if restored.NumTrees() != rf.NumTrees() {
		t.Errorf("Tree counts differ after file round trip")
	}
}

// TestRandomForest_Scenario_DeterministicSplit trains on a one-feature step
// dataset and expects zero training error under majority vote.
func TestRandomForest_Scenario_DeterministicSplit(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	cfg := seededConfig(tree.TaskClassification, 50, 42)
	cfg.MaxDepth = DepthOf(2)
	cfg.FeatureSamplingRatio = RatioAll
	rf, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create forest: %v", err)
	}
	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit forest: %v", err)
	}

	score, err := rf.Score(X, y)
	if err != nil {
		t.Fatalf("Failed to score: %v", err)
	}
	if score != 1.0 {
		t.Errorf("Expected zero training error, got accuracy %v", score)
	}
}

// TestRandomForest_Scenario_InvalidConfig verifies that degenerate configs
// fail validation up front with every violation enumerated.
func TestRandomForest_Scenario_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig(tree.TaskClassification)
	cfg.NumTrees = 0
	cfg.MaxDepth = DepthOf(0)
	cfg.MinSamplesLeaf = 0

	_, err := New(cfg)
	if err == nil {
		t.Fatal("Expected validation error")
	}

	var configErr *errors.ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("Expected ConfigError, got %T", err)
	}
	if len(configErr.Violations) != 3 {
		t.Errorf("Expected 3 violations, got %d: %v", len(configErr.Violations), err)
	}

	params := make(map[string]bool)
	for _, v := range configErr.Violations {
		params[v.ParamName] = true
	}
	for _, want := range []string{"numTrees", "maxDepth", "minSamplesLeaf"} {
		if !params[want] {
			t.Errorf("Violation for %q missing from %v", want, err)
		}
	}
}

// TestRandomForest_Scenario_NotTrained verifies predict and serialize fail
// with NotTrainedError on an untrained instance.
func TestRandomForest_Scenario_NotTrained(t *testing.T) {
	rf, err := New(DefaultConfig(tree.TaskClassification))
	if err != nil {
		t.Fatalf("Failed to create forest: %v", err)
	}

	var notTrained *errors.NotTrainedError

	if _, err := rf.Predict([]float64{1, 2}); !errors.As(err, &notTrained) {
		t.Errorf("Predict should fail with NotTrainedError, got %v", err)
	}
	if _, err := rf.PredictBatch([][]float64{{1, 2}}); !errors.As(err, &notTrained) {
		t.Errorf("PredictBatch should fail with NotTrainedError, got %v", err)
	}
	if _, err := rf.Serialize(); !errors.As(err, &notTrained) {
		t.Errorf("Serialize should fail with NotTrainedError, got %v", err)
	}
}

// TestRandomForest_TimeLimitCallback verifies cooperative truncation keeps
// the trees finished before the limit.
func TestRandomForest_TimeLimitCallback(t *testing.T) {
	X, y := classificationData()

	rf, err := New(seededConfig(tree.TaskClassification, 100, 4))
	if err != nil {
		t.Fatalf("Failed to create forest: %v", err)
	}
	rf.AddCallback(TimeLimit(0))

	if err := rf.Fit(X, y); err != nil {
		t.Fatalf("Fit should succeed with truncation: %v", err)
	}
	if !rf.IsTrained() {
		t.Fatal("Forest should be trained after truncation")
	}
	if rf.NumTrees() < 1 || rf.NumTrees() > 100 {
		t.Errorf("Truncated forest should keep between 1 and 100 trees, got %d", rf.NumTrees())
	}
}
