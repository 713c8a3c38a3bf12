// Package log defines standard attribute keys for machine learning
// operations.
//
// Using these keys consistently enables structured log analysis and
// filtering across training, prediction and validation. Keys follow a
// hierarchical naming convention (e.g. "model.name", "data.samples").

package log

// Model and operation context.
const (
	// ModelNameKey identifies the type of model.
	// Examples: "RandomForest", "DecisionTreeClassifier"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "score", "serialize"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "ensemble.forest", "tree.builder", "metrics"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	// Examples: "training", "inference", "validation"
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"
)

// Training progress and performance.
const (
	// DurationMsKey records the execution time of an operation in
	// milliseconds.
	DurationMsKey = "perf.duration_ms"

	// TreesKey records the number of trees in an ensemble.
	TreesKey = "training.trees"

	// TreesCompletedKey records how many tree rounds have finished.
	TreesCompletedKey = "training.trees_completed"

	// OOBScoreKey records the out-of-bag validation score.
	OOBScoreKey = "metrics.oob_score"

	// AccuracyKey records model accuracy for evaluation operations.
	AccuracyKey = "metrics.accuracy"

	// ConfidenceKey records prediction confidence, typically in (0, 1].
	ConfidenceKey = "preds.confidence"

	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"
)

// Configuration.
const (
	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants for common operations.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationScore     = "score"
	OperationSerialize = "serialize"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"
)
