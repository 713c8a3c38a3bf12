// Package netcraft provides a Random Forest ensemble learning engine for Go:
// CART decision-tree induction plus the bagging orchestration that turns many
// trees into one predictor.
//
// The library covers bootstrap resampling, per-tree feature subsampling,
// majority-vote and mean aggregation, out-of-bag validation without a
// held-out test set, impurity-based feature importance, and a fully
// self-contained JSON model snapshot.
//
// # Features
//
// - Parallel tree construction over a bounded worker pool
// - Deterministic training under a configured random seed
// - scikit-learn-like estimator API on gonum matrices
// - Cooperative cancellation via context between tree rounds
// - Structured logging and typed, stack-traced errors
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/PavloICSA/netcraft-ai-sub000/ensemble"
//	    "github.com/PavloICSA/netcraft-ai-sub000/tree"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
//	    y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
//
//	    rf, err := ensemble.New(ensemble.DefaultConfig(tree.TaskClassification))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := rf.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    p, err := rf.Predict([]float64{2.5})
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Printf("class %.0f (confidence %.2f)\n", p.Value, p.Confidence)
//	}
//
// # Package Layout
//
//   - ensemble: Random Forest training, prediction, OOB validation,
//     feature importance and JSON serialization
//   - tree: CART builder, flat node arena and sklearn-style estimators
//   - preprocessing: feature scaling
//   - metrics: accuracy and regression scores
//   - core/model, core/parallel: estimator state, persistence, worker pool
//   - pkg/errors, pkg/log: typed errors and structured logging
package netcraft
