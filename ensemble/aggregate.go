package ensemble

import (
	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
	"github.com/PavloICSA/netcraft-ai-sub000/tree"
)

// AggregatePredictions combines per-tree predictions into one value.
// Classification takes the majority vote; when counts tie, the value whose
// count first reached the maximum during a left-to-right scan wins.
// Regression takes the arithmetic mean.
func AggregatePredictions(predictions []float64, task tree.Task) (float64, error) {
	if len(predictions) == 0 {
		return 0, errors.NewValueError("AggregatePredictions", "no predictions to aggregate")
	}

	if task == tree.TaskClassification {
		counts := make(map[float64]int, len(predictions))
		best := predictions[0]
		bestCount := 0
		for _, p := range predictions {
			counts[p]++
			if counts[p] > bestCount {
				bestCount = counts[p]
				best = p
			}
		}
		return best, nil
	}

	sum := 0.0
	for _, p := range predictions {
		sum += p
	}
	return sum / float64(len(predictions)), nil
}

// PredictionConfidence scores how strongly the trees agree with the
// aggregated value. Classification returns the fraction of trees voting for
// it; regression returns exp(-variance), a monotone agreement proxy in
// [0, 1], not a calibrated probability. The exponential is overflow-guarded
// so an extreme vote spread degrades to 0 rather than a non-finite value.
func PredictionConfidence(predictions []float64, task tree.Task, aggregated float64) float64 {
	if len(predictions) == 0 {
		return 0
	}

	if task == tree.TaskClassification {
		agree := 0
		for _, p := range predictions {
			if p == aggregated {
				agree++
			}
		}
		return float64(agree) / float64(len(predictions))
	}

	mean := 0.0
	for _, p := range predictions {
		mean += p
	}
	mean /= float64(len(predictions))

	variance := 0.0
	for _, p := range predictions {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(predictions))

	return errors.StabilizeExp(-variance)
}
