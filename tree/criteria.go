package tree

import (
	"math"
	"sort"

	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
)

// Criterion names the impurity measure used to evaluate splits.
type Criterion string

const (
	// CriterionGini is Gini impurity, 1 - Σp², for classification.
	CriterionGini Criterion = "gini"
	// CriterionEntropy is Shannon entropy, -Σp·log2(p), for classification.
	CriterionEntropy Criterion = "entropy"
	// CriterionMSE is variance (mean squared error), for regression.
	CriterionMSE Criterion = "mse"
)

// DefaultCriterion returns the standard criterion for a task: Gini for
// classification, variance for regression.
func DefaultCriterion(task Task) Criterion {
	if task == TaskRegression {
		return CriterionMSE
	}
	return CriterionGini
}

// classCounter accumulates class frequencies for incremental impurity
// computation during the threshold scan.
type classCounter struct {
	counts map[float64]int
	total  int
}

func newClassCounter() *classCounter {
	return &classCounter{counts: make(map[float64]int)}
}

func (c *classCounter) add(label float64) {
	c.counts[label]++
	c.total++
}

func (c *classCounter) remove(label float64) {
	c.counts[label]--
	if c.counts[label] == 0 {
		delete(c.counts, label)
	}
	c.total--
}

// sortedLabels returns the counted labels in ascending order. Impurity sums
// must accumulate in a fixed order: map iteration order varies per run and
// would reorder the floating-point sum, which can flip near-tied splits.
func (c *classCounter) sortedLabels() []float64 {
	labels := make([]float64, 0, len(c.counts))
	for label := range c.counts {
		labels = append(labels, label)
	}
	sort.Float64s(labels)
	return labels
}

// gini computes 1 - Σp² over the counted classes.
func (c *classCounter) gini() float64 {
	if c.total == 0 {
		return 0
	}
	sumSq := 0.0
	n := float64(c.total)
	for _, label := range c.sortedLabels() {
		p := float64(c.counts[label]) / n
		sumSq += p * p
	}
	return 1 - sumSq
}

// entropy computes -Σp·log2(p) over the counted classes.
func (c *classCounter) entropy() float64 {
	if c.total == 0 {
		return 0
	}
	ent := 0.0
	n := float64(c.total)
	for _, label := range c.sortedLabels() {
		p := float64(c.counts[label]) / n
		ent -= p * (errors.StabilizeLog(p) / math.Ln2)
	}
	return ent
}

func (c *classCounter) impurity(criterion Criterion) float64 {
	if criterion == CriterionEntropy {
		return c.entropy()
	}
	return c.gini()
}

// majority returns the most frequent class. Ties resolve to the smallest
// label so repeated calls over the same counts are deterministic.
func (c *classCounter) majority() float64 {
	best := math.NaN()
	bestCount := -1
	for label, count := range c.counts {
		if count > bestCount || (count == bestCount && label < best) {
			best = label
			bestCount = count
		}
	}
	return best
}

// varianceAccum accumulates running sums for incremental variance
// computation during the threshold scan.
type varianceAccum struct {
	sum   float64
	sumSq float64
	n     int
}

func (v *varianceAccum) add(value float64) {
	v.sum += value
	v.sumSq += value * value
	v.n++
}

func (v *varianceAccum) remove(value float64) {
	v.sum -= value
	v.sumSq -= value * value
	v.n--
}

// variance computes the population variance of the accumulated values.
// Numerical cancellation can push the result slightly below zero; it is
// clamped at 0.
func (v *varianceAccum) variance() float64 {
	if v.n == 0 {
		return 0
	}
	n := float64(v.n)
	mean := v.sum / n
	variance := v.sumSq/n - mean*mean
	if variance < 0 {
		return 0
	}
	return variance
}

func (v *varianceAccum) mean() float64 {
	if v.n == 0 {
		return 0
	}
	return v.sum / float64(v.n)
}
