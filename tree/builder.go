package tree

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
)

// BuildOptions configures one tree induction run.
type BuildOptions struct {
	Task      Task
	Criterion Criterion // zero value resolves via DefaultCriterion

	// MaxDepth limits the depth of the tree; 0 means no depth limit and
	// growth stops on purity and sample-count rules alone.
	MaxDepth int

	// MinSamplesLeaf is the minimum number of samples each leaf must hold.
	// A node with fewer than 2*MinSamplesLeaf samples becomes a leaf.
	MinSamplesLeaf int

	// MinSamplesSplit is the minimum number of samples a node must hold to
	// be considered for splitting; 0 resolves to 2.
	MinSamplesSplit int

	// NumClasses, when positive for classification, makes leaves record the
	// class probability distribution over labels 0..NumClasses-1.
	NumClasses int

	// FeatureIndices restricts splitting to this sorted subset of columns.
	// Empty means every column may be used.
	FeatureIndices []int

	// OOBIndices are recorded verbatim on the resulting tree for ensemble
	// out-of-bag validation; the builder itself never reads them.
	OOBIndices []int
}

// Build grows one CART tree over the given rows of X. Rows with a
// non-finite target and feature values that are NaN or Inf are skipped
// locally rather than failing the build.
func Build(X mat.Matrix, y []float64, rows []int, opts BuildOptions) (*Tree, error) {
	nRows, nCols := X.Dims()
	if len(y) != nRows {
		return nil, errors.NewDimensionError("tree.Build", nRows, len(y), 0)
	}
	if !opts.Task.Valid() {
		return nil, errors.NewValidationError("task", "must be classification or regression", string(opts.Task))
	}
	if opts.MinSamplesLeaf < 1 {
		opts.MinSamplesLeaf = 1
	}
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}
	if opts.Criterion == "" {
		opts.Criterion = DefaultCriterion(opts.Task)
	}

	features := opts.FeatureIndices
	if len(features) == 0 {
		features = make([]int, nCols)
		for j := range features {
			features[j] = j
		}
	}

	// Drop rows whose target cannot be learned from; a degenerate sample
	// must not poison the whole tree.
	usable := make([]int, 0, len(rows))
	for _, r := range rows {
		if r < 0 || r >= nRows {
			return nil, errors.NewValidationError("rows", "row index out of range", r)
		}
		if errors.IsFiniteValue(y[r]) {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "tree.Build: no usable training rows")
	}

	b := &builder{
		X:        X,
		y:        y,
		opts:     opts,
		features: features,
	}
	b.buildNode(usable, 0)

	return &Tree{
		Nodes:          b.nodes,
		Task:           opts.Task,
		NumFeatures:    nCols,
		FeatureIndices: opts.FeatureIndices,
		OOBIndices:     opts.OOBIndices,
		MaxDepth:       opts.MaxDepth,
		MinSamplesLeaf: opts.MinSamplesLeaf,
	}, nil
}

// builder carries the shared training state through the recursion.
type builder struct {
	X        mat.Matrix
	y        []float64
	opts     BuildOptions
	features []int
	nodes    []Node
}

// split describes the best candidate found for one node.
type split struct {
	feature   int
	threshold float64
	weighted  float64 // sample-count-weighted impurity of the two children
	found     bool
}

// buildNode recursively grows the subtree for the given rows and returns
// the index of the created node.
func (b *builder) buildNode(rows []int, depth int) int {
	impurity := b.nodeImpurity(rows)
	prediction := b.leafValue(rows)

	// Stopping rules: depth limit, not enough samples to split, pure node.
	atDepthLimit := b.opts.MaxDepth > 0 && depth >= b.opts.MaxDepth
	tooSmall := len(rows) < 2*b.opts.MinSamplesLeaf || len(rows) < b.opts.MinSamplesSplit
	if atDepthLimit || tooSmall || impurity <= 1e-12 {
		return b.appendLeaf(rows, prediction, impurity)
	}

	best := b.findBestSplit(rows, impurity)
	if !best.found {
		// No candidate improves on the parent impurity.
		return b.appendLeaf(rows, prediction, impurity)
	}

	nodeIdx := len(b.nodes)
	b.nodes = append(b.nodes, Node{
		NodeType:     SplitNode,
		SplitFeature: best.feature,
		Threshold:    best.threshold,
		Gain:         impurity - best.weighted,
		Impurity:     impurity,
		SampleCount:  len(rows),
		LeftChild:    -1,
		RightChild:   -1,
	})

	var leftRows, rightRows []int
	for _, r := range rows {
		if b.X.At(r, best.feature) <= best.threshold {
			leftRows = append(leftRows, r)
		} else {
			rightRows = append(rightRows, r)
		}
	}

	left := b.buildNode(leftRows, depth+1)
	right := b.buildNode(rightRows, depth+1)
	b.nodes[nodeIdx].LeftChild = left
	b.nodes[nodeIdx].RightChild = right

	return nodeIdx
}

func (b *builder) appendLeaf(rows []int, prediction, impurity float64) int {
	node := Node{
		NodeType:    LeafNode,
		LeftChild:   -1,
		RightChild:  -1,
		LeafValue:   prediction,
		Impurity:    impurity,
		SampleCount: len(rows),
	}

	if b.opts.Task == TaskClassification && b.opts.NumClasses > 0 {
		dist := make([]float64, b.opts.NumClasses)
		counted := 0
		for _, r := range rows {
			label := int(b.y[r] + 0.5)
			if label >= 0 && label < b.opts.NumClasses {
				dist[label]++
				counted++
			}
		}
		if counted > 0 {
			for i := range dist {
				dist[i] /= float64(counted)
			}
		}
		node.Distribution = dist
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, node)
	return idx
}

// nodeImpurity computes the impurity of a row set under the configured
// criterion.
func (b *builder) nodeImpurity(rows []int) float64 {
	if b.opts.Task == TaskRegression {
		acc := &varianceAccum{}
		for _, r := range rows {
			acc.add(b.y[r])
		}
		return acc.variance()
	}

	counter := newClassCounter()
	for _, r := range rows {
		counter.add(b.y[r])
	}
	return counter.impurity(b.opts.Criterion)
}

// leafValue computes the leaf prediction: majority class for classification,
// mean target for regression.
func (b *builder) leafValue(rows []int) float64 {
	if b.opts.Task == TaskRegression {
		acc := &varianceAccum{}
		for _, r := range rows {
			acc.add(b.y[r])
		}
		return acc.mean()
	}

	counter := newClassCounter()
	for _, r := range rows {
		counter.add(b.y[r])
	}
	return counter.majority()
}

// valueTarget pairs one sample's feature value with its target for the
// sorted threshold scan.
type valueTarget struct {
	value  float64
	target float64
}

// findBestSplit evaluates every candidate (feature, threshold) pair over the
// node's allowed feature subset and returns the one minimizing the
// sample-count-weighted child impurity. Candidate thresholds are the
// midpoints between consecutive distinct sorted feature values. Ties keep
// the first candidate in iteration order: features ascending, thresholds
// ascending within a feature.
func (b *builder) findBestSplit(rows []int, parentImpurity float64) split {
	best := split{weighted: math.Inf(1)}

	for _, feature := range b.features {
		samples := make([]valueTarget, 0, len(rows))
		for _, r := range rows {
			v := b.X.At(r, feature)
			if !errors.IsFiniteValue(v) {
				// Skip the offending sample for this feature only.
				continue
			}
			samples = append(samples, valueTarget{value: v, target: b.y[r]})
		}
		if len(samples) < 2*b.opts.MinSamplesLeaf {
			continue
		}

		sort.Slice(samples, func(i, j int) bool {
			return samples[i].value < samples[j].value
		})

		var cand split
		if b.opts.Task == TaskRegression {
			cand = b.scanRegression(samples, feature)
		} else {
			cand = b.scanClassification(samples, feature)
		}

		if cand.found && cand.weighted < best.weighted {
			best = cand
		}
	}

	// A split must strictly improve on the parent impurity.
	if !math.IsInf(best.weighted, 1) && best.weighted < parentImpurity-1e-12 {
		best.found = true
		return best
	}
	return split{}
}

// scanClassification performs a single left-to-right pass over the sorted
// samples, moving one sample at a time from the right counter to the left
// and evaluating the boundary between distinct values.
func (b *builder) scanClassification(samples []valueTarget, feature int) split {
	left := newClassCounter()
	right := newClassCounter()
	for i := range samples {
		right.add(samples[i].target)
	}

	best := split{feature: feature, weighted: math.Inf(1)}
	total := float64(len(samples))

	for i := 0; i < len(samples)-1; i++ {
		left.add(samples[i].target)
		right.remove(samples[i].target)

		if samples[i].value == samples[i+1].value {
			continue
		}
		if left.total < b.opts.MinSamplesLeaf || right.total < b.opts.MinSamplesLeaf {
			continue
		}

		weighted := (float64(left.total)*left.impurity(b.opts.Criterion) +
			float64(right.total)*right.impurity(b.opts.Criterion)) / total
		threshold := (samples[i].value + samples[i+1].value) / 2
		if !errors.IsFiniteValue(weighted) || !errors.IsFiniteValue(threshold) {
			errors.Warn(errors.NewNumericalInstabilityError("split_scan", []float64{weighted, threshold}, i))
			continue
		}

		// Strict less-than keeps the first threshold under ties.
		if weighted < best.weighted {
			best.weighted = weighted
			best.threshold = threshold
			best.found = true
		}
	}

	return best
}

// scanRegression is the variance-reduction counterpart of
// scanClassification.
func (b *builder) scanRegression(samples []valueTarget, feature int) split {
	left := &varianceAccum{}
	right := &varianceAccum{}
	for i := range samples {
		right.add(samples[i].target)
	}

	best := split{feature: feature, weighted: math.Inf(1)}
	total := float64(len(samples))

	for i := 0; i < len(samples)-1; i++ {
		left.add(samples[i].target)
		right.remove(samples[i].target)

		if samples[i].value == samples[i+1].value {
			continue
		}
		if left.n < b.opts.MinSamplesLeaf || right.n < b.opts.MinSamplesLeaf {
			continue
		}

		weighted := (float64(left.n)*left.variance() +
			float64(right.n)*right.variance()) / total
		threshold := (samples[i].value + samples[i+1].value) / 2
		if !errors.IsFiniteValue(weighted) || !errors.IsFiniteValue(threshold) {
			errors.Warn(errors.NewNumericalInstabilityError("split_scan", []float64{weighted, threshold}, i))
			continue
		}

		if weighted < best.weighted {
			best.weighted = weighted
			best.threshold = threshold
			best.found = true
		}
	}

	return best
}

func newPredictDimensionError(expected, got int) error {
	return errors.NewDimensionError("tree.Predict", expected, got, 1)
}
