package ensemble

import (
	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
	"github.com/PavloICSA/netcraft-ai-sub000/tree"
)

// ForestImportances computes mean-decrease-in-impurity feature importance
// over a tree collection. Every split node contributes its impurity
// decrease weighted by the number of samples that reached it, accumulated
// onto its split feature across all trees. The vector is normalized to sum
// to 1; when no split contributed anything it stays all-zero.
func ForestImportances(trees []*tree.Tree, numFeatures int) []float64 {
	importances := make([]float64, numFeatures)

	for _, t := range trees {
		for i := range t.Nodes {
			node := &t.Nodes[i]
			if node.IsLeaf() {
				continue
			}
			if node.SplitFeature < 0 || node.SplitFeature >= numFeatures {
				continue
			}
			importances[node.SplitFeature] += node.Gain * float64(node.SampleCount)
		}
	}

	total := 0.0
	for _, v := range importances {
		total += v
	}
	// SafeDivide keeps the vector all-zero when no split contributed gain.
	for i := range importances {
		importances[i] = errors.SafeDivide(importances[i], total)
	}
	return importances
}
