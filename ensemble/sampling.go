package ensemble

import (
	"math"
	"math/rand"
	"sort"

	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
)

// BootstrapSample draws floor(datasetSize*ratio) indices uniformly at random
// with replacement from [0, datasetSize) and returns them together with the
// out-of-bag set, the ascending list of indices absent from the draw.
// The caller supplies the random source so seeded runs are reproducible.
func BootstrapSample(rng *rand.Rand, datasetSize int, ratio float64) (indices, oob []int, err error) {
	if ratio <= 0 || ratio > 1 {
		return nil, nil, errors.NewValidationError("bootstrapSampleRatio", "must be in (0, 1]", ratio)
	}
	if datasetSize <= 0 {
		return nil, nil, errors.NewValidationError("datasetSize", "must be positive", datasetSize)
	}

	sampleSize := int(math.Floor(float64(datasetSize) * ratio))
	indices = make([]int, sampleSize)
	drawn := make([]bool, datasetSize)
	for i := 0; i < sampleSize; i++ {
		idx := rng.Intn(datasetSize)
		indices[i] = idx
		drawn[idx] = true
	}

	oob = make([]int, 0, datasetSize-sampleSize)
	for i := 0; i < datasetSize; i++ {
		if !drawn[i] {
			oob = append(oob, i)
		}
	}
	return indices, oob, nil
}

// SampleFeatures picks sampleSize distinct feature indices from
// [0, totalFeatures) by partial Fisher-Yates shuffle and returns them sorted
// ascending, so downstream split search iterates features in a stable order.
func SampleFeatures(rng *rand.Rand, totalFeatures, sampleSize int) []int {
	if sampleSize >= totalFeatures {
		all := make([]int, totalFeatures)
		for i := range all {
			all[i] = i
		}
		return all
	}

	pool := make([]int, totalFeatures)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < sampleSize; i++ {
		j := i + rng.Intn(totalFeatures-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	selected := make([]int, sampleSize)
	copy(selected, pool[:sampleSize])
	sort.Ints(selected)
	return selected
}

// FeatureSampleSize resolves a FeatureRatio against the total feature count:
// sqrt and log2 take the floor of the respective function, "all" keeps every
// feature, and a fraction takes floor(fraction*total). The result is clamped
// to [1, totalFeatures].
func FeatureSampleSize(totalFeatures int, ratio FeatureRatio) int {
	var size int
	switch ratio.Mode {
	case "sqrt":
		size = int(math.Floor(math.Sqrt(float64(totalFeatures))))
	case "log2":
		size = int(math.Floor(math.Log2(float64(totalFeatures))))
	case "all":
		size = totalFeatures
	default:
		size = int(math.Floor(ratio.Fraction * float64(totalFeatures)))
	}

	return int(errors.ClipValue(float64(size), 1, float64(totalFeatures)))
}
