// Package ensemble implements Random Forest training and prediction on top
// of the CART trees in the tree package. Forests are built from bootstrap
// samples with per-tree feature subsets, validated out-of-bag, and can be
// serialized to a self-contained JSON snapshot.
package ensemble

import (
	"encoding/json"
	"strconv"

	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
	"github.com/PavloICSA/netcraft-ai-sub000/tree"
)

// Depth is a tree depth limit that is either a positive integer or "auto"
// (grow until the other stopping rules apply). It marshals to the JSON
// string "auto" or a JSON number.
type Depth struct {
	Auto  bool
	Value int
}

// DepthAuto returns the automatic depth limit.
func DepthAuto() Depth {
	return Depth{Auto: true}
}

// DepthOf returns a fixed depth limit.
func DepthOf(v int) Depth {
	return Depth{Value: v}
}

// Resolve returns the builder-facing depth limit: 0 for "auto" (unlimited),
// the fixed value otherwise.
func (d Depth) Resolve() int {
	if d.Auto {
		return 0
	}
	return d.Value
}

func (d Depth) String() string {
	if d.Auto {
		return "auto"
	}
	return strconv.Itoa(d.Value)
}

// MarshalJSON implements json.Marshaler.
func (d Depth) MarshalJSON() ([]byte, error) {
	if d.Auto {
		return json.Marshal("auto")
	}
	return json.Marshal(d.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Depth) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "auto" {
			return errors.NewValidationError("maxDepth", "must be \"auto\" or an integer", s)
		}
		d.Auto = true
		d.Value = 0
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return errors.NewValidationError("maxDepth", "must be \"auto\" or an integer", string(data))
	}
	d.Auto = false
	d.Value = v
	return nil
}

// FeatureRatio controls how many features each tree may split on. It is one
// of the named modes "sqrt", "log2" and "all", or a fraction in (0, 1] of
// the total feature count. It marshals to a JSON string for named modes and
// a JSON number for fractions.
type FeatureRatio struct {
	Mode     string // "sqrt", "log2", "all" or "" for a fraction
	Fraction float64
}

// Named FeatureRatio modes.
var (
	RatioSqrt = FeatureRatio{Mode: "sqrt"}
	RatioLog2 = FeatureRatio{Mode: "log2"}
	RatioAll  = FeatureRatio{Mode: "all"}
)

// RatioFraction returns a fractional feature ratio.
func RatioFraction(f float64) FeatureRatio {
	return FeatureRatio{Fraction: f}
}

func (r FeatureRatio) String() string {
	if r.Mode != "" {
		return r.Mode
	}
	return strconv.FormatFloat(r.Fraction, 'g', -1, 64)
}

func (r FeatureRatio) valid() bool {
	switch r.Mode {
	case "sqrt", "log2", "all":
		return true
	case "":
		return r.Fraction > 0 && r.Fraction <= 1
	}
	return false
}

// MarshalJSON implements json.Marshaler.
func (r FeatureRatio) MarshalJSON() ([]byte, error) {
	if r.Mode != "" {
		return json.Marshal(r.Mode)
	}
	return json.Marshal(r.Fraction)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *FeatureRatio) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch s {
		case "sqrt", "log2", "all":
			r.Mode = s
			r.Fraction = 0
			return nil
		}
		return errors.NewValidationError("featureSamplingRatio", "must be \"sqrt\", \"log2\", \"all\" or a number", s)
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return errors.NewValidationError("featureSamplingRatio", "must be \"sqrt\", \"log2\", \"all\" or a number", string(data))
	}
	r.Mode = ""
	r.Fraction = f
	return nil
}

// Config holds the Random Forest training options.
type Config struct {
	NumTrees             int          `json:"numTrees"`
	MaxDepth             Depth        `json:"maxDepth"`
	MinSamplesLeaf       int          `json:"minSamplesLeaf"`
	FeatureSamplingRatio FeatureRatio `json:"featureSamplingRatio"`
	BootstrapSampleRatio float64      `json:"bootstrapSampleRatio"`
	TaskType             tree.Task    `json:"taskType"`
	RandomSeed           *int64       `json:"randomSeed,omitempty"`
}

// DefaultConfig returns a config suitable for small to mid-size datasets.
func DefaultConfig(task tree.Task) Config {
	return Config{
		NumTrees:             100,
		MaxDepth:             DepthAuto(),
		MinSamplesLeaf:       1,
		FeatureSamplingRatio: RatioSqrt,
		BootstrapSampleRatio: 1.0,
		TaskType:             task,
	}
}

// Validate checks every option and returns a ConfigError enumerating all
// violations, or nil when the config is valid.
func (c Config) Validate() error {
	var violations []*errors.ValidationError

	if c.NumTrees < 1 || c.NumTrees > 1000 {
		violations = append(violations, &errors.ValidationError{ParamName: "numTrees", Reason: "must be in [1, 1000]", Value: c.NumTrees})
	}
	if !c.MaxDepth.Auto && (c.MaxDepth.Value < 1 || c.MaxDepth.Value > 50) {
		violations = append(violations, &errors.ValidationError{ParamName: "maxDepth", Reason: "must be \"auto\" or in [1, 50]", Value: c.MaxDepth.Value})
	}
	if c.MinSamplesLeaf < 1 || c.MinSamplesLeaf > 100 {
		violations = append(violations, &errors.ValidationError{ParamName: "minSamplesLeaf", Reason: "must be in [1, 100]", Value: c.MinSamplesLeaf})
	}
	if !c.FeatureSamplingRatio.valid() {
		violations = append(violations, &errors.ValidationError{ParamName: "featureSamplingRatio", Reason: "must be \"sqrt\", \"log2\", \"all\" or a number in (0, 1]", Value: c.FeatureSamplingRatio.String()})
	}
	if c.BootstrapSampleRatio <= 0 || c.BootstrapSampleRatio > 1 {
		violations = append(violations, &errors.ValidationError{ParamName: "bootstrapSampleRatio", Reason: "must be in (0, 1]", Value: c.BootstrapSampleRatio})
	}
	if !c.TaskType.Valid() {
		violations = append(violations, &errors.ValidationError{ParamName: "taskType", Reason: "must be \"classification\" or \"regression\"", Value: string(c.TaskType)})
	}
	if c.RandomSeed != nil && *c.RandomSeed < 0 {
		violations = append(violations, &errors.ValidationError{ParamName: "randomSeed", Reason: "must be non-negative", Value: *c.RandomSeed})
	}

	return errors.NewConfigError(violations...)
}
