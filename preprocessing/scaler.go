// Package preprocessing provides feature scaling for numeric training data.
// All inputs are assumed to be pre-encoded real numbers.
package preprocessing

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/PavloICSA/netcraft-ai-sub000/core/model"
	"github.com/PavloICSA/netcraft-ai-sub000/pkg/errors"
)

// StandardScaler transforms features to zero mean and unit variance.
// Constant columns keep a scale of 1 so transforming them is a no-op shift.
type StandardScaler struct {
	state *model.StateManager

	Mean  []float64
	Scale []float64
}

// NewStandardScaler creates an unfitted StandardScaler.
func NewStandardScaler() *StandardScaler {
	return &StandardScaler{state: model.NewStateManager()}
}

// Fit computes per-column mean and standard deviation.
func (s *StandardScaler) Fit(X mat.Matrix) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.Wrap(errors.ErrEmptyData, "StandardScaler.Fit")
	}

	s.Mean = make([]float64, cols)
	s.Scale = make([]float64, cols)

	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += X.At(i, j)
		}
		mean := sum / float64(rows)

		variance := 0.0
		for i := 0; i < rows; i++ {
			d := X.At(i, j) - mean
			variance += d * d
		}
		variance /= float64(rows)

		scale := math.Sqrt(variance)
		if scale == 0 {
			scale = 1
		}

		s.Mean[j] = mean
		s.Scale[j] = scale
	}

	// Non-finite input makes the column statistics meaningless; fail the fit
	// instead of silently producing NaN transforms.
	if err := errors.CheckNumericalStability("StandardScaler.Fit", s.Mean, 0); err != nil {
		return err
	}
	if err := errors.CheckNumericalStability("StandardScaler.Fit", s.Scale, 0); err != nil {
		return err
	}

	s.state.SetDimensions(cols, rows)
	s.state.SetTrained()
	return nil
}

// Transform maps X into the fitted scale.
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.state.IsTrained() {
		return nil, errors.NewNotTrainedError("StandardScaler", "Transform")
	}
	rows, cols := X.Dims()
	nFeatures, _ := s.state.GetDimensions()
	if cols != nFeatures {
		return nil, errors.NewDimensionError("Transform", nFeatures, cols, 1)
	}

	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return out, nil
}

// FitTransform fits the scaler and transforms X in one step.
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform maps scaled values back to the original space.
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !s.state.IsTrained() {
		return nil, errors.NewNotTrainedError("StandardScaler", "InverseTransform")
	}
	rows, cols := X.Dims()
	nFeatures, _ := s.state.GetDimensions()
	if cols != nFeatures {
		return nil, errors.NewDimensionError("InverseTransform", nFeatures, cols, 1)
	}

	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, X.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}
	return out, nil
}

// MinMaxScaler transforms features into the [0, 1] range column-wise.
// Constant columns map to 0.
type MinMaxScaler struct {
	state *model.StateManager

	Min []float64
	Max []float64
}

// NewMinMaxScaler creates an unfitted MinMaxScaler.
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{state: model.NewStateManager()}
}

// Fit records per-column minima and maxima.
func (s *MinMaxScaler) Fit(X mat.Matrix) error {
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.Wrap(errors.ErrEmptyData, "MinMaxScaler.Fit")
	}

	s.Min = make([]float64, cols)
	s.Max = make([]float64, cols)

	for j := 0; j < cols; j++ {
		lo, hi := X.At(0, j), X.At(0, j)
		for i := 1; i < rows; i++ {
			v := X.At(i, j)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		s.Min[j] = lo
		s.Max[j] = hi
	}

	s.state.SetDimensions(cols, rows)
	s.state.SetTrained()
	return nil
}

// Transform maps X into [0, 1] per column.
func (s *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.state.IsTrained() {
		return nil, errors.NewNotTrainedError("MinMaxScaler", "Transform")
	}
	rows, cols := X.Dims()
	nFeatures, _ := s.state.GetDimensions()
	if cols != nFeatures {
		return nil, errors.NewDimensionError("Transform", nFeatures, cols, 1)
	}

	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			span := s.Max[j] - s.Min[j]
			if span == 0 {
				out.Set(i, j, 0)
				continue
			}
			out.Set(i, j, (X.At(i, j)-s.Min[j])/span)
		}
	}
	return out, nil
}

// FitTransform fits the scaler and transforms X in one step.
func (s *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}
