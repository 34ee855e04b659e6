package preprocess

import (
	"fmt"

	"surveyprep/internal/dataset"
)

// zeroVarianceScaled is the constant a zero-variance column scales to.
// Dividing by a zero range is never raised as an error; the column
// simply carries no distance information.
const zeroVarianceScaled = 0.5

// MinMaxScaler scales columns to [0,1] using per-column minima and
// maxima fitted over the entire cohort, and inverts the scaling after
// imputation. Fitted parameters live only for the invocation that
// created them; they are never cached across calls.
type MinMaxScaler struct {
	mins     []float64
	maxs     []float64
	constant []bool
	fitted   bool
}

// FitMinMax computes per-column minima and maxima over the matrix,
// ignoring missing values. Columns with no observed values or a zero
// range are marked constant.
func FitMinMax(columns [][]float64) *MinMaxScaler {
	s := &MinMaxScaler{
		mins:     make([]float64, len(columns)),
		maxs:     make([]float64, len(columns)),
		constant: make([]bool, len(columns)),
		fitted:   true,
	}
	for j, col := range columns {
		first := true
		for _, v := range col {
			if dataset.IsMissing(v) {
				continue
			}
			if first {
				s.mins[j], s.maxs[j] = v, v
				first = false
				continue
			}
			if v < s.mins[j] {
				s.mins[j] = v
			}
			if v > s.maxs[j] {
				s.maxs[j] = v
			}
		}
		if first || s.mins[j] == s.maxs[j] {
			s.constant[j] = true
		}
	}
	return s
}

// Transform scales the matrix in place to [0,1]. Missing values stay
// missing; zero-variance columns become the constant 0.5.
func (s *MinMaxScaler) Transform(columns [][]float64) error {
	if err := s.check(len(columns)); err != nil {
		return err
	}
	for j, col := range columns {
		for i, v := range col {
			if dataset.IsMissing(v) {
				continue
			}
			if s.constant[j] {
				col[i] = zeroVarianceScaled
				continue
			}
			col[i] = (v - s.mins[j]) / (s.maxs[j] - s.mins[j])
		}
	}
	return nil
}

// Inverse restores the matrix to original units in place. For a
// constant column every value maps back to the fitted constant, so the
// round trip is exact for observed values.
func (s *MinMaxScaler) Inverse(columns [][]float64) error {
	if err := s.check(len(columns)); err != nil {
		return err
	}
	for j, col := range columns {
		for i, v := range col {
			if dataset.IsMissing(v) {
				continue
			}
			if s.constant[j] {
				col[i] = s.mins[j]
				continue
			}
			col[i] = v*(s.maxs[j]-s.mins[j]) + s.mins[j]
		}
	}
	return nil
}

func (s *MinMaxScaler) check(cols int) error {
	if !s.fitted {
		return fmt.Errorf("scaler not fitted")
	}
	if cols != len(s.mins) {
		return fmt.Errorf("scaler fitted on %d columns, got %d", len(s.mins), cols)
	}
	return nil
}
