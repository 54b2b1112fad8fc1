package classifier

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes each feature to zero mean and unit population
// variance. Constant features get a scale of 1.
type Scaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes per-column statistics over rows.
func FitScaler(rows [][]float64) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, errors.New("scaler needs at least one row")
	}

	width := len(rows[0])
	s := &Scaler{
		Mean:  make([]float64, width),
		Scale: make([]float64, width),
	}

	column := make([]float64, len(rows))
	for j := range width {
		for i, row := range rows {
			if len(row) != width {
				return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), width)
			}
			column[i] = row[j]
		}

		mean, variance := stat.PopMeanVariance(column, nil)
		std := math.Sqrt(variance)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}

	return s, nil
}

// Width returns the number of features the scaler was fit on.
func (s *Scaler) Width() int {
	return len(s.Mean)
}

// Transform returns a standardized copy of row.
func (s *Scaler) Transform(row []float64) ([]float64, error) {
	if len(row) != s.Width() {
		return nil, &DimensionMismatchError{Expected: s.Width(), Got: len(row)}
	}

	out := make([]float64, len(row))
	for i, v := range row {
		out[i] = (v - s.Mean[i]) / s.Scale[i]
	}
	return out, nil
}

func (s *Scaler) validate() error {
	if len(s.Mean) == 0 {
		return errors.New("scaler is empty")
	}
	if len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("scaler has %d means but %d scales", len(s.Mean), len(s.Scale))
	}
	for i := range s.Mean {
		if math.IsNaN(s.Mean[i]) || math.IsInf(s.Mean[i], 0) {
			return fmt.Errorf("scaler mean %d is not finite", i)
		}
		if !(s.Scale[i] > 0) || math.IsInf(s.Scale[i], 0) {
			return fmt.Errorf("scaler scale %d must be positive, got %v", i, s.Scale[i])
		}
	}
	return nil
}
