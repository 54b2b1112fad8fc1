package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitScaler(t *testing.T) {
	t.Parallel()

	s, err := FitScaler([][]float64{
		{1, 5, 0},
		{3, 5, 0},
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{2, 5, 0}, s.Mean)
	assert.Equal(t, []float64{1, 1, 1}, s.Scale)

	out, err := s.Transform([]float64{3, 7, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 0}, out)

	_, err = s.Transform([]float64{1})
	var dim *DimensionMismatchError
	assert.ErrorAs(t, err, &dim)

	_, err = FitScaler(nil)
	assert.Error(t, err)
	_, err = FitScaler([][]float64{{1, 2}, {1}})
	assert.Error(t, err)
}

func TestScalerValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, (&Scaler{Mean: []float64{0}, Scale: []float64{1}}).validate())
	assert.Error(t, (&Scaler{}).validate())
	assert.Error(t, (&Scaler{Mean: []float64{0}, Scale: []float64{0}}).validate())
	assert.Error(t, (&Scaler{Mean: []float64{0, 1}, Scale: []float64{1}}).validate())
}

func TestEvaluate(t *testing.T) {
	t.Parallel()

	m := Evaluate([]int{1, 1, 0, 0}, []int{1, 0, 1, 0})
	assert.InDelta(t, 0.5, m.Accuracy, 1e-12)
	assert.InDelta(t, 0.5, m.Precision, 1e-12)
	assert.InDelta(t, 0.5, m.Recall, 1e-12)
	assert.InDelta(t, 0.5, m.F1, 1e-12)
	assert.Equal(t, 4, m.TestRows)

	m = Evaluate([]int{0, 0}, []int{0, 0})
	assert.Equal(t, 1.0, m.Accuracy)
	assert.Zero(t, m.Precision)
	assert.Zero(t, m.Recall)
	assert.Zero(t, m.F1)
}

func TestSplit(t *testing.T) {
	t.Parallel()

	train, test, err := split(10, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, train, 8)
	assert.Len(t, test, 2)

	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i])
		seen[i] = true
	}
	assert.Len(t, seen, 10)

	train2, test2, err := split(10, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	_, test, err = split(3, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, test, 1)

	_, _, err = split(1, 0.2, 42)
	assert.Error(t, err)
}
