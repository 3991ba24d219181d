package bayesian

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/hypertune/internal/optimization/kernels"
)

func TestGPFitAndPredict(t *testing.T) {
	x := [][]float64{{0}, {0.5}, {1}}
	y := []float64{1, 2, 1}

	gp := NewGP(kernels.NewRBFKernel(0.3, 1), 1e-6, nil)
	require.NoError(t, gp.Fit(x, y))

	// Training points are interpolated with little uncertainty.
	for i := range x {
		mu, sigma, err := gp.Predict(x[i])
		require.NoError(t, err)
		assert.InDelta(t, y[i], mu, 1e-3)
		assert.Less(t, sigma, 1e-2)
	}

	// Far from the data the prior takes over.
	mu, sigma, err := gp.Predict([]float64{5})
	require.NoError(t, err)
	assert.InDelta(t, 4.0/3, mu, 1e-6)
	assert.InDelta(t, math.Sqrt(1.0/3), sigma, 1e-6)
}

func TestGPSinglePoint(t *testing.T) {
	gp := NewGP(kernels.NewMatern52Kernel(0.5, 1), 1e-6, nil)
	require.NoError(t, gp.Fit([][]float64{{0.4, 0.4}}, []float64{7}))

	mu, _, err := gp.Predict([]float64{0.4, 0.4})
	require.NoError(t, err)
	assert.InDelta(t, 7.0, mu, 1e-3)
}

func TestGPDuplicatePoints(t *testing.T) {
	gp := NewGP(kernels.NewRBFKernel(0.5, 1), 0, nil)
	require.NoError(t, gp.Fit([][]float64{{0.2}, {0.2}, {0.8}}, []float64{1, 1, 3}))

	mu, _, err := gp.Predict([]float64{0.2})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, mu, 1e-2)
}

func TestGPErrorHandling(t *testing.T) {
	gp := NewGP(kernels.NewRBFKernel(1, 1), 1e-6, nil)

	_, _, err := gp.Predict([]float64{0})
	assert.Error(t, err, "predict before fit")

	tests := []struct {
		name string
		x    [][]float64
		y    []float64
	}{
		{"empty", nil, nil},
		{"length mismatch", [][]float64{{0}, {1}}, []float64{1}},
		{"nan target", [][]float64{{0}}, []float64{math.NaN()}},
		{"infinite target", [][]float64{{0}}, []float64{math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, gp.Fit(tt.x, tt.y))
		})
	}
}
