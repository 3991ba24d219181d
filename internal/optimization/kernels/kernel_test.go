package kernels

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRBFKernel(t *testing.T) {
	tests := []struct {
		name     string
		x1, x2   []float64
		ls, sv   float64
		expected float64
	}{
		{"same point", []float64{1, 2}, []float64{1, 2}, 1, 1, 1},
		{"different points", []float64{0, 0}, []float64{1, 1}, 1, 1, math.Exp(-1)},
		{"length scale", []float64{0, 0}, []float64{2, 2}, 2, 1, math.Exp(-1)},
		{"signal variance", []float64{0}, []float64{0}, 1, 2.5, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := NewRBFKernel(tt.ls, tt.sv)
			assert.InDelta(t, tt.expected, k.Eval(tt.x1, tt.x2), 1e-10)
			assert.InDelta(t, k.Eval(tt.x1, tt.x2), k.Eval(tt.x2, tt.x1), 1e-12, "symmetric")
		})
	}
}

func TestMatern52Kernel(t *testing.T) {
	k := NewMatern52Kernel(1, 1)
	assert.InDelta(t, 1.0, k.Eval([]float64{0.3}, []float64{0.3}), 1e-12)

	// r = sqrt(5) for unit distance and length scale
	r := math.Sqrt(5)
	want := (1 + r + r*r/3) * math.Exp(-r)
	assert.InDelta(t, want, k.Eval([]float64{0}, []float64{1}), 1e-12)

	// Covariance decays with distance.
	near := k.Eval([]float64{0, 0}, []float64{0.1, 0})
	far := k.Eval([]float64{0, 0}, []float64{0.9, 0})
	assert.Greater(t, near, far)
}

func TestNew(t *testing.T) {
	k, err := New("RBF", 0.5, 1)
	require.NoError(t, err)
	assert.IsType(t, &RBFKernel{}, k)

	k, err = New("", 0.5, 1)
	require.NoError(t, err)
	assert.IsType(t, &Matern52Kernel{}, k)

	_, err = New("periodic", 0.5, 1)
	assert.Error(t, err)

	_, err = New(NameRBF, 0, 1)
	assert.Error(t, err)
}

func TestSetHyperparameters(t *testing.T) {
	k := NewMatern52Kernel(1, 1)

	require.NoError(t, k.SetHyperparameters([]float64{0.2, 3}))
	assert.Equal(t, []float64{0.2, 3}, k.Hyperparameters())

	assert.Error(t, k.SetHyperparameters([]float64{1}))
	assert.Error(t, k.SetHyperparameters([]float64{-1, 1}))
	assert.Equal(t, []float64{0.2, 3}, k.Hyperparameters(), "unchanged after a rejected update")

	assert.Panics(t, func() { NewRBFKernel(0, 1) })
}
