package losses_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/on-the-slope/taylor_go/functions"
	"github.com/on-the-slope/taylor_go/functions/losses"
)

func testProblem(t *testing.T, mean bool) *losses.LinearRegression {
	t.Helper()
	x := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 2,
		1, 1,
	})
	y := mat.NewVecDense(3, []float64{1, 2, 3})
	lr, err := losses.NewLinearRegression(x, y, mean)
	require.NoError(t, err)
	return lr
}

func TestLinearRegressionValue(t *testing.T) {
	lr := testProblem(t, false)

	// beta = (1, 1): residual = (0, 0, -1), so f = 1/2.
	assert.InDelta(t, 0.5, lr.Func([]float64{1, 1}), 1e-12)

	mean := testProblem(t, true)
	assert.InDelta(t, 0.5/3, mean.Func([]float64{1, 1}), 1e-12)
}

func TestLinearRegressionGrad(t *testing.T) {
	lr := testProblem(t, false)
	beta := []float64{1, 1}

	// residual = (0, 0, -1); X'r = (-1, -1).
	got := lr.Grad(beta)
	assert.InDelta(t, -1.0, got[0], 1e-12)
	assert.InDelta(t, -1.0, got[1], 1e-12)

	approx := functions.ApproxGrad(lr, beta)
	for i := range got {
		assert.InDelta(t, got[i], approx[i], 1e-6)
	}
}

func TestLinearRegressionLipschitz(t *testing.T) {
	// Orthogonal columns make the spectrum explicit: X'X = diag(2, 4).
	x := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 2,
		1, 0,
	})
	y := mat.NewVecDense(3, nil)
	lr, err := losses.NewLinearRegression(x, y, false)
	require.NoError(t, err)

	want := 4.0
	assert.InDelta(t, want, lr.L(nil), 1e-9)

	// cached and stable across Reset
	assert.InDelta(t, want, lr.L(nil), 1e-9)
	lr.Reset()
	assert.InDelta(t, want, lr.L(nil), 1e-9)
}

func TestLinearRegressionDimensionMismatch(t *testing.T) {
	x := mat.NewDense(3, 2, nil)
	y := mat.NewVecDense(4, nil)
	_, err := losses.NewLinearRegression(x, y, false)
	assert.Error(t, err)

	lr := testProblem(t, false)
	assert.Panics(t, func() { lr.Func([]float64{1, 2, 3}) })
}

func TestLinearRegressionCloneOwnsCache(t *testing.T) {
	lr := testProblem(t, false)
	lip := lr.L(nil)

	cp, ok := lr.CloneFunction().(*losses.LinearRegression)
	require.True(t, ok)

	cp.Reset()
	assert.InDelta(t, lip, cp.L(nil), 1e-12)
	assert.InDelta(t, lr.Func([]float64{1, 1}), cp.Func([]float64{1, 1}), 1e-12)
}
