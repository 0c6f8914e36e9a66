package multiblock_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/on-the-slope/taylor_go/functions/multiblock"
)

func latentFixture(t *testing.T) *multiblock.LatentCovariance {
	t.Helper()
	x := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
	})
	y := mat.NewDense(3, 1, []float64{2, 4, 6})
	lc, err := multiblock.NewLatentCovariance(x, y)
	require.NoError(t, err)
	return lc
}

func TestLatentCovarianceValue(t *testing.T) {
	lc := latentFixture(t)

	// C = X'Y/2 = [[4], [5]]; f = -u'Cv.
	w := [][]float64{{1, 2}, {3}}
	assert.InDelta(t, -42.0, lc.Func(w), 1e-12)
}

func TestLatentCovarianceGrads(t *testing.T) {
	lc := latentFixture(t)
	w := [][]float64{{1, 2}, {3}}

	g0 := lc.Grad(w, 0)
	require.Len(t, g0, 2)
	assert.InDelta(t, -12.0, g0[0], 1e-12)
	assert.InDelta(t, -15.0, g0[1], 1e-12)

	g1 := lc.Grad(w, 1)
	require.Len(t, g1, 1)
	assert.InDelta(t, -14.0, g1[0], 1e-12)
}

func TestLatentCovarianceConstructionErrors(t *testing.T) {
	_, err := multiblock.NewLatentCovariance(mat.NewDense(3, 2, nil), mat.NewDense(4, 1, nil))
	assert.Error(t, err)

	_, err = multiblock.NewLatentCovariance(mat.NewDense(1, 2, nil), mat.NewDense(1, 1, nil))
	assert.Error(t, err)
}

func TestLatentCovarianceShapePanics(t *testing.T) {
	lc := latentFixture(t)
	assert.Panics(t, func() { lc.Func([][]float64{{1, 2}}) })
	assert.Panics(t, func() { lc.Grad([][]float64{{1, 2}, {3}}, 2) })
}
