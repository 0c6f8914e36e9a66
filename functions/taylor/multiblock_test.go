package taylor_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/on-the-slope/taylor_go/functions"
	"github.com/on-the-slope/taylor_go/functions/taylor"
	"github.com/on-the-slope/taylor_go/shared/vecs"
)

// countingBilinear is f([u, v]) = u.v with call counters.
type countingBilinear struct {
	funcCalls, gradCalls, resets int
}

func (b *countingBilinear) Func(w [][]float64) float64 {
	b.funcCalls++
	return floats.Dot(w[0], w[1])
}

func (b *countingBilinear) Grad(w [][]float64, block int) []float64 {
	b.gradCalls++
	switch block {
	case 0:
		return vecs.Clone(w[1])
	case 1:
		return vecs.Clone(w[0])
	default:
		panic("bilinear couples two blocks")
	}
}

func (b *countingBilinear) Reset() { b.resets++ }

func TestMultiblockFirstOrderSelectsBlocks(t *testing.T) {
	b := &countingBilinear{}
	point := [][]float64{{1}, {9}, {3}}

	fo, err := taylor.NewMultiblockFirstOrder(b, point, []int{0, 2})
	require.NoError(t, err)

	// sel = ([1], [3]): f=3, grads ([3], [1]).
	// T(([2], [5])) = 3 + 3*(2-1) + 1*(5-3) = 8.
	assert.InDelta(t, 8.0, fo.Func([][]float64{{2}, {5}}), 1e-12)
	assert.Equal(t, []int{0, 2}, fo.Indices())
}

func TestMultiblockFirstOrderGradsAreCachedTogether(t *testing.T) {
	b := &countingBilinear{}
	fo, err := taylor.NewMultiblockFirstOrder(b, [][]float64{{1}, {9}, {3}}, []int{0, 2})
	require.NoError(t, err)

	fo.Func([][]float64{{2}, {5}})
	fo.Func([][]float64{{0}, {0}})

	g0 := fo.Grad(nil, 0)
	g1 := fo.Grad(nil, 1)
	assert.InDelta(t, 3.0, g0[0], 1e-12)
	assert.InDelta(t, 1.0, g1[0], 1e-12)

	assert.Equal(t, 1, b.funcCalls)
	assert.Equal(t, 2, b.gradCalls)
}

func TestMultiblockFirstOrderRecenter(t *testing.T) {
	b := &countingBilinear{}
	fo, err := taylor.NewMultiblockFirstOrder(b, [][]float64{{1}, {9}, {3}}, []int{0, 2})
	require.NoError(t, err)
	fo.Func([][]float64{{2}, {5}})

	fo.Recenter([][]float64{{0}, {9}, {1}})

	// sel = ([0], [1]): f=0, grads ([1], [0]).
	// T(([2], [5])) = 0 + 1*(2-0) + 0*(5-1) = 2.
	assert.InDelta(t, 2.0, fo.Func([][]float64{{2}, {5}}), 1e-12)
	assert.Equal(t, 2, b.funcCalls)
}

func TestMultiblockFirstOrderRejectsBadIndices(t *testing.T) {
	b := &countingBilinear{}
	point := [][]float64{{1}, {2}}

	_, err := taylor.NewMultiblockFirstOrder(b, point, nil)
	assert.ErrorIs(t, err, taylor.ErrStructure)

	_, err = taylor.NewMultiblockFirstOrder(b, point, []int{0, 5})
	assert.ErrorIs(t, err, taylor.ErrStructure)

	_, err = taylor.NewMultiblockFirstOrder(b, point, []int{-1})
	assert.ErrorIs(t, err, taylor.ErrStructure)
}

func TestMultiblockFirstOrderShapePanics(t *testing.T) {
	b := &countingBilinear{}
	fo, err := taylor.NewMultiblockFirstOrder(b, [][]float64{{1}, {2}}, []int{0, 1})
	require.NoError(t, err)

	assert.Panics(t, func() { fo.Func([][]float64{{1}}) })
	assert.Panics(t, func() { fo.Grad(nil, 2) })
	assert.Panics(t, func() { fo.Recenter([][]float64{{1}}) })
}

func TestMultiblockFirstOrderLipschitzConstant(t *testing.T) {
	b := &countingBilinear{}
	fo, err := taylor.NewMultiblockFirstOrder(b, [][]float64{{1}, {2}}, []int{0, 1})
	require.NoError(t, err)

	assert.InDelta(t, math.Sqrt(functions.Tolerance), fo.L(nil, 0), 1e-15)
	assert.InDelta(t, fo.L(nil, 0), fo.L(nil, 1), 1e-15)
}

func TestMultiblockFirstOrderCloneIsIndependent(t *testing.T) {
	b := &countingBilinear{}
	fo, err := taylor.NewMultiblockFirstOrder(b, [][]float64{{1}, {9}, {3}}, []int{0, 2})
	require.NoError(t, err)
	fo.Func([][]float64{{2}, {5}})

	cp, ok := fo.CloneMultiblock().(*taylor.MultiblockFirstOrder)
	require.True(t, ok)

	// warm caches carry over
	assert.InDelta(t, 8.0, cp.Func([][]float64{{2}, {5}}), 1e-12)
	assert.Equal(t, 1, b.funcCalls)

	cp.Recenter([][]float64{{0}, {9}, {1}})
	assert.InDelta(t, 8.0, fo.Func([][]float64{{2}, {5}}), 1e-12)
	assert.InDelta(t, 2.0, cp.Func([][]float64{{2}, {5}}), 1e-12)
}
