package functions_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/on-the-slope/taylor_go/functions"
)

// countingCube tracks how many times each operation actually runs.
type countingCube struct {
	funcCalls, gradCalls, resets int
}

func (c *countingCube) Func(x []float64) float64 {
	c.funcCalls++
	return x[0] * x[0] * x[0]
}

func (c *countingCube) Grad(x []float64) []float64 {
	c.gradCalls++
	return []float64{3 * x[0] * x[0]}
}

func (c *countingCube) Reset() {
	c.resets++
}

func TestMemoizeCachesPerPoint(t *testing.T) {
	fn := &countingCube{}
	memo := functions.Memoize(fn, 8)

	assert.Equal(t, 8.0, memo.Func([]float64{2}))
	assert.Equal(t, 8.0, memo.Func([]float64{2}))
	assert.Equal(t, 1, fn.funcCalls)

	assert.Equal(t, 27.0, memo.Func([]float64{3}))
	assert.Equal(t, 2, fn.funcCalls)

	assert.Equal(t, []float64{12}, memo.Grad([]float64{2}))
	assert.Equal(t, []float64{12}, memo.Grad([]float64{2}))
	assert.Equal(t, 1, fn.gradCalls)
	assert.Equal(t, 2, fn.funcCalls, "gradients never recompute values")
}

func TestMemoizeRotatesGenerations(t *testing.T) {
	fn := &countingCube{}
	memo := functions.Memoize(fn, 2)

	memo.Func([]float64{1})
	memo.Func([]float64{2})
	memo.Func([]float64{3})
	assert.Equal(t, 3, fn.funcCalls)

	// {1, 2} rotated out of the head but stay readable one generation.
	memo.Func([]float64{1})
	assert.Equal(t, 3, fn.funcCalls)

	memo.Func([]float64{4})
	memo.Func([]float64{5})
	memo.Func([]float64{1})
	assert.Equal(t, 6, fn.funcCalls, "second rotation drops the oldest generation")
}

func TestMemoizeResetDropsEverything(t *testing.T) {
	fn := &countingCube{}
	memo := functions.Memoize(fn, 8)

	memo.Func([]float64{2})
	memo.Grad([]float64{2})
	memo.Reset()
	require.Equal(t, 1, fn.resets)

	memo.Func([]float64{2})
	memo.Grad([]float64{2})
	assert.Equal(t, 2, fn.funcCalls)
	assert.Equal(t, 2, fn.gradCalls)
}

func TestMemoizeClonesShareTables(t *testing.T) {
	fn := &countingCube{}
	memo := functions.Memoize(fn, 8)

	clone, ok := memo.CloneFunction().(*functions.Memoized)
	require.True(t, ok)

	memo.Func([]float64{2})
	assert.Equal(t, 8.0, clone.Func([]float64{2}))
	assert.Equal(t, 1, fn.funcCalls, "the clone reads the shared table")

	clone.Func([]float64{3})
	assert.Equal(t, 27.0, memo.Func([]float64{3}))
	assert.Equal(t, 2, fn.funcCalls)
}

func TestMemoizeRejectsNonpositiveCapacity(t *testing.T) {
	assert.Panics(t, func() { functions.Memoize(&countingCube{}, 0) })
}
