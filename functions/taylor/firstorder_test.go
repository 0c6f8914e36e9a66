package taylor_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/on-the-slope/taylor_go/functions"
	"github.com/on-the-slope/taylor_go/functions/taylor"
)

// countingQuad is f(x) = x0^2 + 3*x1^2 with call counters, so tests can
// pin down exactly how often the wrapped function runs.
type countingQuad struct {
	funcCalls, gradCalls, resets int
}

func (q *countingQuad) Func(x []float64) float64 {
	q.funcCalls++
	return x[0]*x[0] + 3*x[1]*x[1]
}

func (q *countingQuad) Grad(x []float64) []float64 {
	q.gradCalls++
	return []float64{2 * x[0], 6 * x[1]}
}

func (q *countingQuad) Reset() { q.resets++ }

func TestFirstOrderMatchesFunctionAtCenter(t *testing.T) {
	q := &countingQuad{}
	a := []float64{1, 2}
	fo := taylor.NewFirstOrder(q, a)

	assert.InDelta(t, 13.0, fo.Func(a), 1e-12)
}

func TestFirstOrderEvaluatesTangentPlane(t *testing.T) {
	q := &countingQuad{}
	fo := taylor.NewFirstOrder(q, []float64{1, 2})

	// f(a)=13, grad f(a)=(2,12); at x=(2,3): 13 + 2 + 12 = 27.
	assert.InDelta(t, 27.0, fo.Func([]float64{2, 3}), 1e-12)

	g := fo.Grad([]float64{100, -100})
	assert.InDelta(t, 2.0, g[0], 1e-12)
	assert.InDelta(t, 12.0, g[1], 1e-12)
}

func TestFirstOrderConsultsWrappedFunctionOnce(t *testing.T) {
	q := &countingQuad{}
	fo := taylor.NewFirstOrder(q, []float64{1, 2})

	fo.Func([]float64{2, 3})
	fo.Func([]float64{0, 0})
	fo.Func([]float64{-5, 7})
	fo.Grad(nil)
	fo.Grad(nil)

	assert.Equal(t, 1, q.funcCalls)
	assert.Equal(t, 1, q.gradCalls)
}

func TestFirstOrderRecenterInvalidatesCaches(t *testing.T) {
	q := &countingQuad{}
	fo := taylor.NewFirstOrder(q, []float64{1, 2})
	fo.Func([]float64{2, 3})

	fo.Recenter([]float64{0, 1})

	// f(b)=3, grad f(b)=(0,6); at x=(2,3): 3 + 0 + 12 = 15.
	assert.InDelta(t, 15.0, fo.Func([]float64{2, 3}), 1e-12)
	assert.Equal(t, 2, q.funcCalls)
	assert.Equal(t, 2, q.gradCalls)
	assert.Equal(t, []float64{0, 1}, fo.Point())
}

func TestFirstOrderRecenterCopiesThePoint(t *testing.T) {
	q := &countingQuad{}
	b := []float64{0, 1}
	fo := taylor.NewFirstOrder(q, b)

	b[0] = 42
	assert.Equal(t, []float64{0, 1}, fo.Point())
}

func TestFirstOrderResetForcesRecompute(t *testing.T) {
	q := &countingQuad{}
	fo := taylor.NewFirstOrder(q, []float64{1, 2})
	fo.Func([]float64{2, 3})
	resetsBefore := q.resets

	fo.Reset()

	assert.Equal(t, resetsBefore+1, q.resets)
	assert.InDelta(t, 27.0, fo.Func([]float64{2, 3}), 1e-12)
	assert.Equal(t, 2, q.funcCalls)
}

func TestFirstOrderLipschitzConstant(t *testing.T) {
	fo := taylor.NewFirstOrder(&countingQuad{}, []float64{1, 2})

	l := fo.L(nil)
	assert.Greater(t, l, 0.0)
	assert.InDelta(t, math.Sqrt(functions.Tolerance), l, 1e-15)
	assert.InDelta(t, l, fo.L([]float64{9, 9}), 1e-15)
}

func TestFirstOrderCloneIsIndependent(t *testing.T) {
	q := &countingQuad{}
	fo := taylor.NewFirstOrder(q, []float64{1, 2})
	fo.Func([]float64{2, 3})

	cp, ok := fo.CloneFunction().(*taylor.FirstOrder)
	assert.True(t, ok)

	// warm caches carry over: evaluating the clone consults nothing
	assert.InDelta(t, 27.0, cp.Func([]float64{2, 3}), 1e-12)
	assert.Equal(t, 1, q.funcCalls)

	cp.Recenter([]float64{0, 1})
	assert.Equal(t, []float64{1, 2}, fo.Point())
	assert.InDelta(t, 27.0, fo.Func([]float64{2, 3}), 1e-12)
	assert.InDelta(t, 15.0, cp.Func([]float64{2, 3}), 1e-12)
}

func TestFirstOrderExposesWrappedFunction(t *testing.T) {
	q := &countingQuad{}
	fo := taylor.NewFirstOrder(q, []float64{1, 2})
	assert.Same(t, q, fo.Wrapped())
}
