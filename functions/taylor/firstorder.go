package taylor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/on-the-slope/taylor_go/functions"
	"github.com/on-the-slope/taylor_go/shared/vecs"
)

// approximation is the sealed set of single-block Taylor terms the engine
// recenters when it finds them inside a composite.
type approximation interface {
	Recenter(point []float64)
	taylorApproximation()
}

// FirstOrder is the first-order Taylor expansion of a differentiable
// function around an expansion point a:
//
//	T(x) = f(a) + <grad f(a), x - a>
//
// The wrapped function's value and gradient at a are computed lazily on
// first use and cached until the expansion point moves. A FirstOrder is a
// regular differentiable term, so it can be placed inside composite
// objectives and recentered in place between outer iterations.
type FirstOrder struct {
	fn    functions.Differentiable
	point []float64

	haveValue   bool
	valueAt     float64
	gradAtPoint []float64
}

var _ functions.Differentiable = (*FirstOrder)(nil)
var _ functions.LipschitzContinuousGradient = (*FirstOrder)(nil)
var _ functions.Cloner = (*FirstOrder)(nil)
var _ approximation = (*FirstOrder)(nil)
var _ Surrogate = (*FirstOrder)(nil)

// NewFirstOrder expands fn around point. The point is copied.
func NewFirstOrder(fn functions.Differentiable, point []float64) *FirstOrder {
	a := &FirstOrder{fn: fn}
	a.Recenter(point)
	return a
}

// Recenter moves the expansion point and invalidates the cached value and
// gradient. The next evaluation consults the wrapped function again.
func (a *FirstOrder) Recenter(point []float64) {
	a.point = vecs.Clone(point)
	a.Reset()
}

// Reset first resets the wrapped function, so nested caches clear from the
// outside in, then drops the local value and gradient caches. The
// expansion point stays where it is.
func (a *FirstOrder) Reset() {
	a.fn.Reset()
	a.haveValue = false
	a.gradAtPoint = nil
}

func (a *FirstOrder) precompute() {
	if !a.haveValue {
		a.valueAt = a.fn.Func(a.point)
		a.haveValue = true
	}
	if a.gradAtPoint == nil {
		a.gradAtPoint = vecs.Clone(a.fn.Grad(a.point))
	}
}

// Func evaluates the expansion at x. However many points are probed, the
// wrapped function runs at most once per expansion point.
func (a *FirstOrder) Func(x []float64) float64 {
	a.precompute()
	d := make([]float64, len(x))
	floats.SubTo(d, x, a.point)
	return a.valueAt + floats.Dot(a.gradAtPoint, d)
}

// Grad returns grad f(a), which is constant in x. The returned slice is
// the cache itself; callers must not modify it.
func (a *FirstOrder) Grad(_ []float64) []float64 {
	a.precompute()
	return a.gradAtPoint
}

// L returns a fixed small positive constant. The expansion is exactly
// linear, so any positive bound is valid, and a small one lets step-size
// rules that divide by L take large steps.
func (a *FirstOrder) L(_ []float64) float64 {
	return math.Sqrt(functions.Tolerance)
}

// Wrapped returns the function being approximated.
func (a *FirstOrder) Wrapped() functions.Differentiable {
	return a.fn
}

// Point returns the current expansion point. Callers must not modify it.
func (a *FirstOrder) Point() []float64 {
	return a.point
}

// CloneFunction returns an independent expansion of the same function
// around the same point. Warm caches carry over; the wrapped function is
// copied only when it implements functions.Cloner itself.
func (a *FirstOrder) CloneFunction() functions.Function {
	fn := a.fn
	if cl, ok := fn.(functions.Cloner); ok {
		d, ok := cl.CloneFunction().(functions.Differentiable)
		if !ok {
			panic(fmt.Sprintf("taylor: clone of %T lost its gradient", a.fn))
		}
		fn = d
	}
	return &FirstOrder{
		fn:          fn,
		point:       vecs.Clone(a.point),
		haveValue:   a.haveValue,
		valueAt:     a.valueAt,
		gradAtPoint: vecs.Clone(a.gradAtPoint),
	}
}

func (a *FirstOrder) taylorApproximation() {}
