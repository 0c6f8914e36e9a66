package taylor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/on-the-slope/taylor_go/functions"
	"github.com/on-the-slope/taylor_go/functions/multiblock"
	"github.com/on-the-slope/taylor_go/shared/vecs"
)

// mbApproximation is the sealed set of multiblock Taylor terms the engine
// recenters when it finds them inside a composite.
type mbApproximation interface {
	Recenter(point [][]float64)
	taylorMultiblockApproximation()
}

// MultiblockFirstOrder is the first-order expansion of a multiblock
// function around a block tuple a, restricted to the blocks the function
// actually couples:
//
//	T(w) = f(sel) + sum_i <grad_i f(sel), w[i] - a[indices[i]]>
//
// where sel = [a[indices[0]], a[indices[1]], ...]. The argument w uses the
// same selected layout: w[i] pairs with a[indices[i]]. Inside a composite
// grid this makes a term at position (i, j) line up with indices [i, j].
type MultiblockFirstOrder struct {
	fn      multiblock.Function
	point   [][]float64
	indices []int

	haveValue   bool
	valueAt     float64
	gradAtPoint [][]float64
}

var _ multiblock.Function = (*MultiblockFirstOrder)(nil)
var _ multiblock.LipschitzContinuousGradient = (*MultiblockFirstOrder)(nil)
var _ multiblock.Cloner = (*MultiblockFirstOrder)(nil)
var _ mbApproximation = (*MultiblockFirstOrder)(nil)
var _ MultiblockSurrogate = (*MultiblockFirstOrder)(nil)

// NewMultiblockFirstOrder expands fn around the block tuple point.
// indices name the blocks of the tuple fn couples, in the order fn
// expects them. The tuple and the index list are copied.
func NewMultiblockFirstOrder(fn multiblock.Function, point [][]float64, indices []int) (*MultiblockFirstOrder, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("%w: expansion needs at least one block index", ErrStructure)
	}
	for _, idx := range indices {
		if idx < 0 || idx >= len(point) {
			return nil, fmt.Errorf("%w: block index %d out of range for a %d-block tuple", ErrStructure, idx, len(point))
		}
	}
	a := &MultiblockFirstOrder{fn: fn, indices: append([]int(nil), indices...)}
	a.Recenter(point)
	return a, nil
}

// Recenter moves the expansion tuple and invalidates the cached value and
// gradients. The tuple must still cover every index the expansion was
// built with.
func (a *MultiblockFirstOrder) Recenter(point [][]float64) {
	for _, idx := range a.indices {
		if idx >= len(point) {
			panic(fmt.Sprintf("taylor: expansion indexes block %d, tuple has %d blocks", idx, len(point)))
		}
	}
	a.point = vecs.CloneBlocks(point)
	a.Reset()
}

// Reset resets the wrapped function first, then drops the local caches.
func (a *MultiblockFirstOrder) Reset() {
	a.fn.Reset()
	a.haveValue = false
	a.gradAtPoint = nil
}

// selected is the sub-tuple of the expansion point addressed by indices.
func (a *MultiblockFirstOrder) selected() [][]float64 {
	sel := make([][]float64, len(a.indices))
	for i, idx := range a.indices {
		sel[i] = a.point[idx]
	}
	return sel
}

// precompute fills the caches in one visit: the wrapped gradient is
// defined against the whole selected tuple, so all block gradients are
// taken together.
func (a *MultiblockFirstOrder) precompute() {
	sel := a.selected()
	if !a.haveValue {
		a.valueAt = a.fn.Func(sel)
		a.haveValue = true
	}
	if a.gradAtPoint == nil {
		grads := make([][]float64, len(a.indices))
		for i := range a.indices {
			grads[i] = vecs.Clone(a.fn.Grad(sel, i))
		}
		a.gradAtPoint = grads
	}
}

// Func evaluates the expansion at w, given in selected layout.
func (a *MultiblockFirstOrder) Func(w [][]float64) float64 {
	if len(w) != len(a.indices) {
		panic(fmt.Sprintf("taylor: expansion spans %d blocks, tuple has %d", len(a.indices), len(w)))
	}
	a.precompute()
	v := a.valueAt
	for i, idx := range a.indices {
		d := make([]float64, len(w[i]))
		floats.SubTo(d, w[i], a.point[idx])
		v += floats.Dot(a.gradAtPoint[i], d)
	}
	return v
}

// Grad returns the cached gradient of one selected block; it is constant
// in w. The returned slice is the cache itself; callers must not modify
// it.
func (a *MultiblockFirstOrder) Grad(_ [][]float64, block int) []float64 {
	if block < 0 || block >= len(a.indices) {
		panic(fmt.Sprintf("taylor: expansion spans %d blocks, got index %d", len(a.indices), block))
	}
	a.precompute()
	return a.gradAtPoint[block]
}

// L returns the same fixed small positive constant for every block.
func (a *MultiblockFirstOrder) L(_ [][]float64, _ int) float64 {
	return math.Sqrt(functions.Tolerance)
}

// Wrapped returns the function being approximated.
func (a *MultiblockFirstOrder) Wrapped() multiblock.Function {
	return a.fn
}

// Point returns the current expansion tuple. Callers must not modify it.
func (a *MultiblockFirstOrder) Point() [][]float64 {
	return a.point
}

// Indices returns a copy of the block indices the expansion covers.
func (a *MultiblockFirstOrder) Indices() []int {
	return append([]int(nil), a.indices...)
}

// CloneMultiblock returns an independent expansion of the same function
// around the same tuple, warm caches included.
func (a *MultiblockFirstOrder) CloneMultiblock() multiblock.Function {
	fn := a.fn
	if cl, ok := fn.(multiblock.Cloner); ok {
		fn = cl.CloneMultiblock()
	}
	return &MultiblockFirstOrder{
		fn:          fn,
		point:       vecs.CloneBlocks(a.point),
		indices:     append([]int(nil), a.indices...),
		haveValue:   a.haveValue,
		valueAt:     a.valueAt,
		gradAtPoint: vecs.CloneBlocks(a.gradAtPoint),
	}
}

func (a *MultiblockFirstOrder) taylorMultiblockApproximation() {}
