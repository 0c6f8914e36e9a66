// Package multiblock extends the objective contracts to functions over
// several variable blocks.
//
// A multiblock point is a tuple w of vectors, one per block, and blocks
// may have different lengths. Gradients are taken per block: Grad(w, i)
// differentiates with respect to w[i] while the other blocks stay fixed.
// Pairwise terms, the common case in multiview models, see only the two
// blocks they couple, passed as a two-entry tuple.
package multiblock

import "github.com/on-the-slope/taylor_go/functions"

// Function is the minimal contract of a multiblock objective term.
type Function interface {
	// Func evaluates the term at the block tuple w.
	Func(w [][]float64) float64
	// Grad returns the gradient with respect to w[block].
	Grad(w [][]float64, block int) []float64
	// Reset discards cached state so the next evaluation recomputes it.
	Reset()
}

// LipschitzContinuousGradient is implemented by multiblock terms that can
// bound the Lipschitz constant of one block's gradient.
type LipschitzContinuousGradient interface {
	L(w [][]float64, block int) float64
}

// Composite is implemented by multiblock objectives that can tell their
// smooth loss part from the part that must stay exact.
type Composite interface {
	Function
	LossValue(w [][]float64) float64
	LossGrad(w [][]float64, block int) []float64
	PenaltyValue(w [][]float64) float64
	PenaltyGrad(w [][]float64, block int) []float64
}

// Cloner is the multiblock counterpart of functions.Cloner.
type Cloner interface {
	CloneMultiblock() Function
}

// cloneTerm copies a multiblock term when it asks to be copied.
func cloneTerm(f Function) Function {
	if cl, ok := f.(Cloner); ok {
		return cl.CloneMultiblock()
	}
	return f
}

// cloneSingle copies a single-block term when it asks to be copied.
func cloneSingle(f functions.Function) functions.Function {
	if cl, ok := f.(functions.Cloner); ok {
		return cl.CloneFunction()
	}
	return f
}
