package functions

// Function is the minimal contract of an objective term: evaluate at a
// point, and drop whatever was cached while doing so.
type Function interface {
	// Func evaluates the term at x.
	Func(x []float64) float64
	// Reset discards cached state so the next evaluation recomputes it.
	// Terms wrapping other terms reset those first, then themselves.
	Reset()
}

// Gradient is the capability of smooth terms.
type Gradient interface {
	// Grad returns the gradient at x.
	Grad(x []float64) []float64
}

// Differentiable groups the two capabilities every smooth term has.
type Differentiable interface {
	Function
	Gradient
}

// LipschitzContinuousGradient is implemented by terms that can bound the
// Lipschitz constant of their gradient. Step-size rules divide by this
// bound, so implementations must return a strictly positive value.
type LipschitzContinuousGradient interface {
	// L returns an upper bound on the Lipschitz constant of the gradient.
	// Implementations whose bound does not depend on the point ignore x.
	L(x []float64) float64
}

// ProximalOperator is the capability of non-smooth terms that are handled
// through proximal steps instead of gradients.
type ProximalOperator interface {
	// Prox returns argmin_u { f(u) + ||u-x||^2 / (2t) } for step size t.
	Prox(x []float64, t float64) []float64
}

// Composite is implemented by objectives assembled from a smooth loss part
// plus penalty terms that must never be linearized. The split is what
// first-order surrogates key on: the loss part gets approximated, the
// penalty part is carried through exactly.
type Composite interface {
	Function
	// LossValue evaluates only the smooth loss part.
	LossValue(x []float64) float64
	// LossGrad returns the gradient of the smooth loss part. The slice is
	// freshly allocated and owned by the caller.
	LossGrad(x []float64) []float64
	// PenaltyValue evaluates every term outside the loss part.
	PenaltyValue(x []float64) float64
	// PenaltyGrad returns the gradient of the smooth non-loss terms.
	// Non-smooth terms contribute nothing here.
	PenaltyGrad(x []float64) []float64
}

// Cloner is implemented by stateful terms. CloneFunction returns a copy
// whose mutable state (caches, expansion points) is private, so the copy
// and the original can be driven independently. Stateless terms skip this
// interface and are shared freely.
type Cloner interface {
	CloneFunction() Function
}
