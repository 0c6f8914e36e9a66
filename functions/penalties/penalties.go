// Package penalties provides the regularization terms used to assemble
// composite objectives: smooth ones contribute gradients, non-smooth ones
// contribute proximal steps. All of them are stateless, so a single
// instance can be shared across objectives and their clones.
package penalties

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/on-the-slope/taylor_go/functions"
)

// L1 is the lasso penalty lambda*||x||_1. It has no gradient; consumers
// drive it through its proximal operator.
type L1 struct {
	Lambda float64
}

var _ functions.Function = (*L1)(nil)
var _ functions.ProximalOperator = (*L1)(nil)

func NewL1(lambda float64) *L1 {
	return &L1{Lambda: lambda}
}

func (p *L1) Func(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += math.Abs(v)
	}
	return p.Lambda * s
}

// Prox soft-thresholds x coordinate-wise with threshold t*lambda.
func (p *L1) Prox(x []float64, t float64) []float64 {
	out := make([]float64, len(x))
	th := t * p.Lambda
	for i, v := range x {
		switch {
		case v > th:
			out[i] = v - th
		case v < -th:
			out[i] = v + th
		}
	}
	return out
}

func (p *L1) Reset() {}

// L2Squared is the ridge penalty (lambda/2)*||x||^2.
type L2Squared struct {
	Lambda float64
}

var _ functions.Differentiable = (*L2Squared)(nil)
var _ functions.LipschitzContinuousGradient = (*L2Squared)(nil)

func NewL2Squared(lambda float64) *L2Squared {
	return &L2Squared{Lambda: lambda}
}

func (p *L2Squared) Func(x []float64) float64 {
	return 0.5 * p.Lambda * floats.Dot(x, x)
}

func (p *L2Squared) Grad(x []float64) []float64 {
	g := make([]float64, len(x))
	floats.AddScaled(g, p.Lambda, x)
	return g
}

// L is exactly lambda: the gradient lambda*x is linear in x.
func (p *L2Squared) L(_ []float64) float64 {
	return p.Lambda
}

func (p *L2Squared) Reset() {}
