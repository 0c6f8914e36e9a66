// Package losses provides the smooth data-fit terms of composite
// objectives.
package losses

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/on-the-slope/taylor_go/functions"
)

// LinearRegression is the squared-error loss
//
//	f(b) = ||X*b - y||^2 / (2*s)
//
// where s is 1, or the number of samples when mean scaling is requested.
// The Lipschitz constant of its gradient is the squared largest singular
// value of X over s; it is computed once per instance and cached until
// Reset.
type LinearRegression struct {
	x    *mat.Dense
	y    *mat.VecDense
	mean bool

	lip     float64
	haveLip bool
}

var _ functions.Differentiable = (*LinearRegression)(nil)
var _ functions.LipschitzContinuousGradient = (*LinearRegression)(nil)
var _ functions.Cloner = (*LinearRegression)(nil)

// NewLinearRegression builds the loss over design matrix x and response y.
// mean switches from sum-of-squares to mean-of-squares scaling.
func NewLinearRegression(x *mat.Dense, y *mat.VecDense, mean bool) (*LinearRegression, error) {
	n, _ := x.Dims()
	if n != y.Len() {
		return nil, fmt.Errorf("losses: design matrix has %d rows but response has %d entries", n, y.Len())
	}
	return &LinearRegression{x: x, y: y, mean: mean}, nil
}

func (lr *LinearRegression) scale() float64 {
	if lr.mean {
		n, _ := lr.x.Dims()
		return float64(n)
	}
	return 1
}

func (lr *LinearRegression) residual(beta []float64) *mat.VecDense {
	n, p := lr.x.Dims()
	if len(beta) != p {
		panic(fmt.Sprintf("losses: linear regression over %d coefficients, got %d", p, len(beta)))
	}
	r := mat.NewVecDense(n, nil)
	r.MulVec(lr.x, mat.NewVecDense(p, beta))
	r.SubVec(r, lr.y)
	return r
}

func (lr *LinearRegression) Func(beta []float64) float64 {
	r := lr.residual(beta)
	return mat.Dot(r, r) / (2 * lr.scale())
}

func (lr *LinearRegression) Grad(beta []float64) []float64 {
	r := lr.residual(beta)
	_, p := lr.x.Dims()
	g := mat.NewVecDense(p, nil)
	g.MulVec(lr.x.T(), r)
	if s := lr.scale(); s != 1 {
		g.ScaleVec(1/s, g)
	}
	return g.RawVector().Data
}

// L returns sigma_max(X)^2 / s. The singular value decomposition runs at
// most once per instance.
func (lr *LinearRegression) L(_ []float64) float64 {
	if !lr.haveLip {
		var svd mat.SVD
		if ok := svd.Factorize(lr.x, mat.SVDNone); !ok {
			panic("losses: singular value decomposition of the design matrix failed")
		}
		s0 := svd.Values(nil)[0]
		lr.lip = s0 * s0 / lr.scale()
		lr.haveLip = true
	}
	return lr.lip
}

// Reset drops the cached Lipschitz constant.
func (lr *LinearRegression) Reset() {
	lr.haveLip = false
}

// CloneFunction returns a loss sharing the immutable data matrices but
// owning its cache fields, so clones can be evaluated independently.
func (lr *LinearRegression) CloneFunction() functions.Function {
	cp := *lr
	return &cp
}
