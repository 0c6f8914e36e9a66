package multiblock

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LatentCovariance is the negative cross-covariance between the latent
// scores of two data blocks:
//
//	f([u, v]) = -(X*u)'(Y*v) / (n-1)
//
// Maximizing covariance between projections is the driving loss of
// two-block latent variable models; the sign makes it a minimization
// term. The cross-product matrix X'Y/(n-1) is formed once at
// construction.
type LatentCovariance struct {
	c    *mat.Dense
	p, q int
}

var _ Function = (*LatentCovariance)(nil)

// NewLatentCovariance builds the loss from two data blocks with one row
// per sample. The blocks must agree on the number of samples.
func NewLatentCovariance(x, y *mat.Dense) (*LatentCovariance, error) {
	xr, xc := x.Dims()
	yr, yc := y.Dims()
	if xr != yr {
		return nil, fmt.Errorf("multiblock: latent covariance needs matching sample counts, got %d and %d", xr, yr)
	}
	if xr < 2 {
		return nil, fmt.Errorf("multiblock: latent covariance needs at least two samples, got %d", xr)
	}
	c := mat.NewDense(xc, yc, nil)
	c.Mul(x.T(), y)
	c.Scale(1/float64(xr-1), c)
	return &LatentCovariance{c: c, p: xc, q: yc}, nil
}

func (l *LatentCovariance) tuple(w [][]float64) (u, v *mat.VecDense) {
	if len(w) != 2 {
		panic(fmt.Sprintf("multiblock: latent covariance couples two blocks, tuple has %d", len(w)))
	}
	return mat.NewVecDense(l.p, w[0]), mat.NewVecDense(l.q, w[1])
}

func (l *LatentCovariance) Func(w [][]float64) float64 {
	u, v := l.tuple(w)
	cv := mat.NewVecDense(l.p, nil)
	cv.MulVec(l.c, v)
	return -mat.Dot(u, cv)
}

func (l *LatentCovariance) Grad(w [][]float64, block int) []float64 {
	u, v := l.tuple(w)
	switch block {
	case 0:
		g := mat.NewVecDense(l.p, nil)
		g.MulVec(l.c, v)
		g.ScaleVec(-1, g)
		return g.RawVector().Data
	case 1:
		g := mat.NewVecDense(l.q, nil)
		g.MulVec(l.c.T(), u)
		g.ScaleVec(-1, g)
		return g.RawVector().Data
	default:
		panic(fmt.Sprintf("multiblock: latent covariance has two blocks, got index %d", block))
	}
}

// Reset is a no-op: the cross-product matrix is construction-time state,
// not an evaluation cache.
func (l *LatentCovariance) Reset() {}
