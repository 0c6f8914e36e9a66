// Package combined assembles objective terms into one composite function.
//
// A composite keeps its terms in three groups. Losses are the smooth
// data-fit terms; they are what first-order surrogates approximate.
// Penalties are smooth regularizers, evaluated exactly and differentiated
// alongside the losses. Prox terms are non-smooth regularizers; they join
// every function value but never the gradient, and downstream solvers
// drive them through their proximal operators.
package combined

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/on-the-slope/taylor_go/functions"
)

// Group identifies which term group a traversal is visiting.
type Group int

const (
	GroupLoss Group = iota
	GroupPenalty
	GroupProx
)

func (g Group) String() string {
	switch g {
	case GroupLoss:
		return "loss"
	case GroupPenalty:
		return "penalty"
	case GroupProx:
		return "prox"
	default:
		panic(fmt.Sprintf("combined: unknown term group %d", int(g)))
	}
}

// Function is a composite objective: the sum of its losses, penalties and
// prox terms. The zero value is unusable; start from New.
type Function struct {
	losses    []functions.Differentiable
	penalties []functions.Differentiable
	prox      []functions.Function
}

var _ functions.Composite = (*Function)(nil)
var _ functions.Differentiable = (*Function)(nil)
var _ functions.LipschitzContinuousGradient = (*Function)(nil)
var _ functions.Cloner = (*Function)(nil)

func New() *Function {
	return &Function{}
}

// AddLoss appends a smooth loss term.
func (c *Function) AddLoss(f functions.Differentiable) {
	c.losses = append(c.losses, f)
}

// AddPenalty appends a smooth penalty term.
func (c *Function) AddPenalty(f functions.Differentiable) {
	c.penalties = append(c.penalties, f)
}

// AddProx appends a non-smooth term.
func (c *Function) AddProx(f functions.Function) {
	c.prox = append(c.prox, f)
}

// Counts reports the number of terms per group.
func (c *Function) Counts() (losses, penalties, prox int) {
	return len(c.losses), len(c.penalties), len(c.prox)
}

// Func is the total objective at x.
func (c *Function) Func(x []float64) float64 {
	return c.LossValue(x) + c.PenaltyValue(x)
}

// Grad is the gradient of the smooth terms at x. Prox terms contribute
// nothing; their subdifferential is handled by proximal steps.
func (c *Function) Grad(x []float64) []float64 {
	g := c.LossGrad(x)
	floats.Add(g, c.PenaltyGrad(x))
	return g
}

func (c *Function) LossValue(x []float64) float64 {
	var v float64
	for _, f := range c.losses {
		v += f.Func(x)
	}
	return v
}

func (c *Function) LossGrad(x []float64) []float64 {
	g := make([]float64, len(x))
	for _, f := range c.losses {
		floats.Add(g, f.Grad(x))
	}
	return g
}

func (c *Function) PenaltyValue(x []float64) float64 {
	var v float64
	for _, f := range c.penalties {
		v += f.Func(x)
	}
	for _, f := range c.prox {
		v += f.Func(x)
	}
	return v
}

func (c *Function) PenaltyGrad(x []float64) []float64 {
	g := make([]float64, len(x))
	for _, f := range c.penalties {
		floats.Add(g, f.Grad(x))
	}
	return g
}

// L sums the gradient Lipschitz bounds of the smooth terms. Terms that do
// not know their bound contribute nothing; callers mixing such terms in
// must bound them externally.
func (c *Function) L(x []float64) float64 {
	var l float64
	for _, f := range c.losses {
		if lf, ok := f.(functions.LipschitzContinuousGradient); ok {
			l += lf.L(x)
		}
	}
	for _, f := range c.penalties {
		if lf, ok := f.(functions.LipschitzContinuousGradient); ok {
			l += lf.L(x)
		}
	}
	return l
}

// Prox applies the proximal operator of the non-smooth part. It is only
// defined when the composite holds exactly one prox term and that term
// exposes a proximal operator.
func (c *Function) Prox(x []float64, t float64) ([]float64, error) {
	if n := len(c.prox); n != 1 {
		return nil, fmt.Errorf("combined: proximal step needs exactly one prox term, have %d", n)
	}
	p, ok := c.prox[0].(functions.ProximalOperator)
	if !ok {
		return nil, fmt.Errorf("combined: prox term %T exposes no proximal operator", c.prox[0])
	}
	return p.Prox(x, t), nil
}

// Reset cascades to every term.
func (c *Function) Reset() {
	for _, f := range c.losses {
		f.Reset()
	}
	for _, f := range c.penalties {
		f.Reset()
	}
	for _, f := range c.prox {
		f.Reset()
	}
}

// MapTerms applies rewrite to every term, group by group in loss, penalty,
// prox order, storing the returned function back into the slot. Loss and
// penalty slots must stay differentiable after the rewrite. An error from
// rewrite aborts the traversal with the composite partially rewritten.
func (c *Function) MapTerms(rewrite func(g Group, f functions.Function) (functions.Function, error)) error {
	for i, f := range c.losses {
		nf, err := rewrite(GroupLoss, f)
		if err != nil {
			return err
		}
		d, ok := nf.(functions.Differentiable)
		if !ok {
			return fmt.Errorf("combined: loss term %d rewritten to non-differentiable %T", i, nf)
		}
		c.losses[i] = d
	}
	for i, f := range c.penalties {
		nf, err := rewrite(GroupPenalty, f)
		if err != nil {
			return err
		}
		d, ok := nf.(functions.Differentiable)
		if !ok {
			return fmt.Errorf("combined: penalty term %d rewritten to non-differentiable %T", i, nf)
		}
		c.penalties[i] = d
	}
	for i, f := range c.prox {
		nf, err := rewrite(GroupProx, f)
		if err != nil {
			return err
		}
		c.prox[i] = nf
	}
	return nil
}

// Clone returns a composite with private term slots. Terms implementing
// functions.Cloner are copied; stateless terms are shared between the
// original and the clone.
func (c *Function) Clone() *Function {
	cp := &Function{
		losses:    make([]functions.Differentiable, len(c.losses)),
		penalties: make([]functions.Differentiable, len(c.penalties)),
		prox:      make([]functions.Function, len(c.prox)),
	}
	for i, f := range c.losses {
		cp.losses[i] = cloneDifferentiable(f)
	}
	for i, f := range c.penalties {
		cp.penalties[i] = cloneDifferentiable(f)
	}
	for i, f := range c.prox {
		cp.prox[i] = cloneFunction(f)
	}
	return cp
}

// CloneFunction lets a composite sit inside another composite and still be
// deep-copied with it.
func (c *Function) CloneFunction() functions.Function {
	return c.Clone()
}

func cloneFunction(f functions.Function) functions.Function {
	if cl, ok := f.(functions.Cloner); ok {
		return cl.CloneFunction()
	}
	return f
}

func cloneDifferentiable(f functions.Differentiable) functions.Differentiable {
	cl, ok := f.(functions.Cloner)
	if !ok {
		return f
	}
	d, ok := cl.CloneFunction().(functions.Differentiable)
	if !ok {
		panic(fmt.Sprintf("combined: clone of %T lost its gradient", f))
	}
	return d
}
