package multiblock

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/on-the-slope/taylor_go/functions"
)

// Combined is a multiblock composite objective over a fixed number of
// blocks. Pairwise losses live on a blocks-by-blocks grid: the entry at
// (i, j) couples blocks i and j and is evaluated on the pair tuple
// [w[i], w[j]]. Penalties and prox terms are single-block functions
// attached to the block they regularize.
type Combined struct {
	losses    [][][]Function
	penalties [][]functions.Differentiable
	prox      [][]functions.Function
}

var _ Composite = (*Combined)(nil)
var _ LipschitzContinuousGradient = (*Combined)(nil)
var _ Cloner = (*Combined)(nil)

// NewCombined builds an empty composite over the given number of blocks.
func NewCombined(blocks int) *Combined {
	if blocks < 1 {
		panic("multiblock: a combined function needs at least one block")
	}
	losses := make([][][]Function, blocks)
	for i := range losses {
		losses[i] = make([][]Function, blocks)
	}
	return &Combined{
		losses:    losses,
		penalties: make([][]functions.Differentiable, blocks),
		prox:      make([][]functions.Function, blocks),
	}
}

// Blocks reports the number of variable blocks.
func (c *Combined) Blocks() int {
	return len(c.penalties)
}

func (c *Combined) checkBlock(i int) {
	if i < 0 || i >= c.Blocks() {
		panic(fmt.Sprintf("multiblock: block index %d out of range [0,%d)", i, c.Blocks()))
	}
}

func (c *Combined) checkTuple(w [][]float64) {
	if len(w) != c.Blocks() {
		panic(fmt.Sprintf("multiblock: point tuple has %d blocks, composite has %d", len(w), c.Blocks()))
	}
}

// AddLoss registers a pairwise loss coupling blocks i and j. The function
// will be evaluated on the pair tuple [w[i], w[j]].
func (c *Combined) AddLoss(f Function, i, j int) {
	c.checkBlock(i)
	c.checkBlock(j)
	c.losses[i][j] = append(c.losses[i][j], f)
}

// AddPenalty registers a smooth single-block penalty on block i.
func (c *Combined) AddPenalty(f functions.Differentiable, i int) {
	c.checkBlock(i)
	c.penalties[i] = append(c.penalties[i], f)
}

// AddProx registers a non-smooth single-block term on block i.
func (c *Combined) AddProx(f functions.Function, i int) {
	c.checkBlock(i)
	c.prox[i] = append(c.prox[i], f)
}

// pair is the tuple a loss at grid position (i, j) sees.
func pair(w [][]float64, i, j int) [][]float64 {
	return [][]float64{w[i], w[j]}
}

func (c *Combined) Func(w [][]float64) float64 {
	c.checkTuple(w)
	return c.LossValue(w) + c.PenaltyValue(w)
}

func (c *Combined) LossValue(w [][]float64) float64 {
	var v float64
	for i := range c.losses {
		for j := range c.losses[i] {
			for _, f := range c.losses[i][j] {
				v += f.Func(pair(w, i, j))
			}
		}
	}
	return v
}

func (c *Combined) PenaltyValue(w [][]float64) float64 {
	var v float64
	for i := range c.penalties {
		for _, f := range c.penalties[i] {
			v += f.Func(w[i])
		}
	}
	for i := range c.prox {
		for _, f := range c.prox[i] {
			v += f.Func(w[i])
		}
	}
	return v
}

// Grad assembles the gradient with respect to w[block]: every loss whose
// grid row or column is the block contributes the matching partial, plus
// the smooth penalties of the block. Prox terms contribute nothing.
func (c *Combined) Grad(w [][]float64, block int) []float64 {
	g := c.LossGrad(w, block)
	floats.Add(g, c.PenaltyGrad(w, block))
	return g
}

func (c *Combined) LossGrad(w [][]float64, block int) []float64 {
	c.checkTuple(w)
	c.checkBlock(block)
	g := make([]float64, len(w[block]))
	for j := range c.losses[block] {
		for _, f := range c.losses[block][j] {
			floats.Add(g, f.Grad(pair(w, block, j), 0))
		}
	}
	// A diagonal loss is visited twice, once per partial. For f(w_b, w_b)
	// that is exactly the chain rule.
	for i := range c.losses {
		for _, f := range c.losses[i][block] {
			floats.Add(g, f.Grad(pair(w, i, block), 1))
		}
	}
	return g
}

func (c *Combined) PenaltyGrad(w [][]float64, block int) []float64 {
	c.checkTuple(w)
	c.checkBlock(block)
	g := make([]float64, len(w[block]))
	for _, f := range c.penalties[block] {
		floats.Add(g, f.Grad(w[block]))
	}
	return g
}

// L sums the known gradient Lipschitz bounds of every term touching the
// block.
func (c *Combined) L(w [][]float64, block int) float64 {
	c.checkTuple(w)
	c.checkBlock(block)
	var l float64
	for j := range c.losses[block] {
		for _, f := range c.losses[block][j] {
			if lf, ok := f.(LipschitzContinuousGradient); ok {
				l += lf.L(pair(w, block, j), 0)
			}
		}
	}
	for i := range c.losses {
		for _, f := range c.losses[i][block] {
			if lf, ok := f.(LipschitzContinuousGradient); ok {
				l += lf.L(pair(w, i, block), 1)
			}
		}
	}
	for _, f := range c.penalties[block] {
		if lf, ok := f.(functions.LipschitzContinuousGradient); ok {
			l += lf.L(w[block])
		}
	}
	return l
}

// Reset cascades to every term.
func (c *Combined) Reset() {
	for i := range c.losses {
		for j := range c.losses[i] {
			for _, f := range c.losses[i][j] {
				f.Reset()
			}
		}
	}
	for i := range c.penalties {
		for _, f := range c.penalties[i] {
			f.Reset()
		}
	}
	for i := range c.prox {
		for _, f := range c.prox[i] {
			f.Reset()
		}
	}
}

// MapLossTerms applies rewrite to every pairwise loss entry, storing the
// returned function back into the grid.
func (c *Combined) MapLossTerms(rewrite func(i, j int, f Function) (Function, error)) error {
	for i := range c.losses {
		for j := range c.losses[i] {
			for k, f := range c.losses[i][j] {
				nf, err := rewrite(i, j, f)
				if err != nil {
					return err
				}
				c.losses[i][j][k] = nf
			}
		}
	}
	return nil
}

// MapPenaltyTerms applies rewrite to every single-block penalty entry.
func (c *Combined) MapPenaltyTerms(rewrite func(block int, f functions.Differentiable) (functions.Differentiable, error)) error {
	for i := range c.penalties {
		for k, f := range c.penalties[i] {
			nf, err := rewrite(i, f)
			if err != nil {
				return err
			}
			c.penalties[i][k] = nf
		}
	}
	return nil
}

// MapProxTerms applies rewrite to every single-block prox entry.
func (c *Combined) MapProxTerms(rewrite func(block int, f functions.Function) (functions.Function, error)) error {
	for i := range c.prox {
		for k, f := range c.prox[i] {
			nf, err := rewrite(i, f)
			if err != nil {
				return err
			}
			c.prox[i][k] = nf
		}
	}
	return nil
}

// Clone returns a composite with private slots. Terms implementing the
// matching Cloner interface are copied; stateless terms are shared.
func (c *Combined) Clone() *Combined {
	cp := NewCombined(c.Blocks())
	for i := range c.losses {
		for j := range c.losses[i] {
			for _, f := range c.losses[i][j] {
				cp.losses[i][j] = append(cp.losses[i][j], cloneTerm(f))
			}
		}
	}
	for i := range c.penalties {
		for _, f := range c.penalties[i] {
			cp.penalties[i] = append(cp.penalties[i], cloneSingleDifferentiable(f))
		}
	}
	for i := range c.prox {
		for _, f := range c.prox[i] {
			cp.prox[i] = append(cp.prox[i], cloneSingle(f))
		}
	}
	return cp
}

// CloneMultiblock lets a composite sit inside another composite and still
// be deep-copied with it.
func (c *Combined) CloneMultiblock() Function {
	return c.Clone()
}

func cloneSingleDifferentiable(f functions.Differentiable) functions.Differentiable {
	cl, ok := f.(functions.Cloner)
	if !ok {
		return f
	}
	d, ok := cl.CloneFunction().(functions.Differentiable)
	if !ok {
		panic(fmt.Sprintf("multiblock: clone of %T lost its gradient", f))
	}
	return d
}
