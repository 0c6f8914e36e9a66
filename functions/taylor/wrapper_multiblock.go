package taylor

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/on-the-slope/taylor_go/functions"
	"github.com/on-the-slope/taylor_go/functions/combined"
	"github.com/on-the-slope/taylor_go/functions/multiblock"
	"github.com/on-the-slope/taylor_go/shared/vecs"
)

// MultiblockSurrogate is the multiblock counterpart of Surrogate.
type MultiblockSurrogate interface {
	multiblock.Function
	multiblock.LipschitzContinuousGradient
	Recenter(point [][]float64)
}

// WrapMultiblock returns a surrogate of the multiblock objective fn
// centered at the block tuple point. The dispatch mirrors Wrap: composite
// grids that embed Taylor terms are cloned and recentered in place, any
// other target is linearized eagerly, and engine surrogates are rejected.
//
// Inside a composite grid, a pairwise Taylor term recenters against the
// full tuple; its indices say which blocks it reads. Per-block penalty
// and prox Taylor terms recenter against their own block's vector.
func (w *Wrapper) WrapMultiblock(fn multiblock.Function, point [][]float64) (MultiblockSurrogate, error) {
	if _, ok := fn.(wrappedMarker); ok {
		return nil, fmt.Errorf("%w: %T", ErrAlreadyWrapped, fn)
	}
	if len(point) == 0 {
		return nil, fmt.Errorf("%w: empty point tuple", ErrStructure)
	}
	if c, ok := fn.(*multiblock.Combined); ok {
		if got, want := len(point), c.Blocks(); got != want {
			return nil, fmt.Errorf("%w: point tuple has %d blocks, composite has %d", ErrStructure, got, want)
		}
		if err := wrappedMultiblockTermError(c); err != nil {
			return nil, err
		}
		if hasMultiblockTaylorTerms(c) {
			return w.wrapMultiblockComposite(c, point)
		}
	}
	return w.linearizeMultiblock(fn, point)
}

// wrappedMultiblockTermError returns ErrAlreadyWrapped when a composite
// grid embeds an engine surrogate at any nesting depth.
func wrappedMultiblockTermError(c *multiblock.Combined) error {
	if err := c.MapLossTerms(func(i, j int, f multiblock.Function) (multiblock.Function, error) {
		switch t := f.(type) {
		case wrappedMarker:
			return nil, fmt.Errorf("%w: loss term at (%d,%d) is %T", ErrAlreadyWrapped, i, j, f)
		case *multiblock.Combined:
			if err := wrappedMultiblockTermError(t); err != nil {
				return nil, err
			}
		}
		return f, nil
	}); err != nil {
		return err
	}
	if err := c.MapPenaltyTerms(func(block int, f functions.Differentiable) (functions.Differentiable, error) {
		if err := wrappedBlockTermError(f, block); err != nil {
			return nil, err
		}
		return f, nil
	}); err != nil {
		return err
	}
	return c.MapProxTerms(func(block int, f functions.Function) (functions.Function, error) {
		if err := wrappedBlockTermError(f, block); err != nil {
			return nil, err
		}
		return f, nil
	})
}

func wrappedBlockTermError(f functions.Function, block int) error {
	switch t := f.(type) {
	case wrappedMarker:
		return fmt.Errorf("%w: block %d term %T", ErrAlreadyWrapped, block, f)
	case *combined.Function:
		return wrappedTermError(t)
	default:
		return nil
	}
}

func (w *Wrapper) wrapMultiblockComposite(fn *multiblock.Combined, point [][]float64) (MultiblockSurrogate, error) {
	s := &multiblockCompositeSurrogate{
		inner: fn.Clone(),
		id:    uuid.NewString(),
		obs:   w.observer(),
	}
	if err := recenterMultiblockCombined(s.inner, point, s.obs, s.id); err != nil {
		return nil, err
	}
	s.obs.wrapped(s.id, vecs.DigestBlocks(point),
		zap.String("kind", "multiblock composite"),
		zap.Int("blocks", s.inner.Blocks()),
	)
	return s, nil
}

func (w *Wrapper) linearizeMultiblock(fn multiblock.Function, point [][]float64) (MultiblockSurrogate, error) {
	s := &mbLinearized{
		fn:  fn,
		id:  uuid.NewString(),
		obs: w.observer(),
	}
	if c, ok := fn.(multiblock.Composite); ok {
		s.comp = c
	}
	s.capture(point)
	s.obs.wrapped(s.id, vecs.DigestBlocks(point),
		zap.String("kind", "multiblock plain"),
		zap.Int("blocks", len(point)),
	)
	return s, nil
}

// hasMultiblockTaylorTerms reports whether a composite grid embeds a
// Taylor term, single-block or multiblock, at any nesting depth.
func hasMultiblockTaylorTerms(c *multiblock.Combined) bool {
	found := false
	_ = c.MapLossTerms(func(_, _ int, f multiblock.Function) (multiblock.Function, error) {
		switch t := f.(type) {
		case mbApproximation:
			found = true
		case *multiblock.Combined:
			if hasMultiblockTaylorTerms(t) {
				found = true
			}
		}
		return f, nil
	})
	_ = c.MapPenaltyTerms(func(_ int, f functions.Differentiable) (functions.Differentiable, error) {
		if blockTermHasTaylor(f) {
			found = true
		}
		return f, nil
	})
	_ = c.MapProxTerms(func(_ int, f functions.Function) (functions.Function, error) {
		if blockTermHasTaylor(f) {
			found = true
		}
		return f, nil
	})
	return found
}

func blockTermHasTaylor(f functions.Function) bool {
	switch t := f.(type) {
	case approximation:
		return true
	case *combined.Function:
		return hasTaylorTerms(t)
	default:
		return false
	}
}

// recenterMultiblockCombined moves every Taylor term of a composite grid
// to the block tuple point. Pairwise terms see the full tuple, per-block
// terms see their block's vector, and nested composites recurse with the
// sub-tuple their slot provides.
func recenterMultiblockCombined(c *multiblock.Combined, point [][]float64, obs observer, id string) error {
	fullDigest := vecs.DigestBlocks(point)
	if err := c.MapLossTerms(func(i, j int, f multiblock.Function) (multiblock.Function, error) {
		switch t := f.(type) {
		case wrappedMarker:
			return nil, fmt.Errorf("%w: loss term at (%d,%d) is %T", ErrAlreadyWrapped, i, j, f)
		case mbApproximation:
			t.Recenter(point)
			obs.recentered(id, fullDigest)
			return f, nil
		case *multiblock.Combined:
			if t.Blocks() != 2 {
				return nil, fmt.Errorf("%w: nested composite at (%d,%d) spans %d blocks, pair slots hold 2", ErrStructure, i, j, t.Blocks())
			}
			if err := recenterMultiblockCombined(t, [][]float64{point[i], point[j]}, obs, id); err != nil {
				return nil, err
			}
			return f, nil
		default:
			return f, nil
		}
	}); err != nil {
		return err
	}
	if err := c.MapPenaltyTerms(func(block int, f functions.Differentiable) (functions.Differentiable, error) {
		if err := recenterBlockTerm(f, block, point[block], obs, id); err != nil {
			return nil, err
		}
		return f, nil
	}); err != nil {
		return err
	}
	return c.MapProxTerms(func(block int, f functions.Function) (functions.Function, error) {
		if err := recenterBlockTerm(f, block, point[block], obs, id); err != nil {
			return nil, err
		}
		return f, nil
	})
}

// recenterBlockTerm handles the single-block slots of a composite grid.
func recenterBlockTerm(f functions.Function, block int, blockPoint []float64, obs observer, id string) error {
	switch t := f.(type) {
	case wrappedMarker:
		return fmt.Errorf("%w: block %d term %T", ErrAlreadyWrapped, block, f)
	case approximation:
		t.Recenter(blockPoint)
		obs.recentered(id, vecs.Digest(blockPoint))
		return nil
	case *combined.Function:
		return recenterCombined(t, blockPoint, obs, id)
	default:
		return nil
	}
}

// multiblockCompositeSurrogate is the engine-owned copy of a composite
// grid.
type multiblockCompositeSurrogate struct {
	inner *multiblock.Combined
	id    string
	obs   observer
}

var _ MultiblockSurrogate = (*multiblockCompositeSurrogate)(nil)
var _ multiblock.Composite = (*multiblockCompositeSurrogate)(nil)

func (s *multiblockCompositeSurrogate) Func(w [][]float64) float64 {
	return s.inner.Func(w)
}

func (s *multiblockCompositeSurrogate) Grad(w [][]float64, block int) []float64 {
	return s.inner.Grad(w, block)
}

func (s *multiblockCompositeSurrogate) LossValue(w [][]float64) float64 {
	return s.inner.LossValue(w)
}

func (s *multiblockCompositeSurrogate) LossGrad(w [][]float64, block int) []float64 {
	return s.inner.LossGrad(w, block)
}

func (s *multiblockCompositeSurrogate) PenaltyValue(w [][]float64) float64 {
	return s.inner.PenaltyValue(w)
}

func (s *multiblockCompositeSurrogate) PenaltyGrad(w [][]float64, block int) []float64 {
	return s.inner.PenaltyGrad(w, block)
}

func (s *multiblockCompositeSurrogate) L(w [][]float64, block int) float64 {
	return s.inner.L(w, block)
}

func (s *multiblockCompositeSurrogate) Reset() {
	s.inner.Reset()
}

func (s *multiblockCompositeSurrogate) Recenter(point [][]float64) {
	if got, want := len(point), s.inner.Blocks(); got != want {
		panic(fmt.Sprintf("taylor: point tuple has %d blocks, surrogate has %d", got, want))
	}
	if err := recenterMultiblockCombined(s.inner, point, s.obs, s.id); err != nil {
		panic(fmt.Sprintf("taylor: surrogate %s corrupted: %v", s.id, err))
	}
}

// Composite exposes the engine-owned copy for callers that need direct
// term access. Adding engine surrogates to it corrupts this surrogate.
func (s *multiblockCompositeSurrogate) Composite() *multiblock.Combined {
	return s.inner
}

func (s *multiblockCompositeSurrogate) taylorWrapped() {}

// mbLinearized is the eager multiblock plain-path surrogate. The whole
// tuple is captured at once: value plus one gradient per block.
type mbLinearized struct {
	fn   multiblock.Function
	comp multiblock.Composite

	point   [][]float64
	valueAt float64
	gradAt  [][]float64

	id  string
	obs observer
}

var _ MultiblockSurrogate = (*mbLinearized)(nil)

func (s *mbLinearized) capture(point [][]float64) {
	s.point = vecs.CloneBlocks(point)
	s.gradAt = make([][]float64, len(s.point))
	if s.comp != nil {
		s.valueAt = s.comp.LossValue(s.point)
		for i := range s.point {
			s.gradAt[i] = s.comp.LossGrad(s.point, i)
		}
		return
	}
	s.valueAt = s.fn.Func(s.point)
	for i := range s.point {
		s.gradAt[i] = vecs.Clone(s.fn.Grad(s.point, i))
	}
}

func (s *mbLinearized) Func(w [][]float64) float64 {
	if len(w) != len(s.point) {
		panic(fmt.Sprintf("taylor: surrogate spans %d blocks, tuple has %d", len(s.point), len(w)))
	}
	v := s.valueAt
	for i := range w {
		d := make([]float64, len(w[i]))
		floats.SubTo(d, w[i], s.point[i])
		v += floats.Dot(s.gradAt[i], d)
	}
	if s.comp != nil {
		v += s.comp.PenaltyValue(w)
	}
	return v
}

func (s *mbLinearized) Grad(w [][]float64, block int) []float64 {
	if block < 0 || block >= len(s.gradAt) {
		panic(fmt.Sprintf("taylor: surrogate spans %d blocks, got index %d", len(s.gradAt), block))
	}
	g := vecs.Clone(s.gradAt[block])
	if s.comp != nil {
		floats.Add(g, s.comp.PenaltyGrad(w, block))
	}
	return g
}

func (s *mbLinearized) L(w [][]float64, block int) float64 {
	if lf, ok := s.fn.(multiblock.LipschitzContinuousGradient); ok {
		return lf.L(w, block)
	}
	return math.Sqrt(functions.Tolerance)
}

func (s *mbLinearized) Recenter(point [][]float64) {
	if len(point) != len(s.point) {
		panic(fmt.Sprintf("taylor: surrogate spans %d blocks, tuple has %d", len(s.point), len(point)))
	}
	s.capture(point)
	s.obs.recentered(s.id, vecs.DigestBlocks(point))
}

func (s *mbLinearized) Reset() {
	s.fn.Reset()
	s.capture(s.point)
}

func (s *mbLinearized) taylorWrapped() {}
