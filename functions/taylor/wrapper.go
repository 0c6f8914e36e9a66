package taylor

import (
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/on-the-slope/taylor_go/functions"
	"github.com/on-the-slope/taylor_go/functions/combined"
	"github.com/on-the-slope/taylor_go/shared/vecs"
)

var (
	// ErrAlreadyWrapped reports an attempt to wrap a surrogate the engine
	// already produced. Re-wrapping would smuggle a stale linearization
	// into a fresh-looking objective, so it fails instead.
	ErrAlreadyWrapped = errors.New("taylor: function is already a first-order surrogate")

	// ErrStructure reports a malformed objective shape: block indices out
	// of range, tuple sizes that disagree, or nested composites the
	// traversal cannot place.
	ErrStructure = errors.New("taylor: malformed objective structure")

	// ErrNotDifferentiable reports a wrap target without a gradient and
	// without a loss/penalty split that could supply one.
	ErrNotDifferentiable = errors.New("taylor: cannot linearize a function without a gradient")
)

// wrappedMarker seals the set of engine-produced surrogate types. Its
// presence is what the double-wrap check keys on.
type wrappedMarker interface {
	taylorWrapped()
}

// Surrogate is what the engine hands back for single-block objectives:
// evaluate, differentiate, bound the curvature, move the expansion point.
type Surrogate interface {
	functions.Differentiable
	functions.LipschitzContinuousGradient
	Recenter(point []float64)
}

// Option configures a Wrapper.
type Option func(*Wrapper)

// WithLogger routes the engine's lifecycle logs to logger. The default
// discards them.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Wrapper) {
		w.logger = logger
	}
}

// WithRecorder attaches a recorder that receives one event per built
// surrogate and one per moved expansion point.
func WithRecorder(rec Recorder) Option {
	return func(w *Wrapper) {
		w.recorder = rec
	}
}

// Wrapper builds first-order surrogates of whole objectives. A zero-cost
// value type would not carry options, so wrappers are constructed once
// and reused across outer iterations.
type Wrapper struct {
	logger   *zap.Logger
	recorder Recorder
}

func NewWrapper(opts ...Option) *Wrapper {
	w := &Wrapper{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wrap returns a surrogate of fn centered at point. The input is never
// mutated: composites are cloned before their Taylor terms are
// recentered, so the caller may keep evaluating fn at its previous point
// while driving the surrogate.
//
// Composites that embed Taylor terms keep their shape; the embedded terms
// are recentered inside the clone and every other term stays exact. Any
// other target is linearized on the spot: its value and gradient at point
// are captured eagerly, and a target that can split loss from penalty is
// linearized on the loss part only, the penalty part passing through
// exactly. Wrapping an engine surrogate fails with ErrAlreadyWrapped.
func (w *Wrapper) Wrap(fn functions.Function, point []float64) (Surrogate, error) {
	if _, ok := fn.(wrappedMarker); ok {
		return nil, fmt.Errorf("%w: %T", ErrAlreadyWrapped, fn)
	}
	if c, ok := fn.(*combined.Function); ok {
		if err := wrappedTermError(c); err != nil {
			return nil, err
		}
		if hasTaylorTerms(c) {
			return w.wrapComposite(c, point)
		}
	}
	return w.linearize(fn, point)
}

func (w *Wrapper) observer() observer {
	return observer{logger: w.logger, rec: w.recorder}
}

func (w *Wrapper) wrapComposite(fn *combined.Function, point []float64) (Surrogate, error) {
	s := &compositeSurrogate{
		inner: fn.Clone(),
		id:    uuid.NewString(),
		obs:   w.observer(),
	}
	if err := recenterCombined(s.inner, point, s.obs, s.id); err != nil {
		return nil, err
	}
	nl, np, nx := s.inner.Counts()
	s.obs.wrapped(s.id, vecs.Digest(point),
		zap.String("kind", "composite"),
		zap.Int("losses", nl),
		zap.Int("penalties", np),
		zap.Int("prox", nx),
	)
	return s, nil
}

func (w *Wrapper) linearize(fn functions.Function, point []float64) (Surrogate, error) {
	s := &linearized{
		fn:  fn,
		id:  uuid.NewString(),
		obs: w.observer(),
	}
	if c, ok := fn.(functions.Composite); ok {
		s.comp = c
	} else if _, ok := fn.(functions.Gradient); !ok {
		return nil, fmt.Errorf("%w: %T", ErrNotDifferentiable, fn)
	}
	s.capture(point)
	s.obs.wrapped(s.id, vecs.Digest(point), zap.String("kind", "plain"))
	return s, nil
}

// wrappedTermError returns ErrAlreadyWrapped when a composite embeds an
// engine surrogate at any nesting depth. Those must be rejected before
// dispatch: the plain path would happily linearize right over them.
func wrappedTermError(c *combined.Function) error {
	return c.MapTerms(func(g combined.Group, f functions.Function) (functions.Function, error) {
		switch t := f.(type) {
		case wrappedMarker:
			return nil, fmt.Errorf("%w: %s term %T", ErrAlreadyWrapped, g, f)
		case *combined.Function:
			if err := wrappedTermError(t); err != nil {
				return nil, err
			}
		}
		return f, nil
	})
}

// hasTaylorTerms reports whether a composite embeds a Taylor term at any
// nesting depth.
func hasTaylorTerms(c *combined.Function) bool {
	found := false
	_ = c.MapTerms(func(_ combined.Group, f functions.Function) (functions.Function, error) {
		switch t := f.(type) {
		case approximation:
			found = true
		case *combined.Function:
			if hasTaylorTerms(t) {
				found = true
			}
		}
		return f, nil
	})
	return found
}

// recenterCombined moves every Taylor term of a composite, and of any
// composite nested inside it, to point. Engine surrogates hiding among
// the terms abort with ErrAlreadyWrapped.
func recenterCombined(c *combined.Function, point []float64, obs observer, id string) error {
	digest := vecs.Digest(point)
	return c.MapTerms(func(g combined.Group, f functions.Function) (functions.Function, error) {
		switch t := f.(type) {
		case wrappedMarker:
			return nil, fmt.Errorf("%w: %s term %T", ErrAlreadyWrapped, g, f)
		case approximation:
			t.Recenter(point)
			obs.recentered(id, digest)
			return f, nil
		case *combined.Function:
			if err := recenterCombined(t, point, obs, id); err != nil {
				return nil, err
			}
			return f, nil
		default:
			return f, nil
		}
	})
}

// compositeSurrogate is the engine-owned copy of a composite objective.
// Recentering it cascades to every embedded Taylor term, however deeply
// nested, without rebuilding the copy.
type compositeSurrogate struct {
	inner *combined.Function
	id    string
	obs   observer
}

var _ Surrogate = (*compositeSurrogate)(nil)
var _ functions.Composite = (*compositeSurrogate)(nil)

func (s *compositeSurrogate) Func(x []float64) float64 {
	return s.inner.Func(x)
}

func (s *compositeSurrogate) Grad(x []float64) []float64 {
	return s.inner.Grad(x)
}

func (s *compositeSurrogate) LossValue(x []float64) float64 {
	return s.inner.LossValue(x)
}

func (s *compositeSurrogate) LossGrad(x []float64) []float64 {
	return s.inner.LossGrad(x)
}

func (s *compositeSurrogate) PenaltyValue(x []float64) float64 {
	return s.inner.PenaltyValue(x)
}

func (s *compositeSurrogate) PenaltyGrad(x []float64) []float64 {
	return s.inner.PenaltyGrad(x)
}

func (s *compositeSurrogate) L(x []float64) float64 {
	return s.inner.L(x)
}

func (s *compositeSurrogate) Reset() {
	s.inner.Reset()
}

// Recenter moves every embedded Taylor term to point. The term set was
// fixed at wrap time, so a traversal failure here means the copy was
// tampered with through Composite.
func (s *compositeSurrogate) Recenter(point []float64) {
	if err := recenterCombined(s.inner, point, s.obs, s.id); err != nil {
		panic(fmt.Sprintf("taylor: surrogate %s corrupted: %v", s.id, err))
	}
}

// Prox applies the proximal operator of the copy's non-smooth part.
func (s *compositeSurrogate) Prox(x []float64, t float64) ([]float64, error) {
	return s.inner.Prox(x, t)
}

// Composite exposes the engine-owned copy for callers that need direct
// term access. Adding engine surrogates to it corrupts this surrogate.
func (s *compositeSurrogate) Composite() *combined.Function {
	return s.inner
}

func (s *compositeSurrogate) taylorWrapped() {}

// linearized is the eager plain-path surrogate: value and gradient are
// captured at wrap time, so the wrapped function is never consulted again
// until the expansion point moves. Composite-capable targets are captured
// on their loss part only; their penalty part is re-evaluated exactly at
// every call.
type linearized struct {
	fn   functions.Function
	comp functions.Composite

	point   []float64
	valueAt float64
	gradAt  []float64

	id  string
	obs observer
}

var _ Surrogate = (*linearized)(nil)

func (s *linearized) capture(point []float64) {
	s.point = vecs.Clone(point)
	if s.comp != nil {
		s.valueAt = s.comp.LossValue(s.point)
		s.gradAt = s.comp.LossGrad(s.point)
		return
	}
	s.valueAt = s.fn.Func(s.point)
	s.gradAt = vecs.Clone(s.fn.(functions.Gradient).Grad(s.point))
}

func (s *linearized) Func(x []float64) float64 {
	d := make([]float64, len(x))
	floats.SubTo(d, x, s.point)
	v := s.valueAt + floats.Dot(s.gradAt, d)
	if s.comp != nil {
		v += s.comp.PenaltyValue(x)
	}
	return v
}

func (s *linearized) Grad(x []float64) []float64 {
	g := vecs.Clone(s.gradAt)
	if s.comp != nil {
		floats.Add(g, s.comp.PenaltyGrad(x))
	}
	return g
}

// L delegates to the wrapped function when it knows its own bound; the
// exact penalty part keeps its curvature through the wrap. Otherwise the
// surrogate is exactly linear and reports the fixed small constant.
func (s *linearized) L(x []float64) float64 {
	if lf, ok := s.fn.(functions.LipschitzContinuousGradient); ok {
		return lf.L(x)
	}
	return math.Sqrt(functions.Tolerance)
}

// Recenter recaptures value and gradient at point, eagerly, matching the
// capture at wrap time.
func (s *linearized) Recenter(point []float64) {
	s.capture(point)
	s.obs.recentered(s.id, vecs.Digest(point))
}

// Reset resets the wrapped function, then recaptures at the current
// expansion point so the frozen data is fresh.
func (s *linearized) Reset() {
	s.fn.Reset()
	s.capture(s.point)
}

func (s *linearized) taylorWrapped() {}
