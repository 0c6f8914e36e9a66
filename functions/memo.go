package functions

import (
	"sync"

	"github.com/on-the-slope/taylor_go/shared/vecs"
)

// memoTable is a bounded two-generation map. Inserts fill the head
// generation; when it reaches capacity the head flips onto a fresh map, so
// the table never holds more than two generations and lookups still see
// the previous one.
type memoTable[V any] struct {
	gens [2]map[uint64]V
	head int
	cap  int
}

func newMemoTable[V any](capacity int) memoTable[V] {
	return memoTable[V]{
		gens: [2]map[uint64]V{make(map[uint64]V, capacity), make(map[uint64]V, capacity)},
		cap:  capacity,
	}
}

func (t *memoTable[V]) load(key uint64) (V, bool) {
	if v, ok := t.gens[t.head][key]; ok {
		return v, true
	}
	v, ok := t.gens[1-t.head][key]
	return v, ok
}

func (t *memoTable[V]) store(key uint64, v V) {
	if len(t.gens[t.head]) >= t.cap {
		t.head = 1 - t.head
		t.gens[t.head] = make(map[uint64]V, t.cap)
	}
	t.gens[t.head][key] = v
}

func (t *memoTable[V]) drop() {
	t.gens = [2]map[uint64]V{make(map[uint64]V, t.cap), make(map[uint64]V, t.cap)}
	t.head = 0
}

// Memoized caches the evaluations of a differentiable function, keyed by a
// 64-bit fingerprint of the argument. Values and gradients are cached
// independently, so asking for one never computes the other. The target
// must be pure between resets: same point, same answer.
//
// The tables are guarded by a lock and shared with every clone, so a
// family of clones working in parallel fills one cache. The target is
// called outside the lock; concurrent misses on the same point may compute
// it twice, and the last result wins.
//
// Memoizing narrows the target to Func, Grad and Reset. Other capabilities
// stay reachable through Wrapped.
type Memoized struct {
	fn Differentiable

	mu     *sync.Mutex
	values *memoTable[float64]
	grads  *memoTable[[]float64]
}

// Memoize wraps fn in an evaluation cache holding up to perGeneration
// points per generation, two generations deep. perGeneration must be
// positive.
func Memoize(fn Differentiable, perGeneration int) *Memoized {
	if perGeneration <= 0 {
		panic("functions: memo generation capacity must be positive")
	}
	values := newMemoTable[float64](perGeneration)
	grads := newMemoTable[[]float64](perGeneration)
	return &Memoized{
		fn:     fn,
		mu:     &sync.Mutex{},
		values: &values,
		grads:  &grads,
	}
}

// Func returns the cached value at x, computing and recording it on a miss.
func (m *Memoized) Func(x []float64) float64 {
	key := vecs.Digest(x)
	m.mu.Lock()
	v, ok := m.values.load(key)
	m.mu.Unlock()
	if ok {
		return v
	}
	v = m.fn.Func(x)
	m.mu.Lock()
	m.values.store(key, v)
	m.mu.Unlock()
	return v
}

// Grad returns the cached gradient at x, computing and recording it on a
// miss. Callers must not modify the returned slice.
func (m *Memoized) Grad(x []float64) []float64 {
	key := vecs.Digest(x)
	m.mu.Lock()
	g, ok := m.grads.load(key)
	m.mu.Unlock()
	if ok {
		return g
	}
	g = vecs.Clone(m.fn.Grad(x))
	m.mu.Lock()
	m.grads.store(key, g)
	m.mu.Unlock()
	return g
}

// Reset resets the target, then drops every cached entry, the ones shared
// with clones included.
func (m *Memoized) Reset() {
	m.fn.Reset()
	m.mu.Lock()
	m.values.drop()
	m.grads.drop()
	m.mu.Unlock()
}

// Wrapped returns the function being memoized.
func (m *Memoized) Wrapped() Differentiable {
	return m.fn
}

// CloneFunction returns a memoized view over a clone of the target (the
// target itself when it is not cloneable), sharing this view's tables.
func (m *Memoized) CloneFunction() Function {
	fn := m.fn
	if cl, ok := fn.(Cloner); ok {
		if d, ok := cl.CloneFunction().(Differentiable); ok {
			fn = d
		}
	}
	return &Memoized{fn: fn, mu: m.mu, values: m.values, grads: m.grads}
}

var (
	_ Differentiable = (*Memoized)(nil)
	_ Cloner         = (*Memoized)(nil)
)
