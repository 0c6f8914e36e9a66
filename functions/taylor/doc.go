// Package taylor builds local first-order surrogates of objective
// functions.
//
// A first-order surrogate around a point a replaces a smooth function f
// with the plane through it:
//
//	T(x) = f(a) + <grad f(a), x - a>
//
// Majorize-minimize solvers lean on two properties of that plane. It
// touches f at a, and it is cheap: once f(a) and grad f(a) are known, an
// inner loop can probe T thousands of times without ever consulting f
// again. The package therefore treats "how often did the wrapped function
// run" as part of its contract, not an optimization detail, and the tests
// hold it to that.
//
// Two layers are exposed. FirstOrder and MultiblockFirstOrder are plain
// terms: lazy, recenterable, and safe to embed inside composite
// objectives before any wrapping happens. The Wrapper is the outer
// engine: given a whole objective it produces an independent surrogate,
// recentering embedded Taylor terms inside a private copy, linearizing
// raw smooth parts, and carrying non-smooth penalties through untouched.
// Surrogates produced by the engine refuse to be wrapped again; a stale
// linearization hiding inside a fresh-looking surrogate is the kind of
// bug that costs days, so the engine makes it loud instead.
package taylor
