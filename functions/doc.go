// Package functions defines the contracts shared by every objective term
// in this module.
//
// The design splits "being a function" into small capabilities instead of
// one wide interface. A term always knows how to evaluate itself and how
// to drop its caches (Function). Everything else is optional and is
// discovered by interface assertion at the point of use:
//
//   - Gradient for smooth terms,
//   - LipschitzContinuousGradient for terms that can bound their curvature,
//   - ProximalOperator for non-smooth terms driven by proximal steps,
//   - Composite for objectives that can tell their smooth part from the
//     part that must stay exact,
//   - Cloner for stateful terms that need private copies when an objective
//     is duplicated.
//
// This keeps the call sites honest: an algorithm that needs a gradient
// asks for one, and a term that cannot provide it is rejected where the
// requirement arises rather than papered over with a panic stub.
//
// Evaluation is deliberately synchronous and single-goroutine. Objectives
// cache intermediate state (function values, gradients, spectral norms)
// and invalidate those caches through Reset; none of that bookkeeping is
// locked. Callers that want parallelism duplicate the objective via Cloner
// and hand each goroutine its own copy. Memoized is the one exception: its
// tables are locked and shared across clones, so a family of copies fills
// a single cache.
package functions
