package functions

import "gonum.org/v1/gonum/diff/fd"

// ApproxGrad estimates the gradient of f at x with central finite
// differences. It exists to validate analytic gradients in tests and
// during development; it costs 2*len(x) evaluations per call and should
// not drive an optimization loop.
func ApproxGrad(f Function, x []float64) []float64 {
	grad := make([]float64, len(x))
	fd.Gradient(grad, f.Func, x, &fd.Settings{Formula: fd.Central})
	return grad
}
