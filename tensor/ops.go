package tensor

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// LogSoftmax writes log(softmax(src)) into dst. dst and src may alias.
func LogSoftmax(dst, src []float64) {
	var lse = floats.LogSumExp(src)
	for i, v := range src {
		dst[i] = v - lse
	}
}

// LogSoftmaxGrad converts a gradient with respect to log-softmax outputs
// (logp) into a gradient with respect to the logits, writing it into dst.
func LogSoftmaxGrad(dst, grad, logp []float64) {
	var total = floats.Sum(grad)
	for i := range grad {
		dst[i] = grad[i] - math.Exp(logp[i])*total
	}
}

// LogAddExp returns log(exp(a) + exp(b)) without overflow.
func LogAddExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	if a > b {
		return a + math.Log1p(math.Exp(b-a))
	}
	return b + math.Log1p(math.Exp(a-b))
}

// ArgMax returns the index of the largest element.
func ArgMax(v []float64) int {
	return floats.MaxIdx(v)
}
