package tensor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenseIndexing(t *testing.T) {
	d := New(2, 3, 4)
	require.Equal(t, 24, d.Len())

	d.Set(5, 1, 2, 3)
	assert.Equal(t, 5.0, d.At(1, 2, 3))
	assert.Equal(t, 23, d.Offset(1, 2, 3))

	v := d.Vec(1, 2)
	require.Len(t, v, 4)
	assert.Equal(t, 5.0, v[3])

	v[0] = 1
	d.Add(1, 1, 2, 0)
	assert.Equal(t, 2.0, d.At(1, 2, 0))
	assert.Equal(t, 7.0, d.Sum())

	d.Zero()
	assert.Equal(t, 0.0, d.Sum())
	assert.Panics(t, func() { d.At(2, 0, 0) })
}

func TestLogSoftmax(t *testing.T) {
	src := []float64{1, 2, 3}
	dst := make([]float64, 3)
	LogSoftmax(dst, src)

	var total float64
	for _, v := range dst {
		total += math.Exp(v)
	}
	assert.InDelta(t, 1.0, total, 1e-12)
	assert.Equal(t, 2, ArgMax(dst))
}

func TestLogSoftmaxGrad(t *testing.T) {
	logits := []float64{0.3, -1.2, 2.0}
	logp := make([]float64, 3)
	LogSoftmax(logp, logits)

	// d/dlogits of logp[1]
	grad := []float64{0, 1, 0}
	out := make([]float64, 3)
	LogSoftmaxGrad(out, grad, logp)

	const eps = 1e-6
	for i := range logits {
		plus := append([]float64(nil), logits...)
		plus[i] += eps
		lp := make([]float64, 3)
		LogSoftmax(lp, plus)
		assert.InDelta(t, (lp[1]-logp[1])/eps, out[i], 1e-4)
	}
}

func TestLogAddExp(t *testing.T) {
	assert.InDelta(t, math.Log(3), LogAddExp(math.Log(1), math.Log(2)), 1e-12)
	assert.Equal(t, 4.0, LogAddExp(math.Inf(-1), 4))
	assert.Equal(t, 4.0, LogAddExp(4, math.Inf(-1)))
}
