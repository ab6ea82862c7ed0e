package optim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestAdamFirstStep(t *testing.T) {
	p := NewParam("w", mat.NewDense(1, 2, []float64{1, -1}))
	p.Grad.Set(0, 0, 0.5)
	p.Grad.Set(0, 1, -2)

	opt := NewAdam([]*Param{p}, 0.1)
	opt.Step()

	// the first bias corrected step moves every weight by lr against the gradient sign
	assert.InDelta(t, 0.9, p.Value.At(0, 0), 1e-6)
	assert.InDelta(t, -0.9, p.Value.At(0, 1), 1e-6)
	assert.Equal(t, 1, opt.Steps())

	opt.ZeroGrad()
	assert.Equal(t, 0.0, p.Grad.At(0, 1))
}

func TestAdamMinimizesQuadratic(t *testing.T) {
	p := NewParam("w", mat.NewDense(1, 1, []float64{3}))
	opt := NewAdam([]*Param{p}, 0.05)
	for i := 0; i < 2000; i++ {
		opt.ZeroGrad()
		w := p.Value.At(0, 0)
		p.Grad.Set(0, 0, 2*(w-1))
		opt.Step()
	}
	assert.InDelta(t, 1.0, p.Value.At(0, 0), 1e-2)
}

func TestSetLearningRate(t *testing.T) {
	opt := NewAdam(nil, 1e-4)
	opt.SetLearningRate(7e-5)
	assert.Equal(t, 7e-5, opt.LearningRate())
}

func TestClipGradNorm(t *testing.T) {
	a := NewParam("a", mat.NewDense(1, 2, nil))
	b := NewParam("b", mat.NewDense(1, 1, nil))
	a.AddGradRow(0, []float64{3, 0})
	b.AddGradRowScaled(0, 2, []float64{2})

	norm := ClipGradNorm([]*Param{a, b}, 1)
	require.InDelta(t, 5.0, norm, 1e-12)
	assert.InDelta(t, 1.0, GradNorm([]*Param{a, b}), 1e-5)
	assert.InDelta(t, 0.6, a.Grad.At(0, 0), 1e-5)
	assert.InDelta(t, 0.8, b.Grad.At(0, 0), 1e-5)

	// below the threshold nothing changes
	norm = ClipGradNorm([]*Param{a, b}, 10)
	assert.True(t, math.Abs(norm-1) < 1e-5)
	assert.InDelta(t, 0.6, a.Grad.At(0, 0), 1e-5)
}
