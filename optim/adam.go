package optim

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Adam is the bias corrected Adam optimizer.
type Adam struct {
	params []*Param

	lr, beta1, beta2, eps float64
	t                     int
}

// NewAdam creates an optimizer over params with the default betas.
func NewAdam(params []*Param, lr float64) *Adam {
	return &Adam{
		params: params,
		lr:     lr,
		beta1:  0.9,
		beta2:  0.999,
		eps:    1e-8,
	}
}

func (a *Adam) LearningRate() float64 {
	return a.lr
}

// SetLearningRate replaces the learning rate of all parameters.
func (a *Adam) SetLearningRate(lr float64) {
	a.lr = lr
}

func (a *Adam) Steps() int {
	return a.t
}

// Step applies one update using the accumulated gradients.
// p -= lr * mhat / (sqrt(vhat)+eps) with bias correction.
func (a *Adam) Step() {
	a.t++
	c1 := 1.0 / (1.0 - math.Pow(a.beta1, float64(a.t)))
	c2 := 1.0 / (1.0 - math.Pow(a.beta2, float64(a.t)))
	for _, p := range a.params {
		if p.m == nil {
			r, c := p.Value.Dims()
			p.m = mat.NewDense(r, c, nil)
			p.v = mat.NewDense(r, c, nil)
		}
		var (
			val = p.Value.RawMatrix().Data
			g   = p.Grad.RawMatrix().Data
			m   = p.m.RawMatrix().Data
			v   = p.v.RawMatrix().Data
		)
		for i := range val {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
			val[i] -= a.lr * (m[i] * c1) / (math.Sqrt(v[i]*c2) + a.eps)
		}
	}
}

// ZeroGrad clears all accumulated gradients.
func (a *Adam) ZeroGrad() {
	ZeroGrad(a.params)
}

// ZeroGrad clears the gradients of params.
func ZeroGrad(params []*Param) {
	for _, p := range params {
		p.Grad.Zero()
	}
}

// GradNorm returns the global L2 norm over all gradients.
func GradNorm(params []*Param) float64 {
	var sq float64
	for _, p := range params {
		n := floats.Norm(p.Grad.RawMatrix().Data, 2)
		sq += n * n
	}
	return math.Sqrt(sq)
}

// ClipGradNorm rescales all gradients so their global L2 norm does not
// exceed maxNorm. It returns the norm before clipping.
func ClipGradNorm(params []*Param, maxNorm float64) float64 {
	var norm = GradNorm(params)
	if maxNorm <= 0 || norm <= maxNorm {
		return norm
	}
	var scale = maxNorm / (norm + 1e-6)
	for _, p := range params {
		floats.Scale(scale, p.Grad.RawMatrix().Data)
	}
	return norm
}
