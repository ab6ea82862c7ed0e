package optim

import "gonum.org/v1/gonum/mat"

// Param is one trainable matrix with its accumulated gradient.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense

	m, v *mat.Dense
}

// NewParam wraps value with a zeroed gradient of the same shape.
func NewParam(name string, value *mat.Dense) *Param {
	r, c := value.Dims()
	return &Param{
		Name:  name,
		Value: value,
		Grad:  mat.NewDense(r, c, nil),
	}
}

// AddGradRow accumulates g into row i of the gradient.
func (p *Param) AddGradRow(i int, g []float64) {
	row := p.Grad.RawRowView(i)
	for j := range g {
		row[j] += g[j]
	}
}

// AddGradRowScaled accumulates s*g into row i of the gradient.
func (p *Param) AddGradRowScaled(i int, s float64, g []float64) {
	row := p.Grad.RawRowView(i)
	for j := range g {
		row[j] += s * g[j]
	}
}
