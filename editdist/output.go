package editdist

import "github.com/neurlang/editgen/tensor"

// Alignment actions, the last dimension of the action tables.
const (
	Delete = iota
	Insert
	Substitute

	NumActions
)

// Output is the result of a forward pass over a batch.
type Output struct {
	// ActionScores are log-probabilities of the action entering each cell,
	// shaped [batch, src, tgt, NumActions].
	ActionScores *tensor.Dense

	// ExpectedCounts are the per-cell posteriors of the entering action,
	// shaped like ActionScores. Cells without probability mass are zero.
	ExpectedCounts *tensor.Dense

	// LogProb is the log-probability of reaching the final cell, per row.
	LogProb []float64

	// NextSymbol holds log-probabilities of the target symbol at position
	// j+1 given the prefix up to j, shaped [batch, tgt-1, tgt vocab].
	NextSymbol *tensor.Dense

	// Distortion is the probability of a non-diagonal move into each cell,
	// shaped [batch, src, tgt].
	Distortion *tensor.Dense

	src, tgt  [][]int
	lengths   [][2]int
	alpha     *tensor.Dense
	posterior *tensor.Dense
	weights   *tensor.Dense
}

func (o *Output) BatchSize() int {
	return len(o.LogProb)
}

// Gradient holds the derivative of a scalar loss with respect to each
// output. Nil fields contribute nothing.
type Gradient struct {
	ActionScores *tensor.Dense
	LogProb      []float64
	NextSymbol   *tensor.Dense
	Distortion   *tensor.Dense
}

// NewGradient allocates a zeroed gradient matching the shapes of out.
func NewGradient(out *Output) *Gradient {
	var g = &Gradient{
		ActionScores: tensor.ZerosLike(out.ActionScores),
		LogProb:      make([]float64, len(out.LogProb)),
	}
	if out.NextSymbol != nil {
		g.NextSymbol = tensor.ZerosLike(out.NextSymbol)
	}
	if out.Distortion != nil {
		g.Distortion = tensor.ZerosLike(out.Distortion)
	}
	return g
}
