package editdist

import (
	"math"
	"math/rand"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/neurlang/editgen/datasets/translit"
	"github.com/neurlang/editgen/optim"
	"github.com/neurlang/editgen/parallel"
	"github.com/neurlang/editgen/tensor"
)

// Config configures a Model.
type Config struct {
	// Seed seeds the parameter initialization.
	Seed int64

	// InitScale is the standard deviation of the initial weights.
	InitScale float64

	// Parallelism limits the rows processed concurrently. Zero picks the
	// number of logical cores.
	Parallelism int
}

// Model is the reference edit distance model. Parameters are mutated only
// by the optimizer; Forward, Decode and BeamSearch only read them.
type Model struct {
	src, tgt *translit.Vocab

	srcAction  *optim.Param
	tgtAction  *optim.Param
	emission   *optim.Param
	transition *optim.Param

	parallelism int
}

func defaultParallelism() int {
	if n := cpuid.CPU.LogicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// New creates a model over the given vocabularies.
func New(src, tgt *translit.Vocab, cfg Config) *Model {
	if cfg.InitScale <= 0 {
		cfg.InitScale = 0.1
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism()
	}
	var rng = rand.New(rand.NewSource(cfg.Seed))
	var randn = func(r, c int) *mat.Dense {
		data := make([]float64, r*c)
		for i := range data {
			data[i] = rng.NormFloat64() * cfg.InitScale
		}
		return mat.NewDense(r, c, data)
	}
	return &Model{
		src:         src,
		tgt:         tgt,
		srcAction:   optim.NewParam("src_action", randn(src.Len(), NumActions)),
		tgtAction:   optim.NewParam("tgt_action", randn(tgt.Len(), NumActions)),
		emission:    optim.NewParam("emission", randn(src.Len(), tgt.Len())),
		transition:  optim.NewParam("transition", randn(tgt.Len(), tgt.Len())),
		parallelism: cfg.Parallelism,
	}
}

// Params returns the trainable parameters.
func (m *Model) Params() []*optim.Param {
	return []*optim.Param{m.srcAction, m.tgtAction, m.emission, m.transition}
}

func (m *Model) SrcPad() int {
	return m.src.PadID()
}

func (m *Model) TgtPad() int {
	return m.tgt.PadID()
}

func realLength(row []int, pad int) (n int) {
	for n < len(row) && row[n] != pad {
		n++
	}
	return
}

// actionScores writes log_softmax(srcAction[x] + tgtAction[y]) into dst.
func (m *Model) actionScores(dst []float64, x, y int) {
	a := m.srcAction.Value.RawRowView(x)
	b := m.tgtAction.Value.RawRowView(y)
	for k := 0; k < NumActions; k++ {
		dst[k] = a[k] + b[k]
	}
	tensor.LogSoftmax(dst, dst)
}

// alignmentWeights normalizes a log-space column over the source positions.
func alignmentWeights(dst, column []float64) {
	tensor.LogSoftmax(dst, column)
	for i, v := range dst {
		dst[i] = math.Exp(v)
	}
}

// nextSymbol writes the next target symbol log-distribution into dst given
// the alignment weights over the source x and the last target symbol y.
func (m *Model) nextSymbol(dst, weights []float64, x []int, y int) {
	copy(dst, m.transition.Value.RawRowView(y))
	var n = len(x)
	for i, w := range weights {
		if w == 0 {
			continue
		}
		next := i + 1
		if next >= n {
			next = n - 1
		}
		row := m.emission.Value.RawRowView(x[next])
		for t := range dst {
			dst[t] += w * row[t]
		}
	}
	tensor.LogSoftmax(dst, dst)
}

// Forward scores a batch of padded source and target ID rows.
func (m *Model) Forward(src, tgt [][]int) *Output {
	var batch = len(src)
	var s, t int
	if batch > 0 {
		s, t = len(src[0]), len(tgt[0])
	}
	var next = t - 1
	if next < 0 {
		next = 0
	}
	var out = &Output{
		ActionScores:   tensor.New(batch, s, t, NumActions),
		ExpectedCounts: tensor.New(batch, s, t, NumActions),
		LogProb:        make([]float64, batch),
		NextSymbol:     tensor.New(batch, next, m.tgt.Len()),
		Distortion:     tensor.New(batch, s, t),

		src:       src,
		tgt:       tgt,
		lengths:   make([][2]int, batch),
		alpha:     tensor.New(batch, s, t),
		posterior: tensor.New(batch, s, t, NumActions),
		weights:   tensor.New(batch, next, s),
	}
	parallel.ForEach(batch, m.parallelism, func(b int) {
		m.forwardRow(out, b)
	})
	return out
}

func (m *Model) forwardRow(out *Output, b int) {
	var x, y = out.src[b], out.tgt[b]
	var n, l = realLength(x, m.src.PadID()), realLength(y, m.tgt.PadID())
	out.lengths[b] = [2]int{n, l}
	if n == 0 || l == 0 {
		out.LogProb[b] = math.Inf(-1)
		return
	}
	var inf = math.Inf(-1)

	for i := 0; i < n; i++ {
		for j := 0; j < l; j++ {
			as := out.ActionScores.Vec(b, i, j)
			m.actionScores(as, x[i], y[j])
			out.Distortion.Set(math.Exp(as[Delete])+math.Exp(as[Insert]), b, i, j)
		}
	}

	// forward
	var alpha = out.alpha
	for i := 0; i < n; i++ {
		for j := 0; j < l; j++ {
			if i == 0 && j == 0 {
				alpha.Set(0, b, 0, 0)
				continue
			}
			as := out.ActionScores.Vec(b, i, j)
			a := inf
			if i > 0 {
				a = tensor.LogAddExp(a, alpha.At(b, i-1, j)+as[Delete])
			}
			if j > 0 {
				a = tensor.LogAddExp(a, alpha.At(b, i, j-1)+as[Insert])
			}
			if i > 0 && j > 0 {
				a = tensor.LogAddExp(a, alpha.At(b, i-1, j-1)+as[Substitute])
			}
			alpha.Set(a, b, i, j)
		}
	}
	var logprob = alpha.At(b, n-1, l-1)
	out.LogProb[b] = logprob

	// backward
	var beta = make([][]float64, n)
	for i := range beta {
		beta[i] = make([]float64, l)
	}
	for i := n - 1; i >= 0; i-- {
		for j := l - 1; j >= 0; j-- {
			if i == n-1 && j == l-1 {
				continue
			}
			a := inf
			if i+1 < n {
				a = tensor.LogAddExp(a, beta[i+1][j]+out.ActionScores.At(b, i+1, j, Delete))
			}
			if j+1 < l {
				a = tensor.LogAddExp(a, beta[i][j+1]+out.ActionScores.At(b, i, j+1, Insert))
			}
			if i+1 < n && j+1 < l {
				a = tensor.LogAddExp(a, beta[i+1][j+1]+out.ActionScores.At(b, i+1, j+1, Substitute))
			}
			beta[i][j] = a
		}
	}

	// edge posteriors and per-cell expected counts
	for i := 0; i < n; i++ {
		for j := 0; j < l; j++ {
			as := out.ActionScores.Vec(b, i, j)
			post := out.posterior.Vec(b, i, j)
			if i > 0 {
				post[Delete] = math.Exp(alpha.At(b, i-1, j) + as[Delete] + beta[i][j] - logprob)
			}
			if j > 0 {
				post[Insert] = math.Exp(alpha.At(b, i, j-1) + as[Insert] + beta[i][j] - logprob)
			}
			if i > 0 && j > 0 {
				post[Substitute] = math.Exp(alpha.At(b, i-1, j-1) + as[Substitute] + beta[i][j] - logprob)
			}
			total := post[Delete] + post[Insert] + post[Substitute]
			if total > 0 && !math.IsNaN(total) {
				ec := out.ExpectedCounts.Vec(b, i, j)
				for k := range ec {
					ec[k] = post[k] / total
				}
			}
		}
	}

	// next symbol distributions, detached from the alignment
	var column = make([]float64, n)
	for j := 0; j+1 < l; j++ {
		for i := 0; i < n; i++ {
			column[i] = alpha.At(b, i, j)
		}
		w := out.weights.Vec(b, j)[:n]
		alignmentWeights(w, column)
		m.nextSymbol(out.NextSymbol.Vec(b, j), w, x[:n], y[j])
	}
}

// Backward accumulates parameter gradients given the gradient of a scalar
// loss with respect to the outputs of Forward. Expected counts and
// next-symbol alignment weights are treated as constants.
func (m *Model) Backward(out *Output, grad *Gradient) {
	var (
		g  [NumActions]float64
		gz [NumActions]float64
		gl = make([]float64, m.tgt.Len())
	)
	for b := range out.LogProb {
		var x, y = out.src[b], out.tgt[b]
		var n, l = out.lengths[b][0], out.lengths[b][1]
		for i := 0; i < n; i++ {
			for j := 0; j < l; j++ {
				as := out.ActionScores.Vec(b, i, j)
				g = [NumActions]float64{}
				if grad.ActionScores != nil {
					copy(g[:], grad.ActionScores.Vec(b, i, j))
				}
				if grad.LogProb != nil && grad.LogProb[b] != 0 {
					post := out.posterior.Vec(b, i, j)
					for k := range g {
						g[k] += grad.LogProb[b] * post[k]
					}
				}
				if grad.Distortion != nil {
					d := grad.Distortion.At(b, i, j)
					g[Delete] += d * math.Exp(as[Delete])
					g[Insert] += d * math.Exp(as[Insert])
				}
				if g == ([NumActions]float64{}) {
					continue
				}
				tensor.LogSoftmaxGrad(gz[:], g[:], as)
				m.srcAction.AddGradRow(x[i], gz[:])
				m.tgtAction.AddGradRow(y[j], gz[:])
			}
		}
		if grad.NextSymbol == nil {
			continue
		}
		for j := 0; j+1 < l; j++ {
			gj := grad.NextSymbol.Vec(b, j)
			var nonzero bool
			for _, v := range gj {
				if v != 0 {
					nonzero = true
					break
				}
			}
			if !nonzero {
				continue
			}
			tensor.LogSoftmaxGrad(gl, gj, out.NextSymbol.Vec(b, j))
			m.transition.AddGradRow(y[j], gl)
			w := out.weights.Vec(b, j)
			for i := 0; i < n; i++ {
				if w[i] == 0 {
					continue
				}
				next := i + 1
				if next >= n {
					next = n - 1
				}
				m.emission.AddGradRowScaled(x[next], w[i], gl)
			}
		}
	}
}

// Probabilities returns the sequence log-probability of every pair and the
// same value normalized by the number of generated target symbols.
func (m *Model) Probabilities(src, tgt [][]int) (logprob, normalized []float64) {
	var out = m.Forward(src, tgt)
	normalized = make([]float64, len(out.LogProb))
	for b, lp := range out.LogProb {
		symbols := out.lengths[b][1] - 1
		if symbols < 1 {
			symbols = 1
		}
		normalized[b] = lp / float64(symbols)
	}
	return out.LogProb, normalized
}
