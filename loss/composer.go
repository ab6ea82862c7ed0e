package loss

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/neurlang/editgen/editdist"
	"github.com/neurlang/editgen/tensor"
)

var (
	// ErrMissingOutput is returned when an enabled term needs a model
	// output that the forward pass did not produce.
	ErrMissingOutput = errors.New("loss: model output required by an enabled term is missing")

	// ErrEmptyMask is returned when a term would be averaged over zero
	// unmasked positions.
	ErrEmptyMask = errors.New("loss: no unmasked positions to average over")
)

// SampleMode selects how the sampled EM term picks its target action.
type SampleMode int

const (
	// ArgMax takes the most probable action of the expected counts. It is
	// a deterministic, biased stand-in for a real sample.
	ArgMax SampleMode = iota

	// Multinomial draws the action from the normalized expected counts.
	Multinomial
)

func (m SampleMode) String() string {
	switch m {
	case ArgMax:
		return "argmax"
	case Multinomial:
		return "multinomial"
	}
	return fmt.Sprintf("SampleMode(%d)", int(m))
}

// ParseSampleMode parses the String form of a SampleMode.
func ParseSampleMode(s string) (SampleMode, error) {
	switch s {
	case "argmax", "":
		return ArgMax, nil
	case "multinomial":
		return Multinomial, nil
	}
	return ArgMax, fmt.Errorf("unknown sampled EM mode %q (want argmax or multinomial)", s)
}

// Terms are the unweighted values of every term plus the weighted total.
// Disabled terms are zero.
type Terms struct {
	Total      float64
	EM         float64
	SampledEM  float64
	NLL        float64
	Distortion float64
	FinalState float64
}

// Composer turns model outputs into the training loss.
type Composer struct {
	Weights Weights

	SrcPad, TgtPad int

	Sampling SampleMode

	// Rand is used by the Multinomial sampling mode.
	Rand *rand.Rand
}

// Compose computes the enabled terms for one batch together with the
// gradient of the total with respect to the model outputs.
func (c *Composer) Compose(out *editdist.Output, src, tgt [][]int) (terms Terms, grad *editdist.Gradient, err error) {
	var srcMask = Mask(src, c.SrcPad)
	var tgtMask = Mask(tgt, c.TgtPad)
	grad = editdist.NewGradient(out)

	if w := c.Weights.EM; w != nil {
		if terms.EM, err = c.em(out, grad, srcMask, tgtMask, *w); err != nil {
			return
		}
		terms.Total += *w * terms.EM
	}
	if w := c.Weights.SampledEM; w != nil {
		if terms.SampledEM, err = c.sampledEM(out, grad, srcMask, tgtMask, *w); err != nil {
			return
		}
		terms.Total += *w * terms.SampledEM
	}
	if w := c.Weights.NLL; w != nil {
		if terms.NLL, err = c.nll(out, grad, tgt, tgtMask, *w); err != nil {
			return
		}
		terms.Total += *w * terms.NLL
	}
	if w := c.Weights.Distortion; w != nil {
		if terms.Distortion, err = c.distortion(out, grad, srcMask, tgtMask, *w); err != nil {
			return
		}
		terms.Total += *w * terms.Distortion
	}
	if w := c.Weights.FinalState; w != nil {
		if terms.FinalState, err = c.finalState(out, grad, *w); err != nil {
			return
		}
		terms.Total += *w * terms.FinalState
	}
	return
}

// em is the KL divergence between action scores and expected counts,
// summed over actions and averaged over unmasked table cells.
func (c *Composer) em(out *editdist.Output, grad *editdist.Gradient, srcMask, tgtMask [][]float64, w float64) (float64, error) {
	var denom = tableSum(srcMask, tgtMask, 0)
	if denom == 0 {
		return 0, ErrEmptyMask
	}
	var total float64
	for b := range srcMask {
		for i, ms := range srcMask[b] {
			for j, mt := range tgtMask[b] {
				if ms*mt == 0 {
					continue
				}
				as := out.ActionScores.Vec(b, i, j)
				ec := out.ExpectedCounts.Vec(b, i, j)
				g := grad.ActionScores.Vec(b, i, j)
				for k, t := range ec {
					if t <= 0 {
						continue
					}
					total += t * (math.Log(t) - as[k])
					g[k] -= w * t / denom
				}
			}
		}
	}
	return total / denom, nil
}

func (c *Composer) sample(ec []float64) int {
	if c.Sampling == Multinomial && c.Rand != nil {
		var s float64
		for _, v := range ec {
			s += v
		}
		if s > 0 {
			r := c.Rand.Float64() * s
			for k, v := range ec {
				if r < v {
					return k
				}
				r -= v
			}
			return len(ec) - 1
		}
	}
	return tensor.ArgMax(ec)
}

// sampledEM is the cross-entropy of the action scores against one action
// picked from the expected counts, skipping the boundary row and column.
// It is normalized by the whole table mask.
func (c *Composer) sampledEM(out *editdist.Output, grad *editdist.Gradient, srcMask, tgtMask [][]float64, w float64) (float64, error) {
	var denom = tableSum(srcMask, tgtMask, 0)
	if denom == 0 {
		return 0, ErrEmptyMask
	}
	var total float64
	var logp = make([]float64, editdist.NumActions)
	for b := range srcMask {
		for i := 1; i < len(srcMask[b]); i++ {
			for j := 1; j < len(tgtMask[b]); j++ {
				if srcMask[b][i]*tgtMask[b][j] == 0 {
					continue
				}
				as := out.ActionScores.Vec(b, i, j)
				k := c.sample(out.ExpectedCounts.Vec(b, i, j))
				tensor.LogSoftmax(logp, as)
				total -= logp[k]
				g := grad.ActionScores.Vec(b, i, j)
				for a := range g {
					p := math.Exp(logp[a])
					if a == k {
						p--
					}
					g[a] += w * p / denom
				}
			}
		}
	}
	return total / denom, nil
}

// nll is the negative log-likelihood of the true next target symbol.
func (c *Composer) nll(out *editdist.Output, grad *editdist.Gradient, tgt [][]int, tgtMask [][]float64, w float64) (float64, error) {
	if out.NextSymbol == nil {
		return 0, ErrMissingOutput
	}
	var denom = sum(tgtMask, 1)
	if denom == 0 {
		return 0, ErrEmptyMask
	}
	var total float64
	for b, row := range tgt {
		for j := 0; j+1 < len(row); j++ {
			if tgtMask[b][j+1] == 0 {
				continue
			}
			y := row[j+1]
			total -= out.NextSymbol.At(b, j, y)
			grad.NextSymbol.Add(-w/denom, b, j, y)
		}
	}
	return total / denom, nil
}

// distortion is the mean distortion probability over unmasked cells.
func (c *Composer) distortion(out *editdist.Output, grad *editdist.Gradient, srcMask, tgtMask [][]float64, w float64) (float64, error) {
	if out.Distortion == nil {
		return 0, ErrMissingOutput
	}
	var denom = tableSum(srcMask, tgtMask, 0)
	if denom == 0 {
		return 0, ErrEmptyMask
	}
	var total float64
	for b := range srcMask {
		for i, ms := range srcMask[b] {
			for j, mt := range tgtMask[b] {
				if ms*mt == 0 {
					continue
				}
				total += out.Distortion.At(b, i, j)
				grad.Distortion.Add(w/denom, b, i, j)
			}
		}
	}
	return total / denom, nil
}

// finalState is the negative mean sequence log-probability.
func (c *Composer) finalState(out *editdist.Output, grad *editdist.Gradient, w float64) (float64, error) {
	var n = len(out.LogProb)
	if n == 0 {
		return 0, ErrEmptyMask
	}
	var total float64
	for b, lp := range out.LogProb {
		total += lp
		grad.LogProb[b] -= w / float64(n)
	}
	return -total / float64(n), nil
}
