package editdist

import (
	"math"
	"sort"

	"github.com/neurlang/editgen/parallel"
	"github.com/neurlang/editgen/tensor"
)

// MaxLength bounds the generated target length for a source of n symbols.
func MaxLength(n int) int {
	return 2*n + 10
}

// hypothesis is a target prefix together with its alignment column, the
// forward log-probabilities of all source prefixes against the target prefix.
type hypothesis struct {
	ids    []int
	column []float64
	score  float64
}

func (m *Model) initialColumn(x []int) []float64 {
	var col = make([]float64, len(x))
	var as [NumActions]float64
	var y = m.tgt.InitID()
	for i := 1; i < len(x); i++ {
		m.actionScores(as[:], x[i], y)
		col[i] = col[i-1] + as[Delete]
	}
	return col
}

// extend returns the alignment column after appending symbol y.
func (m *Model) extend(x []int, prev []float64, y int) []float64 {
	var col = make([]float64, len(x))
	var as [NumActions]float64
	for i := range x {
		m.actionScores(as[:], x[i], y)
		a := prev[i] + as[Insert]
		if i > 0 {
			a = tensor.LogAddExp(a, col[i-1]+as[Delete])
			a = tensor.LogAddExp(a, prev[i-1]+as[Substitute])
		}
		col[i] = a
	}
	return col
}

// candidates returns the next symbol log-distribution with the symbols
// that can never be generated masked out.
func (m *Model) candidates(x []int, h *hypothesis) []float64 {
	var w = make([]float64, len(x))
	alignmentWeights(w, h.column)
	var logp = make([]float64, m.tgt.Len())
	m.nextSymbol(logp, w, x, h.ids[len(h.ids)-1])
	for _, id := range []int{m.tgt.PadID(), m.tgt.UnkID(), m.tgt.InitID()} {
		logp[id] = math.Inf(-1)
	}
	return logp
}

func (m *Model) start(row []int) ([]int, *hypothesis) {
	var x = row[:realLength(row, m.src.PadID())]
	return x, &hypothesis{
		ids:    []int{m.tgt.InitID()},
		column: m.initialColumn(x),
	}
}

// Decode greedily generates a target ID sequence for every source row.
// Results start with the init symbol and end with the end symbol.
func (m *Model) Decode(src [][]int) [][]int {
	var out = make([][]int, len(src))
	parallel.ForEach(len(src), m.parallelism, func(b int) {
		x, h := m.start(src[b])
		if len(x) == 0 {
			out[b] = []int{m.tgt.InitID(), m.tgt.EOSID()}
			return
		}
		eos := m.tgt.EOSID()
		for len(h.ids) < MaxLength(len(x)) {
			logp := m.candidates(x, h)
			best := tensor.ArgMax(logp)
			h.ids = append(h.ids, best)
			h.score += logp[best]
			if best == eos {
				break
			}
			h.column = m.extend(x, h.column, best)
		}
		if h.ids[len(h.ids)-1] != eos {
			h.ids = append(h.ids, eos)
		}
		out[b] = h.ids
	})
	return out
}

// BeamSearch generates a target ID sequence for every source row keeping
// the beam best prefixes at each step.
func (m *Model) BeamSearch(src [][]int, beam int) [][]int {
	if beam <= 1 {
		return m.Decode(src)
	}
	var out = make([][]int, len(src))
	parallel.ForEach(len(src), m.parallelism, func(b int) {
		out[b] = m.beamRow(src[b], beam)
	})
	return out
}

type expansion struct {
	parent *hypothesis
	symbol int
	score  float64
}

func (m *Model) beamRow(row []int, beam int) []int {
	x, h := m.start(row)
	eos := m.tgt.EOSID()
	if len(x) == 0 {
		return []int{m.tgt.InitID(), eos}
	}
	var alive = []*hypothesis{h}
	var finished []*hypothesis
	var maxLen = MaxLength(len(x))

	for len(alive) > 0 && len(alive[0].ids) < maxLen {
		var exps []expansion
		for _, h := range alive {
			logp := m.candidates(x, h)
			order := make([]int, len(logp))
			for i := range order {
				order[i] = i
			}
			sort.Slice(order, func(i, j int) bool { return logp[order[i]] > logp[order[j]] })
			for _, sym := range order[:min(beam, len(order))] {
				if math.IsInf(logp[sym], -1) {
					break
				}
				exps = append(exps, expansion{parent: h, symbol: sym, score: h.score + logp[sym]})
			}
		}
		sort.SliceStable(exps, func(i, j int) bool { return exps[i].score > exps[j].score })

		var next []*hypothesis
		for _, e := range exps {
			ids := append(append(make([]int, 0, len(e.parent.ids)+1), e.parent.ids...), e.symbol)
			if e.symbol == eos {
				finished = append(finished, &hypothesis{ids: ids, score: e.score})
				continue
			}
			next = append(next, &hypothesis{
				ids:    ids,
				column: m.extend(x, e.parent.column, e.symbol),
				score:  e.score,
			})
			if len(next) >= beam {
				break
			}
		}
		alive = next

		// scores only decrease, so a finished hypothesis ahead of every
		// alive one cannot be overtaken
		if len(finished) >= beam {
			best := bestOf(finished)
			if len(alive) == 0 || best.score >= alive[0].score {
				break
			}
		}
	}
	if len(finished) == 0 {
		if len(alive) == 0 {
			return []int{m.tgt.InitID(), eos}
		}
		return append(bestOf(alive).ids, eos)
	}
	return bestOf(finished).ids
}

func bestOf(hs []*hypothesis) *hypothesis {
	var best = hs[0]
	for _, h := range hs[1:] {
		if h.score > best.score {
			best = h
		}
	}
	return best
}
