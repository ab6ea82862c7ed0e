package editdist

import (
	"bytes"
	"math"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurlang/editgen/datasets/translit"
	"github.com/neurlang/editgen/optim"
)

func fields(t *testing.T) (*translit.Field, *translit.Field) {
	t.Helper()
	src := &translit.Field{Vocab: translit.NewVocab(map[string]int{"a": 3, "b": 2, "c": 1})}
	tgt := &translit.Field{Vocab: translit.NewVocab(map[string]int{"x": 3, "y": 2})}
	return src, tgt
}

func batch(src, tgt *translit.Field, pairs ...[2]string) ([][]int, [][]int) {
	var s, t [][]int
	for _, p := range pairs {
		s = append(s, src.Encode(p[0]))
		t = append(t, tgt.Encode(p[1]))
	}
	return src.Pad(s), tgt.Pad(t)
}

func TestForwardShapes(t *testing.T) {
	sf, tf := fields(t)
	m := New(sf.Vocab, tf.Vocab, Config{Seed: 1})
	s, tg := batch(sf, tf, [2]string{"abc", "xy"}, [2]string{"a", "yyxx"})

	out := m.Forward(s, tg)
	assert.Equal(t, []int{2, 5, 6, NumActions}, out.ActionScores.Shape())
	assert.Equal(t, []int{2, 5, 6, NumActions}, out.ExpectedCounts.Shape())
	assert.Equal(t, []int{2, 5, tf.Vocab.Len()}, out.NextSymbol.Shape())
	assert.Equal(t, []int{2, 5, 6}, out.Distortion.Shape())
	require.Len(t, out.LogProb, 2)
	for _, lp := range out.LogProb {
		assert.False(t, math.IsNaN(lp))
		assert.LessOrEqual(t, lp, 0.0)
	}
}

func TestExpectedCountsAreDistributions(t *testing.T) {
	sf, tf := fields(t)
	m := New(sf.Vocab, tf.Vocab, Config{Seed: 2})
	s, tg := batch(sf, tf, [2]string{"abca", "xyx"})
	out := m.Forward(s, tg)

	n, l := len(s[0]), len(tg[0])
	for i := 0; i < n; i++ {
		for j := 0; j < l; j++ {
			ec := out.ExpectedCounts.Vec(0, i, j)
			total := ec[0] + ec[1] + ec[2]
			if i == 0 && j == 0 {
				assert.Equal(t, 0.0, total)
				continue
			}
			assert.InDelta(t, 1.0, total, 1e-9, "cell %d,%d", i, j)
		}
	}
	// every alignment path ends in the final cell
	post := out.posterior.Vec(0, n-1, l-1)
	assert.InDelta(t, 1.0, post[0]+post[1]+post[2], 1e-9)
	// and starts in the first one
	var first float64
	first += out.posterior.At(0, 1, 0, Delete)
	first += out.posterior.At(0, 0, 1, Insert)
	first += out.posterior.At(0, 1, 1, Substitute)
	assert.InDelta(t, 1.0, first, 1e-9)
}

// objective combines the differentiable outputs with fixed random weights.
type objective struct {
	logprob    []float64
	actions    []float64
	distortion []float64
	next       []float64
}

func newObjective(out *Output, rng *rand.Rand, withNext bool) objective {
	fill := func(n int) []float64 {
		v := make([]float64, n)
		for i := range v {
			v[i] = rng.NormFloat64()
		}
		return v
	}
	o := objective{
		logprob:    fill(len(out.LogProb)),
		actions:    fill(out.ActionScores.Len()),
		distortion: fill(out.Distortion.Len()),
	}
	if withNext {
		o = objective{next: fill(out.NextSymbol.Len())}
	}
	return o
}

func (o objective) value(out *Output) (v float64) {
	dot := func(a, b []float64, mask func(int) bool) {
		for i := range a {
			if mask(i) {
				v += a[i] * b[i]
			}
		}
	}
	all := func(int) bool { return true }
	if o.logprob != nil {
		dot(o.logprob, out.LogProb, all)
		dot(o.actions, out.ActionScores.Data(), all)
		dot(o.distortion, out.Distortion.Data(), all)
	}
	if o.next != nil {
		dot(o.next, out.NextSymbol.Data(), all)
	}
	return
}

func (o objective) gradient(out *Output) *Gradient {
	g := NewGradient(out)
	if o.logprob != nil {
		copy(g.LogProb, o.logprob)
		copy(g.ActionScores.Data(), o.actions)
		copy(g.Distortion.Data(), o.distortion)
	} else {
		g.LogProb = nil
		g.ActionScores = nil
		g.Distortion = nil
		copy(g.NextSymbol.Data(), o.next)
	}
	return g
}

func checkGradient(t *testing.T, m *Model, s, tg [][]int, o objective, params []*optim.Param) {
	t.Helper()
	optim.ZeroGrad(m.Params())
	out := m.Forward(s, tg)
	m.Backward(out, o.gradient(out))

	const eps = 1e-6
	for _, p := range params {
		data := p.Value.RawMatrix().Data
		grad := p.Grad.RawMatrix().Data
		for i := range data {
			orig := data[i]
			data[i] = orig + eps
			plus := o.value(m.Forward(s, tg))
			data[i] = orig - eps
			minus := o.value(m.Forward(s, tg))
			data[i] = orig
			numeric := (plus - minus) / (2 * eps)
			assert.InDelta(t, numeric, grad[i], 1e-4, "%s[%d]", p.Name, i)
		}
	}
}

func TestBackwardAlignmentGradient(t *testing.T) {
	sf, tf := fields(t)
	m := New(sf.Vocab, tf.Vocab, Config{Seed: 3, InitScale: 0.5})
	s, tg := batch(sf, tf, [2]string{"ab", "xyy"}, [2]string{"cab", "y"})
	out := m.Forward(s, tg)
	o := newObjective(out, rand.New(rand.NewSource(4)), false)
	checkGradient(t, m, s, tg, o, []*optim.Param{m.srcAction, m.tgtAction})
}

func TestBackwardNextSymbolGradient(t *testing.T) {
	sf, tf := fields(t)
	m := New(sf.Vocab, tf.Vocab, Config{Seed: 5, InitScale: 0.5})
	s, tg := batch(sf, tf, [2]string{"abc", "xy"}, [2]string{"b", "yx"})
	out := m.Forward(s, tg)
	o := newObjective(out, rand.New(rand.NewSource(6)), true)
	// alignment weights are constants, so only the emission side is exact
	checkGradient(t, m, s, tg, o, []*optim.Param{m.emission, m.transition})
}

func TestDecode(t *testing.T) {
	sf, tf := fields(t)
	m := New(sf.Vocab, tf.Vocab, Config{Seed: 7})
	s, _ := batch(sf, tf, [2]string{"abc", "x"}, [2]string{"a", "x"}, [2]string{"", ""})

	greedy := m.Decode(s)
	require.Len(t, greedy, 3)
	for b, ids := range greedy {
		require.GreaterOrEqual(t, len(ids), 2)
		assert.Equal(t, tf.Vocab.InitID(), ids[0])
		assert.Equal(t, tf.Vocab.EOSID(), ids[len(ids)-1])
		assert.LessOrEqual(t, len(ids), MaxLength(len(s[b]))+1)
		for _, id := range ids[1 : len(ids)-1] {
			assert.NotContains(t, []int{tf.Vocab.PadID(), tf.Vocab.UnkID(), tf.Vocab.InitID(), tf.Vocab.EOSID()}, id)
		}
	}

	assert.Equal(t, greedy, m.BeamSearch(s, 1))

	beam := m.BeamSearch(s, 3)
	require.Len(t, beam, 3)
	for _, ids := range beam {
		assert.Equal(t, tf.Vocab.InitID(), ids[0])
		assert.Equal(t, tf.Vocab.EOSID(), ids[len(ids)-1])
	}
}

func TestCompressedWeightsRoundTrip(t *testing.T) {
	sf, tf := fields(t)
	m := New(sf.Vocab, tf.Vocab, Config{Seed: 8})
	path := filepath.Join(t.TempDir(), "model.json.lzw")
	require.NoError(t, m.WriteCompressedWeightsToFile(path))

	other := New(sf.Vocab, tf.Vocab, Config{Seed: 9})
	require.NoError(t, other.ReadCompressedWeightsFromFile(path))
	for i, p := range m.Params() {
		assert.Equal(t, p.Value.RawMatrix().Data, other.Params()[i].Value.RawMatrix().Data, p.Name)
	}

	smaller := New(sf.Vocab, translit.NewVocab(map[string]int{"x": 1}), Config{})
	assert.Error(t, smaller.ReadCompressedWeightsFromFile(path))

	assert.Error(t, other.ReadCompressedWeights(bytes.NewReader([]byte("garbage"))))
}

func TestProbabilities(t *testing.T) {
	sf, tf := fields(t)
	m := New(sf.Vocab, tf.Vocab, Config{Seed: 10})
	s, tg := batch(sf, tf, [2]string{"ab", "xy"})
	lp, norm := m.Probabilities(s, tg)
	require.Len(t, lp, 1)
	// four target symbols including the boundaries, three generated
	assert.InDelta(t, lp[0]/3, norm[0], 1e-12)
}
