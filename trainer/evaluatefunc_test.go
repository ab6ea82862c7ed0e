package trainer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurlang/editgen/datasets/translit"
	"github.com/neurlang/editgen/editdist"
	"github.com/neurlang/editgen/loss"
	"github.com/neurlang/editgen/optim"
)

func fields() (*translit.Field, *translit.Field) {
	src := &translit.Field{Vocab: translit.NewVocab(map[string]int{"a": 3, "b": 2, "c": 1})}
	tgt := &translit.Field{Vocab: translit.NewVocab(map[string]int{"x": 3, "y": 2, "z": 1})}
	return src, tgt
}

var pairs = []translit.Example{
	{Src: "ab", Tgt: "xy"},
	{Src: "ba", Tgt: "yx"},
	{Src: "abc", Tgt: "xyz"},
	{Src: "c", Tgt: "z"},
}

func TestEvaluateFuncTokenizedCER(t *testing.T) {
	src := &translit.Field{Vocab: translit.NewVocab(map[string]int{"c": 1, "a": 1, "t": 1})}
	tgt := &translit.Field{Tokenized: true, Vocab: translit.NewVocab(map[string]int{"K": 1, "AE": 1, "AH": 1, "T": 1})}
	it := translit.NewIterator([]translit.Example{{Src: "cat", Tgt: "K AE T"}}, src, tgt, 1, false, 0)

	decode := func(rows [][]int) [][]int {
		out := make([][]int, len(rows))
		for i := range rows {
			out[i] = tgt.Encode("K AH T")
		}
		return out
	}
	res, err := NewEvaluateFunc("val", decode, src, tgt, it)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"K AH T"}, res.Hypotheses)
	assert.Equal(t, 1.0, res.WER)
	// one of three phonemes is wrong
	assert.InDelta(t, 1.0/3, res.CER, 1e-12)
}

func TestEvaluateFuncPerfectDecoder(t *testing.T) {
	src, tgt := fields()
	it := translit.NewIterator(pairs, src, tgt, 3, false, 0)

	// echo the reference back as the hypothesis
	var calls int
	var gold = map[string][]int{}
	for _, p := range pairs {
		gold[src.DecodeIDs(src.Encode(p.Src))] = tgt.Encode(p.Tgt)
	}
	decode := func(rows [][]int) [][]int {
		calls++
		out := make([][]int, len(rows))
		for i, row := range rows {
			out[i] = gold[src.DecodeIDs(row)]
		}
		return out
	}

	eval := NewEvaluateFunc("val", decode, src, tgt, it)
	res, err := eval(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0.0, res.WER)
	assert.Equal(t, 0.0, res.CER)
	assert.Equal(t, []string{"ab", "ba", "abc", "c"}, res.Sources)
	assert.Equal(t, []string{"xy", "yx", "xyz", "z"}, res.References)
	assert.Equal(t, res.References, res.Hypotheses)

	again, err := eval(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.Digest, again.Digest)

	// a constant decoder misses everything but the last pair
	constant := func(rows [][]int) [][]int {
		out := make([][]int, len(rows))
		for i := range rows {
			out[i] = tgt.Encode("z")
		}
		return out
	}
	bad, err := NewEvaluateFunc("val", constant, src, tgt, it)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.75, bad.WER)
	assert.NotEqual(t, res.Digest, bad.Digest)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eval(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTrainRealModel(t *testing.T) {
	src, tgt := fields()
	train := translit.NewIterator(pairs, src, tgt, 2, true, 1)
	val := translit.NewIterator(pairs, src, tgt, 1, false, 0)
	model := editdist.New(src.Vocab, tgt.Vocab, editdist.Config{Seed: 1, Parallelism: 2})
	path := filepath.Join(t.TempDir(), "model.json.lzw")

	found, err := ReloadBest(model, path)
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, Resume(model, true, path))

	cfg := testConfig()
	cfg.Epochs = 6
	cfg.DelayUpdate = 1
	cfg.ValidateEvery = 2
	cfg.LearningRate = 0.05
	cfg.ClipNorm = 1

	opt := optim.NewAdam(model.Params(), cfg.LearningRate)
	tr := &Trainer{
		Config:    cfg,
		Model:     model,
		Optimizer: opt,
		Loss: &loss.Composer{
			Weights: loss.Weights{NLL: loss.Weight(1), EM: loss.Weight(1)},
			SrcPad:  src.Vocab.PadID(),
			TgtPad:  tgt.Vocab.PadID(),
		},
		Train:    train,
		Validate: NewEvaluateFunc("val", Greedy(model), src, tgt, val),
		Save:     NewSaveFunc(model, path),
	}
	p, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, p.Step)
	assert.Equal(t, 12, p.Updates)
	assert.Equal(t, 12, opt.Steps())
	assert.GreaterOrEqual(t, p.Checkpoints, 1)
	assert.FileExists(t, path)
	assert.GreaterOrEqual(t, p.BestWER, 0.0)
	assert.LessOrEqual(t, p.BestWER, 1.0)

	found, err = ReloadBest(model, path)
	require.NoError(t, err)
	assert.True(t, found)

	test, err := NewEvaluateFunc("test", Beam(model, 3), src, tgt, val)(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, test.Len())
}

func TestResume(t *testing.T) {
	src, tgt := fields()
	a := editdist.New(src.Vocab, tgt.Vocab, editdist.Config{Seed: 1})
	b := editdist.New(src.Vocab, tgt.Vocab, editdist.Config{Seed: 2})
	path := filepath.Join(t.TempDir(), "model.json.lzw")
	require.NoError(t, NewSaveFunc(a, path)())

	require.NoError(t, Resume(b, false, path))
	assert.NotEqual(t, a.Params()[0].Value.RawMatrix().Data, b.Params()[0].Value.RawMatrix().Data)

	require.NoError(t, Resume(b, true, path))
	assert.Equal(t, a.Params()[0].Value.RawMatrix().Data, b.Params()[0].Value.RawMatrix().Data)

	require.NoError(t, os.WriteFile(path, []byte("junk"), 0o644))
	assert.Error(t, Resume(b, true, path))
	_, err := ReloadBest(b, path)
	assert.Error(t, err)
}
