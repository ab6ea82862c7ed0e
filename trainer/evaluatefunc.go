package trainer

import (
	"context"
	"fmt"

	"github.com/klauspost/cpuid/v2"

	"github.com/neurlang/editgen/datasets/translit"
	"github.com/neurlang/editgen/evaluation"
	"github.com/neurlang/editgen/logger"
	"github.com/neurlang/editgen/parallel"
)

// ExamplesLogged is the number of decoded triples logged per evaluation.
const ExamplesLogged = 10

// Decoder generates target ID rows for padded source ID rows.
type Decoder func(src [][]int) [][]int

// Greedy returns the greedy decoder of a model.
func Greedy(m interface{ Decode([][]int) [][]int }) Decoder {
	return m.Decode
}

// Beam returns the beam search decoder of a model with the given width.
func Beam(m interface{ BeamSearch([][]int, int) [][]int }, width int) Decoder {
	return func(src [][]int) [][]int {
		return m.BeamSearch(src, width)
	}
}

func digestString(d [32]byte) string {
	return fmt.Sprintf("%x", d[:8])
}

// NewEvaluateFunc returns an EvaluateFunc decoding every batch of data
// with decode and scoring the hypotheses against the targets. The name
// labels the log lines.
func NewEvaluateFunc(name string, decode Decoder, src, tgt *translit.Field, data Batches) EvaluateFunc {
	var workers = cpuid.CPU.LogicalCores
	return func(ctx context.Context) (res evaluation.Result, err error) {
		batches := data.Batches()
		var total int
		for _, b := range batches {
			total += b.Len()
		}
		res.Sources = make([]string, 0, total)
		res.Hypotheses = make([]string, 0, total)
		res.References = make([]string, 0, total)
		var h = parallel.NewHasher(total)

		for j, b := range batches {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			decoded := decode(b.Src)
			var (
				offset = len(res.Hypotheses)
				srcs   = make([]string, b.Len())
				hyps   = make([]string, b.Len())
				refs   = make([]string, b.Len())
			)
			parallel.ForEach(b.Len(), workers, func(i int) {
				srcs[i] = src.DecodeIDs(b.Src[i])
				refs[i] = tgt.DecodeIDs(b.Tgt[i])
				hyps[i] = tgt.DecodeIDs(decoded[i])
				h.MustPutString(offset+i, hyps[i])
			})
			res.Sources = append(res.Sources, srcs...)
			res.Hypotheses = append(res.Hypotheses, hyps...)
			res.References = append(res.References, refs...)

			if j == 0 {
				for _, ex := range res.Examples(ExamplesLogged) {
					logger.Log.Info(fmt.Sprintf("'%s' -> '%s' (%s)", ex.Source, ex.Hypothesis, ex.Reference), "split", name)
				}
			}
		}

		if res.WER, err = evaluation.WordErrorRate(res.Hypotheses, res.References); err != nil {
			return res, err
		}
		if res.CER, err = evaluation.CharErrorRate(res.Hypotheses, res.References, tgt.Tokenized); err != nil {
			return res, err
		}
		res.Digest = h.Sum()
		logger.Log.Debug("evaluated", "split", name, "examples", res.Len(), "wer", res.WER, "cer", res.CER)
		return res, nil
	}
}
