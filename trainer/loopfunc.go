package trainer

import (
	"context"
	"time"

	"github.com/neurlang/editgen/datasets/translit"
	"github.com/neurlang/editgen/logger"
	"github.com/neurlang/editgen/loss"
	"github.com/neurlang/editgen/metrics"
	"github.com/neurlang/editgen/optim"
)

// batch processes one training batch and reports whether training is over.
func (t *Trainer) batch(ctx context.Context, b translit.Batch) (stop bool, err error) {
	var p = &t.progress
	if p.Stalled > t.Config.Patience {
		t.decay()
	}
	if p.Remaining <= 0 {
		logger.Log.Info("no learning rate decreases left, stopping", "step", p.Step)
		return true, nil
	}
	p.Step++

	out := t.Model.Forward(b.Src, b.Tgt)
	terms, grad, err := t.Loss.Compose(out, b.Src, b.Tgt)
	if err != nil {
		return false, err
	}
	t.Model.Backward(out, grad)
	metrics.BatchesTotal.Inc()

	if p.Step%t.Config.DelayUpdate == 0 {
		t.update(terms)
	}
	if p.Step%(t.Config.DelayUpdate*t.Config.ValidateEvery) == 0 {
		if err := t.validate(ctx, terms); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (t *Trainer) decay() {
	var p = &t.progress
	var prev = p.State
	t.setState(Decaying)
	p.LearningRate *= t.Config.LRDecreaseRatio
	t.Optimizer.SetLearningRate(p.LearningRate)
	p.Remaining--
	p.Stalled = 0
	metrics.RecordSchedule(p.LearningRate, p.Remaining)
	logger.Log.Info("decreasing learning rate", "lr", p.LearningRate, "remaining", p.Remaining, "step", p.Step)
	if p.Remaining > 0 {
		t.setState(prev)
	}
}

func (t *Trainer) update(terms loss.Terms) {
	var p = &t.progress
	params := t.Model.Params()
	var norm float64
	if t.Config.ClipNorm > 0 {
		norm = optim.ClipGradNorm(params, t.Config.ClipNorm)
	} else {
		norm = optim.GradNorm(params)
	}
	t.Optimizer.Step()
	t.Optimizer.ZeroGrad()
	p.Updates++
	metrics.RecordUpdate(norm)
	for name, v := range termMap(terms) {
		metrics.RecordLoss(name, v)
	}
	if p.State != Stepping {
		t.setState(Stepping)
	}
	logger.Log.Info("train",
		"step", p.Step,
		"loss", terms.Total,
		"nll", terms.NLL,
		"distortion", terms.Distortion,
		"final_state", terms.FinalState,
		"em", terms.EM,
		"sampled_em", terms.SampledEM,
		"grad_norm", norm,
	)
}

func termMap(terms loss.Terms) map[string]float64 {
	return map[string]float64{
		"total":       terms.Total,
		"em":          terms.EM,
		"sampled_em":  terms.SampledEM,
		"nll":         terms.NLL,
		"distortion":  terms.Distortion,
		"final_state": terms.FinalState,
	}
}

func (t *Trainer) scalar(tag string, value float64) {
	if t.Scalars != nil {
		t.Scalars.AddScalar(tag, value, t.progress.Step)
	}
}

func (t *Trainer) validate(ctx context.Context, terms loss.Terms) error {
	var p = &t.progress
	t.setState(Evaluating)

	t.scalar("train/loss", terms.Total)
	t.scalar("train/nll", terms.NLL)
	t.scalar("train/em_kl_div", terms.EM)
	t.scalar("train/sampled_em_nll", terms.SampledEM)
	t.scalar("train/distortion", terms.Distortion)
	t.scalar("train/final_state", terms.FinalState)
	t.scalar("train/learning_rate", p.LearningRate)

	start := time.Now()
	res, err := t.Validate(ctx)
	if err != nil {
		return err
	}
	metrics.RecordEvaluation("val", res.WER, res.CER, time.Since(start))

	p.improve(res.WER, res.CER)
	metrics.RecordBest(p.BestWER, p.BestCER)
	logger.Log.Info("validation",
		"step", p.Step,
		"wer", res.WER, "best_wer", p.BestWER, "best_wer_step", p.BestWERStep,
		"cer", res.CER, "best_cer", p.BestCER, "best_cer_step", p.BestCERStep,
		"digest", digestString(res.Digest),
	)
	if p.Stalled > 0 {
		logger.Log.Info("stalled", "times", p.Stalled)
	} else if t.Save != nil {
		if err := t.Save(); err != nil {
			return err
		}
		p.Checkpoints++
		metrics.CheckpointsTotal.Inc()
	}

	t.scalar("val/cer", res.CER)
	t.scalar("val/wer", res.WER)
	if t.Scalars != nil {
		if err := t.Scalars.Flush(); err != nil {
			logger.Log.Warn("flushing scalars", "err", err)
		}
	}
	t.setState(Stepping)
	return nil
}
