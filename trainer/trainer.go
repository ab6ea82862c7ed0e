package trainer

import (
	"context"

	"github.com/neurlang/editgen/datasets/translit"
	"github.com/neurlang/editgen/editdist"
	"github.com/neurlang/editgen/evaluation"
	"github.com/neurlang/editgen/loss"
	"github.com/neurlang/editgen/metrics"
	"github.com/neurlang/editgen/optim"
)

// Model is the trainable model driven by the loop.
type Model interface {
	Forward(src, tgt [][]int) *editdist.Output
	Backward(out *editdist.Output, grad *editdist.Gradient)
	Params() []*optim.Param
}

// Optimizer applies accumulated gradients to the model parameters.
type Optimizer interface {
	Step()
	ZeroGrad()
	LearningRate() float64
	SetLearningRate(lr float64)
}

// Loss turns model outputs into loss terms and their gradient.
type Loss interface {
	Compose(out *editdist.Output, src, tgt [][]int) (loss.Terms, *editdist.Gradient, error)
}

// Batches is a source of training or evaluation batches. Every call
// starts a new pass.
type Batches interface {
	Batches() []translit.Batch
}

// Scalars receives the values plotted over training steps.
type Scalars interface {
	AddScalar(tag string, value float64, step int)
	Flush() error
}

// Observer is told about every state change, e.g. a health endpoint.
type Observer interface {
	Observe(state string, step int)
}

// EvaluateFunc decodes an evaluation split and scores it.
type EvaluateFunc func(ctx context.Context) (evaluation.Result, error)

// SaveFunc writes the current model as the best checkpoint.
type SaveFunc func() error

// Trainer runs the training loop. The fields Scalars and Observer are
// optional.
type Trainer struct {
	Config    Config
	Model     Model
	Optimizer Optimizer
	Loss      Loss
	Train     Batches
	Validate  EvaluateFunc
	Save      SaveFunc

	Scalars  Scalars
	Observer Observer

	progress Progress
}

// Progress returns the bookkeeping of the last or current Run. It must not
// be called concurrently with Run.
func (t *Trainer) Progress() Progress {
	return t.progress
}

func (t *Trainer) setState(s State) {
	t.progress.State = s
	metrics.RecordState(s.String(), stateNames[:])
	if t.Observer != nil {
		t.Observer.Observe(s.String(), t.progress.Step)
	}
}

// Run trains until the learning rate decreases are used up, the epochs
// are exhausted or ctx is cancelled. A cancelled run returns the context
// error together with the progress made so far.
func (t *Trainer) Run(ctx context.Context) (Progress, error) {
	if err := t.Config.Validate(); err != nil {
		return t.progress, err
	}
	t.progress = newProgress(t.Config, t.Optimizer.LearningRate())
	t.setState(Warmup)
	metrics.RecordSchedule(t.progress.LearningRate, t.progress.Remaining)

	for epoch := 0; epoch < t.Config.Epochs; epoch++ {
		t.progress.Epoch = epoch
		for _, b := range t.Train.Batches() {
			if err := ctx.Err(); err != nil {
				t.setState(Stopped)
				return t.progress, err
			}
			stop, err := t.batch(ctx, b)
			if err != nil {
				t.setState(Stopped)
				return t.progress, err
			}
			if stop {
				t.setState(Stopped)
				return t.progress, nil
			}
		}
	}
	t.setState(Stopped)
	return t.progress, nil
}
