package trainer

import "math"

// State is the phase of the training loop.
type State int

const (
	// Warmup covers the batches before the first optimizer update.
	Warmup State = iota
	Stepping
	Evaluating
	Decaying
	Stopped
)

var stateNames = [...]string{"warmup", "stepping", "evaluating", "decaying", "stopped"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Progress is a snapshot of the loop bookkeeping.
type Progress struct {
	State   State
	Epoch   int
	Step    int
	Updates int

	BestWER, BestCER         float64
	BestWERStep, BestCERStep int
	LastWER, LastCER         float64

	Stalled      int
	Remaining    int
	LearningRate float64
	Checkpoints  int
}

func newProgress(cfg Config, lr float64) Progress {
	return Progress{
		State:        Warmup,
		BestWER:      math.Inf(1),
		BestCER:      math.Inf(1),
		LastWER:      math.NaN(),
		LastCER:      math.NaN(),
		Remaining:    cfg.LRDecreaseCount,
		LearningRate: lr,
	}
}

// improve folds one validation into the best scores. It reports whether
// either error rate improved, in which case stalling resets.
func (p *Progress) improve(wer, cer float64) bool {
	p.LastWER, p.LastCER = wer, cer
	p.Stalled++
	var better bool
	if wer < p.BestWER {
		p.BestWER, p.BestWERStep = wer, p.Step
		better = true
	}
	if cer < p.BestCER {
		p.BestCER, p.BestCERStep = cer, p.Step
		better = true
	}
	if better {
		p.Stalled = 0
	}
	return better
}
