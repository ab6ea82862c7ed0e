package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "editgen_batches_total",
		Help: "Training batches processed",
	})

	OptimizerStepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "editgen_optimizer_steps_total",
		Help: "Optimizer updates applied",
	})

	LossTerm = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "editgen_loss",
		Help: "Most recent value of each loss term",
	}, []string{"term"})

	GradNorm = promauto.NewSummary(prometheus.SummaryOpts{
		Name:       "editgen_grad_norm",
		Help:       "Global gradient norm before clipping",
		Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
	})

	LearningRate = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "editgen_learning_rate",
		Help: "Current learning rate",
	})

	LRDecreasesRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "editgen_lr_decreases_remaining",
		Help: "Learning rate decreases left before training stops",
	})

	ErrorRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "editgen_error_rate",
		Help: "Error rates of the most recent evaluation",
	}, []string{"split", "kind"})

	BestErrorRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "editgen_best_error_rate",
		Help: "Best validation error rates so far",
	}, []string{"kind"})

	EvaluationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "editgen_evaluation_duration_seconds",
		Help:    "Time spent decoding an evaluation split",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}, []string{"split"})

	CheckpointsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "editgen_checkpoints_total",
		Help: "Checkpoints written",
	})

	State = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "editgen_state",
		Help: "1 for the current training loop state, 0 otherwise",
	}, []string{"state"})
)

// RecordLoss sets the gauge of a named loss term.
func RecordLoss(term string, value float64) {
	LossTerm.WithLabelValues(term).Set(value)
}

// RecordUpdate counts one optimizer update and its pre-clip gradient norm.
func RecordUpdate(norm float64) {
	OptimizerStepsTotal.Inc()
	GradNorm.Observe(norm)
}

// RecordEvaluation sets the error rates of a split and the decode time.
func RecordEvaluation(split string, wer, cer float64, took time.Duration) {
	ErrorRate.WithLabelValues(split, "wer").Set(wer)
	ErrorRate.WithLabelValues(split, "cer").Set(cer)
	EvaluationDuration.WithLabelValues(split).Observe(took.Seconds())
}

// RecordBest sets the best validation error rates.
func RecordBest(wer, cer float64) {
	BestErrorRate.WithLabelValues("wer").Set(wer)
	BestErrorRate.WithLabelValues("cer").Set(cer)
}

// RecordSchedule sets the learning rate gauges.
func RecordSchedule(lr float64, remaining int) {
	LearningRate.Set(lr)
	LRDecreasesRemaining.Set(float64(remaining))
}

// RecordState marks state as current among all the given states.
func RecordState(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		State.WithLabelValues(s).Set(v)
	}
}
