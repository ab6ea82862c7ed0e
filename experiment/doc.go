// Package experiment manages the per run output directory holding the
// arguments, the log, the vocabularies, the best checkpoint and the
// scalar summaries of one training run.
package experiment
