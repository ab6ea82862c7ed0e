// Package trainer provides the training orchestration for edit distance
// transliteration models. It runs the accumulate, update, validate and
// decay loop over a batch source, evaluates decoders with word and
// character error rates and manages the best checkpoint.
package trainer
