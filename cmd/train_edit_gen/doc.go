// Package main trains an edit distance transliteration model on a
// directory holding train.txt, eval.txt and test.txt with tab separated
// source and target strings. Every run gets its own experiment directory
// with the arguments, the log, the vocabularies, the best checkpoint and
// the scalar summaries.
package main
