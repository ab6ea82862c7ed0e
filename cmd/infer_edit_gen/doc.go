// Package main decodes or scores strings with a model trained by
// train_edit_gen. Inputs are taken from the command line or, when none are
// given, one per line from standard input.
//
// Decoding prints "source<TAB>hypothesis". With -score every input must be
// "source<TAB>target" and the output appends the sequence log-probability
// and its per-symbol normalization.
package main
