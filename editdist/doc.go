// Package editdist implements a compact neural string edit distance model.
//
// Every cell (i, j) of the alignment table between a source and a target
// sequence is entered by one of three actions: a deletion from (i-1, j), an
// insertion from (i, j-1) or a substitution from (i-1, j-1). The model scores
// those actions from learned source and target symbol embeddings, runs the
// forward-backward algorithm over the table to obtain the sequence
// log-probability and the expected action counts, and predicts the next
// target symbol from the alignment-weighted source context. The outputs are
// what the loss composer in package loss consumes.
package editdist
