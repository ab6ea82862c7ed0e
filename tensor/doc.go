// Package tensor implements the small dense float64 arrays exchanged between
// the edit distance model and the loss composer.
package tensor
