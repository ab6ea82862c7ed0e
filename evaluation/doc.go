// Package evaluation computes word and character error rates of decoded
// hypotheses against references.
package evaluation
