// Package loss composes the optional weighted training objectives of the
// edit distance model into one scalar and its gradient.
//
// Five terms can be enabled independently: the EM term (KL divergence
// between action scores and expected counts), the sampled EM term
// (cross-entropy against one action drawn from the expected counts), the
// next symbol negative log-likelihood, the distortion penalty and the final
// state negative log-likelihood. A term is enabled by giving it a weight.
package loss
