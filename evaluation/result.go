package evaluation

// Example is one decoded triple kept for inspection.
type Example struct {
	Source, Hypothesis, Reference string
}

// Result summarizes one pass over an evaluation split.
type Result struct {
	WER, CER float64

	Sources    []string
	Hypotheses []string
	References []string

	// Digest fingerprints the hypotheses, so unchanged outputs between
	// two evaluations are easy to spot.
	Digest [32]byte
}

func (r Result) Len() int {
	return len(r.Hypotheses)
}

// Examples returns up to n triples from the beginning of the result.
func (r Result) Examples(n int) []Example {
	if n > len(r.Hypotheses) {
		n = len(r.Hypotheses)
	}
	var out = make([]Example, n)
	for i := range out {
		out[i] = Example{Source: r.Sources[i], Hypothesis: r.Hypotheses[i], Reference: r.References[i]}
	}
	return out
}
