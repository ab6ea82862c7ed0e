package evaluation

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

var (
	// ErrEmptyReference is returned by CharErrorRate for an empty reference.
	ErrEmptyReference = errors.New("evaluation: empty reference string")

	// ErrLengthMismatch is returned when hypotheses and references differ in count.
	ErrLengthMismatch = errors.New("evaluation: hypotheses and references differ in length")

	// ErrNoExamples is returned when there is nothing to evaluate.
	ErrNoExamples = errors.New("evaluation: no examples")
)

func check(hyps, refs []string) error {
	if len(hyps) != len(refs) {
		return ErrLengthMismatch
	}
	if len(refs) == 0 {
		return ErrNoExamples
	}
	return nil
}

// WordErrorRate is one minus the fraction of hypotheses that exactly match
// their reference.
func WordErrorRate(hyps, refs []string) (float64, error) {
	if err := check(hyps, refs); err != nil {
		return 0, err
	}
	var correct int
	for i := range hyps {
		if hyps[i] == refs[i] {
			correct++
		}
	}
	return 1 - float64(correct)/float64(len(refs)), nil
}

// CharErrorRate is the mean over pairs of the edit distance between
// hypothesis and reference divided by the reference length. Lengths are in
// runes, or in white space separated tokens when tokenized is set.
func CharErrorRate(hyps, refs []string, tokenized bool) (float64, error) {
	if err := check(hyps, refs); err != nil {
		return 0, err
	}
	var total float64
	for i := range hyps {
		h, r := hyps[i], refs[i]
		if tokenized {
			h, r = tokenRunes(h, r)
		}
		n := utf8.RuneCountInString(r)
		if n == 0 {
			return 0, ErrEmptyReference
		}
		total += float64(levenshtein.ComputeDistance(h, r)) / float64(n)
	}
	return total / float64(len(refs)), nil
}

// first rune of the supplementary private use area A
const tokenBase rune = 0xF0000

// tokenRunes rewrites both strings with one rune per distinct token, so the
// rune edit distance of the results is the token edit distance.
func tokenRunes(hyp, ref string) (string, string) {
	ids := make(map[string]rune)
	encode := func(s string) string {
		var b strings.Builder
		for _, tok := range strings.Fields(s) {
			r, ok := ids[tok]
			if !ok {
				r = tokenBase + rune(len(ids))
				ids[tok] = r
			}
			b.WriteRune(r)
		}
		return b.String()
	}
	return encode(hyp), encode(ref)
}
