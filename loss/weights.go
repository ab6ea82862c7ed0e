package loss

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoLoss is returned when none of the primary terms is enabled.
var ErrNoLoss = errors.New("loss: no loss was specified")

// Weights enable loss terms. A nil weight disables the term.
type Weights struct {
	EM         *float64
	SampledEM  *float64
	NLL        *float64
	Distortion *float64
	FinalState *float64
}

// Weight returns a pointer to w, for building Weights literals.
func Weight(w float64) *float64 {
	return &w
}

// Validate requires at least one of the NLL, EM or sampled EM terms.
func (w Weights) Validate() error {
	if w.NLL == nil && w.EM == nil && w.SampledEM == nil {
		return ErrNoLoss
	}
	return nil
}

func formatWeight(w *float64) string {
	if w == nil {
		return "None"
	}
	return fmt.Sprint(*w)
}

// String renders the weights the way experiment names spell them.
func (w Weights) String() string {
	var sb strings.Builder
	sb.WriteString("_nll" + formatWeight(w.NLL))
	sb.WriteString("_EMloss" + formatWeight(w.EM))
	sb.WriteString("_sampledEMloss" + formatWeight(w.SampledEM))
	sb.WriteString("_finalStateLoss" + formatWeight(w.FinalState))
	sb.WriteString("_distortion" + formatWeight(w.Distortion))
	return sb.String()
}
