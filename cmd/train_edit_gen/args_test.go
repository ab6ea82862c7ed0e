package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurlang/editgen/loss"
	"github.com/neurlang/editgen/trainer"
)

func validArgs() args {
	return args{
		DataPrefix:     "data/ar-en",
		NLLLoss:        loss.Weight(1),
		SampledEMMode:  "argmax",
		ModelType:      "transformer",
		EmbeddingDim:   256,
		Window:         3,
		HiddenSize:     256,
		AttentionHeads: 4,
		Layers:         2,
		Config:         trainer.DefaultConfig(),
	}
}

func TestParams(t *testing.T) {
	a := validArgs()
	a.FinalStateLoss = loss.Weight(0.5)
	assert.Equal(t,
		"data_ar-en_modeltransformer_hidden256_attheads4_layers2_encdecatttrue_window3_batch128_delay4_patience2"+
			"_nll1_EMlossNone_sampledEMlossNone_finalStateLoss0.5_distortionNone",
		a.params())
}

func TestValidate(t *testing.T) {
	a := validArgs()
	require.NoError(t, a.validate())

	a = validArgs()
	a.NLLLoss = nil
	a.DistortionLoss = loss.Weight(1)
	assert.ErrorIs(t, a.validate(), loss.ErrNoLoss)

	a = validArgs()
	a.ModelType = "lstm"
	assert.Error(t, a.validate())

	a = validArgs()
	a.SampledEMMode = "gumbel"
	assert.Error(t, a.validate())

	a = validArgs()
	a.Layers = 0
	assert.Error(t, a.validate())

	a = validArgs()
	a.DataPrefix = ""
	assert.Error(t, a.validate())

	a = validArgs()
	a.DelayUpdate = 0
	assert.ErrorIs(t, a.validate(), trainer.ErrInvalidConfig)
}

func TestFlagsAfterDataPrefixRejected(t *testing.T) {
	a := validArgs()
	a.Extra = []string{"--nll-loss", "1"}
	err := a.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flags must precede data_prefix")
	assert.Contains(t, err.Error(), "--nll-loss")
}

func TestOptionalFloat(t *testing.T) {
	var w *float64
	f := optionalFloat{&w}
	assert.Equal(t, "None", f.String())
	require.NoError(t, f.Set("0.25"))
	require.NotNil(t, w)
	assert.Equal(t, 0.25, *w)
	assert.Equal(t, "0.25", f.String())
	assert.Error(t, f.Set("x"))
}
