package main

import (
	"fmt"
	"strings"

	"github.com/neurlang/editgen/loss"
	"github.com/neurlang/editgen/trainer"
)

var modelTypes = []string{"transformer", "rnn", "embeddings", "cnn"}

// args is everything given on the command line, stored as args.json.
type args struct {
	DataPrefix string   `json:"data_prefix"`
	Extra      []string `json:"-"`

	EMLoss         *float64 `json:"em_loss"`
	SampledEMLoss  *float64 `json:"sampled_em_loss"`
	NLLLoss        *float64 `json:"nll_loss"`
	DistortionLoss *float64 `json:"distortion_loss"`
	FinalStateLoss *float64 `json:"final_state_loss"`
	SampledEMMode  string   `json:"sampled_em_mode"`

	ModelType      string `json:"model_type"`
	EmbeddingDim   int    `json:"embedding_dim"`
	Window         int    `json:"window"`
	HiddenSize     int    `json:"hidden_size"`
	AttentionHeads int    `json:"attention_heads"`
	NoEncDecAtt    bool   `json:"no_enc_dec_att"`
	Layers         int    `json:"layers"`

	SrcTokenized bool  `json:"src_tokenized"`
	TgtTokenized bool  `json:"tgt_tokenized"`
	Seed         int64 `json:"seed"`

	trainer.Config

	Experiments string `json:"experiments"`
	Resume      string `json:"resume"`
	LogLevel    string `json:"log_level"`
	LogFormat   string `json:"log_format"`
	MetricsAddr string `json:"metrics_addr"`
	GRPCAddr    string `json:"grpc_addr"`
}

func (a *args) weights() loss.Weights {
	return loss.Weights{
		EM:         a.EMLoss,
		SampledEM:  a.SampledEMLoss,
		NLL:        a.NLLLoss,
		Distortion: a.DistortionLoss,
		FinalState: a.FinalStateLoss,
	}
}

func (a *args) validate() error {
	if a.DataPrefix == "" {
		return fmt.Errorf("missing data prefix")
	}
	if len(a.Extra) > 0 {
		return fmt.Errorf("unexpected arguments %q after data prefix, flags must precede data_prefix", a.Extra)
	}
	if err := a.weights().Validate(); err != nil {
		return err
	}
	if _, err := loss.ParseSampleMode(a.SampledEMMode); err != nil {
		return err
	}
	var known bool
	for _, t := range modelTypes {
		known = known || t == a.ModelType
	}
	if !known {
		return fmt.Errorf("model type %q not one of %s", a.ModelType, strings.Join(modelTypes, ", "))
	}
	for name, v := range map[string]int{
		"embedding dim":   a.EmbeddingDim,
		"window":          a.Window,
		"hidden size":     a.HiddenSize,
		"attention heads": a.AttentionHeads,
		"layers":          a.Layers,
	} {
		if v < 1 {
			return fmt.Errorf("%s must be positive, got %d", name, v)
		}
	}
	return a.Config.Validate()
}

// params names the experiment after the hyper-parameters of the run.
func (a *args) params() string {
	return strings.ReplaceAll(a.DataPrefix, "/", "_") +
		fmt.Sprintf("_model%s", a.ModelType) +
		fmt.Sprintf("_hidden%d", a.HiddenSize) +
		fmt.Sprintf("_attheads%d", a.AttentionHeads) +
		fmt.Sprintf("_layers%d", a.Layers) +
		fmt.Sprintf("_encdecatt%t", !a.NoEncDecAtt) +
		fmt.Sprintf("_window%d", a.Window) +
		fmt.Sprintf("_batch%d", a.BatchSize) +
		fmt.Sprintf("_delay%d", a.DelayUpdate) +
		fmt.Sprintf("_patience%d", a.Patience) +
		a.weights().String()
}
