package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/klauspost/cpuid/v2"

	"github.com/neurlang/editgen/datasets/translit"
	"github.com/neurlang/editgen/editdist"
	"github.com/neurlang/editgen/experiment"
	"github.com/neurlang/editgen/logger"
	"github.com/neurlang/editgen/loss"
	"github.com/neurlang/editgen/metrics"
	"github.com/neurlang/editgen/monitoring"
	"github.com/neurlang/editgen/optim"
	"github.com/neurlang/editgen/summary"
	"github.com/neurlang/editgen/trainer"
)

func parse() *args {
	var a = args{Config: trainer.DefaultConfig()}
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] data_prefix\n\nflags must precede data_prefix\n\n", os.Args[0])
		flag.PrintDefaults()
	}

	flag.Var(optionalFloat{&a.EMLoss}, "em-loss", "weight of the EM (KL) loss, unset disables it")
	flag.Var(optionalFloat{&a.SampledEMLoss}, "sampled-em-loss", "weight of the sampled EM loss, unset disables it")
	flag.Var(optionalFloat{&a.NLLLoss}, "nll-loss", "weight of the next symbol NLL loss, unset disables it")
	flag.Var(optionalFloat{&a.DistortionLoss}, "distortion-loss", "weight of the distortion loss, unset disables it")
	flag.Var(optionalFloat{&a.FinalStateLoss}, "final-state-loss", "weight of the final state loss, unset disables it")
	flag.StringVar(&a.SampledEMMode, "sampled-em-mode", "argmax", "sampled EM target action: argmax or multinomial")

	flag.StringVar(&a.ModelType, "model-type", "transformer", "model type: transformer, rnn, embeddings or cnn")
	flag.IntVar(&a.EmbeddingDim, "embedding-dim", 256, "embedding dimension")
	flag.IntVar(&a.Window, "window", 3, "convolution window")
	flag.IntVar(&a.HiddenSize, "hidden-size", 256, "hidden size")
	flag.IntVar(&a.AttentionHeads, "attention-heads", 4, "attention heads")
	flag.BoolVar(&a.NoEncDecAtt, "no-enc-dec-att", false, "disable encoder-decoder attention")
	flag.IntVar(&a.Layers, "layers", 2, "hidden layers")

	flag.IntVar(&a.BeamSize, "beam-size", a.BeamSize, "beam size for test data decoding")
	flag.IntVar(&a.BatchSize, "batch-size", a.BatchSize, "batch size")
	flag.IntVar(&a.DelayUpdate, "delay-update", a.DelayUpdate, "update model every N steps")
	flag.IntVar(&a.Epochs, "epochs", a.Epochs, "maximum number of epochs")
	flag.BoolVar(&a.SrcTokenized, "src-tokenized", false, "source side are space separated tokens")
	flag.BoolVar(&a.TgtTokenized, "tgt-tokenized", false, "target side are space separated tokens")
	flag.IntVar(&a.Patience, "patience", a.Patience, "validations without improvement before decreasing learning rate")
	flag.IntVar(&a.LRDecreaseCount, "lr-decrease-count", a.LRDecreaseCount, "learning rate decays before early stopping")
	flag.Float64Var(&a.LRDecreaseRatio, "lr-decrease-ratio", a.LRDecreaseRatio, "factor by which the learning rate is decayed")
	flag.Float64Var(&a.LearningRate, "learning-rate", a.LearningRate, "initial learning rate")

	flag.IntVar(&a.ValidateEvery, "validate-every", a.ValidateEvery, "optimizer updates between validations")
	flag.Float64Var(&a.ClipNorm, "clip-norm", a.ClipNorm, "global gradient norm limit, 0 disables clipping")
	flag.Int64Var(&a.Seed, "seed", 1, "random seed for initialization and shuffling")
	flag.StringVar(&a.Experiments, "experiments", "experiments", "directory holding the experiment directories")
	flag.StringVar(&a.Resume, "resume", "", "checkpoint to resume training from")
	flag.StringVar(&a.LogLevel, "log-level", "info", "log level: debug, info, warn or error")
	flag.StringVar(&a.LogFormat, "log-format", "console", "log format: console or json")
	flag.StringVar(&a.MetricsAddr, "metrics-addr", "", "address serving /metrics and /healthz, empty disables")
	flag.StringVar(&a.GRPCAddr, "grpc-addr", "", "address serving the gRPC health service, empty disables")
	flag.Parse()

	a.DataPrefix = flag.Arg(0)
	if flag.NArg() > 1 {
		a.Extra = flag.Args()[1:]
	}
	if err := a.validate(); err != nil {
		fmt.Fprintln(flag.CommandLine.Output(), err)
		flag.Usage()
		os.Exit(2)
	}
	return &a
}

func main() {
	a := parse()
	logger.Setup(a.LogLevel, a.LogFormat)
	if err := run(a); err != nil {
		os.Exit(1)
	}
}

// run logs its own failure so that the line still reaches the experiment
// log, which is detached once the experiment is closed.
func run(a *args) error {
	logger.Log.Info("starting", "cpu", cpuid.CPU.BrandName, "cores", cpuid.CPU.LogicalCores)

	server, err := monitoring.Start(a.MetricsAddr, a.GRPCAddr)
	if err != nil {
		logger.Log.Error("starting monitoring failed", "err", err)
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	exp, err := experiment.New(a.Experiments, a.params(), a)
	if err != nil {
		logger.Log.Error("creating experiment failed", "err", err)
		return err
	}
	defer exp.Close()

	if err := train(a, exp, server); err != nil {
		logger.Log.Error("training failed", "err", err)
		return err
	}
	return nil
}

func train(a *args, exp *experiment.Experiment, server *monitoring.Server) error {
	data, err := translit.Load(a.DataPrefix, translit.Options{
		BatchSize:    a.BatchSize,
		SrcTokenized: a.SrcTokenized,
		TgtTokenized: a.TgtTokenized,
		Seed:         a.Seed,
	})
	if err != nil {
		return err
	}
	logger.Log.Info("data loaded",
		"train", data.Train.Len(), "val", data.Val.Len(), "test", data.Test.Len(),
		"src_vocab", data.Src.Vocab.Len(), "tgt_vocab", data.Tgt.Vocab.Len())
	if err := translit.SaveVocab(data.Src.Vocab, exp.Path(experiment.SrcVocabFile)); err != nil {
		return err
	}
	if err := translit.SaveVocab(data.Tgt.Vocab, exp.Path(experiment.TgtVocabFile)); err != nil {
		return err
	}

	model := editdist.New(data.Src.Vocab, data.Tgt.Vocab, editdist.Config{Seed: a.Seed})
	if err := trainer.Resume(model, a.Resume != "", a.Resume); err != nil {
		return err
	}
	modelPath := exp.Path(experiment.ModelFile)

	scalars, err := summary.Create(exp.Path(summary.FileName))
	if err != nil {
		return err
	}
	defer func() {
		if err := scalars.Close(); err != nil {
			logger.Log.Warn("closing summary", "err", err)
		}
	}()

	mode, _ := loss.ParseSampleMode(a.SampledEMMode)
	composer := &loss.Composer{
		Weights:  a.weights(),
		SrcPad:   model.SrcPad(),
		TgtPad:   model.TgtPad(),
		Sampling: mode,
		Rand:     rand.New(rand.NewSource(a.Seed)),
	}
	tr := &trainer.Trainer{
		Config:    a.Config,
		Model:     model,
		Optimizer: optim.NewAdam(model.Params(), a.LearningRate),
		Loss:      composer,
		Train:     data.Train,
		Validate:  trainer.NewEvaluateFunc("val", trainer.Greedy(model), data.Src, data.Tgt, data.Val),
		Save:      trainer.NewSaveFunc(model, modelPath),
		Scalars:   scalars,
		Observer:  server,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server.SetServing(true)
	progress, err := tr.Run(ctx)
	server.SetServing(false)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Log.Warn("training interrupted", "step", progress.Step)
	case err != nil:
		return err
	}
	logger.Log.Info("training finished, evaluating on test data",
		"step", progress.Step, "updates", progress.Updates,
		"best_wer", progress.BestWER, "best_cer", progress.BestCER)

	if _, err := trainer.ReloadBest(model, modelPath); err != nil {
		return err
	}
	start := time.Now()
	res, err := trainer.NewEvaluateFunc("test", trainer.Beam(model, a.BeamSize), data.Src, data.Tgt, data.Test)(context.Background())
	if err != nil {
		return err
	}
	metrics.RecordEvaluation("test", res.WER, res.CER, time.Since(start))
	scalars.AddScalar("test/wer", res.WER, progress.Step)
	scalars.AddScalar("test/cer", res.CER, progress.Step)
	logger.Log.Info("test", "wer", res.WER, "cer", res.CER)
	return nil
}
