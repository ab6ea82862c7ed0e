package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/neurlang/editgen/datasets/translit"
	"github.com/neurlang/editgen/editdist"
	"github.com/neurlang/editgen/experiment"
	"github.com/neurlang/editgen/logger"
)

type stored struct {
	SrcTokenized bool `json:"src_tokenized"`
	TgtTokenized bool `json:"tgt_tokenized"`
	BeamSize     int  `json:"beam_size"`
}

func main() {
	dir := flag.String("experiment", "", "experiment directory written by train_edit_gen")
	beam := flag.Int("beam-size", 0, "beam size, 0 uses the training setting, 1 decodes greedily")
	score := flag.Bool("score", false, "score source<TAB>target pairs instead of decoding")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger.Setup(*logLevel, "console")
	if *dir == "" {
		fmt.Fprintln(os.Stderr, "experiment directory is mandatory")
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*dir, *beam, *score, flag.Args(), os.Stdin, os.Stdout); err != nil {
		logger.Log.Error("inference failed", "err", err)
		os.Exit(1)
	}
}

func load(dir string) (*editdist.Model, *translit.Field, *translit.Field, stored, error) {
	var st = stored{BeamSize: 5}
	exp, err := experiment.Open(dir)
	if err != nil {
		return nil, nil, nil, st, err
	}
	if err := exp.ReadArgs(&st); err != nil {
		logger.Log.Warn("no stored arguments, assuming character fields", "err", err)
	}
	srcVocab, err := translit.LoadVocab(exp.Path(experiment.SrcVocabFile))
	if err != nil {
		return nil, nil, nil, st, err
	}
	tgtVocab, err := translit.LoadVocab(exp.Path(experiment.TgtVocabFile))
	if err != nil {
		return nil, nil, nil, st, err
	}
	model := editdist.New(srcVocab, tgtVocab, editdist.Config{})
	if err := model.ReadCompressedWeightsFromFile(exp.Path(experiment.ModelFile)); err != nil {
		return nil, nil, nil, st, err
	}
	src := &translit.Field{Tokenized: st.SrcTokenized, Vocab: srcVocab}
	tgt := &translit.Field{Tokenized: st.TgtTokenized, Vocab: tgtVocab}
	return model, src, tgt, st, nil
}

func inputs(args []string, stdin io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	var lines []string
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

func run(dir string, beam int, score bool, args []string, stdin io.Reader, stdout io.Writer) error {
	model, src, tgt, st, err := load(dir)
	if err != nil {
		return err
	}
	lines, err := inputs(args, stdin)
	if err != nil {
		return err
	}
	if beam <= 0 {
		beam = st.BeamSize
	}

	w := bufio.NewWriter(stdout)
	defer w.Flush()

	if score {
		var s, t [][]int
		for i, line := range lines {
			cols := strings.Split(norm.NFC.String(line), "\t")
			if len(cols) != 2 {
				return fmt.Errorf("input %d: expected source<TAB>target", i+1)
			}
			s = append(s, src.Encode(cols[0]))
			t = append(t, tgt.Encode(cols[1]))
		}
		if len(s) == 0 {
			return nil
		}
		logprob, normalized := model.Probabilities(src.Pad(s), tgt.Pad(t))
		for i, line := range lines {
			fmt.Fprintf(w, "%s\t%.6g\t%.6g\n", line, logprob[i], normalized[i])
		}
		return nil
	}

	var rows [][]int
	for _, line := range lines {
		rows = append(rows, src.Encode(norm.NFC.String(line)))
	}
	if len(rows) == 0 {
		return nil
	}
	decoded := model.BeamSearch(src.Pad(rows), beam)
	for i, line := range lines {
		fmt.Fprintf(w, "%s\t%s\n", line, tgt.DecodeIDs(decoded[i]))
	}
	return nil
}
