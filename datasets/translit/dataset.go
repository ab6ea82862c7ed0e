package translit

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

// Example is one source/target pair.
type Example struct {
	Src, Tgt string
}

// Split file names inside the data prefix directory.
const (
	TrainFile = "train.txt"
	EvalFile  = "eval.txt"
	TestFile  = "test.txt"
)

func loop(filename string, do func(src, tgt string)) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "open dataset")
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var line int
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if text == "" {
			continue
		}
		columns := strings.Split(text, "\t")
		if len(columns) != 2 {
			return errors.Errorf("%s:%d: expected 2 tab-separated columns, got %d", filename, line, len(columns))
		}
		do(norm.NFC.String(columns[0]), norm.NFC.String(columns[1]))
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "%s:%d", filename, line)
	}
	return nil
}

// ReadTSV reads all examples of a tab-separated file.
func ReadTSV(filename string) (out []Example, err error) {
	err = loop(filename, func(src, tgt string) {
		out = append(out, Example{Src: src, Tgt: tgt})
	})
	return
}

// Data holds both fields and the three split iterators.
type Data struct {
	Src, Tgt *Field

	Train, Val, Test *Iterator
}

// Options configure Load.
type Options struct {
	BatchSize    int
	SrcTokenized bool
	TgtTokenized bool
	Seed         int64
}

// Load reads {train,eval,test}.txt from prefix, builds vocabularies from the
// training split and prepares the iterators. Evaluation splits use batches
// of one example.
func Load(prefix string, opts Options) (*Data, error) {
	if opts.BatchSize <= 0 {
		return nil, errors.Errorf("invalid batch size: %d (must be positive)", opts.BatchSize)
	}
	train, err := ReadTSV(filepath.Join(prefix, TrainFile))
	if err != nil {
		return nil, err
	}
	if len(train) == 0 {
		return nil, errors.Errorf("%s: no training examples", filepath.Join(prefix, TrainFile))
	}
	val, err := ReadTSV(filepath.Join(prefix, EvalFile))
	if err != nil {
		return nil, err
	}
	test, err := ReadTSV(filepath.Join(prefix, TestFile))
	if err != nil {
		return nil, err
	}

	var d = &Data{
		Src: &Field{Tokenized: opts.SrcTokenized},
		Tgt: &Field{Tokenized: opts.TgtTokenized},
	}
	var srcCounts = make(map[string]int)
	var tgtCounts = make(map[string]int)
	for _, ex := range train {
		for _, tok := range d.Src.Tokenize(ex.Src) {
			srcCounts[tok]++
		}
		for _, tok := range d.Tgt.Tokenize(ex.Tgt) {
			tgtCounts[tok]++
		}
	}
	d.Src.Vocab = NewVocab(srcCounts)
	d.Tgt.Vocab = NewVocab(tgtCounts)

	d.Train = NewIterator(train, d.Src, d.Tgt, opts.BatchSize, true, opts.Seed)
	d.Val = NewIterator(val, d.Src, d.Tgt, 1, false, opts.Seed)
	d.Test = NewIterator(test, d.Src, d.Tgt, 1, false, opts.Seed)
	return d, nil
}
