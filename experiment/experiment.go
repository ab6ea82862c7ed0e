package experiment

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/neurlang/editgen/logger"
)

// Files inside an experiment directory.
const (
	ArgsFile     = "args.json"
	LogFile      = "experiment.log"
	SrcVocabFile = "src_vocab"
	TgtVocabFile = "tgt_vocab"
	ModelFile    = "model.json.lzw"
)

// TimestampFormat is the layout of the timestamp in directory names.
const TimestampFormat = "2006-01-02-15-04-05"

// Experiment is an open experiment directory.
type Experiment struct {
	Dir     string
	ID      uuid.UUID
	Started time.Time

	log io.Closer
}

// Name returns the directory name of a run started at t.
func Name(params string, t time.Time, id uuid.UUID) string {
	return "edit_gen_" + params + "_" + t.Format(TimestampFormat) + "_" + id.String()[:8]
}

// New creates a fresh experiment directory under root, writes args as
// JSON and starts copying the log into it.
func New(root, params string, args interface{}) (*Experiment, error) {
	e := &Experiment{ID: uuid.New(), Started: time.Now()}
	e.Dir = filepath.Join(root, Name(params, e.Started, e.ID))
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create experiment directory")
	}

	data, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal arguments")
	}
	if err := os.WriteFile(e.Path(ArgsFile), data, 0o644); err != nil {
		return nil, errors.Wrap(err, "write arguments")
	}

	e.log, err = logger.AddFile(e.Path(LogFile))
	if err != nil {
		return nil, err
	}
	logger.Log.Info("experiment directory", "dir", e.Dir, "run_id", e.ID.String())
	return e, nil
}

// Open opens an existing experiment directory for reading.
func Open(dir string) (*Experiment, error) {
	st, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrap(err, "open experiment")
	}
	if !st.IsDir() {
		return nil, errors.Errorf("experiment %s is not a directory", dir)
	}
	for _, name := range []string{SrcVocabFile, TgtVocabFile, ModelFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return nil, errors.Wrapf(err, "experiment %s", dir)
		}
	}
	return &Experiment{Dir: dir, Started: st.ModTime()}, nil
}

// Path returns the path of a file inside the experiment directory.
func (e *Experiment) Path(name string) string {
	return filepath.Join(e.Dir, name)
}

// ReadArgs decodes the stored arguments into v.
func (e *Experiment) ReadArgs(v interface{}) error {
	data, err := os.ReadFile(e.Path(ArgsFile))
	if err != nil {
		return errors.Wrap(err, "read arguments")
	}
	return errors.Wrap(json.Unmarshal(data, v), "decode arguments")
}

// Close stops copying the log into the directory.
func (e *Experiment) Close() error {
	if e.log == nil {
		return nil
	}
	err := e.log.Close()
	e.log = nil
	return err
}
