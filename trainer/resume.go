package trainer

import (
	"os"

	"github.com/pkg/errors"

	"github.com/neurlang/editgen/logger"
)

// Checkpointer is a model that can be stored in and restored from a file.
type Checkpointer interface {
	WriteCompressedWeightsToFile(name string) error
	ReadCompressedWeightsFromFile(name string) error
}

// Resume loads the weights in path into net when resume is set. A
// missing file is not an error; training then starts from scratch.
func Resume(net Checkpointer, resume bool, path string) error {
	if !resume || path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Log.Warn("no checkpoint to resume from", "path", path)
		return nil
	}
	if err := net.ReadCompressedWeightsFromFile(path); err != nil {
		return errors.Wrap(err, "resume")
	}
	logger.Log.Info("resumed", "path", path)
	return nil
}

// NewSaveFunc returns a SaveFunc writing net to path.
func NewSaveFunc(net Checkpointer, path string) SaveFunc {
	return func() error {
		if err := net.WriteCompressedWeightsToFile(path); err != nil {
			return errors.Wrap(err, "checkpoint")
		}
		logger.Log.Info("checkpoint written", "path", path)
		return nil
	}
}

// ReloadBest restores the best checkpoint after training. It reports
// false when no checkpoint was ever written, leaving net untouched.
func ReloadBest(net Checkpointer, path string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Log.Warn("no checkpoint written, testing the final weights", "path", path)
		return false, nil
	}
	if err := net.ReadCompressedWeightsFromFile(path); err != nil {
		return false, errors.Wrap(err, "reload best checkpoint")
	}
	return true, nil
}
