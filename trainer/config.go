package trainer

import "github.com/pkg/errors"

// ErrInvalidConfig is wrapped by every Config.Validate failure.
var ErrInvalidConfig = errors.New("invalid trainer config")

// Config holds the loop hyper-parameters.
type Config struct {
	BatchSize   int `json:"batch_size"`
	BeamSize    int `json:"beam_size"`
	DelayUpdate int `json:"delay_update"`
	Epochs      int `json:"epochs"`

	// Patience is the number of validations without improvement
	// tolerated before the learning rate is decreased.
	Patience        int     `json:"patience"`
	LRDecreaseCount int     `json:"lr_decrease_count"`
	LRDecreaseRatio float64 `json:"lr_decrease_ratio"`
	LearningRate    float64 `json:"learning_rate"`

	// ValidateEvery counts optimizer updates between validations.
	ValidateEvery int `json:"validate_every"`

	// ClipNorm bounds the global gradient norm. Zero disables clipping.
	ClipNorm float64 `json:"clip_norm"`
}

// DefaultConfig returns the stock hyper-parameters.
func DefaultConfig() Config {
	return Config{
		BatchSize:       128,
		BeamSize:        5,
		DelayUpdate:     4,
		Epochs:          10000,
		Patience:        2,
		LRDecreaseCount: 10,
		LRDecreaseRatio: 0.7,
		LearningRate:    1e-4,
		ValidateEvery:   50,
		ClipNorm:        1,
	}
}

// Validate reports the first out of range field.
func (c Config) Validate() error {
	switch {
	case c.BatchSize < 1:
		return errors.Wrapf(ErrInvalidConfig, "batch size %d", c.BatchSize)
	case c.BeamSize < 1:
		return errors.Wrapf(ErrInvalidConfig, "beam size %d", c.BeamSize)
	case c.DelayUpdate < 1:
		return errors.Wrapf(ErrInvalidConfig, "delay update %d", c.DelayUpdate)
	case c.Epochs < 1:
		return errors.Wrapf(ErrInvalidConfig, "epochs %d", c.Epochs)
	case c.Patience < 0:
		return errors.Wrapf(ErrInvalidConfig, "patience %d", c.Patience)
	case c.LRDecreaseCount < 1:
		return errors.Wrapf(ErrInvalidConfig, "lr decrease count %d", c.LRDecreaseCount)
	case c.LRDecreaseRatio <= 0 || c.LRDecreaseRatio > 1:
		return errors.Wrapf(ErrInvalidConfig, "lr decrease ratio %g not in (0, 1]", c.LRDecreaseRatio)
	case c.LearningRate <= 0:
		return errors.Wrapf(ErrInvalidConfig, "learning rate %g", c.LearningRate)
	case c.ValidateEvery < 1:
		return errors.Wrapf(ErrInvalidConfig, "validate every %d", c.ValidateEvery)
	case c.ClipNorm < 0:
		return errors.Wrapf(ErrInvalidConfig, "clip norm %g", c.ClipNorm)
	}
	return nil
}
