package split

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/ironsheep/dataset-tools/internal/labels"
)

// ErrInvalidRatio is wrapped by a ConfigError for out-of-range ratios.
var ErrInvalidRatio = errors.New("invalid ratio")

// ConfigError reports unusable split parameters.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// countTolerance absorbs float error in ratio*n so that 0.9*10 counts as 9.
const countTolerance = 1e-9

// Ratios are the train and validation fractions of a list. Whatever is left
// over is held out of both sets.
type Ratios struct {
	Train float64 `json:"train_ratio" yaml:"train_ratio"`
	Val   float64 `json:"val_ratio" yaml:"val_ratio"`
}

// Validate checks both ratios lie in [0,1] and sum to at most 1.
func (r Ratios) Validate() error {
	if math.IsNaN(r.Train) || r.Train < 0 || r.Train > 1 {
		return &ConfigError{Field: "train_ratio", Err: fmt.Errorf("%w: %v not in [0,1]", ErrInvalidRatio, r.Train)}
	}
	if math.IsNaN(r.Val) || r.Val < 0 || r.Val > 1 {
		return &ConfigError{Field: "val_ratio", Err: fmt.Errorf("%w: %v not in [0,1]", ErrInvalidRatio, r.Val)}
	}
	if r.Train+r.Val > 1+countTolerance {
		return &ConfigError{Field: "train_ratio+val_ratio", Err: fmt.Errorf("%w: sum %v exceeds 1", ErrInvalidRatio, r.Train+r.Val)}
	}
	return nil
}

// Counts returns the train and validation sizes for a list of n items.
func (r Ratios) Counts(n int) (train, val int) {
	train = floorCount(r.Train, n)
	upto := floorCount(r.Train+r.Val, n)
	if upto > n {
		upto = n
	}
	if train > upto {
		train = upto
	}
	return train, upto - train
}

func floorCount(ratio float64, n int) int {
	return int(math.Floor(ratio*float64(n) + countTolerance))
}

// Split is a partition of one list.
type Split struct {
	Train      []labels.ImageKey `json:"train"`
	Validation []labels.ImageKey `json:"validation"`
	Remainder  []labels.ImageKey `json:"remainder,omitempty"`
}

// SplitKeys shuffles a copy of keys with rng and cuts it by r. keys is not
// modified.
func SplitKeys(rng *rand.Rand, keys []labels.ImageKey, r Ratios) (Split, error) {
	if err := r.Validate(); err != nil {
		return Split{}, err
	}
	if rng == nil {
		return Split{}, errors.New("split: nil random source")
	}

	shuffled := append([]labels.ImageKey(nil), keys...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	nTrain, nVal := r.Counts(len(shuffled))
	return Split{
		Train:      shuffled[:nTrain:nTrain],
		Validation: shuffled[nTrain : nTrain+nVal : nTrain+nVal],
		Remainder:  shuffled[nTrain+nVal:],
	}, nil
}

// NewRand returns a PCG-backed source for seed. A zero seed picks one from
// the clock; the chosen seed is returned so a run can be reproduced.
func NewRand(seed uint64) (*rand.Rand, uint64) {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), seed
}
