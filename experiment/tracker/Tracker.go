// Package tracker defines Trackers, which record data about a training
// run and save it once the run is over
package tracker

import (
	"encoding/gob"
	"os"
	"time"

	"github.com/pkg/errors"
)

// Record is the state of a training run after one round
type Record struct {
	Rank int

	// SamplesSeen is the number of samples trained on over all workers,
	// including those before the run was restored
	SamplesSeen int
	Minibatches int

	// MinibatchSamples is the size of the global minibatch of the round
	MinibatchSamples int

	Loss  float64
	Error float64

	Elapsed time.Duration
}

// Tracker keeps track of training data and saves the data once
// training has finished
type Tracker interface {
	Track(Record)
	Save() error
}

// SaveData gob encodes data to filename
func SaveData(filename string, data []float64) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "could not open save file")
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(data); err != nil {
		return errors.Wrap(err, "could not encode data")
	}
	return nil
}

// LoadData loads and returns the data saved by a Tracker
func LoadData(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "could not open data file")
	}
	defer file.Close()

	var data []float64
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, errors.Wrap(err, "could not decode data")
	}
	return data, nil
}
