package expreplay

import (
	"fmt"
	"math/rand"
)

// SelectorType determines what kind of Selector to use for sampling
// from or removing from an experience replay buffer
type SelectorType string

const (
	// Fifo selects data in a first-in-first-out manner
	Fifo SelectorType = "fifo"

	// Uniform selects data uniformly randomly
	Uniform SelectorType = "uniform"
)

// CreateSelector is a factory method for creating a Selector of the
// given SelectorType. The batchSize parameter determines how many
// indices the Selector chooses per call, and the seed parameter seeds
// any randomness the Selector uses.
func CreateSelector(t SelectorType, batchSize int, seed int64) (Selector,
	error) {
	switch t {
	case Fifo:
		return NewFifoSelector(batchSize), nil

	case Uniform:
		return NewUniformSelector(batchSize, seed), nil
	}
	return nil, fmt.Errorf("createSelector: no such selector type (%v)", t)
}

// Selector implements functionality for choosing how data should be
// sampled and/or removed from an experience replay buffer.
//
// A Selector only chooses indices. The replay buffer that consults the
// Selector owns all bookkeeping, so choosing an index never mutates
// the buffer.
type Selector interface {
	// choose selects the indices at which data should be sampled from
	// or removed from the experience replay buffer
	choose(c orderedSampler) []int

	// BatchSize returns the number of elements that will be selected
	BatchSize() int
}

// uniformSelector is a Selector which selects data from an experience
// replay buffer uniformly randomly
type uniformSelector struct {
	samples int
	rng     *rand.Rand
}

// NewUniformSelector returns a new Selector which selects data uniformly
// randomly from an experience replay buffer
func NewUniformSelector(samples int, seed int64) Selector {
	source := rand.NewSource(seed)
	rng := rand.New(source)

	return &uniformSelector{samples: samples, rng: rng}
}

// BatchSize gets the number of samples in a batch drawn from the buffer
func (u *uniformSelector) BatchSize() int {
	return u.samples
}

// choose selects a number of indices at which to draw data from the
// buffer. Indices are drawn with replacement.
func (u *uniformSelector) choose(c orderedSampler) []int {
	selected := make([]int, u.BatchSize())
	from := c.sampleFrom()

	for i := range selected {
		selected[i] = from[u.rng.Intn(len(from))]
	}

	return selected
}

// fifoSelector is a Selector which selects data from an experience
// replay buffer in a first-in-first-out manner.
type fifoSelector struct {
	samples int
}

// NewFifoSelector returns a new Selector which draws the oldest data
// from an experience replay buffer first.
func NewFifoSelector(samples int) Selector {
	return &fifoSelector{samples: samples}
}

// BatchSize gets the number of samples in a batch drawn from the buffer
func (f *fifoSelector) BatchSize() int {
	return f.samples
}

// choose selects a number of indices at which to draw data from the
// buffer, oldest data first. If the buffer holds fewer elements than
// the batch size, only the held elements are chosen.
func (f *fifoSelector) choose(c orderedSampler) []int {
	return c.insertOrder(f.BatchSize())
}
