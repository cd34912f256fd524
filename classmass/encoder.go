// SPDX-License-Identifier: MIT

package classmass

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrEmptyLabels indicates a domain (or a whole problem) without labels.
	ErrEmptyLabels = errors.New("classmass: no labels")

	// ErrLabelLength indicates a label slice whose length differs from the
	// number of samples.
	ErrLabelLength = errors.New("classmass: label count does not match sample count")

	// ErrUnknownClass indicates a label or class index outside the encoder.
	ErrUnknownClass = errors.New("classmass: unknown class")
)

// Encoder maps arbitrary integer labels onto dense class indices 0..C-1.
type Encoder struct {
	labels []int       // index -> label, ascending
	index  map[int]int // label -> index
}

// NewEncoder collects the distinct labels of every set.
func NewEncoder(labelSets ...[]int) (*Encoder, error) {
	seen := make(map[int]struct{})
	for _, set := range labelSets {
		for _, l := range set {
			seen[l] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil, ErrEmptyLabels
	}
	labels := make([]int, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Ints(labels)
	index := make(map[int]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	return &Encoder{labels: labels, index: index}, nil
}

// Classes returns C.
func (e *Encoder) Classes() int { return len(e.labels) }

// Labels returns the labels in index order.
func (e *Encoder) Labels() []int { return append([]int(nil), e.labels...) }

// Index returns the class index of label.
func (e *Encoder) Index(label int) (int, bool) {
	i, ok := e.index[label]
	return i, ok
}

// Label returns the label of class index c.
func (e *Encoder) Label(c int) (int, error) {
	if c < 0 || c >= len(e.labels) {
		return 0, fmt.Errorf("index %d of %d: %w", c, len(e.labels), ErrUnknownClass)
	}

	return e.labels[c], nil
}

// Encode maps every label to its class index.
func (e *Encoder) Encode(labels []int) ([]int, error) {
	out := make([]int, len(labels))
	for i, l := range labels {
		c, ok := e.index[l]
		if !ok {
			return nil, fmt.Errorf("label %d at %d: %w", l, i, ErrUnknownClass)
		}
		out[i] = c
	}

	return out, nil
}
