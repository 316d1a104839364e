// Package enum implements indexed label sets.
//
// An Enumeration maps small integer indexes to labels and back. Static
// enumerations are fixed lists (time units, capture options); dynamic ones
// are sized up front and filled in one "index label" line at a time while
// the registry is configured.
package enum

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// Enumeration errors.
var (
	ErrIndexOutOfRange = errors.New("Index out of range")
	ErrNoLabel         = errors.New("No label specified")
	ErrReusingIndex    = errors.New("Reusing index")
	ErrLabelInUse      = errors.New("Label already in use")
	ErrLabelNotFound   = errors.New("Label not found")
	ErrNoLabelForValue = errors.New("No label for value")
	ErrInvalidIndex    = errors.New("Invalid enumeration index")
)

// Enumeration is a bidirectional index/label map.
// An Enumeration is safe for concurrent use.
type Enumeration struct {
	mu     sync.RWMutex
	labels []string
	index  map[string]uint32
}

// NewStatic creates an enumeration whose labels are indexed by position.
// It panics on duplicate labels since static lists are fixed at compile time.
func NewStatic(labels ...string) *Enumeration {
	e := NewDynamic(len(labels))
	for i, label := range labels {
		if err := e.Add(uint32(i), label); err != nil {
			panic(fmt.Sprintf("enum: static label %q: %v", label, err))
		}
	}
	return e
}

// NewDynamic creates an empty enumeration accepting indexes below count.
func NewDynamic(count int) *Enumeration {
	return &Enumeration{
		labels: make([]string, count),
		index:  make(map[string]uint32),
	}
}

// Count returns the number of index positions.
func (e *Enumeration) Count() int { return len(e.labels) }

// Add assigns label to index.
func (e *Enumeration) Add(index uint32, label string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case int(index) >= len(e.labels):
		return ErrIndexOutOfRange
	case label == "":
		return ErrNoLabel
	case e.labels[index] != "":
		return ErrReusingIndex
	}
	if _, ok := e.index[label]; ok {
		return fmt.Errorf("%w: %s", ErrLabelInUse, label)
	}
	e.labels[index] = label
	e.index[label] = index
	return nil
}

// ParseLine adds an entry written as "<index> <label>".
func (e *Enumeration) ParseLine(line string) error {
	num, label, _ := strings.Cut(strings.TrimSpace(line), " ")
	index, err := strconv.ParseUint(num, 10, 32)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidIndex, num)
	}
	return e.Add(uint32(index), strings.TrimSpace(label))
}

// Index returns the index of label.
func (e *Enumeration) Index(label string) (uint32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	index, ok := e.index[label]
	if !ok {
		return 0, ErrLabelNotFound
	}
	return index, nil
}

// Label returns the label at index.
func (e *Enumeration) Label(index uint32) (string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if int(index) >= len(e.labels) {
		return "", ErrIndexOutOfRange
	}
	if e.labels[index] == "" {
		return "", ErrNoLabelForValue
	}
	return e.labels[index], nil
}

// Labels returns the assigned labels in index order.
func (e *Enumeration) Labels() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]string, 0, len(e.index))
	for _, label := range e.labels {
		if label != "" {
			out = append(out, label)
		}
	}
	return out
}

// Rows returns the assigned entries formatted as "<index> <label>".
func (e *Enumeration) Rows() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]string, 0, len(e.index))
	for i, label := range e.labels {
		if label != "" {
			out = append(out, fmt.Sprintf("%d %s", i, label))
		}
	}
	return out
}
