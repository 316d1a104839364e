package log

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events. Zero-valued fields match everything.
type Filter struct {
	// ContextID filters by exact context ID.
	ContextID string

	// Category filters by event category.
	Category *Category

	// EntityPrefix keeps events whose entity starts with the prefix, for
	// example "TTLIN1." or "PCAP".
	EntityPrefix string

	// ErrorsOnly keeps failed puts and configuration errors.
	ErrorsOnly bool

	// TimeStart keeps events at or after this time.
	TimeStart *time.Time

	// TimeEnd keeps events before this time.
	TimeEnd *time.Time
}

// Matches reports whether the event passes every criterion.
func (f *Filter) Matches(event Event) bool {
	if f.ContextID != "" && event.ContextID != f.ContextID {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.EntityPrefix != "" && !strings.HasPrefix(event.Entity, f.EntityPrefix) {
		return false
	}
	if f.ErrorsOnly && !isError(event) {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

func isError(event Event) bool {
	return event.Config != nil || (event.Put != nil && event.Put.Error != "")
}

// Reader streams events from an event file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens path and reads every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and reads the events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, decoder: NewDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.file.Close()
}
