package attr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pandablocks/panda-registry/pkg/changeindex"
)

// MaxResultLength bounds a single formatted value.
const MaxResultLength = 256

// Attribute errors.
var (
	ErrNotReadable   = errors.New("Attribute not readable")
	ErrNotWriteable  = errors.New("Attribute not writeable")
	ErrResultTooLong = errors.New("Result too long")
)

// Reading is the result of a read: either one value or a list of rows.
type Reading struct {
	Value string
	Rows  []string
	Multi bool
}

// Single returns a single-value reading.
func Single(value string) Reading { return Reading{Value: value} }

// Many returns a multi-row reading.
func Many(rows []string) Reading { return Reading{Rows: rows, Multi: true} }

// Methods is the behaviour table of an attribute. Instances are numbered
// from 0.
type Methods struct {
	Name        string
	Description string

	// InChangeSet marks attributes reported in the ATTR change set.
	InChangeSet bool

	// Polled marks attributes whose changes are found by comparing the
	// formatted value. Polled implies InChangeSet and requires Format.
	Polled bool

	Format      func(instance int) (string, error)
	GetMany     func(instance int) ([]string, error)
	Put         func(instance int, value string) error
	Enumeration func(instance int) []string
}

// Attribute is a runtime attribute of one field.
type Attribute struct {
	methods Methods
	clock   *changeindex.Clock

	mu     sync.Mutex
	stamps []uint64
	cache  []string // polled only
}

// New creates an attribute with count instances. Every instance starts
// with changeindex.InitialStamp.
func New(methods Methods, count int, clock *changeindex.Clock) *Attribute {
	a := &Attribute{
		methods: methods,
		clock:   clock,
		stamps:  make([]uint64, count),
	}
	for i := range a.stamps {
		a.stamps[i] = changeindex.InitialStamp
	}
	if methods.Polled {
		a.cache = make([]string, count)
	}
	return a
}

// Name returns the attribute name.
func (a *Attribute) Name() string { return a.methods.Name }

// Description returns the attribute description.
func (a *Attribute) Description() string { return a.methods.Description }

// Count returns the number of instances.
func (a *Attribute) Count() int { return len(a.stamps) }

// InChangeSet reports whether the attribute takes part in change sets.
func (a *Attribute) InChangeSet() bool { return a.methods.InChangeSet || a.methods.Polled }

// Polled reports whether changes are detected by comparison.
func (a *Attribute) Polled() bool { return a.methods.Polled }

// CanRead reports whether Get can succeed.
func (a *Attribute) CanRead() bool { return a.methods.Format != nil || a.methods.GetMany != nil }

// CanWrite reports whether Put is supported.
func (a *Attribute) CanWrite() bool { return a.methods.Put != nil }

// Enumeration returns the values accepted by Put, if the attribute has an
// enumeration.
func (a *Attribute) Enumeration(instance int) ([]string, bool) {
	if a.methods.Enumeration == nil {
		return nil, false
	}
	return a.methods.Enumeration(instance), true
}

// Get reads one instance. For polled attributes the formatted value is
// first compared against the cache and a difference is stamped one past
// the current clock, so every context polling after this call sees it.
func (a *Attribute) Get(instance int) (Reading, error) {
	if a.methods.Polled {
		value, err := a.poll(instance, a.clock.Current())
		if err != nil {
			return Reading{}, err
		}
		return Single(value), nil
	}

	switch {
	case a.methods.Format != nil:
		value, err := a.methods.Format(instance)
		if err != nil {
			return Reading{}, err
		}
		if len(value) > MaxResultLength {
			return Reading{}, ErrResultTooLong
		}
		return Single(value), nil
	case a.methods.GetMany != nil:
		rows, err := a.methods.GetMany(instance)
		if err != nil {
			return Reading{}, err
		}
		return Many(rows), nil
	default:
		return Reading{}, fmt.Errorf("%w: %s", ErrNotReadable, a.methods.Name)
	}
}

// Put writes one instance and, on success, stamps it with a fresh clock
// value. A failed Put leaves the stamp untouched.
func (a *Attribute) Put(instance int, value string) error {
	if a.methods.Put == nil {
		return fmt.Errorf("%w: %s", ErrNotWriteable, a.methods.Name)
	}
	if err := a.methods.Put(instance, value); err != nil {
		return err
	}
	a.Stamp(instance)
	return nil
}

// Stamp marks an instance as changed now. Owners call this when the
// attribute's value changes through another path.
func (a *Attribute) Stamp(instance int) {
	a.mu.Lock()
	a.stamps[instance] = a.clock.Advance()
	a.mu.Unlock()
}

// StampAll marks every instance as changed now.
func (a *Attribute) StampAll() {
	a.mu.Lock()
	stamp := a.clock.Advance()
	for i := range a.stamps {
		a.stamps[i] = stamp
	}
	a.mu.Unlock()
}

// ChangeSet sets changes[i] for every instance whose stamp exceeds
// reportIndex. Attributes outside the change set report nothing. Polled
// attributes are compared first, with differences stamped reportIndex+1.
func (a *Attribute) ChangeSet(reportIndex uint64, changes []bool) {
	if !a.InChangeSet() {
		for i := range changes {
			changes[i] = false
		}
		return
	}
	if a.methods.Polled && reportIndex != changeindex.Never {
		for i := range a.stamps {
			// Format errors leave the cache alone; the value is reported
			// once it formats again.
			_, _ = a.poll(i, reportIndex)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for i, stamp := range a.stamps {
		changes[i] = stamp > reportIndex
	}
}

// poll formats an instance outside the lock and, if the value differs from
// the cache, stores it with stamp reportIndex+1. A newer stamp already held
// by the instance is kept.
func (a *Attribute) poll(instance int, reportIndex uint64) (string, error) {
	value, err := a.methods.Format(instance)
	if err != nil {
		return "", err
	}
	if len(value) > MaxResultLength {
		return "", ErrResultTooLong
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if value != a.cache[instance] {
		a.cache[instance] = value
		if reportIndex+1 > a.stamps[instance] {
			a.stamps[instance] = reportIndex + 1
		}
	}
	return value, nil
}
