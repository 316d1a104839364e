package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/pandablocks/panda-registry/pkg/attr"
)

// Scaling holds the linear presentation of one position value:
// presented = raw*Scale + Offset.
type Scaling struct {
	Scale  float64
	Offset float64
	Units  string
}

// DefaultScaling is the identity presentation.
var DefaultScaling = Scaling{Scale: 1}

// Present converts a signed raw value.
func (s Scaling) Present(raw int32) float64 { return float64(raw)*s.Scale + s.Offset }

// Raw converts a presented value back, failing if it does not fit.
func (s Scaling) Raw(value float64) (int32, error) {
	raw := math.Round((value - s.Offset) / s.Scale)
	if math.IsNaN(raw) || raw < math.MinInt32 || raw > math.MaxInt32 {
		return 0, ErrPositionRange
	}
	return int32(raw), nil
}

// FormatFloat renders a presented value.
func FormatFloat(v float64) string { return strconv.FormatFloat(v, 'g', 12, 64) }

// ParseFloat parses a presented value.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return v, nil
}

// ScalingAttributes returns the SCALE, OFFSET and UNITS attribute tables
// over a set of per-instance scalings. changed is called after each
// successful put.
func ScalingAttributes(mu *sync.Mutex, scalings []Scaling, changed func(instance int)) []attr.Methods {
	get := func(instance int, f func(Scaling) string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		return f(scalings[instance]), nil
	}
	set := func(instance int, f func(*Scaling)) {
		mu.Lock()
		f(&scalings[instance])
		mu.Unlock()
		if changed != nil {
			changed(instance)
		}
	}

	return []attr.Methods{
		{
			Name:        "SCALE",
			Description: "Scale factor",
			InChangeSet: true,
			Format: func(i int) (string, error) {
				return get(i, func(s Scaling) string { return FormatFloat(s.Scale) })
			},
			Put: func(i int, value string) error {
				v, err := ParseFloat(value)
				if err != nil {
					return err
				}
				if v == 0 {
					return fmt.Errorf("%w: scale cannot be zero", ErrInvalidNumber)
				}
				set(i, func(s *Scaling) { s.Scale = v })
				return nil
			},
		},
		{
			Name:        "OFFSET",
			Description: "Offset",
			InChangeSet: true,
			Format: func(i int) (string, error) {
				return get(i, func(s Scaling) string { return FormatFloat(s.Offset) })
			},
			Put: func(i int, value string) error {
				v, err := ParseFloat(value)
				if err != nil {
					return err
				}
				set(i, func(s *Scaling) { s.Offset = v })
				return nil
			},
		},
		{
			Name:        "UNITS",
			Description: "Units string",
			InChangeSet: true,
			Format: func(i int) (string, error) {
				return get(i, func(s Scaling) string { return s.Units })
			},
			Put: func(i int, value string) error {
				set(i, func(s *Scaling) { s.Units = strings.TrimSpace(value) })
				return nil
			},
		},
	}
}

// positionType presents a signed register value with linear scaling.
type positionType struct {
	base
	reg Register

	mu       sync.Mutex
	scalings []Scaling
}

func newPosition(opts Options) *positionType {
	t := &positionType{reg: opts.Register, scalings: make([]Scaling, opts.Count)}
	for i := range t.scalings {
		t.scalings[i] = DefaultScaling
	}
	return t
}

func (*positionType) Name() string        { return "position" }
func (*positionType) Description() string { return "position" }

func (t *positionType) scaling(instance int) Scaling {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scalings[instance]
}

func (t *positionType) Parse(instance int, value string) (uint32, error) {
	v, err := ParseFloat(value)
	if err != nil {
		return 0, err
	}
	raw, err := t.scaling(instance).Raw(v)
	if err != nil {
		return 0, err
	}
	return uint32(raw), nil
}

func (t *positionType) Format(instance int, value uint32) (string, error) {
	return FormatFloat(t.scaling(instance).Present(int32(value))), nil
}

func (t *positionType) Attributes() []attr.Methods {
	var changed func(int)
	var out []attr.Methods
	if t.reg != nil {
		changed = t.reg.Changed
		out = append(out, rawAttribute(t.reg))
	}
	return append(out, ScalingAttributes(&t.mu, t.scalings, changed)...)
}
