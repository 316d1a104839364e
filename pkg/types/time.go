package types

import (
	"math"
	"strings"
	"sync"

	"github.com/pandablocks/panda-registry/pkg/attr"
	"github.com/pandablocks/panda-registry/pkg/enum"
)

// Time constants.
const (
	// ClockFrequency is the FPGA clock in Hz.
	ClockFrequency = 125e6

	// MaxClockValue is the largest 48-bit tick count.
	MaxClockValue = 1<<48 - 1
)

// TimeUnit is an index into TimeUnits.
type TimeUnit uint8

const (
	TimeUnitMinutes TimeUnit = iota
	TimeUnitSeconds
	TimeUnitMilliseconds
	TimeUnitMicroseconds
)

// TimeUnits enumerates the accepted unit names.
var TimeUnits = enum.NewStatic("min", "s", "ms", "us")

var timeScale = [...]float64{60, 1, 1e-3, 1e-6}

// String returns the unit name.
func (u TimeUnit) String() string {
	label, err := TimeUnits.Label(uint32(u))
	if err != nil {
		return "?"
	}
	return label
}

// ParseTimeUnit parses a unit name.
func ParseTimeUnit(s string) (TimeUnit, error) {
	ix, err := TimeUnits.Index(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrInvalidUnits
	}
	return TimeUnit(ix), nil
}

// TicksFromTime converts a time in the given units to clock ticks, failing
// if the result is negative or exceeds limit.
func TicksFromTime(value float64, unit TimeUnit, limit uint64) (uint64, error) {
	ticks := math.Round(value * timeScale[unit] * ClockFrequency)
	if math.IsNaN(ticks) || ticks < 0 || ticks > float64(limit) {
		return 0, ErrTimeRange
	}
	return uint64(ticks), nil
}

// TimeFromTicks converts clock ticks to the given units.
func TimeFromTicks(ticks uint64, unit TimeUnit) float64 {
	return float64(ticks) / (timeScale[unit] * ClockFrequency)
}

// timeType presents a 32-bit tick count in per-instance units.
type timeType struct {
	base
	reg Register

	mu    sync.Mutex
	units []TimeUnit
}

func newTimeType(opts Options) *timeType {
	t := &timeType{reg: opts.Register, units: make([]TimeUnit, opts.Count)}
	for i := range t.units {
		t.units[i] = TimeUnitSeconds
	}
	return t
}

func (*timeType) Name() string        { return "time" }
func (*timeType) Description() string { return "time" }

func (t *timeType) unit(instance int) TimeUnit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.units[instance]
}

func (t *timeType) Parse(instance int, value string) (uint32, error) {
	v, err := ParseFloat(value)
	if err != nil {
		return 0, err
	}
	ticks, err := TicksFromTime(v, t.unit(instance), math.MaxUint32)
	if err != nil {
		return 0, err
	}
	return uint32(ticks), nil
}

func (t *timeType) Format(instance int, value uint32) (string, error) {
	return FormatFloat(TimeFromTicks(uint64(value), t.unit(instance))), nil
}

func (t *timeType) Attributes() []attr.Methods {
	if t.reg == nil {
		return []attr.Methods{UnitsAttribute(&t.mu, t.units, nil)}
	}
	return []attr.Methods{rawAttribute(t.reg), UnitsAttribute(&t.mu, t.units, t.reg.Changed)}
}

// UnitsAttribute returns the UNITS attribute table over per-instance time
// units. changed is called after each successful put.
func UnitsAttribute(mu *sync.Mutex, units []TimeUnit, changed func(instance int)) attr.Methods {
	return attr.Methods{
		Name:        "UNITS",
		Description: "Units of time setting",
		InChangeSet: true,
		Format: func(i int) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			return units[i].String(), nil
		},
		Put: func(i int, value string) error {
			u, err := ParseTimeUnit(value)
			if err != nil {
				return err
			}
			mu.Lock()
			units[i] = u
			mu.Unlock()
			if changed != nil {
				changed(i)
			}
			return nil
		},
		Enumeration: func(int) []string { return TimeUnits.Labels() },
	}
}
