package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pandablocks/panda-registry/pkg/attr"
	"github.com/pandablocks/panda-registry/pkg/enum"
	"github.com/pandablocks/panda-registry/pkg/muxlookup"
	"github.com/pandablocks/panda-registry/pkg/types"
)

// ErrUnknownCapture is returned for a CAPTURE value outside CaptureOptions.
var ErrUnknownCapture = errors.New("Unknown capture option")

// CaptureOptions enumerates the values of the pos_out CAPTURE attribute.
var CaptureOptions = enum.NewStatic("No", "Value", "Diff", "Sum", "Min", "Max", "Mean", "StdDev")

// parseBusIndices reads one bus index per instance and registers each
// instance with the lookup table under its client-visible name. On error
// no instance is left registered.
func parseBusIndices(f *Field, line string, table *muxlookup.Table) ([]uint32, error) {
	words := strings.Fields(line)
	if len(words) != f.Count() {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrWrongIndexCount, f.Count(), len(words))
	}
	indices := make([]uint32, len(words))
	for i, w := range words {
		v, err := strconv.ParseUint(w, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRegister, w)
		}
		indices[i] = uint32(v)
	}
	for i, slot := range indices {
		if err := table.Insert(slot, f.InstanceName(i)); err != nil {
			for _, inserted := range indices[:i] {
				table.Remove(inserted)
			}
			return nil, err
		}
	}
	return indices, nil
}

// bitOutClass reports one bit of the bit bus per instance.
type bitOutClass struct {
	f       *Field
	indices []uint32
}

func newBitOut(f *Field, spec string) (class, types.Type, error) {
	if spec != "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrClassForcesType, spec)
	}
	return &bitOutClass{f: f}, nil, nil
}

func (c *bitOutClass) parseRegister(line string) error {
	indices, err := parseBusIndices(c.f, line, c.f.registry().bitMux)
	if err != nil {
		return err
	}
	c.indices = indices
	return nil
}

func (c *bitOutClass) refresh() {
	c.f.registry().refreshBus(busBits)
}

func (c *bitOutClass) get(instance int) (string, error) {
	if c.f.registry().bus.bit(c.indices[instance]) {
		return "1", nil
	}
	return "0", nil
}

func (c *bitOutClass) changeSet(reportIndex uint64, changes []bool) {
	c.f.registry().bus.bitChanges(c.indices, reportIndex, changes)
}

func (c *bitOutClass) attributes() []attr.Methods {
	return []attr.Methods{
		{
			Name:        "CAPTURE_WORD",
			Description: "Name of field containing this bit",
			Format: func(i int) (string, error) {
				return fmt.Sprintf("PCAP.BITS%d", c.indices[i]/32), nil
			},
		},
		{
			Name:        "OFFSET",
			Description: "Position of this bit in captured word",
			Format: func(i int) (string, error) {
				return strconv.Itoa(int(c.indices[i] % 32)), nil
			},
		},
	}
}

// posOutClass reports one value of the position bus per instance, with a
// linear scaling and a capture selection.
type posOutClass struct {
	f       *Field
	indices []uint32

	mu       sync.Mutex
	scalings []types.Scaling
	capture  []uint32
}

func newPosOut(f *Field, spec string) (class, types.Type, error) {
	c := &posOutClass{
		f:        f,
		scalings: make([]types.Scaling, f.Count()),
		capture:  make([]uint32, f.Count()),
	}
	for i := range c.scalings {
		c.scalings[i] = types.DefaultScaling
	}
	if spec != "" {
		if err := c.parseAttribute(spec); err != nil {
			return nil, nil, err
		}
	}
	return c, nil, nil
}

// parseAttribute sets the default scaling of every instance from
// "scale offset [units]".
func (c *posOutClass) parseAttribute(line string) error {
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 3 {
		return fmt.Errorf("%w: expected scale offset [units]", types.ErrMissingArgument)
	}
	scale, err := types.ParseFloat(words[0])
	if err != nil {
		return err
	}
	offset, err := types.ParseFloat(words[1])
	if err != nil {
		return err
	}
	s := types.Scaling{Scale: scale, Offset: offset}
	if len(words) == 3 {
		s.Units = words[2]
	}
	c.mu.Lock()
	for i := range c.scalings {
		c.scalings[i] = s
	}
	c.mu.Unlock()
	return nil
}

func (c *posOutClass) parseRegister(line string) error {
	indices, err := parseBusIndices(c.f, line, c.f.registry().posMux)
	if err != nil {
		return err
	}
	c.indices = indices
	return nil
}

func (c *posOutClass) refresh() {
	c.f.registry().refreshBus(busPositions)
}

func (c *posOutClass) raw(instance int) int32 {
	return int32(c.f.registry().bus.position(c.indices[instance]))
}

func (c *posOutClass) get(instance int) (string, error) {
	return strconv.Itoa(int(c.raw(instance))), nil
}

func (c *posOutClass) changeSet(reportIndex uint64, changes []bool) {
	c.f.registry().bus.positionChanges(c.indices, reportIndex, changes)
}

func (c *posOutClass) attributes() []attr.Methods {
	methods := []attr.Methods{{
		Name:        "SCALED",
		Description: "Value with scaling applied",
		Format: func(i int) (string, error) {
			c.mu.Lock()
			s := c.scalings[i]
			c.mu.Unlock()
			return types.FormatFloat(s.Present(c.raw(i))), nil
		},
	}}
	methods = append(methods, types.ScalingAttributes(&c.mu, c.scalings, nil)...)
	return append(methods, attr.Methods{
		Name:        "CAPTURE",
		Description: "Capture options",
		InChangeSet: true,
		Format: func(i int) (string, error) {
			c.mu.Lock()
			v := c.capture[i]
			c.mu.Unlock()
			return CaptureOptions.Label(v)
		},
		Put: func(i int, value string) error {
			v, err := CaptureOptions.Index(strings.TrimSpace(value))
			if err != nil {
				return fmt.Errorf("%w: %s", ErrUnknownCapture, value)
			}
			c.mu.Lock()
			c.capture[i] = v
			c.mu.Unlock()
			return nil
		},
		Enumeration: func(int) []string { return CaptureOptions.Labels() },
	})
}

var (
	_ getter          = (*bitOutClass)(nil)
	_ refresher       = (*bitOutClass)(nil)
	_ getter          = (*posOutClass)(nil)
	_ refresher       = (*posOutClass)(nil)
	_ attributeParser = (*posOutClass)(nil)
)

