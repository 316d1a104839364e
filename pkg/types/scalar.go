package types

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pandablocks/panda-registry/pkg/attr"
)

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	if v > 0xFFFFFFFF {
		return 0, ErrNumberOutOfRange
	}
	return uint32(v), nil
}

// uintType is an unsigned integer with an optional maximum.
type uintType struct {
	base
	max  uint32
	args string
}

func newUint(args string, _ Options) (Type, error) {
	t := &uintType{max: 0xFFFFFFFF, args: args}
	if args != "" {
		limit, err := parseUint32(args)
		if err != nil {
			return nil, err
		}
		t.max = limit
	}
	return t, nil
}

func (t *uintType) Name() string { return "uint" }

func (t *uintType) Description() string {
	if t.args == "" {
		return "uint"
	}
	return "uint " + t.args
}

func (t *uintType) Parse(_ int, value string) (uint32, error) {
	v, err := parseUint32(value)
	if err != nil {
		return 0, err
	}
	if v > t.max {
		return 0, ErrNumberOutOfRange
	}
	return v, nil
}

func (t *uintType) Format(_ int, value uint32) (string, error) { return t.formatUint(value) }

func (t *uintType) Attributes() []attr.Methods {
	return []attr.Methods{{
		Name:        "MAX",
		Description: "Maximum valid value for this field",
		Format:      func(int) (string, error) { return t.formatUint(t.max) },
	}}
}

// bitType is a single bit.
type bitType struct{ base }

func (*bitType) Name() string        { return "bit" }
func (*bitType) Description() string { return "bit" }

func (*bitType) Parse(_ int, value string) (uint32, error) {
	switch strings.TrimSpace(value) {
	case "0":
		return 0, nil
	case "1":
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidBit, value)
	}
}

func (t *bitType) Format(_ int, value uint32) (string, error) { return t.formatUint(value & 1) }

// actionType is a write-only trigger.
type actionType struct{ base }

func (*actionType) Name() string        { return "action" }
func (*actionType) Description() string { return "action" }

func (*actionType) Parse(_ int, value string) (uint32, error) {
	if value != "" {
		return 0, ErrActionValue
	}
	return 0, nil
}

func (*actionType) Format(int, uint32) (string, error) { return "", ErrNotReadable }

// lutType is a lookup table value. The last string parsed for each
// instance is echoed back while it still matches the register value.
type lutType struct {
	base
	reg Register

	mu      sync.Mutex
	strings []string
	values  []uint32
}

func newLUT(opts Options) *lutType {
	return &lutType{
		reg:     opts.Register,
		strings: make([]string, opts.Count),
		values:  make([]uint32, opts.Count),
	}
}

func (*lutType) Name() string        { return "lut" }
func (*lutType) Description() string { return "lut" }

func (t *lutType) Parse(instance int, value string) (uint32, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "0x") && !strings.HasPrefix(value, "0X") {
		return 0, ErrLUTExpression
	}
	v, err := strconv.ParseUint(value[2:], 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, value)
	}

	t.mu.Lock()
	t.strings[instance] = value
	t.values[instance] = uint32(v)
	t.mu.Unlock()
	return uint32(v), nil
}

func (t *lutType) Format(instance int, value uint32) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.strings[instance] != "" && t.values[instance] == value {
		return t.strings[instance], nil
	}
	return fmt.Sprintf("0x%08X", value), nil
}

func (t *lutType) Attributes() []attr.Methods {
	if t.reg == nil {
		return nil
	}
	return []attr.Methods{rawAttribute(t.reg)}
}
