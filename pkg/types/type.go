package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pandablocks/panda-registry/pkg/attr"
	"github.com/pandablocks/panda-registry/pkg/muxlookup"
)

// Type errors.
var (
	ErrUnknownType      = errors.New("Type not found")
	ErrNumberOutOfRange = errors.New("Number out of range")
	ErrInvalidNumber    = errors.New("Invalid number")
	ErrInvalidBit       = errors.New("Invalid bit value")
	ErrActionValue      = errors.New("Action takes no value")
	ErrNotReadable      = errors.New("Field not readable")
	ErrLUTExpression    = errors.New("LUT expressions not supported")
	ErrPositionRange    = errors.New("Position out of range")
	ErrTimeRange        = errors.New("Time setting out of range")
	ErrInvalidUnits     = errors.New("Invalid time units")
	ErrNoAttributeLines = errors.New("Cannot add attribute line to this type")
	ErrMissingArgument  = errors.New("Missing type argument")
	ErrUnexpectedArgs   = errors.New("Unexpected text after type")
	ErrMuxUnavailable   = errors.New("Mux lookup not available")
)

// Register gives a type access to the value it decorates. It is
// implemented by the owning field's class.
type Register interface {
	// ReadRaw returns the current register value of an instance.
	ReadRaw(instance int) (uint32, error)

	// WriteRaw writes a register value as if put by a client.
	WriteRaw(instance int, value uint32) error

	// Changed is called when the presentation of an instance's value has
	// changed without the value itself being written.
	Changed(instance int)
}

// Type is a value codec.
type Type interface {
	// Name returns the type name.
	Name() string

	// Description returns the name together with its arguments as given
	// at creation, for example "uint 1000".
	Description() string

	// Parse converts a client string to a register value.
	Parse(instance int, value string) (uint32, error)

	// Format converts a register value to a client string.
	Format(instance int, value uint32) (string, error)

	// Attributes returns the type's attribute tables.
	Attributes() []attr.Methods

	// ParseAttributeLine consumes an indented configuration line following
	// the field definition.
	ParseAttributeLine(line string) error

	// Enumeration lists the values Parse accepts, if the type has a
	// finite set.
	Enumeration(instance int) ([]string, bool)
}

// Options carries what a type needs from its surroundings.
type Options struct {
	// Count is the number of field instances.
	Count int

	// Register is the owning field's value access.
	Register Register

	// BitMux and PosMux resolve mux selector names.
	BitMux *muxlookup.Table
	PosMux *muxlookup.Table
}

// New creates a type from a specification such as "uint 1000" or "enum 4".
func New(spec string, opts Options) (Type, error) {
	name, args, _ := strings.Cut(strings.TrimSpace(spec), " ")
	args = strings.TrimSpace(args)

	switch name {
	case "uint":
		return newUint(args, opts)
	case "bit":
		return noArgs(name, args, &bitType{})
	case "action":
		return noArgs(name, args, &actionType{})
	case "lut":
		return noArgs(name, args, newLUT(opts))
	case "enum":
		return newEnum(args, opts)
	case "position":
		return noArgs(name, args, newPosition(opts))
	case "time":
		return noArgs(name, args, newTimeType(opts))
	case "bit_mux":
		return newMux(name, args, opts.BitMux)
	case "pos_mux":
		return newMux(name, args, opts.PosMux)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
}

func noArgs(name, args string, t Type) (Type, error) {
	if args != "" {
		return nil, fmt.Errorf("%w: %s %s", ErrUnexpectedArgs, name, args)
	}
	return t, nil
}

// base supplies defaults for the optional parts of Type.
type base struct{}

func (base) Attributes() []attr.Methods              { return nil }
func (base) ParseAttributeLine(string) error         { return ErrNoAttributeLines }
func (base) Enumeration(int) ([]string, bool)        { return nil, false }
func (base) formatUint(value uint32) (string, error) { return fmt.Sprintf("%d", value), nil }

// rawAttribute exposes the unconverted register value.
func rawAttribute(reg Register) attr.Methods {
	return attr.Methods{
		Name:        "RAW",
		Description: "Raw register value",
		Format: func(instance int) (string, error) {
			v, err := reg.ReadRaw(instance)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%d", v), nil
		},
		Put: func(instance int, value string) error {
			v, err := parseUint32(value)
			if err != nil {
				return err
			}
			return reg.WriteRaw(instance, v)
		},
	}
}
