package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pandablocks/panda-registry/pkg/attr"
	"github.com/pandablocks/panda-registry/pkg/changeindex"
	"github.com/pandablocks/panda-registry/pkg/types"
)

// Class errors.
var (
	ErrUnknownClass     = errors.New("Class not found")
	ErrInvalidRegister  = errors.New("Invalid register")
	ErrExtraArguments   = errors.New("Unexpected text after register")
	ErrClassForcesType  = errors.New("Class does not take a type")
	ErrNotWriteable     = errors.New("Field not writeable")
	ErrNotReadable      = types.ErrNotReadable
	ErrNotTable         = errors.New("Field is not a table")
	ErrNoAttributeLines = errors.New("Cannot add attribute line to this field")
	ErrInvalidDefault   = errors.New("Invalid default value")
	ErrRegisterParsed   = errors.New("Register already parsed for field")
	ErrWrongIndexCount  = errors.New("Wrong number of bus indices")
)

// ClassKind identifies one of the fixed field classes.
type ClassKind uint8

const (
	ClassParam ClassKind = iota
	ClassRead
	ClassWrite
	ClassTime
	ClassBitMux
	ClassPosMux
	ClassBitOut
	ClassPosOut
	ClassTable
)

var classNames = [...]string{
	ClassParam:  "param",
	ClassRead:   "read",
	ClassWrite:  "write",
	ClassTime:   "time",
	ClassBitMux: "bit_mux",
	ClassPosMux: "pos_mux",
	ClassBitOut: "bit_out",
	ClassPosOut: "pos_out",
	ClassTable:  "table",
}

// String returns the class name.
func (k ClassKind) String() string {
	if int(k) < len(classNames) {
		return classNames[k]
	}
	return "unknown"
}

// ParseClassKind looks up a class by name.
func ParseClassKind(name string) (ClassKind, error) {
	for i, n := range classNames {
		if n == name {
			return ClassKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownClass, name)
}

// Category returns the change category the class reports values in.
func (k ClassKind) Category() changeindex.Category {
	switch k {
	case ClassRead:
		return changeindex.CategoryRead
	case ClassBitOut:
		return changeindex.CategoryBits
	case ClassPosOut:
		return changeindex.CategoryPosition
	case ClassTable:
		return changeindex.CategoryTable
	default:
		return changeindex.CategoryConfig
	}
}

// class is the behaviour every field class provides. The optional
// behaviours below are discovered by type assertion.
type class interface {
	// parseRegister consumes the register definition.
	parseRegister(line string) error

	// changeSet sets changes[i] for every instance whose value changed
	// after reportIndex.
	changeSet(reportIndex uint64, changes []bool)

	// attributes returns the class attribute tables.
	attributes() []attr.Methods
}

type getter interface {
	get(instance int) (string, error)
}

type manyGetter interface {
	getMany(instance int) ([]string, error)
}

type putter interface {
	put(instance int, value string) error
}

// refresher pulls fresh hardware state before a read.
type refresher interface {
	refresh()
}

type tablePutter interface {
	putTable(instance int, appendWords bool, words []uint32) error
}

type validator interface {
	validate() error
}

// finaliser runs once the configuration is validated, and writes initial
// state to hardware.
type finaliser interface {
	finalise() error
}

type attributeParser interface {
	parseAttribute(line string) error
}

type enumerator interface {
	enumeration(instance int) ([]string, bool)
}

// tableFormatter renders the table-pass form of a changed instance.
type tableFormatter interface {
	base64Rows(instance int) []string
}

// newClass creates the class state for a field together with its type, if
// the class has one.
func newClass(f *Field, spec string) (class, types.Type, error) {
	switch f.kind {
	case ClassParam:
		return newParam(f, spec)
	case ClassRead:
		return newRead(f, spec)
	case ClassWrite:
		return newWrite(f, spec)
	case ClassTime:
		return newTimeClass(f, spec)
	case ClassBitMux:
		return newBitMux(f, spec)
	case ClassPosMux:
		return newPosMux(f, spec)
	case ClassBitOut:
		return newBitOut(f, spec)
	case ClassPosOut:
		return newPosOut(f, spec)
	case ClassTable:
		return newTable(f, spec)
	default:
		panic(fmt.Sprintf("model: class %d has no constructor", f.kind))
	}
}

// splitDefault separates "spec = default" into its parts.
func splitDefault(spec string) (typeSpec, def string, ok bool) {
	typeSpec, def, ok = strings.Cut(spec, "=")
	return strings.TrimSpace(typeSpec), strings.TrimSpace(def), ok
}

// newFieldType creates the type of a field with reg as its value access.
func newFieldType(f *Field, spec string, reg types.Register) (types.Type, error) {
	return types.New(spec, types.Options{
		Count:    f.Count(),
		Register: reg,
		BitMux:   f.registry().bitMux,
		PosMux:   f.registry().posMux,
	})
}

// stamps is a per-instance array of change stamps. It is not locked; the
// owning class guards it.
type stamps []uint64

func newStamps(count int) stamps {
	s := make(stamps, count)
	for i := range s {
		s[i] = changeindex.InitialStamp
	}
	return s
}

func (s stamps) changeSet(reportIndex uint64, changes []bool) {
	for i, stamp := range s {
		changes[i] = stamp > reportIndex
	}
}
