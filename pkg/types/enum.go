package types

import (
	"fmt"
	"strconv"

	"github.com/pandablocks/panda-registry/pkg/attr"
	"github.com/pandablocks/panda-registry/pkg/enum"
)

// enumType presents values through a dynamic enumeration.
type enumType struct {
	base
	labels *enum.Enumeration
}

func newEnum(args string, _ Options) (Type, error) {
	if args == "" {
		return nil, fmt.Errorf("%w: enum count", ErrMissingArgument)
	}
	count, err := strconv.ParseUint(args, 10, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNumber, args)
	}
	return &enumType{labels: enum.NewDynamic(int(count))}, nil
}

func (*enumType) Name() string { return "enum" }

func (t *enumType) Description() string { return fmt.Sprintf("enum %d", t.labels.Count()) }

func (t *enumType) Parse(_ int, value string) (uint32, error) { return t.labels.Index(value) }

func (t *enumType) Format(_ int, value uint32) (string, error) { return t.labels.Label(value) }

func (t *enumType) ParseAttributeLine(line string) error { return t.labels.ParseLine(line) }

func (t *enumType) Enumeration(int) ([]string, bool) { return t.labels.Labels(), true }

func (t *enumType) Attributes() []attr.Methods {
	return []attr.Methods{{
		Name:        "LABELS",
		Description: "List of enumeration labels",
		GetMany:     func(int) ([]string, error) { return t.labels.Rows(), nil },
	}}
}
