package model

import (
	"errors"
	"strconv"
	"strings"

	"github.com/pandablocks/panda-registry/pkg/attr"
)

// Resolution errors.
var (
	ErrNoSuchAttribute    = errors.New("No such attribute")
	ErrBlockNumberMissing = errors.New("Block number missing")
	ErrInvalidBlockNumber = errors.New("Invalid block number")
	ErrMissingField       = errors.New("Missing field name")
	ErrMissingValue       = errors.New("Missing = in assignment")
)

// Target is a resolved entity name.
type Target struct {
	Field    *Field
	Instance int

	// Attribute is empty when the name refers to the field value.
	Attribute string
}

// Resolve parses "BLOCKn.FIELD" or "BLOCKn.FIELD.ATTR". The instance
// number is omitted for single-instance blocks.
func (r *Registry) Resolve(name string) (Target, error) {
	blockPart, rest, ok := strings.Cut(name, ".")
	if !ok || rest == "" {
		return Target{}, requestError(name, ErrMissingField)
	}
	fieldName, attrName, _ := strings.Cut(rest, ".")

	digits := len(blockPart)
	for digits > 0 && isDigit(blockPart[digits-1]) {
		digits--
	}
	b, err := r.Block(blockPart[:digits])
	if err != nil {
		return Target{}, err
	}

	instance := 0
	if number := blockPart[digits:]; number != "" {
		n, err := strconv.Atoi(number)
		if err != nil || n < 1 || n > b.count {
			return Target{}, requestError(blockPart, ErrInvalidBlockNumber)
		}
		instance = n - 1
	} else if b.count > 1 {
		return Target{}, requestError(blockPart, ErrBlockNumberMissing)
	}

	f, err := b.Field(fieldName)
	if err != nil {
		return Target{}, err
	}
	if attrName != "" {
		if _, err := f.Attribute(attrName); err != nil {
			return Target{}, err
		}
	}
	return Target{Field: f, Instance: instance, Attribute: attrName}, nil
}

// Get reads an entity by name: a field value, an attribute or a metadata
// key.
func (r *Registry) Get(name string) (attr.Reading, error) {
	if key, ok := strings.CutPrefix(name, MetadataPrefix); ok {
		value, err := r.Metadata(key)
		if err != nil {
			return attr.Reading{}, err
		}
		return attr.Single(value), nil
	}
	t, err := r.Resolve(name)
	if err != nil {
		return attr.Reading{}, err
	}
	if t.Attribute != "" {
		return t.Field.GetAttribute(t.Instance, t.Attribute)
	}
	return t.Field.Get(t.Instance)
}

// ApplyLine applies an assignment "NAME=value" to a field value, an
// attribute or a metadata key, as found in change-set output.
func (r *Registry) ApplyLine(line string) error {
	name, value, ok := strings.Cut(line, "=")
	if !ok {
		return requestError(line, ErrMissingValue)
	}
	if key, ok := strings.CutPrefix(name, MetadataPrefix); ok {
		return r.PutMetadata(key, value)
	}
	t, err := r.Resolve(name)
	if err != nil {
		return err
	}
	if t.Attribute != "" {
		return t.Field.PutAttribute(t.Instance, t.Attribute, value)
	}
	return t.Field.Put(t.Instance, value)
}

// Field resolves "BLOCK.FIELD" by block and field name, ignoring any
// instance number.
func (r *Registry) Field(blockName, fieldName string) (*Field, error) {
	b, err := r.Block(blockName)
	if err != nil {
		return nil, err
	}
	return b.Field(fieldName)
}
