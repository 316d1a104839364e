package layout

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pandablocks/panda-registry/pkg/model"
)

// Layout describes the blocks, fields and metadata keys of a registry.
type Layout struct {
	Metadata []string `yaml:"metadata"`
	Blocks   []Block  `yaml:"blocks"`
}

// Block describes one block and its fields, in creation order.
type Block struct {
	Name        string  `yaml:"name"`
	Count       int     `yaml:"count"` // defaults to 1
	Base        *uint32 `yaml:"base"`
	Description string  `yaml:"description"`
	Fields      []Field `yaml:"fields"`
}

// Field describes one field.
type Field struct {
	Name        string `yaml:"name"`
	Class       string `yaml:"class"`
	Type        string `yaml:"type"`     // "uint 1000", "enum 2", "uint = 5"
	Register    string `yaml:"register"` // "3", "0 1 > 5", "10 11 12"
	Description string `yaml:"description"`

	// Attributes are configuration lines following the field, such as
	// enumeration labels ("1 Loop") or pos_out scaling ("0.5 0 mm").
	Attributes []string `yaml:"attributes"`
}

// Layout errors.
var (
	ErrMissingName  = errors.New("missing name")
	ErrMissingClass = errors.New("missing class")
)

//go:embed default.yaml
var defaultLayout []byte

// Default returns the built-in layout, a small PandA-like design.
func Default() *Layout {
	l, err := Parse(defaultLayout)
	if err != nil {
		panic(fmt.Sprintf("layout: built-in layout: %v", err))
	}
	return l
}

// Parse parses a layout from YAML bytes.
func Parse(data []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}
	for i := range l.Blocks {
		b := &l.Blocks[i]
		if b.Name == "" {
			return nil, fmt.Errorf("block %d: %w", i+1, ErrMissingName)
		}
		if b.Count == 0 {
			b.Count = 1
		}
		for j, f := range b.Fields {
			if f.Name == "" {
				return nil, fmt.Errorf("%s field %d: %w", b.Name, j+1, ErrMissingName)
			}
			if f.Class == "" {
				return nil, fmt.Errorf("%s.%s: %w", b.Name, f.Name, ErrMissingClass)
			}
		}
	}
	return &l, nil
}

// Load loads and parses a layout from a file.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Apply creates the layout on a configuring registry. Every entity is
// attempted; the errors found are returned joined. The registry records
// them too, so a following Open fails with the same problems.
func (l *Layout) Apply(r *model.Registry) error {
	var errs []error
	for _, key := range l.Metadata {
		if err := r.AddMetadataKey(key); err != nil {
			errs = append(errs, err)
		}
	}
	for _, lb := range l.Blocks {
		errs = append(errs, lb.apply(r)...)
	}
	return errors.Join(errs...)
}

func (lb Block) apply(r *model.Registry) []error {
	b, err := r.CreateBlock(lb.Name, lb.Count)
	if err != nil {
		// Fields of a missing block would only repeat the error.
		return []error{err}
	}

	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if lb.Base != nil {
		check(b.SetBase(*lb.Base))
	}
	if lb.Description != "" {
		check(b.SetDescription(lb.Description))
	}
	for _, lf := range lb.Fields {
		f, err := b.CreateField(lf.Name, lf.Class, lf.Type)
		if err != nil {
			check(err)
			continue
		}
		for _, line := range lf.Attributes {
			check(f.ParseAttribute(line))
		}
		check(f.ParseRegister(lf.Register))
		if lf.Description != "" {
			check(f.SetDescription(lf.Description))
		}
	}
	return errs
}

// Build creates a registry from the layout and opens it.
func (l *Layout) Build(cfg model.Config) (*model.Registry, error) {
	r := model.New(cfg)
	// Apply's errors are recorded on the registry and reported by Open.
	_ = l.Apply(r)
	if err := r.Open(); err != nil {
		return nil, err
	}
	return r, nil
}
