package model

import (
	"fmt"
	"strings"

	"github.com/pandablocks/panda-registry/pkg/attr"
	"github.com/pandablocks/panda-registry/pkg/changeindex"
	"github.com/pandablocks/panda-registry/pkg/log"
	"github.com/pandablocks/panda-registry/pkg/types"
)

// Field is one named, instance-arrayed entity of a block.
type Field struct {
	block       *Block
	name        string
	seq         int
	kind        ClassKind
	class       class
	typ         types.Type
	description string
	initialised bool

	attrs   []*attr.Attribute
	attrMap map[string]*attr.Attribute
}

func newField(b *Block, name string, kind ClassKind, spec string) (*Field, error) {
	f := &Field{
		block:   b,
		name:    name,
		seq:     len(b.fields),
		kind:    kind,
		attrMap: make(map[string]*attr.Attribute),
	}

	cls, typ, err := newClass(f, spec)
	if err != nil {
		return nil, err
	}
	f.class = cls
	f.typ = typ

	methods := cls.attributes()
	if typ != nil {
		methods = append(methods, typ.Attributes()...)
	}
	methods = append(methods, attr.Methods{
		Name:        "INFO",
		Description: "Class and type of this field",
		Format:      func(int) (string, error) { return f.Info(), nil },
	})
	for _, m := range methods {
		if _, ok := f.attrMap[m.Name]; ok {
			panic(fmt.Sprintf("model: attribute %s repeated on %s class", m.Name, kind))
		}
		a := attr.New(m, b.count, f.registry().clock)
		f.attrs = append(f.attrs, a)
		f.attrMap[m.Name] = a
	}
	return f, nil
}

func (f *Field) registry() *Registry { return f.block.reg }

// Block returns the owning block.
func (f *Field) Block() *Block { return f.block }

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Sequence returns the creation order of the field within its block.
func (f *Field) Sequence() int { return f.seq }

// Class returns the field class.
func (f *Field) Class() ClassKind { return f.kind }

// Type returns the field type, or nil for classes without one.
func (f *Field) Type() types.Type { return f.typ }

// Count returns the number of instances.
func (f *Field) Count() int { return f.block.count }

// Description returns the field description.
func (f *Field) Description() string { return f.description }

// SetDescription sets the field description.
func (f *Field) SetDescription(description string) error {
	if err := f.registry().checkConfiguring(); err != nil {
		return err
	}
	f.description = description
	return nil
}

// Info describes the class and type, for example "param uint 1000".
func (f *Field) Info() string {
	if f.typ == nil {
		return f.kind.String()
	}
	return f.kind.String() + " " + f.typ.Description()
}

// InstanceName returns the client-visible name of one instance of the
// field, for example "COUNTER2.VAL".
func (f *Field) InstanceName(instance int) string {
	return f.block.InstanceName(instance) + "." + f.name
}

func (f *Field) entity() string { return f.block.name + "." + f.name }

// ParseRegister consumes the register definition of the field. It can be
// done at most once.
func (f *Field) ParseRegister(line string) error {
	if err := f.registry().checkConfiguring(); err != nil {
		return err
	}
	if f.initialised {
		return f.registry().configError(f.entity(), ErrRegisterParsed)
	}
	if err := f.class.parseRegister(strings.TrimSpace(line)); err != nil {
		return f.registry().configError(f.entity(), err)
	}
	f.initialised = true
	return nil
}

// ParseAttribute consumes an indented configuration line following the
// field definition, such as an enumeration label.
func (f *Field) ParseAttribute(line string) error {
	if err := f.registry().checkConfiguring(); err != nil {
		return err
	}
	line = strings.TrimSpace(line)
	var err error
	if p, ok := f.class.(attributeParser); ok {
		err = p.parseAttribute(line)
	} else if f.typ != nil {
		err = f.typ.ParseAttributeLine(line)
	} else {
		err = ErrNoAttributeLines
	}
	if err != nil {
		return f.registry().configError(f.entity(), err)
	}
	return nil
}

// Attribute returns the named attribute.
func (f *Field) Attribute(name string) (*attr.Attribute, error) {
	a, ok := f.attrMap[name]
	if !ok {
		return nil, requestError(f.entity()+"."+name, ErrNoSuchAttribute)
	}
	return a, nil
}

// Attributes returns the attributes in definition order: class attributes,
// then type attributes, then INFO.
func (f *Field) Attributes() []*attr.Attribute {
	out := make([]*attr.Attribute, len(f.attrs))
	copy(out, f.attrs)
	return out
}

// Enumeration lists the values Put accepts, if the field has a finite set.
func (f *Field) Enumeration(instance int) ([]string, bool) {
	if e, ok := f.class.(enumerator); ok {
		return e.enumeration(instance)
	}
	if f.typ != nil {
		return f.typ.Enumeration(instance)
	}
	return nil, false
}

func (f *Field) checkInstance(instance int) error {
	if instance < 0 || instance >= f.block.count {
		return requestError(f.entity(), fmt.Errorf("%w: %d", ErrInvalidInstance, instance))
	}
	return nil
}

func (f *Field) checkRequest(instance int) error {
	if err := f.registry().checkOpen(); err != nil {
		return err
	}
	return f.checkInstance(instance)
}

// Get reads one instance. Classes backed by bus snapshots refresh them
// first.
func (f *Field) Get(instance int) (attr.Reading, error) {
	if err := f.checkRequest(instance); err != nil {
		return attr.Reading{}, err
	}
	if r, ok := f.class.(refresher); ok {
		r.refresh()
	}

	switch c := f.class.(type) {
	case getter:
		value, err := c.get(instance)
		if err != nil {
			return attr.Reading{}, requestError(f.InstanceName(instance), err)
		}
		if len(value) > attr.MaxResultLength {
			return attr.Reading{}, requestError(f.InstanceName(instance), attr.ErrResultTooLong)
		}
		return attr.Single(value), nil
	case manyGetter:
		rows, err := c.getMany(instance)
		if err != nil {
			return attr.Reading{}, requestError(f.InstanceName(instance), err)
		}
		return attr.Many(rows), nil
	default:
		return attr.Reading{}, requestError(f.InstanceName(instance), ErrNotReadable)
	}
}

// format renders one instance for a change set. Bus snapshots are not
// refreshed; the walk has done that already.
func (f *Field) format(instance int) (string, error) {
	g, ok := f.class.(getter)
	if !ok {
		return "", ErrNotReadable
	}
	value, err := g.get(instance)
	if err != nil {
		return "", err
	}
	if len(value) > attr.MaxResultLength {
		return "", attr.ErrResultTooLong
	}
	return value, nil
}

// Put writes one instance. The class stamps the value on success.
func (f *Field) Put(instance int, value string) error {
	if err := f.checkRequest(instance); err != nil {
		return err
	}
	p, ok := f.class.(putter)
	if !ok {
		return f.observePut(log.PutValue, f.InstanceName(instance), value, 0,
			requestError(f.InstanceName(instance), ErrNotWriteable))
	}
	err := p.put(instance, value)
	if err != nil {
		err = requestError(f.InstanceName(instance), err)
	}
	return f.observePut(log.PutValue, f.InstanceName(instance), value, 0, err)
}

// PutTable writes words to a table instance, replacing its content or
// appending to it.
func (f *Field) PutTable(instance int, appendWords bool, words []uint32) error {
	if err := f.checkRequest(instance); err != nil {
		return err
	}
	name := f.InstanceName(instance)
	p, ok := f.class.(tablePutter)
	if !ok {
		return f.observePut(log.PutTable, name, "", len(words), requestError(name, ErrNotTable))
	}
	err := p.putTable(instance, appendWords, words)
	if err != nil {
		err = requestError(name, err)
	}
	return f.observePut(log.PutTable, name, "", len(words), err)
}

// GetAttribute reads one instance of the named attribute.
func (f *Field) GetAttribute(instance int, name string) (attr.Reading, error) {
	if err := f.checkRequest(instance); err != nil {
		return attr.Reading{}, err
	}
	a, err := f.Attribute(name)
	if err != nil {
		return attr.Reading{}, err
	}
	reading, err := a.Get(instance)
	if err != nil {
		return attr.Reading{}, requestError(f.InstanceName(instance)+"."+name, err)
	}
	return reading, nil
}

// PutAttribute writes one instance of the named attribute.
func (f *Field) PutAttribute(instance int, name, value string) error {
	if err := f.checkRequest(instance); err != nil {
		return err
	}
	a, err := f.Attribute(name)
	if err != nil {
		return err
	}
	entity := f.InstanceName(instance) + "." + name
	err = a.Put(instance, value)
	if err != nil {
		err = requestError(entity, err)
	}
	return f.observePut(log.PutAttr, entity, value, 0, err)
}

// changeSet fills changes for the field's value in category c.
func (f *Field) changeSet(c changeindex.Category, report changeindex.ReportIndex, changes []bool) {
	ri := report[f.kind.Category()]
	if f.kind.Category() != c || ri == changeindex.Never {
		for i := range changes {
			changes[i] = false
		}
		return
	}
	f.class.changeSet(ri, changes)
}

func (f *Field) observePut(kind log.PutKind, entity, value string, words int, err error) error {
	r := f.registry()
	r.metrics.ObservePut(kind.String(), err)

	ev := &log.PutEvent{Kind: kind, Value: value, Words: words}
	if err != nil {
		ev.Error = Message(err)
	} else {
		ev.Stamp = r.clock.Current()
	}
	r.logEvent(log.Event{Category: log.CategoryPut, Entity: entity, Put: ev})
	return err
}
