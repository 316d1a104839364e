package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pandablocks/panda-registry/pkg/hardware"
)

// Block errors.
var (
	ErrBaseAssigned     = errors.New("Base address already assigned")
	ErrRegisterRange    = errors.New("Register out of range")
	ErrRegisterAssigned = errors.New("Register already assigned")
	ErrDuplicateField   = errors.New("Field already exists")
	ErrNoSuchField      = errors.New("No such field")
)

// Block is a named group of fields sharing an instance count and a
// hardware base address.
type Block struct {
	reg         *Registry
	name        string
	count       int
	base        uint32
	baseSet     bool
	description string

	// registers is the bitmap of claimed per-instance registers.
	registers uint64

	fields   []*Field
	fieldMap map[string]*Field
}

func newBlock(reg *Registry, name string, count int) *Block {
	return &Block{
		reg:      reg,
		name:     name,
		count:    count,
		fieldMap: make(map[string]*Field),
	}
}

// Name returns the block name.
func (b *Block) Name() string { return b.name }

// Count returns the number of instances.
func (b *Block) Count() int { return b.count }

// Description returns the block description.
func (b *Block) Description() string { return b.description }

// Base returns the hardware base address and whether it has been assigned.
func (b *Block) Base() (uint32, bool) { return b.base, b.baseSet }

// SetBase assigns the hardware base address. It can be done once.
func (b *Block) SetBase(base uint32) error {
	if err := b.reg.checkConfiguring(); err != nil {
		return err
	}
	if b.baseSet {
		return b.reg.configError(b.name, ErrBaseAssigned)
	}
	b.base = base
	b.baseSet = true
	return nil
}

// SetDescription sets the block description.
func (b *Block) SetDescription(description string) error {
	if err := b.reg.checkConfiguring(); err != nil {
		return err
	}
	b.description = description
	return nil
}

// InstanceName returns the client-visible name of one instance: the block
// name alone when there is a single instance, otherwise the name followed
// by the instance number counting from 1.
func (b *Block) InstanceName(instance int) string {
	if b.count == 1 {
		return b.name
	}
	return b.name + strconv.Itoa(instance+1)
}

// Field returns the named field.
func (b *Block) Field(name string) (*Field, error) {
	f, ok := b.fieldMap[name]
	if !ok {
		return nil, requestError(b.name+"."+name, ErrNoSuchField)
	}
	return f, nil
}

// Fields returns the fields in creation order.
func (b *Block) Fields() []*Field {
	out := make([]*Field, len(b.fields))
	copy(out, b.fields)
	return out
}

// CreateField adds a field of the named class. typeSpec is the rest of
// the definition line: a type with its arguments for the classes that take
// one, optionally followed by "= default", or the class arguments
// otherwise. A failed creation leaves the block unchanged.
func (b *Block) CreateField(name, className, typeSpec string) (*Field, error) {
	if err := b.reg.checkConfiguring(); err != nil {
		return nil, err
	}
	entity := b.name + "." + name
	if !validName(name, MaxNameLength) {
		return nil, b.reg.configError(entity, ErrInvalidName)
	}
	if _, ok := b.fieldMap[name]; ok {
		return nil, b.reg.configError(entity, ErrDuplicateField)
	}
	kind, err := ParseClassKind(className)
	if err != nil {
		return nil, b.reg.configError(entity, err)
	}

	f, err := newField(b, name, kind, strings.TrimSpace(typeSpec))
	if err != nil {
		return nil, b.reg.configError(entity, err)
	}
	b.fields = append(b.fields, f)
	b.fieldMap[name] = f
	return f, nil
}

// parseRegister parses a register number and claims it for this block.
func (b *Block) parseRegister(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRegister, s)
	}
	if v >= hardware.BlockRegisterCount {
		return 0, fmt.Errorf("%w: %d", ErrRegisterRange, v)
	}
	mask := uint64(1) << v
	if b.registers&mask != 0 {
		return 0, fmt.Errorf("%w: %d", ErrRegisterAssigned, v)
	}
	b.registers |= mask
	return uint32(v), nil
}

// releaseRegister returns a register claimed by parseRegister.
func (b *Block) releaseRegister(reg uint32) {
	b.registers &^= uint64(1) << reg
}
