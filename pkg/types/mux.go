package types

import (
	"github.com/pandablocks/panda-registry/pkg/muxlookup"
)

// muxType selects a bus entry by the name of the output driving it.
type muxType struct {
	base
	name  string
	table *muxlookup.Table
}

func newMux(name, args string, table *muxlookup.Table) (Type, error) {
	if table == nil {
		return nil, ErrMuxUnavailable
	}
	return noArgs(name, args, &muxType{name: name, table: table})
}

func (t *muxType) Name() string        { return t.name }
func (t *muxType) Description() string { return t.name }

func (t *muxType) Parse(_ int, value string) (uint32, error) { return t.table.LookupName(value) }

func (t *muxType) Format(_ int, value uint32) (string, error) { return t.table.Format(value), nil }

func (t *muxType) Enumeration(int) ([]string, bool) { return t.table.Names(), true }
