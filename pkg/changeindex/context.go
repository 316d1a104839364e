package changeindex

import "github.com/google/uuid"

// ReportIndex holds one report index per category. A change with stamp S is
// reported for category c iff S > ReportIndex[c].
type ReportIndex [NumCategories]uint64

// Context tracks what one connection has already been told.
// Contexts are never shared between connections, and Refresh calls on one
// context must be serialised by the caller.
type Context struct {
	id     string
	stamps [NumCategories]uint64
}

// NewContext creates a context that has seen nothing yet.
func NewContext() *Context {
	return &Context{id: uuid.NewString()}
}

// ID returns the unique identifier of the context.
func (c *Context) ID() string { return c.id }

// Refresh advances the stamps of every category in set and returns the
// report indexes to use for this round together with the new stamps.
// Categories outside set report Never and keep their stamps. The clock is
// advanced once per requested category.
func (c *Context) Refresh(clock *Clock, set Set) (report ReportIndex, stamps ReportIndex) {
	for i := range report {
		if set.Has(Category(i)) {
			report[i] = c.stamps[i]
			c.stamps[i] = clock.Advance()
		} else {
			report[i] = Never
		}
		stamps[i] = c.stamps[i]
	}
	return report, stamps
}

// Stamps returns a copy of the current stamps.
func (c *Context) Stamps() ReportIndex { return c.stamps }
