package model

import (
	"iter"
	"time"

	"github.com/pandablocks/panda-registry/pkg/attr"
	"github.com/pandablocks/panda-registry/pkg/changeindex"
	"github.com/pandablocks/panda-registry/pkg/log"
	"github.com/pandablocks/panda-registry/pkg/metrics"
)

// GenerateOptions controls change-set output.
type GenerateOptions struct {
	// LabelsOnly emits entity names without values.
	LabelsOnly bool
}

// RefreshChangeIndex starts a new reporting round for ctx: every requested
// category gets a fresh stamp, and the previous stamp is returned as the
// report index for this round. Categories outside set report Never.
// Requesting BITS or POSITION snapshots the bus under the same lock,
// stamping changed entries with the category's new stamp, so a change is
// seen by this round or by any round that starts later.
func (r *Registry) RefreshChangeIndex(ctx *changeindex.Context, set changeindex.Set) (changeindex.ReportIndex, error) {
	if err := r.checkOpen(); err != nil {
		return changeindex.ReportIndex{}, err
	}

	r.changeMu.Lock()
	defer r.changeMu.Unlock()

	report, stamps := ctx.Refresh(r.clock, set)
	if set.Has(changeindex.CategoryBits) {
		r.bus.readBits(stamps[changeindex.CategoryBits])
	}
	if set.Has(changeindex.CategoryPosition) {
		r.bus.readPositions(stamps[changeindex.CategoryPosition])
	}
	return report, nil
}

type changeKind uint8

const (
	changeValue changeKind = iota
	changeAttribute
	changeMetadata
	changeTable
)

// change is one changed entity found by a walk.
type change struct {
	kind     changeKind
	field    *Field
	instance int
	attr     *attr.Attribute
	key      string
	value    string // metadata only
}

// changes walks the registry in creation order and yields every entity in
// set changed after report: field values, then attributes, then metadata,
// then tables.
func (r *Registry) changes(set changeindex.Set, report changeindex.ReportIndex) iter.Seq[change] {
	return func(yield func(change) bool) {
		if !r.walkValues(set, report, yield) {
			return
		}
		if set.Has(changeindex.CategoryAttr) && !r.walkAttributes(report[changeindex.CategoryAttr], yield) {
			return
		}
		if set.Has(changeindex.CategoryMetadata) {
			keys, values := r.metadata.changed(report[changeindex.CategoryMetadata])
			for i, k := range keys {
				if !yield(change{kind: changeMetadata, key: k, value: values[i]}) {
					return
				}
			}
		}
		if set.Has(changeindex.CategoryTable) {
			r.walkTables(report[changeindex.CategoryTable], yield)
		}
	}
}

func (r *Registry) walkValues(set changeindex.Set, report changeindex.ReportIndex, yield func(change) bool) bool {
	for _, b := range r.blocks {
		changes := make([]bool, b.count)
		for _, f := range b.fields {
			c := f.kind.Category()
			if c == changeindex.CategoryTable || !set.Has(c) {
				continue
			}
			f.changeSet(c, report, changes)
			for i, changed := range changes {
				if changed && !yield(change{kind: changeValue, field: f, instance: i}) {
					return false
				}
			}
		}
	}
	return true
}

func (r *Registry) walkAttributes(reportIndex uint64, yield func(change) bool) bool {
	for _, b := range r.blocks {
		changes := make([]bool, b.count)
		for _, f := range b.fields {
			for _, a := range f.attrs {
				if !a.InChangeSet() {
					continue
				}
				a.ChangeSet(reportIndex, changes)
				for i, changed := range changes {
					if changed && !yield(change{kind: changeAttribute, field: f, instance: i, attr: a}) {
						return false
					}
				}
			}
		}
	}
	return true
}

func (r *Registry) walkTables(reportIndex uint64, yield func(change) bool) {
	for _, b := range r.blocks {
		changes := make([]bool, b.count)
		for _, f := range b.fields {
			if f.kind != ClassTable {
				continue
			}
			f.class.changeSet(reportIndex, changes)
			for i, changed := range changes {
				if changed && !yield(change{kind: changeTable, field: f, instance: i}) {
					return
				}
			}
		}
	}
}

// GenerateChangeSets reports every entity in set changed since ctx last
// looked, one line at a time through emit:
//
//	BLOCKn.FIELD=value
//	BLOCKn.FIELD.ATTR=value
//	*METADATA.KEY=value
//	BLOCKn.FIELD<B        followed by base64 rows and an empty line
//
// An entity that fails to format is reported as "name (error)" and the
// walk continues.
func (r *Registry) GenerateChangeSets(ctx *changeindex.Context, set changeindex.Set, opts GenerateOptions, emit func(line string)) error {
	start := time.Now()
	report, err := r.RefreshChangeIndex(ctx, set)
	if err != nil {
		return err
	}

	var lines, formatErrors int
	out := func(line string) {
		lines++
		emit(line)
	}
	for c := range r.changes(set, report) {
		if !r.emitChange(c, opts, out) {
			formatErrors++
		}
	}

	elapsed := time.Since(start)
	r.metrics.ObserveWalk(metrics.ModeGenerate, lines, elapsed)
	r.logEvent(log.Event{
		ContextID: ctx.ID(),
		Category:  log.CategoryReport,
		Report: &log.ReportEvent{
			Categories:   set.String(),
			Lines:        lines,
			FormatErrors: formatErrors,
			Duration:     elapsed,
		},
	})
	return nil
}

// emitChange writes the lines for one change and reports whether it
// formatted cleanly.
func (r *Registry) emitChange(c change, opts GenerateOptions, emit func(string)) bool {
	switch c.kind {
	case changeMetadata:
		name := MetadataPrefix + c.key
		if opts.LabelsOnly {
			emit(name)
		} else {
			emit(name + "=" + c.value)
		}
		return true

	case changeTable:
		name := c.field.InstanceName(c.instance)
		if opts.LabelsOnly {
			emit(name + "<")
			return true
		}
		emit(name + "<B")
		for _, row := range c.field.class.(tableFormatter).base64Rows(c.instance) {
			emit(row)
		}
		emit("")
		return true
	}

	name := c.field.InstanceName(c.instance)
	var value string
	var err error
	if c.kind == changeAttribute {
		name += "." + c.attr.Name()
		if opts.LabelsOnly {
			emit(name)
			return true
		}
		var reading attr.Reading
		reading, err = c.attr.Get(c.instance)
		value = reading.Value
	} else {
		if opts.LabelsOnly {
			emit(name)
			return true
		}
		value, err = c.field.format(c.instance)
	}
	if err != nil {
		r.logger.Warn("change set format failed", "entity", name, "error", err)
		r.metrics.ObserveFormatError()
		emit(name + " (error)")
		return false
	}
	emit(name + "=" + value)
	return true
}

// CheckChangeSet reports whether anything in set changed since ctx last
// looked, stopping at the first change.
func (r *Registry) CheckChangeSet(ctx *changeindex.Context, set changeindex.Set) (bool, error) {
	start := time.Now()
	report, err := r.RefreshChangeIndex(ctx, set)
	if err != nil {
		return false, err
	}

	found := false
	for range r.changes(set, report) {
		found = true
		break
	}

	elapsed := time.Since(start)
	lines := 0
	if found {
		lines = 1
	}
	r.metrics.ObserveWalk(metrics.ModeCheck, lines, elapsed)
	r.logEvent(log.Event{
		ContextID: ctx.ID(),
		Category:  log.CategoryReport,
		Report: &log.ReportEvent{
			Categories: set.String(),
			CheckOnly:  true,
			Lines:      lines,
			Duration:   elapsed,
		},
	})
	return found, nil
}
