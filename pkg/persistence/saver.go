package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pandablocks/panda-registry/pkg/changeindex"
	"github.com/pandablocks/panda-registry/pkg/model"
)

// Categories is the set of change categories that make up saved state.
var Categories = changeindex.SetOf(
	changeindex.CategoryConfig,
	changeindex.CategoryAttr,
	changeindex.CategoryTable,
	changeindex.CategoryMetadata,
)

// Persistence errors.
var (
	ErrUnterminatedTable = errors.New("Unterminated table")
	ErrMalformedLine     = errors.New("Malformed line")
)

// Saver writes registry state to a Store whenever it changes.
type Saver struct {
	reg    *model.Registry
	store  *Store
	logger *slog.Logger

	// watch is private to the saver so its polls never disturb clients.
	watch *changeindex.Context
}

// NewSaver creates a saver for an open registry. A nil logger discards
// output.
func NewSaver(reg *model.Registry, store *Store, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Saver{
		reg:    reg,
		store:  store,
		logger: logger,
		watch:  changeindex.NewContext(),
	}
}

// Snapshot captures the complete saved state of the registry, walking
// every entity from a fresh context. Read only attributes, entities that
// fail to format and write-only values are left out.
func (s *Saver) Snapshot() (*State, error) {
	fresh := changeindex.NewContext()
	state := &State{Tables: make(map[string][]string)}

	// Attributes go first as they affect the interpretation of values.
	for _, c := range []changeindex.Category{
		changeindex.CategoryAttr,
		changeindex.CategoryConfig,
		changeindex.CategoryMetadata,
	} {
		err := s.reg.GenerateChangeSets(fresh, changeindex.SetOf(c), model.GenerateOptions{}, func(line string) {
			if s.keep(line) {
				state.Lines = append(state.Lines, line)
			}
		})
		if err != nil {
			return nil, err
		}
	}

	var table string
	var rows []string
	err := s.reg.GenerateChangeSets(fresh, changeindex.SetOf(changeindex.CategoryTable), model.GenerateOptions{}, func(line string) {
		switch {
		case table == "":
			name, ok := strings.CutSuffix(line, "<B")
			if !ok {
				s.logger.Warn("unexpected table line", "line", line)
				return
			}
			table, rows = name, []string{}
		case line == "":
			state.Tables[table] = rows
			table = ""
		default:
			rows = append(rows, line)
		}
	})
	if err != nil {
		return nil, err
	}
	if table != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnterminatedTable, table)
	}
	return state, nil
}

// keep reports whether a change-set line can be replayed.
func (s *Saver) keep(line string) bool {
	name, _, ok := strings.Cut(line, "=")
	if !ok {
		s.logger.Warn("skipping unsaveable entity", "line", line)
		return false
	}
	if strings.HasPrefix(name, model.MetadataPrefix) {
		return true
	}
	t, err := s.reg.Resolve(name)
	if err != nil {
		return false
	}
	if t.Attribute == "" {
		return true
	}
	a, err := t.Field.Attribute(t.Attribute)
	return err == nil && a.CanWrite()
}

// Save writes a fresh snapshot to the store.
func (s *Saver) Save() error {
	state, err := s.Snapshot()
	if err != nil {
		return err
	}
	if err := s.store.Save(state); err != nil {
		return err
	}
	s.logger.Debug("state saved", "path", s.store.Path(), "lines", len(state.Lines), "tables", len(state.Tables))
	return nil
}

// Poll saves the registry state if anything changed since the last poll
// and reports whether it did.
func (s *Saver) Poll() (bool, error) {
	changed, err := s.reg.CheckChangeSet(s.watch, Categories)
	if err != nil || !changed {
		return false, err
	}
	return true, s.Save()
}

// Sync marks the current registry state as saved, so the next Poll only
// fires on later changes. Call it after Restore.
//
// The walk is complete rather than a check, so every polled attribute has
// its cache filled.
func (s *Saver) Sync() error {
	return s.reg.GenerateChangeSets(s.watch, Categories, model.GenerateOptions{LabelsOnly: true}, func(string) {})
}

// Run polls every interval until ctx is cancelled, then saves any
// outstanding changes one last time.
func (s *Saver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := s.Poll(); err != nil {
				s.logger.Warn("final state save failed", "error", err)
			}
			return nil
		case <-ticker.C:
			if _, err := s.Poll(); err != nil {
				s.logger.Warn("state save failed", "path", s.store.Path(), "error", err)
			}
		}
	}
}

// Restore replays state into an open registry. Every line and table is
// attempted; failures are logged and returned joined.
func Restore(reg *model.Registry, state *State, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if state == nil {
		return nil
	}

	var errs []error
	fail := func(entity string, err error) {
		logger.Warn("restoring state", "entity", entity, "error", err)
		errs = append(errs, err)
	}

	for _, line := range state.Lines {
		if err := reg.ApplyLine(line); err != nil {
			fail(line, err)
		}
	}
	for name, rows := range state.Tables {
		t, err := reg.Resolve(name)
		if err != nil {
			fail(name, err)
			continue
		}
		if t.Attribute != "" {
			fail(name, fmt.Errorf("%w: %s", ErrMalformedLine, name))
			continue
		}
		words, err := model.DecodeTableRows(rows)
		if err != nil {
			fail(name, err)
			continue
		}
		if err := t.Field.PutTable(t.Instance, false, words); err != nil {
			fail(name, err)
		}
	}
	return errors.Join(errs...)
}
