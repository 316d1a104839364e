package model

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/pandablocks/panda-registry/pkg/changeindex"
	"github.com/pandablocks/panda-registry/pkg/hardware"
	"github.com/pandablocks/panda-registry/pkg/log"
	"github.com/pandablocks/panda-registry/pkg/metrics"
	"github.com/pandablocks/panda-registry/pkg/muxlookup"
)

// Registry errors.
var (
	ErrNotOpen         = errors.New("Registry not open")
	ErrConfigClosed    = errors.New("Registry configuration closed")
	ErrAlreadyOpen     = errors.New("Registry already open")
	ErrDuplicateBlock  = errors.New("Block already exists")
	ErrNoSuchBlock     = errors.New("No such block")
	ErrInvalidName     = errors.New("Invalid name")
	ErrInvalidCount    = errors.New("Invalid block count")
	ErrNoBase          = errors.New("No base address for block")
	ErrNoRegister      = errors.New("No register assigned for class")
	ErrMetadataRepeat  = errors.New("Metadata key repeated")
	ErrNoSuchMetadata  = errors.New("No such metadata key")
	ErrInvalidInstance = errors.New("Invalid instance")
)

// Name limits.
const (
	MaxBlockNameLength = 20
	MaxNameLength      = 32
)

// State is the registry lifecycle state.
type State uint8

const (
	// StateConfiguring accepts configuration operations only.
	StateConfiguring State = iota
	// StateOpen serves clients; the topology is fixed.
	StateOpen
	// StateClosed rejects everything.
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateConfiguring:
		return "CONFIGURING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Registry.
type Config struct {
	// Hardware is the FPGA access. Defaults to a fresh simulator.
	Hardware hardware.Hardware

	// Logger is the operational logger. Nil discards output.
	Logger *slog.Logger

	// EventLogger receives registry events. Nil disables event logging.
	EventLogger log.Logger

	// Metrics records registry activity. Nil disables metrics.
	Metrics *metrics.Metrics
}

// Registry is the versioned block/field/attribute store.
//
// Blocks, fields and metadata keys are created while the registry is
// configuring, from a single goroutine. Open validates the result and
// makes the topology immutable; from then on only values and stamps change
// and every runtime operation is safe for concurrent use.
type Registry struct {
	hw      hardware.Hardware
	logger  *slog.Logger
	events  log.Logger
	metrics *metrics.Metrics

	clock  *changeindex.Clock
	bitMux *muxlookup.Table
	posMux *muxlookup.Table
	bus    *busCache

	stateMu sync.RWMutex
	state   State

	blocks     []*Block
	blockMap   map[string]*Block
	configErrs []error
	metadata   *metadataTable

	// changeMu serialises change-index refreshes together with the bus
	// snapshots they trigger.
	changeMu sync.Mutex
}

// New creates an empty registry in the configuring state.
func New(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Hardware == nil {
		cfg.Hardware = hardware.NewSimulator(cfg.Logger)
	}
	if cfg.EventLogger == nil {
		cfg.EventLogger = log.NoopLogger{}
	}

	return &Registry{
		hw:       cfg.Hardware,
		logger:   cfg.Logger,
		events:   cfg.EventLogger,
		metrics:  cfg.Metrics,
		clock:    changeindex.NewClock(),
		bitMux:   muxlookup.NewBitBus(),
		posMux:   muxlookup.NewPosBus(),
		bus:      newBusCache(cfg.Hardware, cfg.Metrics),
		blockMap: make(map[string]*Block),
		metadata: newMetadataTable(),
	}
}

// Clock returns the registry's logical clock.
func (r *Registry) Clock() *changeindex.Clock { return r.clock }

// BitMux returns the bit bus lookup table.
func (r *Registry) BitMux() *muxlookup.Table { return r.bitMux }

// PosMux returns the position bus lookup table.
func (r *Registry) PosMux() *muxlookup.Table { return r.posMux }

// State returns the lifecycle state.
func (r *Registry) State() State {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.state
}

func (r *Registry) checkConfiguring() error {
	if r.State() != StateConfiguring {
		return requestError("", ErrConfigClosed)
	}
	return nil
}

func (r *Registry) checkOpen() error {
	if r.State() != StateOpen {
		return requestError("", ErrNotOpen)
	}
	return nil
}

// configError classifies err, remembers it so that Open fails, and logs it.
func (r *Registry) configError(entity string, err error) error {
	e := &Error{Kind: KindConfig, Entity: entity, Err: err}
	r.configErrs = append(r.configErrs, e)
	r.logConfigError(e)
	return e
}

func (r *Registry) logConfigError(e *Error) {
	r.logger.Warn("configuration error", "entity", e.Entity, "error", e.Err)
	r.logEvent(log.Event{
		Category: log.CategoryConfig,
		Entity:   e.Entity,
		Config:   &log.ConfigEvent{Message: e.Err.Error()},
	})
}

func (r *Registry) logEvent(e log.Event) {
	e.Timestamp = time.Now()
	r.events.Log(e)
}

// ConfigErrors returns the configuration errors recorded so far.
func (r *Registry) ConfigErrors() []error {
	out := make([]error, len(r.configErrs))
	copy(out, r.configErrs)
	return out
}

// CreateBlock adds a block with count instances.
func (r *Registry) CreateBlock(name string, count int) (*Block, error) {
	if err := r.checkConfiguring(); err != nil {
		return nil, err
	}
	if !validName(name, MaxBlockNameLength) || isDigit(name[len(name)-1]) {
		return nil, r.configError(name, ErrInvalidName)
	}
	if count < 1 {
		return nil, r.configError(name, fmt.Errorf("%w: %d", ErrInvalidCount, count))
	}
	if _, ok := r.blockMap[name]; ok {
		return nil, r.configError(name, ErrDuplicateBlock)
	}

	b := newBlock(r, name, count)
	r.blocks = append(r.blocks, b)
	r.blockMap[name] = b
	return b, nil
}

// Block returns the named block.
func (r *Registry) Block(name string) (*Block, error) {
	b, ok := r.blockMap[name]
	if !ok {
		return nil, requestError(name, ErrNoSuchBlock)
	}
	return b, nil
}

// Blocks returns every block in creation order.
func (r *Registry) Blocks() []*Block {
	out := make([]*Block, len(r.blocks))
	copy(out, r.blocks)
	return out
}

// Open validates the configuration, writes initial values to hardware and
// starts serving. It fails with every problem found, joined, and leaves
// the registry configuring.
func (r *Registry) Open() error {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	if r.state != StateConfiguring {
		return requestError("", ErrAlreadyOpen)
	}

	errs := append([]error(nil), r.configErrs...)
	errs = append(errs, r.validate()...)
	if len(errs) == 0 {
		errs = r.finalise()
	}
	if len(errs) > 0 {
		r.logger.Error("registry validation failed", "errors", len(errs))
		return errors.Join(errs...)
	}

	r.state = StateOpen
	r.logger.Info("registry open", "blocks", len(r.blocks))
	r.logEvent(log.Event{
		Category: log.CategoryState,
		State:    &log.StateEvent{OldState: StateConfiguring.String(), NewState: StateOpen.String()},
	})
	return nil
}

func (r *Registry) validate() []error {
	var errs []error
	fail := func(entity string, err error) {
		e := &Error{Kind: KindConfig, Entity: entity, Err: err}
		r.logConfigError(e)
		errs = append(errs, e)
	}

	for _, b := range r.blocks {
		if !b.baseSet {
			fail(b.name, fmt.Errorf("%w %s", ErrNoBase, b.name))
		}
		if b.description == "" {
			r.logger.Debug("block has no description", "block", b.name)
		}
		for _, f := range b.fields {
			entity := b.name + "." + f.name
			if !f.initialised {
				fail(entity, ErrNoRegister)
				continue
			}
			if v, ok := f.class.(validator); ok {
				if err := v.validate(); err != nil {
					fail(entity, err)
				}
			}
			if f.description == "" {
				r.logger.Debug("field has no description", "block", b.name, "field", f.name)
			}
		}
	}
	return errs
}

func (r *Registry) finalise() []error {
	var errs []error
	for _, b := range r.blocks {
		for _, f := range b.fields {
			fin, ok := f.class.(finaliser)
			if !ok {
				continue
			}
			if err := fin.finalise(); err != nil {
				e := &Error{Kind: KindConfig, Entity: b.name + "." + f.name, Err: err}
				r.logConfigError(e)
				errs = append(errs, e)
			}
		}
	}
	return errs
}

// Close stops serving. Every later operation fails.
func (r *Registry) Close() error {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	if r.state == StateClosed {
		return nil
	}
	old := r.state
	r.state = StateClosed
	r.logEvent(log.Event{
		Category: log.CategoryState,
		State:    &log.StateEvent{OldState: old.String(), NewState: StateClosed.String()},
	})
	return nil
}

// validName accepts ASCII letters, digits and underscores, not starting
// with a digit.
func validName(name string, maxLength int) bool {
	if name == "" || len(name) > maxLength || isDigit(name[0]) {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_' || isDigit(c)) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
