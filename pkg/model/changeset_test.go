package model

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/pandablocks/panda-registry/pkg/changeindex"
	"github.com/pandablocks/panda-registry/pkg/hardware"
	"github.com/pandablocks/panda-registry/pkg/log"
)

var (
	configSet   = changeindex.SetOf(changeindex.CategoryConfig)
	attrSet     = changeindex.SetOf(changeindex.CategoryAttr)
	bitsSet     = changeindex.SetOf(changeindex.CategoryBits)
	positionSet = changeindex.SetOf(changeindex.CategoryPosition)
	readSet     = changeindex.SetOf(changeindex.CategoryRead)
	tableSet    = changeindex.SetOf(changeindex.CategoryTable)
	metadataSet = changeindex.SetOf(changeindex.CategoryMetadata)
)

func TestCounterScenario(t *testing.T) {
	r, sim := newTestRegistry(t)
	b := addBlock(t, r, "COUNTER", 2, 5)
	f := addField(t, b, "VAL", "param", "", "0")
	require.NoError(t, r.Open())

	ctx := changeindex.NewContext()
	assert.Equal(t, []string{"COUNTER1.VAL=0", "COUNTER2.VAL=0"}, poll(t, r, ctx, configSet))
	baseline := ctx.Stamps()[changeindex.CategoryConfig]

	require.NoError(t, f.Put(0, "7"))
	got, err := f.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "7", got.Value)
	assert.Equal(t, uint32(7), sim.ReadRegister(5, 0, 0))

	changes := make([]bool, 2)
	f.changeSet(changeindex.CategoryConfig, reportFor(changeindex.CategoryConfig, baseline), changes)
	assert.Equal(t, []bool{true, false}, changes)

	assert.Equal(t, []string{"COUNTER1.VAL=7"}, poll(t, r, ctx, configSet))
	assert.Empty(t, poll(t, r, ctx, configSet))
}

func TestChangeSetIdempotence(t *testing.T) {
	r, _ := newTestRegistry(t)
	seq := addBlock(t, r, "SEQ", 1, 8)
	f := addField(t, seq, "INPA", "bit_mux", "", "0 1")
	require.NoError(t, r.Open())

	ctx := changeindex.NewContext()
	assert.Equal(t, []string{"SEQ.INPA.DELAY=0"}, poll(t, r, ctx, attrSet))

	a, err := f.Attribute("DELAY")
	require.NoError(t, err)
	old := ctx.Stamps()[changeindex.CategoryAttr]
	require.NoError(t, f.PutAttribute(0, "DELAY", "5"))
	changes := make([]bool, 1)
	a.ChangeSet(old, changes)
	assert.True(t, changes[0], "change after put not reported")
	a.ChangeSet(r.Clock().Current(), changes)
	assert.False(t, changes[0], "observed change reported again")

	assert.Equal(t, []string{"SEQ.INPA.DELAY=5"}, poll(t, r, ctx, attrSet))
	assert.Empty(t, poll(t, r, ctx, attrSet))

	// Contexts are independent.
	assert.Equal(t, []string{"SEQ.INPA.DELAY=5"}, poll(t, r, changeindex.NewContext(), attrSet))
}

func TestPolledAttribute(t *testing.T) {
	r, _ := newTestRegistry(t)
	b := addBlock(t, r, "PULSE", 1, 4)
	f := addField(t, b, "WIDTH", "time", "", "0 1 > 125")
	require.NoError(t, r.Open())

	ctx := changeindex.NewContext()
	assert.Equal(t, []string{"PULSE.WIDTH=0"}, poll(t, r, ctx, configSet))
	assert.Equal(t, []string{"PULSE.WIDTH.UNITS=s", "PULSE.WIDTH.MIN=1e-06"}, poll(t, r, ctx, attrSet))
	assert.Empty(t, poll(t, r, ctx, attrSet))

	// MIN is never written; its change is found by comparing the
	// formatted value in the walk that reports it.
	require.NoError(t, f.PutAttribute(0, "UNITS", "us"))
	assert.Equal(t, []string{"PULSE.WIDTH.UNITS=us", "PULSE.WIDTH.MIN=1"}, poll(t, r, ctx, attrSet))
	assert.Empty(t, poll(t, r, ctx, attrSet))

	// The unit change also re-presents the value.
	assert.Equal(t, []string{"PULSE.WIDTH=0"}, poll(t, r, ctx, configSet))
}

func TestBusChangeSets(t *testing.T) {
	r, sim := newTestRegistry(t)
	ttl := addBlock(t, r, "TTLIN", 2, 3)
	addField(t, ttl, "VAL", "bit_out", "", "3 4")
	enc := addBlock(t, r, "INENC", 1, 7)
	addField(t, enc, "VAL", "pos_out", "", "1")
	require.NoError(t, r.Open())

	ctx := changeindex.NewContext()
	assert.Equal(t, []string{"TTLIN1.VAL=0", "TTLIN2.VAL=0"}, poll(t, r, ctx, bitsSet))
	assert.Equal(t, []string{"INENC.VAL=0"}, poll(t, r, ctx, positionSet))

	sim.SetBit(4, true)
	sim.SetPosition(1, 1000)
	assert.Equal(t, []string{"TTLIN2.VAL=1"}, poll(t, r, ctx, bitsSet))
	assert.Equal(t, []string{"INENC.VAL=1000"}, poll(t, r, ctx, positionSet))
	assert.Empty(t, poll(t, r, ctx, bitsSet))
	assert.Empty(t, poll(t, r, ctx, positionSet))

	// A change consumed by a direct read is still reported to contexts
	// that have not seen it.
	sim.SetBit(3, true)
	got, err := ttl.fieldMap["VAL"].Get(0)
	require.NoError(t, err)
	assert.Equal(t, "1", got.Value)
	assert.Equal(t, []string{"TTLIN1.VAL=1"}, poll(t, r, ctx, bitsSet))
}

func TestReadChangeSet(t *testing.T) {
	r, sim := newTestRegistry(t)
	b := addBlock(t, r, "INENC", 1, 7)
	addField(t, b, "RAW", "read", "", "5")
	require.NoError(t, r.Open())

	ctx := changeindex.NewContext()
	assert.Equal(t, []string{"INENC.RAW=0"}, poll(t, r, ctx, readSet))
	sim.SetRegister(7, 0, 5, 42)
	assert.Equal(t, []string{"INENC.RAW=42"}, poll(t, r, ctx, readSet))
	assert.Empty(t, poll(t, r, ctx, readSet))
}

func TestTableChangeSet(t *testing.T) {
	r, _ := newTestRegistry(t)
	b := addBlock(t, r, "SEQ", 1, 8)
	f := addField(t, b, "TABLE", "table", "", "16 10")
	require.NoError(t, r.Open())

	ctx := changeindex.NewContext()
	assert.Equal(t, []string{"SEQ.TABLE<B", ""}, poll(t, r, ctx, tableSet))

	require.NoError(t, f.PutTable(0, false, []uint32{1, 2, 3}))
	assert.Equal(t, []string{"SEQ.TABLE<B", "AQAAAAIAAAADAAAA", ""}, poll(t, r, ctx, tableSet))
	assert.Empty(t, poll(t, r, ctx, tableSet))

	require.NoError(t, f.PutTable(0, true, []uint32{4}))
	var lines []string
	err := r.GenerateChangeSets(ctx, tableSet, GenerateOptions{LabelsOnly: true}, func(line string) {
		lines = append(lines, line)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"SEQ.TABLE<"}, lines)
}

func TestMetadataChangeSet(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.NoError(t, r.AddMetadataKey("DESIGN"))
	assert.ErrorIs(t, r.AddMetadataKey("DESIGN"), ErrMetadataRepeat)
	require.NoError(t, r.AddMetadataKey("LABEL_X"))
	require.NoError(t, r.Open())

	ctx := changeindex.NewContext()
	assert.Equal(t, []string{"*METADATA.DESIGN=", "*METADATA.LABEL_X="}, poll(t, r, ctx, metadataSet))

	require.NoError(t, r.PutMetadata("LABEL_X", "Encoder"))
	assert.Equal(t, []string{"*METADATA.LABEL_X=Encoder"}, poll(t, r, ctx, metadataSet))
	assert.Empty(t, poll(t, r, ctx, metadataSet))

	assert.ErrorIs(t, r.PutMetadata("NOPE", "x"), ErrNoSuchMetadata)
	value, err := r.Metadata("LABEL_X")
	require.NoError(t, err)
	assert.Equal(t, "Encoder", value)
}

func TestChangeSetOrder(t *testing.T) {
	r, _ := newTestRegistry(t)
	b := addBlock(t, r, "A", 1, 1)
	addField(t, b, "T", "table", "", "4 0")
	addField(t, b, "P", "param", "", "1")
	require.NoError(t, r.AddMetadataKey("K"))
	require.NoError(t, r.Open())

	lines := poll(t, r, changeindex.NewContext(), changeindex.All)
	assert.Equal(t, []string{"A.P=0", "*METADATA.K=", "A.T<B", ""}, lines)
}

func TestChangeSetFormatError(t *testing.T) {
	r, _ := newTestRegistry(t)
	b := addBlock(t, r, "BLK", 1, 2)
	e, err := b.CreateField("MODE", "param", "enum 2")
	require.NoError(t, err)
	require.NoError(t, e.ParseAttribute("1 ONE"))
	require.NoError(t, e.ParseRegister("0"))
	addField(t, b, "VAL", "param", "", "1")
	require.NoError(t, r.Open())

	lines := poll(t, r, changeindex.NewContext(), configSet)
	assert.Equal(t, []string{"BLK.MODE (error)", "BLK.VAL=0"}, lines)
}

func TestCheckChangeSet(t *testing.T) {
	r, _ := newTestRegistry(t)
	b := addBlock(t, r, "COUNTER", 1, 5)
	f := addField(t, b, "VAL", "param", "", "0")
	require.NoError(t, r.Open())

	ctx := changeindex.NewContext()
	changed, err := r.CheckChangeSet(ctx, configSet)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = r.CheckChangeSet(ctx, configSet)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, f.Put(0, "3"))
	changed, err = r.CheckChangeSet(ctx, attrSet)
	require.NoError(t, err)
	assert.False(t, changed, "config change seen through ATTR")
	changed, err = r.CheckChangeSet(ctx, configSet)
	require.NoError(t, err)
	assert.True(t, changed)
}

type recordingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (l *recordingLogger) Log(e log.Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func TestEventLogging(t *testing.T) {
	events := &recordingLogger{}
	r := New(Config{EventLogger: events})
	b := addBlock(t, r, "COUNTER", 1, 5)
	f := addField(t, b, "VAL", "param", "uint 10", "0")
	require.NoError(t, r.Open())

	require.NoError(t, f.Put(0, "3"))
	require.Error(t, f.Put(0, "11"))
	ctx := changeindex.NewContext()
	poll(t, r, ctx, configSet)

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.events, 4)

	assert.Equal(t, log.CategoryState, events.events[0].Category)
	assert.Equal(t, "OPEN", events.events[0].State.NewState)

	ok := events.events[1]
	assert.Equal(t, "COUNTER.VAL", ok.Entity)
	assert.Equal(t, "3", ok.Put.Value)
	assert.Empty(t, ok.Put.Error)
	assert.NotZero(t, ok.Put.Stamp)

	failed := events.events[2]
	assert.Equal(t, "Number out of range", failed.Put.Error)

	report := events.events[3]
	assert.Equal(t, log.CategoryReport, report.Category)
	assert.Equal(t, ctx.ID(), report.ContextID)
	assert.Equal(t, "CONFIG", report.Report.Categories)
	assert.Equal(t, 1, report.Report.Lines)
}

func TestConcurrentPollers(t *testing.T) {
	r, _ := newTestRegistry(t)
	b := addBlock(t, r, "COUNTER", 1, 5)
	f := addField(t, b, "VAL", "param", "", "0")
	require.NoError(t, r.Open())

	const writes = 200
	const readers = 4
	var done atomic.Bool
	var g errgroup.Group
	last := make([]string, readers)

	g.Go(func() error {
		defer done.Store(true)
		for i := 1; i <= writes; i++ {
			if err := f.Put(0, strconv.Itoa(i)); err != nil {
				return err
			}
		}
		return nil
	})
	for n := range readers {
		g.Go(func() error {
			ctx := changeindex.NewContext()
			emit := func(line string) { last[n] = line }
			for !done.Load() {
				if err := r.GenerateChangeSets(ctx, configSet, GenerateOptions{}, emit); err != nil {
					return err
				}
			}
			return r.GenerateChangeSets(ctx, configSet, GenerateOptions{}, emit)
		})
	}
	require.NoError(t, g.Wait())

	for n, line := range last {
		assert.Equal(t, "COUNTER.VAL=200", line, "reader %d", n)
	}
}

// hookedBus runs beforeRead once, at the start of the first bit bus read
// after it is set.
type hookedBus struct {
	*hardware.Simulator
	once       sync.Once
	beforeRead func()
}

func (h *hookedBus) ReadBits(values, changes []bool) {
	if h.beforeRead != nil {
		h.once.Do(h.beforeRead)
	}
	h.Simulator.ReadBits(values, changes)
}

func TestBusChangeNotLostBetweenContexts(t *testing.T) {
	sim := hardware.NewSimulator(nil)
	hw := &hookedBus{Simulator: sim}
	r := New(Config{Hardware: hw})
	ttl := addBlock(t, r, "TTLIN", 2, 3)
	addField(t, ttl, "VAL", "bit_out", "", "3 4")
	require.NoError(t, r.Open())

	ctxA, ctxB := changeindex.NewContext(), changeindex.NewContext()
	poll(t, r, ctxA, bitsSet)
	poll(t, r, ctxB, bitsSet)

	type round struct {
		lines []string
		err   error
	}
	done := make(chan round, 1)

	// While A is between taking its stamp and reading the bus, B starts a
	// whole round and the bit changes.
	hw.beforeRead = func() {
		go func() {
			var lines []string
			err := r.GenerateChangeSets(ctxB, bitsSet, GenerateOptions{}, func(line string) {
				lines = append(lines, line)
			})
			done <- round{lines, err}
		}()
		select {
		case res := <-done:
			done <- res
		case <-time.After(50 * time.Millisecond):
		}
		sim.SetBit(3, true)
	}

	assert.Equal(t, []string{"TTLIN1.VAL=1"}, poll(t, r, ctxA, bitsSet))
	res := <-done
	require.NoError(t, res.err)

	lines := append(res.lines, poll(t, r, ctxB, bitsSet)...)
	assert.Equal(t, []string{"TTLIN1.VAL=1"}, lines)
	assert.Empty(t, poll(t, r, ctxA, bitsSet))
	assert.Empty(t, poll(t, r, ctxB, bitsSet))
}

func TestConcurrentBusPollers(t *testing.T) {
	r, sim := newTestRegistry(t)
	ttl := addBlock(t, r, "TTLIN", 4, 3)
	val := addField(t, ttl, "VAL", "bit_out", "", "3 4 5 6")
	enc := addBlock(t, r, "INENC", 2, 7)
	addField(t, enc, "VAL", "pos_out", "", "1 2")
	require.NoError(t, r.Open())

	const toggles = 400
	const pollers = 4
	busSet := changeindex.SetOf(changeindex.CategoryBits, changeindex.CategoryPosition)

	var done atomic.Bool
	var g errgroup.Group
	seen := make([]map[string]string, pollers)

	g.Go(func() error {
		defer done.Store(true)
		bits := make([]bool, 4)
		for i := range toggles {
			n := i % 4
			bits[n] = !bits[n]
			sim.SetBit(3+n, bits[n])
			sim.SetPosition(1+i%2, uint32(i))
		}
		return nil
	})
	// Direct reads take bus snapshots of their own.
	g.Go(func() error {
		for !done.Load() {
			if _, err := val.Get(0); err != nil {
				return err
			}
		}
		return nil
	})
	for n := range pollers {
		seen[n] = make(map[string]string)
		g.Go(func() error {
			ctx := changeindex.NewContext()
			record := func(line string) {
				name, value, _ := strings.Cut(line, "=")
				seen[n][name] = value
			}
			for !done.Load() {
				if err := r.GenerateChangeSets(ctx, busSet, GenerateOptions{}, record); err != nil {
					return err
				}
			}
			return r.GenerateChangeSets(ctx, busSet, GenerateOptions{}, record)
		})
	}
	require.NoError(t, g.Wait())

	var names []string
	for i := 1; i <= 4; i++ {
		names = append(names, fmt.Sprintf("TTLIN%d.VAL", i))
	}
	names = append(names, "INENC1.VAL", "INENC2.VAL")
	for _, name := range names {
		want, err := r.Get(name)
		require.NoError(t, err)
		for n := range pollers {
			assert.Equal(t, want.Value, seen[n][name], "poller %d, %s", n, name)
		}
	}
}
