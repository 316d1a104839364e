package console

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pandablocks/panda-registry/pkg/changeindex"
	"github.com/pandablocks/panda-registry/pkg/model"
)

// Console errors.
var (
	ErrUnknownCommand = errors.New("Unknown command")
	ErrNotReadable    = errors.New("Command not readable")
	ErrNotWriteable   = errors.New("Command not writeable")
	ErrInvalidWord    = errors.New("Invalid table word")
)

const changesCommand = "*CHANGES"

// Console executes text commands against a registry. Each console owns one
// change-set context, so "*CHANGES?" reports what changed since this
// console last asked.
//
// A Console is not safe for concurrent use; run one per session.
type Console struct {
	reg    *model.Registry
	logger *slog.Logger
	ctx    *changeindex.Context

	// table is set while table rows are being collected.
	table *pendingTable
}

type pendingTable struct {
	target model.Target
	append bool
	base64 bool
	rows   []string
}

// New creates a console for an open registry. A nil logger discards
// output.
func New(reg *model.Registry, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Console{
		reg:    reg,
		logger: logger,
		ctx:    changeindex.NewContext(),
	}
}

// ContextID identifies the console's change-set context in event logs.
func (c *Console) ContextID() string { return c.ctx.ID() }

// Execute runs one input line and returns the response lines. quit is set
// by "exit". While a table is being written, lines are collected and
// nothing is returned until the terminating empty line.
func (c *Console) Execute(line string) (out []string, quit bool) {
	if c.table != nil {
		return c.tableLine(line), false
	}

	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "":
		return nil, false
	case "help":
		return helpLines(), false
	case "exit", "quit":
		return []string{"Exiting..."}, true
	}

	var err error
	switch {
	case strings.HasSuffix(line, "?"):
		out, err = c.get(strings.TrimSuffix(line, "?"))
	case strings.Contains(line, "="):
		out, err = c.put(line)
	case strings.Contains(line, "<"):
		err = c.startTable(line)
	default:
		err = ErrUnknownCommand
	}
	if err != nil {
		c.logger.Debug("console command failed", "command", line, "error", err)
		return []string{"ERR " + model.Message(err)}, false
	}
	return out, false
}

func (c *Console) get(name string) ([]string, error) {
	switch {
	case name == "*BLOCKS":
		var rows []string
		for _, b := range c.reg.Blocks() {
			rows = append(rows, fmt.Sprintf("%s %d", b.Name(), b.Count()))
		}
		return many(rows), nil

	case name == "*METADATA":
		return many(c.reg.MetadataKeys()), nil

	case name == changesCommand || strings.HasPrefix(name, changesCommand+"."):
		set, err := changeSet(name)
		if err != nil {
			return nil, err
		}
		var rows []string
		err = c.reg.GenerateChangeSets(c.ctx, set, model.GenerateOptions{}, func(line string) {
			rows = append(rows, line)
		})
		if err != nil {
			return nil, err
		}
		return many(rows), nil

	case strings.HasPrefix(name, "*") && !strings.HasPrefix(name, model.MetadataPrefix):
		return nil, ErrNotReadable

	case strings.HasSuffix(name, ".*"):
		return c.list(strings.TrimSuffix(name, ".*"))
	}

	reading, err := c.reg.Get(name)
	if err != nil {
		return nil, err
	}
	if reading.Multi {
		return many(reading.Rows), nil
	}
	return []string{"OK =" + reading.Value}, nil
}

// list answers "BLOCK.*?" with the fields of a block and
// "BLOCK.FIELD.*?" with the attributes of a field.
func (c *Console) list(name string) ([]string, error) {
	blockName, fieldName, hasField := strings.Cut(name, ".")
	b, err := c.reg.Block(strings.TrimRight(blockName, "0123456789"))
	if err != nil {
		return nil, err
	}
	if !hasField {
		var rows []string
		for _, f := range b.Fields() {
			rows = append(rows, fmt.Sprintf("%s %d %s", f.Name(), f.Sequence(), f.Info()))
		}
		return many(rows), nil
	}

	f, err := b.Field(fieldName)
	if err != nil {
		return nil, err
	}
	var rows []string
	for _, a := range f.Attributes() {
		rows = append(rows, a.Name())
	}
	return many(rows), nil
}

func (c *Console) put(line string) ([]string, error) {
	name, _, _ := strings.Cut(line, "=")
	if name == changesCommand || strings.HasPrefix(name, changesCommand+".") {
		// Resetting marks everything as seen without reporting it.
		set, err := changeSet(name)
		if err != nil {
			return nil, err
		}
		if _, err := c.reg.RefreshChangeIndex(c.ctx, set); err != nil {
			return nil, err
		}
		return []string{"OK"}, nil
	}
	if strings.HasPrefix(name, "*") && !strings.HasPrefix(name, model.MetadataPrefix) {
		return nil, ErrNotWriteable
	}
	if err := c.reg.ApplyLine(line); err != nil {
		return nil, err
	}
	return []string{"OK"}, nil
}

func changeSet(name string) (changeindex.Set, error) {
	spec := strings.TrimPrefix(strings.TrimPrefix(name, changesCommand), ".")
	return changeindex.ParseSet(spec)
}

// startTable begins a table write: "NAME<" replaces and "NAME<<" appends
// decimal words, "NAME<B" and "NAME<<B" take base64 rows. Rows follow
// until an empty line.
func (c *Console) startTable(line string) error {
	name, mode, _ := strings.Cut(line, "<")
	t := &pendingTable{}
	if rest, ok := strings.CutPrefix(mode, "<"); ok {
		t.append = true
		mode = rest
	}
	switch mode {
	case "":
	case "B":
		t.base64 = true
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, line)
	}

	target, err := c.reg.Resolve(name)
	if err != nil {
		return err
	}
	if target.Attribute != "" {
		return model.ErrNotTable
	}
	t.target = target
	c.table = t
	return nil
}

func (c *Console) tableLine(line string) []string {
	t := c.table
	if line != "" {
		t.rows = append(t.rows, strings.TrimSpace(line))
		return nil
	}
	c.table = nil

	words, err := t.words()
	if err == nil {
		err = t.target.Field.PutTable(t.target.Instance, t.append, words)
	}
	if err != nil {
		return []string{"ERR " + model.Message(err)}
	}
	return []string{"OK"}
}

func (t *pendingTable) words() ([]uint32, error) {
	if t.base64 {
		return model.DecodeTableRows(t.rows)
	}
	var words []uint32
	for _, row := range t.rows {
		for _, s := range strings.Fields(row) {
			v, err := strconv.ParseUint(s, 0, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrInvalidWord, s)
			}
			words = append(words, uint32(v))
		}
	}
	return words, nil
}

// many frames multi-line output: each row prefixed with "!" and a
// terminating ".".
func many(rows []string) []string {
	out := make([]string, 0, len(rows)+1)
	for _, row := range rows {
		out = append(out, "!"+row)
	}
	return append(out, ".")
}

func helpLines() []string {
	return strings.Split(strings.TrimPrefix(`
Registry Commands:
  Values:
    NAME?               - Read a field value, attribute or *METADATA.KEY
    NAME=VALUE          - Write a field value, attribute or *METADATA.KEY
    NAME< / NAME<<      - Write / append table words, ending with an empty line
    NAME<B / NAME<<B    - Same, with base64 rows

  Structure:
    *BLOCKS?            - List blocks and instance counts
    BLOCK.*?            - List fields of a block
    BLOCK.FIELD.*?      - List attributes of a field
    *METADATA?          - List metadata keys

  Changes:
    *CHANGES[.CAT]?     - Report changes since last asked (CONFIG, BITS,
                          POSITION, READ, ATTR, TABLE, METADATA)
    *CHANGES[.CAT]=     - Mark everything as seen

  General:
    help                - Show this help
    exit                - Leave the console

  Names:
    BLOCKn.FIELD[.ATTR] - e.g. PULSE2.WIDTH.UNITS; n is omitted for
                          single-instance blocks`, "\n"), "\n")
}
