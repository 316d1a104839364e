package console

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandablocks/panda-registry/pkg/layout"
	"github.com/pandablocks/panda-registry/pkg/model"
)

const testLayout = `
metadata: [DESIGN]
blocks:
  - name: COUNTER
    count: 2
    base: 5
    fields:
      - name: STEP
        class: param
        type: uint
        register: "1"
      - name: OUT
        class: pos_out
        register: 1 2
  - name: SEQ
    base: 6
    fields:
      - name: TABLE
        class: table
        register: 16 0
`

func newTestRegistry(t *testing.T) *model.Registry {
	t.Helper()
	l, err := layout.Parse([]byte(testLayout))
	require.NoError(t, err)
	r, err := l.Build(model.Config{})
	require.NoError(t, err)
	return r
}

// run executes lines in order and returns the output of the last one.
func run(t *testing.T, c *Console, lines ...string) []string {
	t.Helper()
	var out []string
	for _, line := range lines {
		out, _ = c.Execute(line)
	}
	return out
}

func TestExecuteValues(t *testing.T) {
	c := New(newTestRegistry(t), nil)

	tests := []struct {
		line string
		want []string
	}{
		{"COUNTER1.STEP?", []string{"OK =0"}},
		{"COUNTER1.STEP=5", []string{"OK"}},
		{"COUNTER1.STEP?", []string{"OK =5"}},
		{"COUNTER1.STEP.INFO?", []string{"OK =param uint"}},
		{"COUNTER.STEP?", []string{"ERR Block number missing"}},
		{"COUNTER3.STEP?", []string{"ERR Invalid block number"}},
		{"NOPE.X?", []string{"ERR No such block"}},
		{"COUNTER1.NOPE?", []string{"ERR No such field"}},
		{"COUNTER1.STEP=lots", []string{"ERR Invalid number"}},
		{"*METADATA.DESIGN=scan", []string{"OK"}},
		{"*METADATA.DESIGN?", []string{"OK =scan"}},
		{"*METADATA?", []string{"!DESIGN", "."}},
		{"*FOO?", []string{"ERR Command not readable"}},
		{"*FOO=1", []string{"ERR Command not writeable"}},
		{"bogus", []string{"ERR Unknown command"}},
		{"", nil},
	}
	for _, tt := range tests {
		got, quit := c.Execute(tt.line)
		assert.False(t, quit, tt.line)
		if len(tt.want) == 1 && strings.HasPrefix(tt.want[0], "ERR ") {
			// Errors may carry detail after the message.
			require.Len(t, got, 1, tt.line)
			assert.True(t, strings.HasPrefix(got[0], tt.want[0]), "%s: got %q", tt.line, got[0])
			continue
		}
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestExecuteListings(t *testing.T) {
	c := New(newTestRegistry(t), nil)

	assert.Equal(t, []string{"!COUNTER 2", "!SEQ 1", "."}, run(t, c, "*BLOCKS?"))
	assert.Equal(t, []string{"!STEP 0 param uint", "!OUT 1 pos_out", "."}, run(t, c, "COUNTER.*?"))
	assert.Equal(t, []string{"!STEP 0 param uint", "!OUT 1 pos_out", "."}, run(t, c, "COUNTER2.*?"))

	attrs := run(t, c, "SEQ.TABLE.*?")
	assert.Subset(t, attrs, []string{"!LENGTH", "!MAX_LENGTH", "!B", "!INFO"})
	assert.Equal(t, ".", attrs[len(attrs)-1])

	assert.Equal(t, []string{"ERR No such block"}, run(t, c, "NOPE.*?"))
}

func TestExecuteChanges(t *testing.T) {
	r := newTestRegistry(t)
	c := New(r, nil)
	other := New(r, nil)
	assert.NotEqual(t, c.ContextID(), other.ContextID())

	run(t, c, "COUNTER1.STEP=5")
	assert.Equal(t, []string{"!COUNTER1.STEP=5", "!COUNTER2.STEP=0", "."}, run(t, c, "*CHANGES.CONFIG?"))
	assert.Equal(t, []string{"."}, run(t, c, "*CHANGES.CONFIG?"))

	// Each console has its own view of what it has seen.
	assert.Equal(t, []string{"!COUNTER1.STEP=5", "!COUNTER2.STEP=0", "."}, run(t, other, "*CHANGES.CONFIG?"))

	run(t, c, "COUNTER2.STEP=1", "*CHANGES.CONFIG=")
	assert.Equal(t, []string{"."}, run(t, c, "*CHANGES.CONFIG?"))
	assert.Equal(t, []string{"!COUNTER2.STEP=1", "."}, run(t, other, "*CHANGES.CONFIG?"))

	run(t, c, "*METADATA.DESIGN=x")
	assert.Equal(t, []string{"!*METADATA.DESIGN=x", "."}, run(t, c, "*CHANGES.METADATA?"))

	got := run(t, c, "*CHANGES.BOGUS?")
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0], "ERR "))
}

func TestExecuteTable(t *testing.T) {
	c := New(newTestRegistry(t), nil)

	out, _ := c.Execute("SEQ.TABLE<")
	assert.Nil(t, out)
	out, _ = c.Execute("1 2")
	assert.Nil(t, out)
	out, _ = c.Execute("0x3")
	assert.Nil(t, out)
	out, _ = c.Execute("")
	assert.Equal(t, []string{"OK"}, out)
	assert.Equal(t, []string{"!1", "!2", "!3", "."}, run(t, c, "SEQ.TABLE?"))

	// 4 as one little-endian word.
	assert.Equal(t, []string{"OK"}, run(t, c, "SEQ.TABLE<<B", "BAAAAA==", ""))
	assert.Equal(t, []string{"!1", "!2", "!3", "!4", "."}, run(t, c, "SEQ.TABLE?"))
	assert.Equal(t, []string{"OK =4"}, run(t, c, "SEQ.TABLE.LENGTH?"))

	got := run(t, c, "SEQ.TABLE<", "x", "")
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0], "ERR Invalid table word"), got[0])
	assert.Equal(t, []string{"OK =4"}, run(t, c, "SEQ.TABLE.LENGTH?"), "failed write leaves the table")

	got = run(t, c, "SEQ.TABLE<X")
	require.Len(t, got, 1)
	assert.True(t, strings.HasPrefix(got[0], "ERR Unknown command"), got[0])
	assert.Equal(t, []string{"ERR No such block"}, run(t, c, "NOPE.T<"))
}

func TestExecuteHelpAndExit(t *testing.T) {
	c := New(newTestRegistry(t), nil)

	help, quit := c.Execute("help")
	assert.False(t, quit)
	assert.NotEmpty(t, help)
	assert.Contains(t, strings.Join(help, "\n"), "*CHANGES")

	_, quit = c.Execute("exit")
	assert.True(t, quit)
}

func TestEntityNames(t *testing.T) {
	c := New(newTestRegistry(t), nil)
	names := c.entityNames()
	assert.Contains(t, names, "COUNTER1.STEP")
	assert.Contains(t, names, "COUNTER2.OUT")
	assert.Contains(t, names, "SEQ.TABLE")
	assert.Contains(t, names, "*METADATA.DESIGN")
}
