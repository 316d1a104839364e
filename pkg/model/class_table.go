package model

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pandablocks/panda-registry/pkg/attr"
	"github.com/pandablocks/panda-registry/pkg/types"
)

// ErrTableTooLong is returned when a write would exceed the table length.
var ErrTableTooLong = errors.New("Table too long")

// base64RowWords is the number of words per base64 row: 48 words encode
// to exactly attr.MaxResultLength characters.
const base64RowWords = 48

// tableClass holds a list of 32-bit words per instance. Every write sends
// the full table to the fill register.
type tableClass struct {
	f         *Field
	maxLength int
	fillReg   uint32

	// writeMu serialises whole table writes so fill register sequences of
	// concurrent puts never interleave.
	writeMu sync.Mutex

	mu     sync.Mutex
	words  [][]uint32
	stamps stamps
}

func newTable(f *Field, spec string) (class, types.Type, error) {
	if spec != "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrClassForcesType, spec)
	}
	return &tableClass{
		f:      f,
		words:  make([][]uint32, f.Count()),
		stamps: newStamps(f.Count()),
	}, nil, nil
}

// parseRegister accepts "max_length fill_reg".
func (c *tableClass) parseRegister(line string) error {
	words := strings.Fields(line)
	if len(words) != 2 {
		return fmt.Errorf("%w: expected max length and fill register", ErrInvalidRegister)
	}
	n, err := strconv.ParseUint(words[0], 10, 31)
	if err != nil || n == 0 {
		return fmt.Errorf("%w: max length %q", ErrInvalidRegister, words[0])
	}
	reg, err := c.f.block.parseRegister(words[1])
	if err != nil {
		return err
	}
	c.maxLength = int(n)
	c.fillReg = reg
	return nil
}

func (c *tableClass) putTable(instance int, appendWords bool, words []uint32) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	var content []uint32
	if appendWords {
		content = append(content, c.words[instance]...)
	}
	content = append(content, words...)
	if len(content) > c.maxLength {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d words, maximum %d", ErrTableTooLong, len(content), c.maxLength)
	}
	c.words[instance] = content
	c.mu.Unlock()

	r := c.f.registry()
	for _, w := range content {
		r.hw.WriteRegister(c.f.block.base, uint32(instance), c.fillReg, w)
	}

	c.mu.Lock()
	c.stamps[instance] = r.clock.Advance()
	c.mu.Unlock()
	return nil
}

func (c *tableClass) snapshot(instance int) []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint32(nil), c.words[instance]...)
}

func (c *tableClass) getMany(instance int) ([]string, error) {
	words := c.snapshot(instance)
	rows := make([]string, len(words))
	for i, w := range words {
		rows[i] = strconv.FormatUint(uint64(w), 10)
	}
	return rows, nil
}

// base64Rows encodes the table as little-endian words in rows of at most
// attr.MaxResultLength characters.
func (c *tableClass) base64Rows(instance int) []string {
	words := c.snapshot(instance)
	var rows []string
	for start := 0; start < len(words); start += base64RowWords {
		end := min(start+base64RowWords, len(words))
		buf := make([]byte, 4*(end-start))
		for i, w := range words[start:end] {
			binary.LittleEndian.PutUint32(buf[4*i:], w)
		}
		rows = append(rows, base64.StdEncoding.EncodeToString(buf))
	}
	return rows
}

func (c *tableClass) changeSet(reportIndex uint64, changes []bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stamps.changeSet(reportIndex, changes)
}

func (c *tableClass) attributes() []attr.Methods {
	return []attr.Methods{
		{
			Name:        "LENGTH",
			Description: "Number of words in the table",
			Format: func(i int) (string, error) {
				c.mu.Lock()
				defer c.mu.Unlock()
				return strconv.Itoa(len(c.words[i])), nil
			},
		},
		{
			Name:        "MAX_LENGTH",
			Description: "Maximum number of words in the table",
			Format:      func(int) (string, error) { return strconv.Itoa(c.maxLength), nil },
		},
		{
			Name:        "B",
			Description: "Table content in base64",
			GetMany:     func(i int) ([]string, error) { return c.base64Rows(i), nil },
		},
	}
}

// DecodeTableRows decodes base64 table rows as written in a change set.
func DecodeTableRows(rows []string) ([]uint32, error) {
	var words []uint32
	for _, row := range rows {
		buf, err := base64.StdEncoding.DecodeString(strings.TrimSpace(row))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidNumber, err)
		}
		if len(buf)%4 != 0 {
			return nil, fmt.Errorf("%w: partial word", types.ErrInvalidNumber)
		}
		for i := 0; i < len(buf); i += 4 {
			words = append(words, binary.LittleEndian.Uint32(buf[i:]))
		}
	}
	return words, nil
}

var (
	_ manyGetter     = (*tableClass)(nil)
	_ tablePutter    = (*tableClass)(nil)
	_ tableFormatter = (*tableClass)(nil)
)
