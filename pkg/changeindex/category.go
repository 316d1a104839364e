package changeindex

import (
	"errors"
	"fmt"
	"strings"
)

// Category groups entities for incremental change reporting.
type Category uint8

const (
	// CategoryConfig covers values written by clients.
	CategoryConfig Category = iota
	// CategoryBits covers bit bus outputs.
	CategoryBits
	// CategoryPosition covers position bus outputs.
	CategoryPosition
	// CategoryRead covers hardware registers read back on demand.
	CategoryRead
	// CategoryAttr covers field attributes.
	CategoryAttr
	// CategoryTable covers table contents.
	CategoryTable
	// CategoryMetadata covers global metadata keys.
	CategoryMetadata

	// NumCategories is the number of categories.
	NumCategories = int(CategoryMetadata) + 1
)

// ErrUnknownCategory is returned when a category name cannot be parsed.
var ErrUnknownCategory = errors.New("Unknown change set")

var categoryNames = [NumCategories]string{
	CategoryConfig:   "CONFIG",
	CategoryBits:     "BITS",
	CategoryPosition: "POSN",
	CategoryRead:     "READ",
	CategoryAttr:     "ATTR",
	CategoryTable:    "TABLE",
	CategoryMetadata: "METADATA",
}

// String returns the category name used on the wire.
func (c Category) String() string {
	if int(c) < NumCategories {
		return categoryNames[c]
	}
	return "UNKNOWN"
}

// ParseCategory parses a category name (case-insensitive).
// "POSITION" is accepted as an alias for "POSN".
func ParseCategory(name string) (Category, error) {
	upper := strings.ToUpper(name)
	if upper == "POSITION" {
		return CategoryPosition, nil
	}
	for i, n := range categoryNames {
		if n == upper {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownCategory, name)
}

// Set is a bitmask of categories.
type Set uint8

// All contains every category.
const All Set = 1<<NumCategories - 1

// SetOf builds a set from the given categories.
func SetOf(categories ...Category) Set {
	var s Set
	for _, c := range categories {
		s |= 1 << c
	}
	return s
}

// Has reports whether c is in the set.
func (s Set) Has(c Category) bool { return s&(1<<c) != 0 }

// Categories returns the members of the set in category order.
func (s Set) Categories() []Category {
	var out []Category
	for c := Category(0); int(c) < NumCategories; c++ {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// String returns the member names joined with "|".
func (s Set) String() string {
	if s == 0 {
		return "-"
	}
	names := make([]string, 0, NumCategories)
	for _, c := range s.Categories() {
		names = append(names, c.String())
	}
	return strings.Join(names, "|")
}

// ParseSet parses a "."-separated list of category names. The empty string
// selects every category.
func ParseSet(spec string) (Set, error) {
	if spec == "" {
		return All, nil
	}
	var s Set
	for _, name := range strings.Split(spec, ".") {
		c, err := ParseCategory(name)
		if err != nil {
			return 0, err
		}
		s |= SetOf(c)
	}
	return s, nil
}
