package changeindex

import (
	"errors"
	"testing"
)

func TestParseSet(t *testing.T) {
	tests := []struct {
		spec    string
		want    Set
		wantErr bool
	}{
		{"", All, false},
		{"CONFIG", SetOf(CategoryConfig), false},
		{"bits.posn", SetOf(CategoryBits, CategoryPosition), false},
		{"POSITION", SetOf(CategoryPosition), false},
		{"ATTR.TABLE.METADATA", SetOf(CategoryAttr, CategoryTable, CategoryMetadata), false},
		{"CONFIG.BOGUS", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseSet(tt.spec)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownCategory) {
					t.Fatalf("ParseSet(%q) error = %v, want ErrUnknownCategory", tt.spec, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSet(%q) error = %v", tt.spec, err)
			}
			if got != tt.want {
				t.Errorf("ParseSet(%q) = %s, want %s", tt.spec, got, tt.want)
			}
		})
	}
}

func TestSetString(t *testing.T) {
	if got := SetOf(CategoryConfig, CategoryRead).String(); got != "CONFIG|READ" {
		t.Errorf("String() = %q", got)
	}
	if got := Set(0).String(); got != "-" {
		t.Errorf("empty String() = %q", got)
	}
	if len(All.Categories()) != NumCategories {
		t.Errorf("All has %d members, want %d", len(All.Categories()), NumCategories)
	}
}
