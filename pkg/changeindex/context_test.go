package changeindex

import "testing"

func TestContextRefresh(t *testing.T) {
	clock := NewClock()
	ctx := NewContext()

	if ctx.ID() == "" {
		t.Fatal("context has no ID")
	}

	report, stamps := ctx.Refresh(clock, SetOf(CategoryConfig, CategoryBits))

	if report[CategoryConfig] != 0 || report[CategoryBits] != 0 {
		t.Errorf("first refresh report = %v, want zeros for requested categories", report)
	}
	if report[CategoryRead] != Never {
		t.Errorf("unrequested category report = %d, want Never", report[CategoryRead])
	}
	if stamps[CategoryConfig] == 0 || stamps[CategoryBits] <= stamps[CategoryConfig] {
		t.Errorf("stamps = %v, want one advance per requested category", stamps)
	}
	if stamps[CategoryRead] != 0 {
		t.Errorf("unrequested stamp moved to %d", stamps[CategoryRead])
	}

	report2, _ := ctx.Refresh(clock, SetOf(CategoryConfig))
	if report2[CategoryConfig] != stamps[CategoryConfig] {
		t.Errorf("second report = %d, want previous stamp %d", report2[CategoryConfig], stamps[CategoryConfig])
	}
	if report2[CategoryBits] != Never {
		t.Errorf("bits not requested but report = %d", report2[CategoryBits])
	}
	if got := ctx.Stamps()[CategoryBits]; got != stamps[CategoryBits] {
		t.Errorf("bits stamp changed to %d without being requested", got)
	}
}

func TestContextsAreIndependent(t *testing.T) {
	clock := NewClock()
	a, b := NewContext(), NewContext()

	a.Refresh(clock, All)
	report, _ := b.Refresh(clock, All)
	for c, r := range report {
		if r != 0 {
			t.Errorf("category %s report = %d, want 0 for a fresh context", Category(c), r)
		}
	}
	if a.ID() == b.ID() {
		t.Error("contexts share an ID")
	}
}
