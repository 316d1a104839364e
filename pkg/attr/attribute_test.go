package attr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/pandablocks/panda-registry/pkg/changeindex"
)

func changed(a *Attribute, reportIndex uint64) []bool {
	out := make([]bool, a.Count())
	a.ChangeSet(reportIndex, out)
	return out
}

func TestAttributeGetPut(t *testing.T) {
	clock := changeindex.NewClock()
	values := []string{"1", "2"}
	a := New(Methods{
		Name:        "SCALE",
		InChangeSet: true,
		Format:      func(i int) (string, error) { return values[i], nil },
		Put: func(i int, v string) error {
			if v == "bad" {
				return errors.New("Invalid number")
			}
			values[i] = v
			return nil
		},
	}, 2, clock)

	t.Run("GetFormatsSingleValue", func(t *testing.T) {
		r, err := a.Get(1)
		if err != nil || r.Multi || r.Value != "2" {
			t.Errorf("Get(1) = %+v, %v", r, err)
		}
	})

	t.Run("PutThenChangeSet", func(t *testing.T) {
		old := clock.Current()
		if err := a.Put(0, "5"); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if got := changed(a, old); !got[0] || got[1] {
			t.Errorf("ChangeSet(old) = %v, want [true false]", got)
		}
		if got := changed(a, clock.Current()); got[0] {
			t.Errorf("ChangeSet(new) = %v, want no change", got)
		}
	})

	t.Run("FailedPutDoesNotStamp", func(t *testing.T) {
		before := clock.Current()
		if err := a.Put(1, "bad"); err == nil {
			t.Fatal("Put(bad) succeeded")
		}
		if clock.Current() != before {
			t.Error("failed put advanced the clock")
		}
		if got := changed(a, before); got[1] {
			t.Error("failed put was reported as a change")
		}
	})
}

func TestAttributeCapabilities(t *testing.T) {
	clock := changeindex.NewClock()

	t.Run("NotReadable", func(t *testing.T) {
		a := New(Methods{Name: "W", Put: func(int, string) error { return nil }}, 1, clock)
		if _, err := a.Get(0); !errors.Is(err, ErrNotReadable) {
			t.Errorf("Get() error = %v, want ErrNotReadable", err)
		}
		if a.CanRead() || !a.CanWrite() {
			t.Error("capabilities wrong")
		}
	})

	t.Run("NotWriteable", func(t *testing.T) {
		a := New(Methods{Name: "R", Format: func(int) (string, error) { return "x", nil }}, 1, clock)
		if err := a.Put(0, "y"); !errors.Is(err, ErrNotWriteable) {
			t.Errorf("Put() error = %v, want ErrNotWriteable", err)
		}
	})

	t.Run("GetMany", func(t *testing.T) {
		a := New(Methods{
			Name:    "LABELS",
			GetMany: func(int) ([]string, error) { return []string{"0 A", "1 B"}, nil },
		}, 1, clock)
		r, err := a.Get(0)
		if err != nil || !r.Multi || len(r.Rows) != 2 {
			t.Errorf("Get() = %+v, %v", r, err)
		}
	})

	t.Run("NotInChangeSet", func(t *testing.T) {
		a := New(Methods{Name: "MAX", Format: func(int) (string, error) { return "9", nil }}, 2, clock)
		if got := changed(a, 0); got[0] || got[1] {
			t.Errorf("attribute outside change set reported %v", got)
		}
	})

	t.Run("ResultTooLong", func(t *testing.T) {
		long := fmt.Sprintf("%0*d", MaxResultLength+1, 0)
		a := New(Methods{Name: "L", Format: func(int) (string, error) { return long, nil }}, 1, clock)
		if _, err := a.Get(0); !errors.Is(err, ErrResultTooLong) {
			t.Errorf("Get() error = %v, want ErrResultTooLong", err)
		}
	})
}

func TestPolledAttribute(t *testing.T) {
	clock := changeindex.NewClock()
	value := "10"
	a := New(Methods{
		Name:   "MIN",
		Polled: true,
		Format: func(int) (string, error) { return value, nil },
	}, 1, clock)

	if !a.InChangeSet() {
		t.Fatal("polled attribute not in change set")
	}

	t.Run("InitialValueReported", func(t *testing.T) {
		if got := changed(a, 0); !got[0] {
			t.Error("first poll did not report the initial value")
		}
	})

	t.Run("DiscoveredChangeReportedToDiscoverer", func(t *testing.T) {
		// Advance the clock well past the report index so an ordinary
		// fresh stamp would not be comparable.
		report := clock.Advance()
		clock.Advance()
		clock.Advance()

		value = "20"
		if got := changed(a, report); !got[0] {
			t.Fatal("change discovered by this poll was not reported")
		}
		// The next poll of the same client has moved on to a newer report
		// index; with no hardware change it sees nothing.
		if got := changed(a, report+1); got[0] {
			t.Error("unchanged value reported twice")
		}
	})

	t.Run("UnchangedValueNotRestamped", func(t *testing.T) {
		report := clock.Advance()
		if got := changed(a, report); got[0] {
			t.Error("unchanged polled value reported")
		}
	})

	t.Run("GetDetectsChangeForLaterPolls", func(t *testing.T) {
		report := clock.Advance()
		value = "30"
		r, err := a.Get(0)
		if err != nil || r.Value != "30" {
			t.Fatalf("Get() = %+v, %v", r, err)
		}
		if got := changed(a, report); !got[0] {
			t.Error("change seen by Get not reported to the next poll")
		}
	})

	t.Run("NeverReportIndexSkipsPolling", func(t *testing.T) {
		value = "40"
		if got := changed(a, changeindex.Never); got[0] {
			t.Error("unrequested category reported a change")
		}
	})
}
