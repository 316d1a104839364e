package muxlookup

import (
	"errors"
	"testing"
)

func TestInsert(t *testing.T) {
	t.Run("SameSlotTwice", func(t *testing.T) {
		tbl := New(16)
		if err := tbl.Insert(5, "A"); err != nil {
			t.Fatalf("Insert(5, A) error = %v", err)
		}
		if err := tbl.Insert(5, "B"); !errors.Is(err, ErrIndexAssigned) {
			t.Errorf("Insert(5, B) error = %v, want ErrIndexAssigned", err)
		}
		if _, err := tbl.LookupName("B"); !errors.Is(err, ErrUnknownSelector) {
			t.Errorf("failed insert left B behind: %v", err)
		}
	})

	t.Run("SameNameTwice", func(t *testing.T) {
		tbl := New(16)
		if err := tbl.Insert(5, "A"); err != nil {
			t.Fatalf("Insert(5, A) error = %v", err)
		}
		if err := tbl.Insert(6, "A"); !errors.Is(err, ErrDuplicateName) {
			t.Errorf("Insert(6, A) error = %v, want ErrDuplicateName", err)
		}
		if name, ok := tbl.LookupSlot(6); ok {
			t.Errorf("slot 6 claimed by %q after failed insert", name)
		}
	})

	t.Run("OutOfRange", func(t *testing.T) {
		tbl := New(16)
		if err := tbl.Insert(16, "A"); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Insert(16) error = %v, want ErrIndexOutOfRange", err)
		}
	})

	t.Run("EmptyName", func(t *testing.T) {
		tbl := New(16)
		if err := tbl.Insert(2, ""); !errors.Is(err, ErrEmptyName) {
			t.Errorf("Insert(2, \"\") error = %v, want ErrEmptyName", err)
		}
		if err := tbl.Insert(2, "A"); err != nil {
			t.Errorf("slot 2 not free after rejected insert: %v", err)
		}
	})

	t.Run("ConstantNameIsReserved", func(t *testing.T) {
		tbl := NewBitBus()
		if err := tbl.Insert(0, "ZERO"); !errors.Is(err, ErrDuplicateName) {
			t.Errorf("Insert(0, ZERO) error = %v, want ErrDuplicateName", err)
		}
	})
}

func TestRemove(t *testing.T) {
	tbl := New(16)
	if err := tbl.Insert(4, "A"); err != nil {
		t.Fatalf("Insert(4, A) error = %v", err)
	}
	tbl.Remove(4)
	tbl.Remove(9)
	if name, ok := tbl.LookupSlot(4); ok {
		t.Errorf("slot 4 still bound to %q", name)
	}
	if _, err := tbl.LookupName("A"); !errors.Is(err, ErrUnknownSelector) {
		t.Errorf("LookupName(A) error = %v, want ErrUnknownSelector", err)
	}
	if err := tbl.Insert(5, "A"); err != nil {
		t.Errorf("name A not reusable after Remove: %v", err)
	}
	if err := tbl.Insert(4, "B"); err != nil {
		t.Errorf("slot 4 not reusable after Remove: %v", err)
	}
}

func TestLookupIsInverse(t *testing.T) {
	tbl := NewBitBus()
	pairs := map[uint32]string{0: "TTLIN1.VAL", 3: "TTLIN2.VAL", 127: "PULSE4.OUT"}
	for slot, name := range pairs {
		if err := tbl.Insert(slot, name); err != nil {
			t.Fatalf("Insert(%d, %s) error = %v", slot, name, err)
		}
	}

	for slot, name := range pairs {
		gotSlot, err := tbl.LookupName(name)
		if err != nil || gotSlot != slot {
			t.Errorf("LookupName(%s) = %d, %v; want %d", name, gotSlot, err, slot)
		}
		gotName, ok := tbl.LookupSlot(slot)
		if !ok || gotName != name {
			t.Errorf("LookupSlot(%d) = %q, %v; want %q", slot, gotName, ok, name)
		}
	}

	if got := tbl.Format(1); got != "" {
		t.Errorf("Format(unassigned) = %q, want empty", got)
	}
	if got := tbl.Format(BitBusOne); got != "ONE" {
		t.Errorf("Format(BitBusOne) = %q, want ONE", got)
	}
	if got := tbl.Format(1000); got != "" {
		t.Errorf("Format(1000) = %q, want empty", got)
	}
}

func TestNames(t *testing.T) {
	tbl := NewPosBus()
	_ = tbl.Insert(4, "INENC1.VAL")
	_ = tbl.Insert(1, "COUNTER1.OUT")

	got := tbl.Names()
	want := []string{"ZERO", "COUNTER1.OUT", "INENC1.VAL"}
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if tbl.Capacity() != 32 {
		t.Errorf("Capacity() = %d, want 32", tbl.Capacity())
	}
}
