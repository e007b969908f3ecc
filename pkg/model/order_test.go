package model

import (
	"errors"
	"testing"
)

func TestValidateEnter(t *testing.T) {
	cases := []struct {
		name   string
		price  int64
		volume int64
		pcode  string
		asset  string
		ok     bool
	}{
		{"valid bid args", 100, 5, "p1", "A", true},
		{"zero price", 0, 5, "p1", "A", false},
		{"negative price", -10, 5, "p1", "A", false},
		{"zero volume", 100, 0, "p1", "A", false},
		{"negative volume", 100, -1, "p1", "A", false},
		{"missing pcode", 100, 5, "", "A", false},
		{"missing asset", 100, 5, "p1", "", false},
	}

	for _, c := range cases {
		err := ValidateEnter(c.price, c.volume, c.pcode, c.asset)
		if c.ok && err != nil {
			t.Fatalf("case %q: expected valid but got error: %v", c.name, err)
		}
		if !c.ok {
			if err == nil {
				t.Fatalf("case %q: expected error but got nil", c.name)
			}
			if !errors.Is(err, ErrInvalidOrder) {
				t.Fatalf("case %q: expected ErrInvalidOrder, got %v", c.name, err)
			}
		}
	}
}

func TestOrderVolumeAccounting(t *testing.T) {
	o := &Order{
		ID:     1,
		Price:  100,
		Volume: 10,
		Status: StatusActive,
	}

	if o.Remaining() != 10 {
		t.Fatalf("expected remaining 10, got %d", o.Remaining())
	}
	if !o.Active() {
		t.Fatal("fresh order should be active")
	}

	o.Traded += 4
	if o.Remaining() != 6 {
		t.Fatalf("expected remaining 6 after partial fill, got %d", o.Remaining())
	}
	if o.Volume != o.Remaining()+o.Traded {
		t.Fatal("volume conservation violated")
	}

	o.Traded += 6
	o.Status = StatusFilled
	if o.Active() {
		t.Fatal("filled order should not be active")
	}
}

func TestSnapshotIsFrozen(t *testing.T) {
	o := &Order{
		ID:        7,
		AssetName: "A",
		IsBid:     true,
		Price:     95,
		Volume:    10,
		Traded:    3,
		Status:    StatusActive,
		PCode:     "p1",
	}

	snap := o.Snapshot()
	if snap.Remaining != 7 || snap.Traded != 3 {
		t.Fatalf("unexpected snapshot volumes: remaining=%d traded=%d", snap.Remaining, snap.Traded)
	}

	// later mutation must not leak into the snapshot
	o.Traded = 10
	o.Status = StatusFilled
	if snap.Remaining != 7 || snap.Status != StatusActive {
		t.Fatal("snapshot changed after order mutation")
	}
}

func TestSequencerMonotonic(t *testing.T) {
	s := NewSequencer(0)
	prev := int64(0)
	for i := 0; i < 1000; i++ {
		id := s.Next()
		if id <= prev {
			t.Fatalf("sequence not monotonic: %d after %d", id, prev)
		}
		prev = id
	}
	if s.Current() != prev {
		t.Fatalf("expected current %d, got %d", prev, s.Current())
	}
}
