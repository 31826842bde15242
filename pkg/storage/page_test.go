package storage

import (
	"bytes"
	"math/rand"
	"testing"
)

func randBytes(t *testing.T, n int) []byte {
	t.Helper()
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return b
}

// TestPageInsertReadRoundTrip inserts three random 100-byte values into a
// new page, round-trips it through ToBytes/PageFromBytes, and checks the
// deserialized page's own ToBytes equals the original's.
func TestPageInsertReadRoundTrip(t *testing.T) {
	p := NewPage(0)
	values := [][]byte{randBytes(t, 100), randBytes(t, 100), randBytes(t, 100)}
	var slots []SlotID
	for _, v := range values {
		slot, ok := p.AddValue(v)
		if !ok {
			t.Fatalf("AddValue failed for a 100-byte value on a fresh page")
		}
		slots = append(slots, slot)
	}

	serialized := p.ToBytes()
	reloaded, err := PageFromBytes(serialized)
	if err != nil {
		t.Fatalf("PageFromBytes: %v", err)
	}

	if !bytes.Equal(reloaded.ToBytes(), serialized) {
		t.Fatal("round-tripped page does not serialize back to the same bytes")
	}
	for i, slot := range slots {
		got, ok := reloaded.GetValue(slot)
		if !ok {
			t.Fatalf("slot %d missing after round-trip", slot)
		}
		if !bytes.Equal(got, values[i]) {
			t.Fatalf("slot %d value mismatch after round-trip", slot)
		}
	}
}

// TestPageSlotReuseAfterDelete checks that deleting a slot frees its space
// and the freed slot id is reused by a subsequent insert.
func TestPageSlotReuseAfterDelete(t *testing.T) {
	p := NewPage(0)
	a, ok := p.AddValue([]byte("aaaa"))
	if !ok {
		t.Fatal("AddValue a failed")
	}
	b, ok := p.AddValue([]byte("bbbb"))
	if !ok {
		t.Fatal("AddValue b failed")
	}

	freeBefore := p.GetFreeSpace()
	if !p.DeleteValue(a) {
		t.Fatal("DeleteValue a failed")
	}
	if _, ok := p.GetValue(a); ok {
		t.Fatal("deleted slot still readable")
	}
	if p.GetFreeSpace() != freeBefore+len("aaaa") {
		t.Fatalf("free space after delete = %d, want %d", p.GetFreeSpace(), freeBefore+len("aaaa"))
	}

	c, ok := p.AddValue([]byte("cc"))
	if !ok {
		t.Fatal("AddValue c (reuse) failed")
	}
	if c != a {
		t.Fatalf("expected reused slot id %d, got %d", a, c)
	}

	got, ok := p.GetValue(b)
	if !ok || !bytes.Equal(got, []byte("bbbb")) {
		t.Fatalf("slot b corrupted by delete/reinsert: %v, ok=%v", got, ok)
	}
	got, ok = p.GetValue(c)
	if !ok || !bytes.Equal(got, []byte("cc")) {
		t.Fatalf("reused slot value wrong: %v, ok=%v", got, ok)
	}
}

func TestPageInvariantFreeSpaceAccounting(t *testing.T) {
	p := NewPage(7)
	for i := 0; i < 5; i++ {
		if _, ok := p.AddValue([]byte{byte(i), byte(i), byte(i)}); !ok {
			t.Fatalf("insert %d failed unexpectedly", i)
		}
	}
	if got := p.GetFreeSpace() + p.GetHeaderSize() + int(p.usedBodyBytes); got != PageSize {
		t.Fatalf("free_space + header_size + used_body_bytes = %d, want %d", got, PageSize)
	}
}

func TestPageAddValueRejectsEmpty(t *testing.T) {
	p := NewPage(0)
	if _, ok := p.AddValue(nil); ok {
		t.Fatal("expected AddValue(nil) to fail")
	}
	if _, ok := p.AddValue([]byte{}); ok {
		t.Fatal("expected AddValue of empty slice to fail")
	}
}

func TestPageAddValueRejectsOverflow(t *testing.T) {
	p := NewPage(0)
	big := make([]byte, PageSize)
	if _, ok := p.AddValue(big); ok {
		t.Fatal("expected oversized value to be rejected")
	}
}

func TestPageFullReturnsNone(t *testing.T) {
	p := NewPage(0)
	inserted := 0
	for {
		if _, ok := p.AddValue([]byte{1, 2, 3, 4, 5, 6, 7, 8}); !ok {
			break
		}
		inserted++
		if inserted > PageSize {
			t.Fatal("page accepted more inserts than physically possible")
		}
	}
	if inserted == 0 {
		t.Fatal("expected at least one insert to succeed before the page filled")
	}
}

func TestPageIteratorAscendingSkipsTombstones(t *testing.T) {
	p := NewPage(0)
	p.AddValue([]byte("a"))
	s1, _ := p.AddValue([]byte("b"))
	p.AddValue([]byte("c"))
	p.DeleteValue(s1)

	it := p.Iterator()
	var got []string
	for {
		data, _, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, string(data))
	}
	want := []string{"a", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
