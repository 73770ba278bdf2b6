package openwire

import "testing"

func TestCacheTableEncodeSlotsNeverGoNegative(t *testing.T) {
	t.Parallel()

	c := newCacheTable(4)
	for i := 0; i < 10_000; i++ {
		slot := c.encodeInsert(string(rune('a' + i%26)))
		if slot < 0 {
			t.Fatalf("insertion %d: got negative slot %d, want >= 0", i, slot)
		}
	}
}

func TestCacheTableEvictionReusesFreedSlot(t *testing.T) {
	t.Parallel()

	c := newCacheTable(2)
	if got := c.encodeInsert("a"); got != 0 {
		t.Fatalf("got slot %d for first insert, want 0", got)
	}
	if got := c.encodeInsert("b"); got != 1 {
		t.Fatalf("got slot %d for second insert, want 1", got)
	}
	// "a" is now the oldest entry; inserting "c" evicts it and should
	// reuse slot 0 rather than advancing past int16's range.
	if got := c.encodeInsert("c"); got != 0 {
		t.Fatalf("got slot %d for third insert, want 0 (reused)", got)
	}
	if _, ok := c.encodeLookup("a"); ok {
		t.Fatal("expected \"a\" to have been evicted")
	}
}

func TestNewCacheTableClampsCapacityToInt16Range(t *testing.T) {
	t.Parallel()

	c := newCacheTable(1 << 20)
	if c.cap > maxCacheSlots {
		t.Fatalf("got cap %d, want <= %d", c.cap, maxCacheSlots)
	}
}
