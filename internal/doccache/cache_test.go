package doccache

import (
	"errors"
	"testing"
	"time"

	"voxelcraft.ai/schematic/internal/schematic"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func header(w int) schematic.Header {
	return schematic.Header{Version: 3, Width: w, Height: 1, Length: 1}
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(Config{Capacity: 2})
	st := Stamp{Size: 1}
	c.Put("a", st, header(1))
	c.Put("b", st, header(2))
	if _, ok := c.Get("a", st); !ok {
		t.Fatalf("a should be cached")
	}
	c.Put("c", st, header(3))
	if _, ok := c.Get("b", st); ok {
		t.Fatalf("b should have been evicted")
	}
	if h, ok := c.Get("a", st); !ok || h.Width != 1 {
		t.Fatalf("a lost: %+v %v", h, ok)
	}
	if c.Len() != 2 || c.Stats().Evictions != 1 {
		t.Fatalf("len=%d stats=%+v", c.Len(), c.Stats())
	}
}

func TestTTLExpiry(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	c := New(Config{Capacity: 4, TTL: time.Minute, Now: clk.Now})
	st := Stamp{Size: 1}
	c.Put("a", st, header(1))
	clk.now = clk.now.Add(59 * time.Second)
	if _, ok := c.Get("a", st); !ok {
		t.Fatalf("entry expired early")
	}
	clk.now = clk.now.Add(time.Second)
	if _, ok := c.Get("a", st); ok {
		t.Fatalf("entry should expire at TTL")
	}
	if c.Len() != 0 {
		t.Fatalf("expired entry not dropped")
	}
}

func TestStampMismatchMisses(t *testing.T) {
	c := New(Config{Capacity: 4})
	c.Put("a", Stamp{Size: 10, ModTime: time.Unix(5, 0)}, header(1))
	if _, ok := c.Get("a", Stamp{Size: 11, ModTime: time.Unix(5, 0)}); ok {
		t.Fatalf("changed file served from cache")
	}
}

func TestZeroCapacityDisables(t *testing.T) {
	c := New(Config{})
	c.Put("a", Stamp{}, header(1))
	if _, ok := c.Get("a", Stamp{}); ok || c.Len() != 0 {
		t.Fatalf("disabled cache stored an entry")
	}
}

func TestHeaderLoadsOnceAndPropagatesErrors(t *testing.T) {
	c := New(Config{Capacity: 4})
	calls := 0
	load := func(string) (schematic.Header, error) {
		calls++
		return header(7), nil
	}
	// Missing files are not cached; the loader decides.
	for i := 0; i < 2; i++ {
		if _, err := c.Header("/does/not/exist", load); err != nil {
			t.Fatal(err)
		}
	}
	if calls != 2 {
		t.Fatalf("calls=%d want 2", calls)
	}

	boom := errors.New("boom")
	if _, err := c.Header("/does/not/exist", func(string) (schematic.Header, error) { return schematic.Header{}, boom }); !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
}
