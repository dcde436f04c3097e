package cache

import (
	"sync"
	"testing"
)

func TestGetOrCreate(t *testing.T) {
	c := New[string, int](4)
	calls := 0
	create := func() int { calls++; return 42 }

	if got := c.GetOrCreate("a", create); got != 42 {
		t.Errorf("GetOrCreate = %d, want 42", got)
	}
	if got := c.GetOrCreate("a", create); got != 42 {
		t.Errorf("GetOrCreate = %d, want 42", got)
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}
	if v, ok := c.Get("a"); !ok || v != 42 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("Get(b) found a missing key")
	}
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New[int, int](3)
	for i := range 3 {
		c.GetOrCreate(i, func() int { return i * 10 })
	}
	// Touch 0 so that 1 becomes the oldest.
	c.Get(0)
	c.GetOrCreate(3, func() int { return 30 })

	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	if _, ok := c.Get(1); ok {
		t.Error("least recently used entry 1 was kept")
	}
	for _, k := range []int{0, 2, 3} {
		if v, ok := c.Get(k); !ok || v != k*10 {
			t.Errorf("Get(%d) = %d, %v", k, v, ok)
		}
	}
}

func TestCapacityOne(t *testing.T) {
	c := New[int, string](0)
	c.GetOrCreate(1, func() string { return "one" })
	c.GetOrCreate(2, func() string { return "two" })
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if v, ok := c.Get(2); !ok || v != "two" {
		t.Errorf("Get(2) = %q, %v", v, ok)
	}
}

func TestConcurrentGetOrCreate(t *testing.T) {
	c := New[int, int](8)
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				k := (g + i) % 16
				if v := c.GetOrCreate(k, func() int { return k * k }); v != k*k {
					t.Errorf("GetOrCreate(%d) = %d", k, v)
				}
			}
		}()
	}
	wg.Wait()
	if c.Len() > 8 {
		t.Errorf("Len = %d, want at most 8", c.Len())
	}
}
