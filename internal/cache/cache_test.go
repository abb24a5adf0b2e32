package cache

import (
	"errors"
	"testing"
)

func TestGetOrLoad(t *testing.T) {
	c := New[string, int]()
	calls := 0
	load := func() (int, error) {
		calls++
		return 42, nil
	}
	for i := 0; i < 3; i++ {
		v, err := c.GetOrLoad("k", load)
		if err != nil || v != 42 {
			t.Fatalf("GetOrLoad = %d, %v", v, err)
		}
	}
	if calls != 1 {
		t.Errorf("loader called %d times, want 1", calls)
	}
	hits, misses := c.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("stats = %d hits, %d misses", hits, misses)
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	c := New[string, int]()
	boom := errors.New("boom")
	if _, err := c.GetOrLoad("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if c.Len() != 0 {
		t.Error("failed load was cached")
	}
}

func TestClear(t *testing.T) {
	c := New[int, string]()
	c.Set(1, "a")
	c.Set(2, "b")
	c.Clear()
	if _, ok := c.Get(1); ok || c.Len() != 0 {
		t.Fatal("Clear left entries behind")
	}
}
