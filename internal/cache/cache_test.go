package cache

import (
	"testing"
	"time"
)

func TestGetSet(t *testing.T) {
	c := New(10, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("empty cache should miss")
	}

	c.Set("report", 42)
	v, ok := c.Get("report")
	if !ok || v != 42 {
		t.Errorf("got (%v, %v), want (42, true)", v, ok)
	}
}

func TestExpiry(t *testing.T) {
	c := New(10, time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Set("report", "v1")
	now = now.Add(59 * time.Second)
	if _, ok := c.Get("report"); !ok {
		t.Error("entry expired early")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("report"); ok {
		t.Error("entry should have expired")
	}
}

func TestEvictsOldestInsertion(t *testing.T) {
	c := New(2, time.Minute)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	now = now.Add(time.Second)
	c.Set("b", 2)
	now = now.Add(time.Second)
	c.Set("c", 3)

	if _, ok := c.Get("a"); ok {
		t.Error("oldest insertion should have been evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("b should survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("c should survive")
	}
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	c := New(2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 3)

	if v, ok := c.Get("a"); !ok || v != 3 {
		t.Errorf("got (%v, %v), want (3, true)", v, ok)
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("overwrite must not evict")
	}
}

func TestInvalidate(t *testing.T) {
	c := New(10, time.Minute)
	c.Set("report", 1)
	c.Invalidate("report")
	if _, ok := c.Get("report"); ok {
		t.Error("invalidated key should miss")
	}
}
