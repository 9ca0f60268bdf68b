package cache

import (
	"testing"
	"time"
)

func TestSetGet(t *testing.T) {
	c := New[string]()
	c.Set("k", "v", time.Minute)

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get = %q, %v; want v, true", got, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss for unknown key")
	}
}

func TestExpiry(t *testing.T) {
	c := New[int]()
	c.Set("k", 42, 10*time.Millisecond)

	time.Sleep(25 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c := New[int]()
	c.Set("summary:org-1", 1, time.Minute)
	c.Set("summary:org-2", 2, time.Minute)
	c.Set("other:org-1", 3, time.Minute)

	c.Invalidate("summary:")

	if _, ok := c.Get("summary:org-1"); ok {
		t.Fatalf("summary:org-1 should be invalidated")
	}
	if _, ok := c.Get("summary:org-2"); ok {
		t.Fatalf("summary:org-2 should be invalidated")
	}
	if _, ok := c.Get("other:org-1"); !ok {
		t.Fatalf("other:org-1 should survive")
	}
}

func TestDelete(t *testing.T) {
	c := New[string]()
	c.Set("k", "v", time.Minute)
	c.Delete("k")

	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected deleted key to miss")
	}
}
