package ui

import (
	"testing"
)

func TestComputeKey(t *testing.T) {
	if ComputeKey("dark", 80, "text") != ComputeKey("dark", 80, "text") {
		t.Error("expected same key for same inputs")
	}
	if ComputeKey("dark", 80, "text") == ComputeKey("dark", 81, "text") {
		t.Error("expected width to change the key")
	}
	if ComputeKey("ab", "c") == ComputeKey("a", "bc") {
		t.Error("expected string boundaries to change the key")
	}
	if ComputeKey(true) == ComputeKey(false) {
		t.Error("expected bools to change the key")
	}
}

func TestRenderCache_GetOrCompute(t *testing.T) {
	rc := NewRenderCache(10)
	calls := 0
	compute := func() string {
		calls++
		return "rendered"
	}

	key := ComputeKey("x")
	if got := rc.GetOrCompute(key, compute); got != "rendered" {
		t.Fatalf("got %q", got)
	}
	rc.GetOrCompute(key, compute)

	if calls != 1 {
		t.Errorf("expected compute once, got %d", calls)
	}
}

func TestRenderCache_ResetsWhenFull(t *testing.T) {
	rc := NewRenderCache(2)
	rc.Set(1, "a")
	rc.Set(2, "b")
	rc.Set(2, "b2")
	if rc.Len() != 2 {
		t.Fatalf("overwriting an existing key must not reset, len=%d", rc.Len())
	}

	rc.Set(3, "c")
	if rc.Len() != 1 {
		t.Errorf("expected reset to a single entry, got %d", rc.Len())
	}
	if _, ok := rc.Get(1); ok {
		t.Error("expected old entries to be evicted")
	}

	rc.Clear()
	if rc.Len() != 0 {
		t.Error("expected empty cache after Clear")
	}
}
