package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestSetGetRoundtrip(t *testing.T) {
	c := New[[]float64](time.Minute)

	c.Set("AAPL|1Day|100", []float64{1, 2, 3})

	got, ok := c.Get("AAPL|1Day|100")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 3 || got[2] != 3 {
		t.Fatalf("unexpected value: %v", got)
	}

	if _, ok := c.Get("MSFT|1Day|100"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestExpiredEntriesEvictOnGet(t *testing.T) {
	c := New[int](20 * time.Millisecond)

	c.Set("k", 42)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("fresh entry should hit")
	}

	time.Sleep(40 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry should miss")
	}
	if n := c.Len(); n != 0 {
		t.Fatalf("expired entry should be evicted, Len = %d", n)
	}
}

func TestZeroTTLDisablesExpiry(t *testing.T) {
	c := New[string](0)

	c.Set("k", "v")
	time.Sleep(10 * time.Millisecond)

	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry should never expire with zero ttl")
	}
}

func TestSetRefreshesExpiry(t *testing.T) {
	c := New[int](30 * time.Millisecond)

	c.Set("k", 1)
	time.Sleep(20 * time.Millisecond)
	c.Set("k", 2)
	time.Sleep(20 * time.Millisecond)

	got, ok := c.Get("k")
	if !ok {
		t.Fatal("refreshed entry should still be live")
	}
	if got != 2 {
		t.Fatalf("got %d, want 2", got)
	}
}

func TestDeleteAndLen(t *testing.T) {
	c := New[int](time.Minute)

	for i := 0; i < 100; i++ {
		c.Set(fmt.Sprintf("key-%d", i), i)
	}
	if n := c.Len(); n != 100 {
		t.Fatalf("Len = %d, want 100", n)
	}

	for i := 0; i < 100; i++ {
		got, ok := c.Get(fmt.Sprintf("key-%d", i))
		if !ok || got != i {
			t.Fatalf("key-%d: got %d ok=%v", i, got, ok)
		}
	}

	c.Delete("key-7")
	if _, ok := c.Get("key-7"); ok {
		t.Fatal("deleted key should miss")
	}
	if n := c.Len(); n != 99 {
		t.Fatalf("Len = %d, want 99", n)
	}
}
