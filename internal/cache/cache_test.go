package cache

import (
	"sync"
	"testing"
	"time"
)

func TestMemory_GetSet(t *testing.T) {
	m := NewMemory()
	m.Set("a", 1, 0)

	v, ok := m.Get("a")
	if !ok || v.(int) != 1 {
		t.Fatalf("expected 1, got %v (ok=%v)", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("expected miss")
	}
}

func TestMemory_Expiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	m.Set("k", "v", time.Minute)
	if _, ok := m.Get("k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(time.Minute)
	if _, ok := m.Get("k"); ok {
		t.Error("expected miss at expiry")
	}
	if m.Len() != 0 {
		t.Errorf("expected expired entry to be evicted, len=%d", m.Len())
	}
}

func TestMemory_DeletePrefix(t *testing.T) {
	m := NewMemory()
	m.Set(SummaryKey("p1"), 1, 0)
	m.Set(SummaryKey("p2"), 2, 0)
	m.Set(QuoteKey("VOO"), 3, 0)

	m.DeletePrefix("summary:")

	if _, ok := m.Get(SummaryKey("p1")); ok {
		t.Error("expected summary:p1 removed")
	}
	if _, ok := m.Get(QuoteKey("VOO")); !ok {
		t.Error("expected quote:VOO kept")
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Set(QuoteKey("T"), i, time.Second)
			m.Get(QuoteKey("T"))
			m.DeletePrefix("quote:")
		}(i)
	}
	wg.Wait()
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	c.Set("a", 1, 0)
	if _, ok := c.Get("a"); ok {
		t.Error("Nop must never return a value")
	}
}

func TestPriceKey(t *testing.T) {
	got := PriceKey("VOO", time.Date(2023, 3, 5, 0, 0, 0, 0, time.UTC))
	if got != "price:VOO:2023-03-05" {
		t.Errorf("unexpected key %q", got)
	}
}
