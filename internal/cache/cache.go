// Package cache provides the injectable key/value cache used for price
// lookups and computed portfolio statistics. Services must behave the same
// with Nop as with Memory, only slower.
package cache

import (
	"strings"
	"sync"
	"time"
)

// Cache is a TTL key/value store.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	DeletePrefix(prefix string)
}

// Key builders shared by the services.
func PriceKey(ticker string, date time.Time) string {
	return "price:" + ticker + ":" + date.Format("2006-01-02")
}

func QuoteKey(ticker string) string { return "quote:" + ticker }

func DividendHistoryKey(ticker string) string { return "divhist:" + ticker }

func SummaryKey(portfolioID string) string { return "summary:" + portfolioID }

type entry struct {
	value     any
	expiresAt time.Time
}

// Memory is an in-process Cache guarded by a RWMutex.
// A zero or negative ttl stores the value without expiry.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(key string) (any, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		m.Delete(key)
		return nil, false
	}
	return e.value, true
}

func (m *Memory) Set(key string, value any, ttl time.Duration) {
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *Memory) DeletePrefix(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			delete(m.entries, k)
		}
	}
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(string) (any, bool)         { return nil, false }
func (Nop) Set(string, any, time.Duration) {}
func (Nop) Delete(string)                  {}
func (Nop) DeletePrefix(string)            {}

var (
	_ Cache = (*Memory)(nil)
	_ Cache = Nop{}
)
