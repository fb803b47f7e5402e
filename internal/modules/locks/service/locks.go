package service

import (
	"sync"
	"tier_bot/internal/metrics"
	"time"

	"github.com/cespare/xxhash/v2"
)

type Kind string

const (
	KindBuy  Kind = "buy"
	KindSell Kind = "sell"
)

const defaultShards = 16

type shard struct {
	mu      sync.Mutex
	entries map[string]time.Time // instrumentID -> expiry
}

// table: одно пространство имён (buy или sell), шардированное по хэшу инструмента.
type table struct {
	shards []*shard
}

func newTable(n int) *table {
	t := &table{shards: make([]*shard, n)}
	for i := range t.shards {
		t.shards[i] = &shard{entries: make(map[string]time.Time)}
	}
	return t
}

func (t *table) shardFor(instrumentID string) *shard {
	return t.shards[xxhash.Sum64String(instrumentID)%uint64(len(t.shards))]
}

// Manager: короткоживущие эксклюзивные локи на покупку и продажу.
// Мьютексы в Go не реентерабельны: каждый публичный метод берёт лок шарда
// ровно один раз и внутри него не вызывает другие публичные методы.
type Manager struct {
	now    func() time.Time
	tables map[Kind]*table
}

type Option func(*Manager)

// WithClock подменяет часы, нужно в тестах.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(shards int, opts ...Option) *Manager {
	if shards <= 0 {
		shards = defaultShards
	}
	m := &Manager{
		now: time.Now,
		tables: map[Kind]*table{
			KindBuy:  newTable(shards),
			KindSell: newTable(shards),
		},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Acquire атомарно ставит лок, если активного лока этого вида нет.
func (m *Manager) Acquire(kind Kind, instrumentID string, ttl time.Duration) bool {
	s := m.tables[kind].shardFor(instrumentID)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := m.now()
	if exp, ok := s.entries[instrumentID]; ok && now.Before(exp) {
		metrics.LockContention.WithLabelValues(string(kind)).Inc()
		return false
	}
	s.entries[instrumentID] = now.Add(ttl)
	return true
}

// Release снимает лок безусловно, повторный вызов ничего не делает.
func (m *Manager) Release(kind Kind, instrumentID string) {
	s := m.tables[kind].shardFor(instrumentID)
	s.mu.Lock()
	delete(s.entries, instrumentID)
	s.mu.Unlock()
}

func (m *Manager) IsLocked(kind Kind, instrumentID string) bool {
	return m.Remaining(kind, instrumentID) > 0
}

// Remaining: сколько ещё живёт лок; 0, если лока нет или он истёк.
func (m *Manager) Remaining(kind Kind, instrumentID string) time.Duration {
	s := m.tables[kind].shardFor(instrumentID)
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.entries[instrumentID]
	if !ok {
		return 0
	}
	left := exp.Sub(m.now())
	if left <= 0 {
		delete(s.entries, instrumentID)
		return 0
	}
	return left
}

// Active: число живых локов вида kind.
func (m *Manager) Active(kind Kind) int {
	now := m.now()
	n := 0
	for _, s := range m.tables[kind].shards {
		s.mu.Lock()
		for id, exp := range s.entries {
			if now.Before(exp) {
				n++
			} else {
				delete(s.entries, id)
			}
		}
		s.mu.Unlock()
	}
	return n
}
