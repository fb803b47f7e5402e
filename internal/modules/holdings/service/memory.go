package service

import (
	"context"
	"sort"
	"sync"
	"tier_bot/internal/models"
	"time"

	"github.com/pkg/errors"
)

// Memory хранит позиции в памяти процесса (storage=memory и тесты).
// LastSellProfit переживает только жизнь процесса.
type Memory struct {
	mu   sync.RWMutex
	data map[models.HoldingKey]*models.Holding
}

func NewMemory(seed ...models.Holding) *Memory {
	m := &Memory{data: make(map[models.HoldingKey]*models.Holding, len(seed))}
	for i := range seed {
		h := seed[i]
		m.data[h.Key()] = h.Clone()
	}
	return m
}

// Put добавляет или заменяет позицию целиком (портфельная подсистема).
func (m *Memory) Put(h models.Holding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := h.Clone()
	c.UpdatedAt = time.Now()
	m.data[h.Key()] = c
}

func (m *Memory) Get(_ context.Context, key models.HoldingKey) (*models.Holding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.data[key]
	if !ok {
		return nil, errors.Wrapf(ErrHoldingNotFound, "memory.Get %s", key)
	}
	return h.Clone(), nil
}

func (m *Memory) List(_ context.Context, portfolioID int64) ([]*models.Holding, error) {
	m.mu.RLock()
	out := make([]*models.Holding, 0, len(m.data))
	for k, h := range m.data {
		if k.PortfolioID == portfolioID {
			out = append(out, h.Clone())
		}
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].InstrumentID < out[j].InstrumentID })
	return out, nil
}

func (m *Memory) SetLastSellProfit(_ context.Context, key models.HoldingKey, profit *float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.data[key]
	if !ok {
		return errors.Wrapf(ErrHoldingNotFound, "memory.SetLastSellProfit %s", key)
	}
	if profit == nil {
		h.LastSellProfit = nil
	} else {
		v := *profit
		h.LastSellProfit = &v
	}
	h.UpdatedAt = time.Now()
	return nil
}

// MemoryJournal держит записи журнала в срезе.
type MemoryJournal struct {
	mu      sync.Mutex
	entries []models.Recommendation
}

func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Append(_ context.Context, rec models.Recommendation) error {
	j.mu.Lock()
	j.entries = append(j.entries, rec)
	j.mu.Unlock()
	return nil
}

func (j *MemoryJournal) Entries() []models.Recommendation {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]models.Recommendation, len(j.entries))
	copy(out, j.entries)
	return out
}
