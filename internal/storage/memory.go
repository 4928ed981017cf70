package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dyike/pricemove/internal/models"
)

// MemoryStore is an in-process Store, used for dry runs and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	analyses map[string]models.AnalysisRecord
	tickers  map[string]struct{}
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		analyses: make(map[string]models.AnalysisRecord),
		tickers:  make(map[string]struct{}),
		now:      time.Now,
	}
}

// SetClock replaces the clock used to stamp saves.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) LoadAnalysis(ctx context.Context, ticker string) (*models.AnalysisRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.analyses[ticker]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) SaveAnalysis(ctx context.Context, rec *models.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.UpdatedAt = m.now().UTC()
	m.analyses[rec.Ticker] = *rec
	return nil
}

// PutAnalysis stores rec as is, keeping its UpdatedAt.
func (m *MemoryStore) PutAnalysis(rec models.AnalysisRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses[rec.Ticker] = rec
}

func (m *MemoryStore) HasTicker(ctx context.Context, ticker string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tickers[ticker]
	return ok, nil
}

func (m *MemoryStore) AddTickers(ctx context.Context, tickers ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tickers {
		m.tickers[t] = struct{}{}
	}
	return nil
}

func (m *MemoryStore) ListTickers(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.tickers))
	for t := range m.tickers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
