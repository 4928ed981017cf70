package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/pricemove/internal/models"
	"github.com/dyike/pricemove/internal/storage"
)

type failingStore struct{}

func (failingStore) LoadAnalysis(ctx context.Context, ticker string) (*models.AnalysisRecord, error) {
	return nil, errors.New("disk gone")
}

func (failingStore) SaveAnalysis(ctx context.Context, rec *models.AnalysisRecord) error {
	return nil
}

func TestCheck(t *testing.T) {
	now := time.Date(2025, 5, 1, 15, 0, 0, 0, time.UTC)
	store := storage.NewMemoryStore()
	store.PutAnalysis(models.AnalysisRecord{Ticker: "TSLA", AnalysisText: "fresh", UpdatedAt: now.Add(-10 * time.Minute)})
	store.PutAnalysis(models.AnalysisRecord{Ticker: "EDGE", UpdatedAt: now.Add(-30 * time.Minute)})
	store.PutAnalysis(models.AnalysisRecord{Ticker: "OLD", UpdatedAt: now.Add(-31 * time.Minute)})
	store.PutAnalysis(models.AnalysisRecord{Ticker: "SKEW", UpdatedAt: now.Add(5 * time.Minute)})

	gate := NewGate(store, WithClock(func() time.Time { return now }))

	tests := []struct {
		ticker  string
		want    Decision
		wantRec bool
	}{
		{"TSLA", Hit, true},
		{"EDGE", Hit, true},
		{"OLD", Miss, true},
		{"SKEW", Miss, true},
		{"NONE", Miss, false},
	}
	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			d, rec, err := gate.Check(context.Background(), tt.ticker)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
			assert.Equal(t, tt.wantRec, rec != nil)
		})
	}
}

func TestCheck_CustomWindow(t *testing.T) {
	now := time.Date(2025, 5, 1, 15, 0, 0, 0, time.UTC)
	store := storage.NewMemoryStore()
	store.PutAnalysis(models.AnalysisRecord{Ticker: "TSLA", UpdatedAt: now.Add(-10 * time.Minute)})

	gate := NewGate(store, WithWindow(5*time.Minute), WithClock(func() time.Time { return now }))
	d, _, err := gate.Check(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.Equal(t, Miss, d)
	assert.Equal(t, 5*time.Minute, gate.Window())
}

func TestCheck_StoreError(t *testing.T) {
	d, rec, err := NewGate(failingStore{}).Check(context.Background(), "AAPL")
	assert.Error(t, err)
	assert.Equal(t, Miss, d)
	assert.Nil(t, rec)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "hit", Hit.String())
	assert.Equal(t, "miss", Miss.String())
}
