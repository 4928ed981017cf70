// Package storage persists analysis results and the ticker catalog.
package storage

import (
	"context"

	"github.com/dyike/pricemove/internal/models"
)

// AnalysisStore keeps one AnalysisRecord per ticker.
type AnalysisStore interface {
	// LoadAnalysis returns nil and no error when the ticker has no record.
	LoadAnalysis(ctx context.Context, ticker string) (*models.AnalysisRecord, error)
	// SaveAnalysis upserts rec and refreshes its UpdatedAt.
	SaveAnalysis(ctx context.Context, rec *models.AnalysisRecord) error
}

// TickerCatalog is the reference list of symbols the service accepts.
type TickerCatalog interface {
	HasTicker(ctx context.Context, ticker string) (bool, error)
	AddTickers(ctx context.Context, tickers ...string) error
	ListTickers(ctx context.Context) ([]string, error)
}

type Store interface {
	AnalysisStore
	TickerCatalog
	Close() error
}
