// Package badger is the embedded key-value backend of the analysis store.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/dyike/pricemove/internal/models"
)

// catalogEntry is the badgerhold record of one catalog ticker.
type catalogEntry struct {
	Symbol  string
	AddedAt time.Time
}

type Store struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	now    func() time.Time
}

func Open(dir string, logger arbor.ILogger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("badger dir is required")
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = dir
	options.ValueDir = dir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	logger.Debug().Str("path", dir).Msg("badger database initialized")

	return &Store{store: store, logger: logger, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Close()
}

// SetClock replaces the clock used to stamp saves.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

func analysisKey(ticker string) string { return "analysis:" + ticker }
func tickerKey(ticker string) string   { return "ticker:" + ticker }

func (s *Store) SaveAnalysis(ctx context.Context, rec *models.AnalysisRecord) error {
	if strings.TrimSpace(rec.Ticker) == "" {
		return fmt.Errorf("analysis ticker is required")
	}
	saved := *rec
	saved.UpdatedAt = s.now().UTC()
	if err := s.store.Upsert(analysisKey(rec.Ticker), &saved); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	rec.UpdatedAt = saved.UpdatedAt
	return nil
}

func (s *Store) LoadAnalysis(ctx context.Context, ticker string) (*models.AnalysisRecord, error) {
	var rec models.AnalysisRecord
	if err := s.store.Get(analysisKey(ticker), &rec); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}
	return &rec, nil
}

func (s *Store) HasTicker(ctx context.Context, ticker string) (bool, error) {
	var entry catalogEntry
	if err := s.store.Get(tickerKey(ticker), &entry); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to lookup ticker: %w", err)
	}
	return true, nil
}

func (s *Store) AddTickers(ctx context.Context, tickers ...string) error {
	for _, t := range tickers {
		if strings.TrimSpace(t) == "" {
			continue
		}
		ok, err := s.HasTicker(ctx, t)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := s.store.Insert(tickerKey(t), &catalogEntry{Symbol: t, AddedAt: s.now().UTC()}); err != nil {
			return fmt.Errorf("failed to add ticker %s: %w", t, err)
		}
	}
	return nil
}

func (s *Store) ListTickers(ctx context.Context) ([]string, error) {
	var entries []catalogEntry
	if err := s.store.Find(&entries, nil); err != nil {
		return nil, fmt.Errorf("failed to list tickers: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Symbol)
	}
	sort.Strings(out)
	return out, nil
}
