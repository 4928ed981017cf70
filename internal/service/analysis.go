// Package service exposes the operations callers use to request and track
// price-move analyses.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/dyike/pricemove/internal/cache"
	"github.com/dyike/pricemove/internal/dataflows"
	"github.com/dyike/pricemove/internal/models"
	"github.com/dyike/pricemove/internal/storage"
)

const (
	StatusCached  = "cached"
	StatusStarted = "started"
)

// StartResult answers StartAnalysis. Record is set for cached results and
// JobID for started ones.
type StartResult struct {
	Status string                 `json:"status"`
	Ticker string                 `json:"ticker"`
	JobID  string                 `json:"workflow_id,omitempty"`
	Record *models.AnalysisRecord `json:"analysis,omitempty"`
}

type Gate interface {
	Check(ctx context.Context, ticker string) (cache.Decision, *models.AnalysisRecord, error)
}

type Launcher interface {
	Start(ctx context.Context, ticker string) (string, error)
}

type Jobs interface {
	Get(id string) (models.WorkflowJob, error)
	Wait(ctx context.Context, id string) (models.WorkflowJob, error)
	Cancel(id string) error
}

type AnalysisService struct {
	catalog  storage.TickerCatalog
	gate     Gate
	launcher Launcher
	jobs     Jobs
	logger   arbor.ILogger
}

func NewAnalysisService(catalog storage.TickerCatalog, gate Gate, launcher Launcher, jobs Jobs, logger arbor.ILogger) *AnalysisService {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &AnalysisService{
		catalog:  catalog,
		gate:     gate,
		launcher: launcher,
		jobs:     jobs,
		logger:   logger,
	}
}

func normalizeTicker(ticker string) (string, error) {
	if err := dataflows.ValidateSymbol(ticker); err != nil {
		return "", err
	}
	return dataflows.NormalizeSymbol(ticker), nil
}

// StartAnalysis returns a fresh cached analysis when one exists, otherwise
// starts (or joins) a background run. Unknown tickers are rejected before
// anything else is consulted.
func (s *AnalysisService) StartAnalysis(ctx context.Context, ticker string, force bool) (*StartResult, error) {
	ticker, err := normalizeTicker(ticker)
	if err != nil {
		return nil, err
	}

	known, err := s.catalog.HasTicker(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("lookup ticker %s: %w", ticker, err)
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", models.ErrTickerNotFound, ticker)
	}

	if !force {
		decision, rec, err := s.gate.Check(ctx, ticker)
		if err != nil {
			return nil, err
		}
		if decision == cache.Hit {
			s.logger.Info().Str("ticker", ticker).Msg("serving cached analysis")
			return &StartResult{Status: StatusCached, Ticker: ticker, Record: rec}, nil
		}
	}

	id, err := s.launcher.Start(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("start analysis for %s: %w", ticker, err)
	}
	s.logger.Info().Str("ticker", ticker).Str("job_id", id).Bool("force", force).Msg("analysis started")
	return &StartResult{Status: StatusStarted, Ticker: ticker, JobID: id}, nil
}

func (s *AnalysisService) GetJobStatus(id string) (*models.WorkflowJob, error) {
	job, err := s.jobs.Get(id)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// WaitJob blocks until the job reaches a terminal status or ctx is done.
func (s *AnalysisService) WaitJob(ctx context.Context, id string) (*models.WorkflowJob, error) {
	job, err := s.jobs.Wait(ctx, id)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *AnalysisService) CancelJob(id string) error {
	if err := s.jobs.Cancel(id); err != nil {
		return err
	}
	s.logger.Info().Str("job_id", id).Msg("analysis cancelled")
	return nil
}

// GetCachedOrNull returns the stored analysis only while it is fresh. An
// unknown ticker is an error, not an empty result.
func (s *AnalysisService) GetCachedOrNull(ctx context.Context, ticker string) (*models.AnalysisRecord, error) {
	ticker, err := normalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	known, err := s.catalog.HasTicker(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("lookup ticker %s: %w", ticker, err)
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", models.ErrTickerNotFound, ticker)
	}
	decision, rec, err := s.gate.Check(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if decision != cache.Hit {
		return nil, nil
	}
	return rec, nil
}

// AddTickers validates and normalizes every symbol before adding any.
func (s *AnalysisService) AddTickers(ctx context.Context, tickers ...string) ([]string, error) {
	var errs []error
	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		sym, err := normalizeTicker(t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		symbols = append(symbols, sym)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := s.catalog.AddTickers(ctx, symbols...); err != nil {
		return nil, fmt.Errorf("add tickers: %w", err)
	}
	return symbols, nil
}

func (s *AnalysisService) ListTickers(ctx context.Context) ([]string, error) {
	return s.catalog.ListTickers(ctx)
}
