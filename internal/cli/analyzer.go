package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dyike/pricemove/internal/models"
	"github.com/dyike/pricemove/internal/service"
)

type analyzeOptions struct {
	force       bool
	wait        bool
	concurrency int
	reportDir   string
}

// analysisOutcome is the result of one ticker in a batch.
type analysisOutcome struct {
	ticker string
	result *service.StartResult
	job    *models.WorkflowJob
	err    error
}

// runAnalyses starts every ticker and, when waiting, blocks until each job
// ends. At most opts.concurrency jobs run at once.
// record returns the analysis this outcome produced or served, if any.
func (o analysisOutcome) record() *models.AnalysisRecord {
	switch {
	case o.err != nil || o.result == nil:
		return nil
	case o.result.Record != nil:
		return o.result.Record
	case o.job != nil && o.job.Status == models.JobCompleted:
		return o.job.Result
	}
	return nil
}

func runAnalyses(ctx context.Context, svc *service.AnalysisService, tickers []string, opts analyzeOptions) []analysisOutcome {
	if opts.concurrency < 1 {
		opts.concurrency = 1
	}
	outcomes := make([]analysisOutcome, len(tickers))

	semaphore := make(chan struct{}, opts.concurrency)
	var wg sync.WaitGroup
	for i, ticker := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				outcomes[i] = analysisOutcome{ticker: ticker, err: ctx.Err()}
				return
			}
			defer func() { <-semaphore }()
			outcomes[i] = analyzeOne(ctx, svc, ticker, opts)
		}(i, ticker)
	}
	wg.Wait()
	return outcomes
}

func analyzeOne(ctx context.Context, svc *service.AnalysisService, ticker string, opts analyzeOptions) analysisOutcome {
	out := analysisOutcome{ticker: ticker}
	res, err := svc.StartAnalysis(ctx, ticker, opts.force)
	if err != nil {
		out.err = err
		return out
	}
	out.result = res
	if res.Status != service.StatusStarted || !opts.wait {
		return out
	}

	job, err := svc.WaitJob(ctx, res.JobID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			_ = svc.CancelJob(res.JobID)
		}
		out.err = err
		return out
	}
	out.job = job
	return out
}

// printOutcomes renders each outcome and returns an error when any ticker
// did not end with an analysis.
func printOutcomes(w io.Writer, outcomes []analysisOutcome) error {
	failed := 0
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			failed++
			displayError(w, fmt.Errorf("%s: %w", o.ticker, o.err))
		case o.result.Status == service.StatusCached:
			fmt.Fprintln(w, renderRecord(o.result.Record, true))
		case o.job == nil:
			displayInfo(w, fmt.Sprintf("%s: started workflow %s", o.result.Ticker, o.result.JobID))
		case o.job.Status == models.JobCompleted && o.job.Result != nil:
			fmt.Fprintln(w, renderRecord(o.job.Result, false))
		default:
			failed++
			fmt.Fprint(w, renderJob(o.job))
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d analyses did not complete", failed, len(outcomes))
	}
	return nil
}
