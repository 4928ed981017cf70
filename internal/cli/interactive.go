package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2/terminal"
)

// runInteractiveMode keeps one runtime open so workflows started without
// waiting can be checked later in the same session.
func runInteractiveMode(ctx context.Context, s *session) error {
	fmt.Fprintln(s.out, titleStyle.Render("pricemove: why did this stock move today?"))

	svc, err := s.service(ctx)
	if err != nil {
		return err
	}

	var recent []string
	for {
		action, err := PromptForAction()
		if errors.Is(err, terminal.InterruptErr) {
			return nil
		}
		if err != nil {
			return err
		}

		switch action {
		case actionQuit:
			return nil

		case actionAnalyze, actionForce:
			ticker, err := PromptForTicker()
			if err != nil {
				displayError(s.out, err)
				continue
			}
			wait, err := ConfirmWait()
			if err != nil {
				displayError(s.out, err)
				continue
			}
			s.setShowProgress(wait)
			outcomes := runAnalyses(ctx, svc, []string{ticker}, analyzeOptions{
				force:       action == actionForce,
				wait:        wait,
				concurrency: 1,
			})
			s.setShowProgress(false)
			for _, o := range outcomes {
				if o.result != nil && o.result.JobID != "" {
					recent = append([]string{o.result.JobID}, recent...)
				}
			}
			if err := printOutcomes(s.out, outcomes); err != nil {
				displayError(s.out, err)
			}

		case actionStatus:
			id, err := PromptForJobID(recent)
			if err != nil {
				displayError(s.out, err)
				continue
			}
			job, err := svc.GetJobStatus(strings.TrimSpace(id))
			if err != nil {
				displayError(s.out, err)
				continue
			}
			fmt.Fprint(s.out, renderJob(job))
			if job.Result != nil {
				fmt.Fprintln(s.out, renderRecord(job.Result, false))
			}

		case actionCached:
			ticker, err := PromptForTicker()
			if err != nil {
				displayError(s.out, err)
				continue
			}
			showCached(ctx, s, ticker)

		case actionCatalog:
			tickers, err := svc.ListTickers(ctx)
			if err != nil {
				displayError(s.out, err)
				continue
			}
			fmt.Fprintln(s.out, strings.Join(tickers, " "))
		}
	}
}
