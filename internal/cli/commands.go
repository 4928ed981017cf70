package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dyike/pricemove/internal/service"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	return newRootCmd(newSession(os.Stdout))
}

func newRootCmd(s *session) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pricemove",
		Short: "pricemove - why did this stock move today?",
		Long: `pricemove collects today's news for a ticker, its market indices and its peers,
scores how relevant each source is to the price move, and writes a short explanation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractiveMode(cmd.Context(), s)
		},
	}
	rootCmd.SetOut(s.out)

	rootCmd.PersistentFlags().StringVar(&s.flags.configPath, "config", "", "Configuration file path (config.toml)")
	rootCmd.PersistentFlags().StringVar(&s.flags.logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().BoolVarP(&s.flags.verbose, "verbose", "v", false, "Also log to the console")
	rootCmd.PersistentFlags().BoolVar(&s.flags.einoDebug, "eino-debug", false, "Start the eino visual debug server")

	rootCmd.AddCommand(newAnalyzeCmd(s))
	rootCmd.AddCommand(newStatusCmd(s))
	rootCmd.AddCommand(newCachedCmd(s))
	rootCmd.AddCommand(newCatalogCmd(s))
	rootCmd.AddCommand(newConfigCmd(s))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, os.Interrupt)
}

func newAnalyzeCmd(s *session) *cobra.Command {
	opts := analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [TICKER...]",
		Short: "Explain today's price move for one or more tickers",
		Long: `Serve a fresh cached analysis when one exists, otherwise run the workflow.
Prompts for a ticker when none is given.
Example: pricemove analyze AAPL TSLA --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			tickers := args
			if len(tickers) == 0 {
				ticker, err := PromptForTicker()
				if err != nil {
					return err
				}
				tickers = []string{ticker}
			}

			svc, err := s.service(ctx)
			if err != nil {
				return err
			}
			if !opts.wait {
				displayInfo(s.out, "Not waiting: workflows stop when this process exits.")
			}
			s.setShowProgress(opts.wait)
			outcomes := runAnalyses(ctx, svc, tickers, opts)
			s.setShowProgress(false)
			if opts.reportDir != "" {
				paths, err := writeReports(opts.reportDir, outcomes)
				for _, p := range paths {
					displayInfo(s.out, "Report written to "+p)
				}
				if err != nil {
					return err
				}
			}
			return printOutcomes(s.out, outcomes)
		},
	}

	cmd.Flags().BoolVar(&opts.wait, "wait", true, "Wait for started workflows to finish")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Ignore a fresh cached analysis")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 2, "Workflows to run at once")
	cmd.Flags().StringVar(&opts.reportDir, "report-dir", "", "Also write each analysis as markdown into this directory")
	return cmd
}

func newStatusCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status WORKFLOW_ID",
		Short: "Show a workflow started in this process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.service(cmd.Context())
			if err != nil {
				return err
			}
			job, err := svc.GetJobStatus(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(s.out, renderJob(job))
			return nil
		},
	}
}

func newCachedCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "cached TICKER",
		Short: "Show the stored analysis if it is still fresh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showCached(cmd.Context(), s, args[0])
		},
	}
}

func showCached(ctx context.Context, s *session, ticker string) error {
	svc, err := s.service(ctx)
	if err != nil {
		return err
	}
	rec, err := svc.GetCachedOrNull(ctx, ticker)
	if err != nil {
		displayError(s.out, err)
		return err
	}
	if rec == nil {
		displayInfo(s.out, fmt.Sprintf("No fresh analysis for %s", strings.ToUpper(strings.TrimSpace(ticker))))
		return nil
	}
	fmt.Fprintln(s.out, renderRecord(rec, true))
	return nil
}

func newCatalogCmd(s *session) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the tickers that may be analyzed",
	}

	catalogCmd.AddCommand(&cobra.Command{
		Use:   "add TICKER...",
		Short: "Add tickers to the catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.service(cmd.Context())
			if err != nil {
				return err
			}
			added, err := svc.AddTickers(cmd.Context(), args...)
			if err != nil {
				return err
			}
			displaySuccess(s.out, "Added "+strings.Join(added, ", "))
			return nil
		},
	})

	catalogCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List catalog tickers",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := s.service(cmd.Context())
			if err != nil {
				return err
			}
			tickers, err := svc.ListTickers(cmd.Context())
			if err != nil {
				return err
			}
			for _, t := range tickers {
				fmt.Fprintln(s.out, t)
			}
			return nil
		},
	})

	return catalogCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			info := service.GetSystemInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "pricemove %s (%s, %s)\n", info["version"], info["go"], info["os"])
		},
	}
}
