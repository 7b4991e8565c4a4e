package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"etl-verify/internal/connection"
	"etl-verify/internal/orchestrator"
	"etl-verify/internal/store"
	"etl-verify/internal/testcase"
)

var (
	concurrency int
	noProgress  bool
	noWriteBack bool
)

var runCmd = &cobra.Command{
	Use:   "run <suite-file>",
	Short: "Run a test suite through the execution agent",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		suite, err := testcase.LoadSuite(args[0])
		if err != nil {
			return err
		}

		history, err := store.New(cfg.History.Path)
		if err != nil {
			return err
		}
		defer history.Close()

		summary, err := runSuite(ctx, suite, history, !noProgress, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if !noWriteBack {
			if err := suite.Save(args[0]); err != nil {
				return err
			}
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d test cases failed", summary.Failed, summary.Total)
		}
		return nil
	},
}

// runSuite runs every case of suite against the configured connections and
// prints the report. Results are recorded in history.
func runSuite(ctx context.Context, suite *testcase.Suite, history orchestrator.Recorder, progress bool, out io.Writer) (*orchestrator.BatchSummary, error) {
	agent, err := newAgentClient(cfg)
	if err != nil {
		return nil, err
	}
	target, err := runTarget(cfg)
	if err != nil {
		return nil, err
	}

	runner := orchestrator.NewRunner(agent, connection.NewRegistry(cfg.Connections), suite, runnerOptions(cfg)).
		WithRecorder(history)

	opts := orchestrator.BatchOptions{
		Concurrency: cfg.Execution.Concurrency,
		Pacing:      cfg.Execution.Pacing,
	}
	if concurrency > 0 {
		opts.Concurrency = concurrency
	}

	fmt.Fprintf(out, "🚀 Running %d test cases (%s -> %s via agent %s)\n",
		suite.Len(), target.SourceConnectionID, target.TargetConnectionID, target.AgentID)

	if progress && suite.Len() > 0 {
		uiprogress.Start()
		bar := uiprogress.AddBar(suite.Len()).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return "Running: "
		})
		opts.Progress = func(done, total int, rep *orchestrator.CaseReport) {
			bar.Incr()
		}
	}

	summary := runner.RunBatch(ctx, target, opts)

	if opts.Progress != nil {
		uiprogress.Stop()
	}
	printSummary(out, summary)
	return summary, nil
}

func printSummary(out io.Writer, s *orchestrator.BatchSummary) {
	fmt.Fprintln(out, "\n📊 Summary Report:")
	for i, rep := range s.Results {
		icon, msg := "!", rep.Reason
		if rep.Result != nil {
			msg = rep.Result.Message
			if rep.Result.Status == testcase.StatusPass {
				icon = "✓"
			} else {
				icon = "✗"
			}
		}
		fmt.Fprintf(out, "[%s] [%02d/%02d] %-40s : %s\n", icon, i+1, s.Total, rep.Name, rep.Outcome)
		if msg != "" {
			fmt.Fprintf(out, "    └ %s\n", msg)
		}
	}
	fmt.Fprintln(out, "--------------------------------------------------")
	fmt.Fprintf(out, "Completed: %d/%d  Passed: %d  Failed: %d  Skipped: %d  (%s)\n",
		s.Completed, s.Total, s.Passed, s.Failed, s.Skipped, s.Duration.Round(time.Millisecond))
}

func init() {
	RootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Cases to run at once (overrides execution.concurrency)")
	runCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	runCmd.Flags().BoolVar(&noWriteBack, "no-write-back", false, "Do not store last run results back into the suite file")
}
