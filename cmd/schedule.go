package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"etl-verify/internal/store"
	"etl-verify/internal/testcase"
)

var cronExpr string

var scheduleCmd = &cobra.Command{
	Use:   "schedule <suite-file>",
	Short: "Run a test suite on a cron schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		path := args[0]
		if _, err := testcase.LoadSuite(path); err != nil {
			return err
		}
		history, err := store.New(cfg.History.Path)
		if err != nil {
			return err
		}
		defer history.Close()

		log := zap.S().Named("schedule")
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{log})))
		_, err = c.AddFunc(cronExpr, func() {
			// reloaded every time so edits to the suite file apply to the next run
			suite, err := testcase.LoadSuite(path)
			if err != nil {
				log.Errorf("cron: %v", err)
				return
			}
			log.Infof("cron: running %d test cases from %s", suite.Len(), path)
			summary, err := runSuite(ctx, suite, history, false, cmd.OutOrStdout())
			if err != nil {
				log.Errorf("cron: run failed: %v", err)
				return
			}
			if err := suite.Save(path); err != nil {
				log.Errorf("cron: %v", err)
			}
			log.Infof("cron: %d passed, %d failed, %d skipped", summary.Passed, summary.Failed, summary.Skipped)
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
		}

		c.Start()
		log.Infof("cron: scheduled %s with %q", path, cronExpr)

		<-ctx.Done()
		<-c.Stop().Done()
		log.Info("cron: stopped")
		return nil
	},
}

// cronLogger routes cron's key/value logging to zap.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

func init() {
	RootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression, e.g. \"0 2 * * *\"")
	_ = scheduleCmd.MarkFlagRequired("cron")
}
