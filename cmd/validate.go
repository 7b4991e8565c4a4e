package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"etl-verify/internal/connection"
	"etl-verify/internal/mapping"
	"etl-verify/internal/validator"
)

var (
	watchMapping bool
	jsonOutput   bool
)

var validateCmd = &cobra.Command{
	Use:   "validate <mapping-file>",
	Short: "Check a mapping sheet against the live source and target schemas",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fetcher, err := newFetcher(cfg, connection.NewRegistry(cfg.Connections))
		if err != nil {
			return err
		}
		svc := validator.NewService(fetcher)
		req := validationRequest(cfg)
		path := args[0]

		if !watchMapping {
			res, err := validateFile(ctx, svc, path, req, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("structural validation failed")
			}
			return nil
		}

		if _, err := validateFile(ctx, svc, path, req, cmd.OutOrStdout()); err != nil {
			zap.S().Named("validate").Errorf("%v", err)
		}
		return mapping.Watch(ctx, path, 500*time.Millisecond, func() {
			if _, err := validateFile(ctx, svc, path, req, cmd.OutOrStdout()); err != nil {
				zap.S().Named("validate").Errorf("%v", err)
			}
		})
	},
}

func validateFile(ctx context.Context, svc *validator.Service, path string, req validator.Request, out io.Writer) (*validator.Result, error) {
	records, err := mapping.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping %s: %w", path, err)
	}
	zap.S().Named("validate").Infof("validating %d mapping rows from %s", len(records), path)

	res, err := svc.Run(ctx, records, req)
	if err != nil {
		return nil, err
	}
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return res, enc.Encode(res)
	}
	printValidation(out, res)
	return res, nil
}

func printValidation(out io.Writer, res *validator.Result) {
	fmt.Fprintln(out, "\n🔎 Structural Validation")
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "[!] %s\n", w)
	}
	for _, m := range res.Matches {
		fmt.Fprintf(out, "[✓] %s\n", m)
	}
	for _, e := range res.SourceErrors {
		fmt.Fprintf(out, "[✗] %s\n", e)
	}
	for _, e := range res.TargetErrors {
		fmt.Fprintf(out, "[✗] %s\n", e)
	}

	s := res.Stats
	fmt.Fprintln(out, "--------------------------------------------------")
	fmt.Fprintf(out, "Tables : %d/%d found\n", s.TablesFound, s.TotalTables)
	fmt.Fprintf(out, "Columns: %d/%d found\n", s.ColumnsFound, s.TotalColumns)
	fmt.Fprintf(out, "Skipped: %d source, %d target placeholder rows\n", s.SourceSkipped, s.TargetSkipped)
	switch res.Outcome {
	case validator.OutcomeNoDataValidated:
		fmt.Fprintln(out, "Result : nothing validated")
	case validator.OutcomePassed:
		fmt.Fprintln(out, "Result : PASSED")
	default:
		fmt.Fprintln(out, "Result : FAILED")
	}
}

func init() {
	RootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVarP(&watchMapping, "watch", "w", false, "Re-validate whenever the mapping file changes")
	validateCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
}
