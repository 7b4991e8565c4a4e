package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"etl-verify/internal/store"
	"etl-verify/internal/testcase"
)

var (
	historyCase  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print stored test case run results",
	RunE: func(cmd *cobra.Command, args []string) error {
		history, err := store.New(cfg.History.Path)
		if err != nil {
			return err
		}
		defer history.Close()

		var recs []*store.Record
		if historyCase != "" {
			id, err := uuid.Parse(historyCase)
			if err != nil {
				return fmt.Errorf("invalid test case id %q: %w", historyCase, err)
			}
			recs, err = history.ListByCase(cmd.Context(), id)
			if err != nil {
				return err
			}
		} else {
			recs, err = history.List(cmd.Context(), historyLimit)
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(recs)
		}
		if len(recs) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}
		for _, r := range recs {
			icon := "✗"
			if r.Status == testcase.StatusPass {
				icon = "✓"
			}
			fmt.Fprintf(out, "[%s] %s  %-40s %-16s %s\n",
				icon, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.CaseName, r.Outcome, r.Message)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyCase, "case", "", "Only show runs of this test case id")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show (0 for all)")
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the records as JSON")
}
