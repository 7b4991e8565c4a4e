package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"etl-verify/internal/connection"
	"etl-verify/internal/mapping"
	"etl-verify/internal/schema"
)

var templateOut string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write an xlsx mapping template pre-filled from the source schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher, err := newFetcher(cfg, connection.NewRegistry(cfg.Connections))
		if err != nil {
			return err
		}
		req := validationRequest(cfg)
		if len(req.SourceIDs) == 0 {
			return fmt.Errorf("no active source connection found in config (set active: true)")
		}

		source, err := fetcher.Fetch(cmd.Context(), req.SourceIDs[0], req.AgentID)
		if err != nil {
			return err
		}
		var target *schema.Snapshot
		if req.TargetID != "" {
			// a template without suggestions is still useful
			if target, err = fetcher.Fetch(cmd.Context(), req.TargetID, req.AgentID); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "target schema unavailable, writing without suggestions: %v\n", err)
				target = nil
			}
		}

		f, err := os.Create(templateOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", templateOut, err)
		}
		defer f.Close()

		if err := mapping.WriteTemplate(f, source, target); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "📄 Mapping template for %d tables written to %s\n", len(source.Tables), templateOut)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(templateCmd)

	templateCmd.Flags().StringVarP(&templateOut, "output", "o", "mapping.xlsx", "Template file to write")
}
