package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"etl-verify/internal/connection"
	"etl-verify/internal/dialect"
	"etl-verify/internal/mapping"
	"etl-verify/internal/testcase"
	"etl-verify/internal/validator"
)

var (
	suiteOut       string
	skipValidation bool
	sampleLimit    int
)

var generateCmd = &cobra.Command{
	Use:   "generate <mapping-file>",
	Short: "Generate comparison test cases from a mapping sheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := mapping.Parse(args[0])
		if err != nil {
			return fmt.Errorf("failed to read mapping %s: %w", args[0], err)
		}

		if !skipValidation {
			fetcher, err := newFetcher(cfg, connection.NewRegistry(cfg.Connections))
			if err != nil {
				return err
			}
			res, err := validator.NewService(fetcher).Run(cmd.Context(), records, validationRequest(cfg))
			if err != nil {
				return err
			}
			if !res.Success {
				printValidation(cmd.OutOrStdout(), res)
				return fmt.Errorf("mapping failed structural validation (use --skip-validation to generate anyway)")
			}
		}

		opts := testcase.Options{SampleLimit: sampleLimit}
		if sources := cfg.ActiveSources(); len(sources) > 0 {
			opts.SourceDialect = dialect.GetDialect(sources[0].Driver)
		}
		if target, err := cfg.ActiveTarget(); err == nil {
			opts.TargetDialect = dialect.GetDialect(target.Driver)
		}

		suite, err := testcase.NewSuite(testcase.Generate(records, opts)...)
		if err != nil {
			return err
		}
		if err := suite.Save(suiteOut); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "📝 Generated %d test cases into %s\n", suite.Len(), suiteOut)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&suiteOut, "output", "o", "suite.yaml", "Suite file to write")
	generateCmd.Flags().IntVar(&sampleLimit, "sample-limit", 0, "Cap the rows compared by column-values cases (0 compares every row)")
	generateCmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "Generate without checking the mapping against live schemas")
}
