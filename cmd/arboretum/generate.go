package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"arboretum/internal/exporter"
	"arboretum/pkg/graceful"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Regenerate the map dataset",
	Long: `Read every published tree, validate and convert it, then replace the
dataset file. Trees with missing data are listed and skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := graceful.Context(cmd.Context())
		defer cancel()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.exporter.Generate(ctx)
		printReport(cmd.OutOrStdout(), report)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func printReport(w io.Writer, r exporter.Report) {
	fmt.Fprintln(w, r.Message)
	if r.Success {
		fmt.Fprintf(w, "Trees exported: %d\n", r.ValidCount)
		fmt.Fprintf(w, "Trees with errors: %d\n", r.ErrorCount)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Skipped trees:")
		for _, line := range r.Errors {
			fmt.Fprintln(w, line)
		}
	}
}
