package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"arboretum/internal/status"
	"arboretum/internal/storage"
)

var statusLocation string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the dataset is up to date",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		loc, err := time.LoadLocation(statusLocation)
		if err != nil {
			return fmt.Errorf("invalid time zone %q: %w", statusLocation, err)
		}

		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.exporter.Status(cmd.Context())
		if err != nil {
			return err
		}

		modTime, exists, err := storage.FileInfo(a.exporter.Path())
		if err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), st, a.exporter.Path(), modTime, exists, loc)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusLocation, "tz", "Local", "time zone used to display dates")
	rootCmd.AddCommand(statusCmd)
}

func printStatus(w io.Writer, st status.Status, path string, modTime time.Time, exists bool, loc *time.Location) {
	if exists {
		fmt.Fprintf(w, "Dataset: %s (last written %s)\n", path, modTime.In(loc).Format("02/01/2006 15:04"))
	} else {
		fmt.Fprintf(w, "Dataset: %s (not written yet)\n", path)
	}
	if st.LastGeneration != nil {
		fmt.Fprintf(w, "Last generation: %s\n", st.LastGeneration.In(loc).Format("02/01/2006 15:04"))
	}
	fmt.Fprintln(w, status.Notice(st, loc))
}
