package main

import (
	"github.com/spf13/cobra"

	"arboretum/internal/api"
	"arboretum/internal/status"
	"arboretum/pkg/graceful"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the operator API",
	Long: `Serve POST /api/export, GET /api/status and GET /metrics. When
watch.schedule is set the dataset status is also logged on that schedule.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := graceful.Context(cmd.Context())
		defer cancel()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		scheduler := status.NewScheduler(a.exporter.Status)
		if err := scheduler.Start(ctx, cfg.Watch.Schedule); err != nil {
			return err
		}
		defer scheduler.Stop()

		router := api.NewRouter(api.NewHandler(a.exporter), a.metrics.Handler())
		return api.Serve(ctx, cfg.Server.ListenAddress, router, cfg.Server.ShutdownTimeout)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
