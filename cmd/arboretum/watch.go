package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"arboretum/internal/models"
	"arboretum/internal/service"
	"arboretum/internal/status"
	"arboretum/pkg/graceful"
	"arboretum/pkg/kafkaclient"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow tree changes and log when the dataset is stale",
	Long: `Consume tree change events and log the dataset status after each one.
The dataset is never regenerated automatically.`,
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

		consumer := kafkaclient.NewConsumer(cfg.Watch.Brokers, cfg.Watch.Topic, cfg.Watch.GroupID)
		consumer.Start(ctx)
		defer consumer.Stop()

		logrus.WithFields(logrus.Fields{"topic": cfg.Watch.Topic, "group": cfg.Watch.GroupID}).Info("Watching tree changes")
		changes := service.NewIterator[models.TreeRecord](consumer, a.store.TreeByID).Changes(ctx)
		for change := range changes {
			logrus.WithFields(logrus.Fields{
				"tree_id": change.Event.TreeID,
				"action":  change.Event.Action,
				"name":    change.Data.Name,
			}).Info("Tree changed")
			scheduler.Run(ctx)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
