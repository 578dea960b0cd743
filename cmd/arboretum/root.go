package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"arboretum/internal/config"
	"arboretum/internal/env"
	"arboretum/internal/logging"
)

var (
	cfgFile string
	envFile string
	verbose bool

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "arboretum",
	Short: "Arboretum - tree map dataset exporter",
	Long: `Arboretum exports the published trees of an arboretum website as a
JSON dataset for its interactive map.

Tree coordinates are stored in RGF93 / Lambert CC44 (EPSG:3944) and
published in WGS84. Trees missing their number or a coordinate are
reported and left out of the dataset.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "arboretum.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", ".env file to load (default ./.env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func setup(cmd *cobra.Command, _ []string) error {
	if cmd == versionCmd {
		return nil
	}

	if envFile != "" {
		env.LoadEnv(envFile)
	} else {
		env.LoadEnv()
	}

	loaded, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		loaded.Log.Level = "debug"
	}

	closer, err := logging.Setup(loaded.Log)
	if err != nil {
		return err
	}
	cfg, logCloser = loaded, closer
	return nil
}
