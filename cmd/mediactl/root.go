package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mediaondemand/config"
)

var (
	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "mediactl",
	Short:         "Maintenance tasks for the media conversion service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()

		var err error
		logger, err = config.NewLogger(cfg)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.AddCommand(uploadVideosCmd, backupIndexCmd)
}
