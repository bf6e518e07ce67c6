package main

import (
	"alcyxob/checkin-scheduler/internal/config"
	"alcyxob/checkin-scheduler/internal/telemetry"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "checkin-scheduler",
	Short: "Coaching check-in scheduling and capacity service",
	Long: `checkin-scheduler books one-on-one coaching check-ins on a fixed daily
slot grid, enforces per-plan quotas over each client's billing cycle and
keeps the coach's session notes.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "config file, or directory holding config.yaml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(purgeCmd)
}

// loadConfig reads the configuration and installs the process logger.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	telemetry.SetupLogger(cfg.Telemetry.ServiceName, cfg.Log.Level)
	return cfg, nil
}
