package main

import (
	"alcyxob/checkin-scheduler/internal/domain"
	"alcyxob/checkin-scheduler/internal/service"
	"alcyxob/checkin-scheduler/internal/storage"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var purgeOperator string

var purgeCmd = &cobra.Command{
	Use:   "purge ID...",
	Short: "Hard-delete check-ins by id, archiving them first when S3 is configured",
	Args:  cobra.RangeArgs(1, service.MaxPurgeBatch),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		ctx := cmd.Context()
		store, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.close()

		var archiver service.Archiver
		if cfg.S3.Enabled() {
			s3Archive, err := storage.NewS3Archive(ctx, cfg.S3)
			if err != nil {
				return fmt.Errorf("init s3 archive: %w", err)
			}
			archiver = s3Archive
		}

		operator := domain.Actor{ID: purgeOperator, Role: domain.RoleAdmin}
		report, err := service.NewPurgeService(store.checkIns, archiver).Purge(ctx, operator, args)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	purgeCmd.Flags().StringVar(&purgeOperator, "operator", "cli", "admin id recorded in the purge log")
}
