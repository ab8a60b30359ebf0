package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"photo-indexer/internal/indexer"
	"photo-indexer/internal/logging"
)

func newProvisionCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "provision",
		Short: "Rebuild the index from every month directory and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := runProvision(cmd.Context(), v)
			if err != nil {
				return err
			}
			cmd.Printf("Provision complete: %s\n", report.Summary())
			for _, failure := range report.Failures {
				cmd.PrintErrf("  failed: %s: %s\n", failure.Dir, failure.Error)
			}
			if report.Failed > 0 {
				return fmt.Errorf("%d directories failed to sync", report.Failed)
			}
			return nil
		},
	}
}

func runProvision(ctx context.Context, v *viper.Viper) (*indexer.Report, error) {
	config, err := loadConfig(v)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := logging.Close(); err != nil {
			logging.Warn("failed to close log file: %v", err)
		}
	}()

	db, err := openDatabase(ctx, config)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn("failed to close database: %v", err)
		}
	}()

	idx := indexer.New(db, indexer.Config{
		Layout: indexer.Layout{Root: config.LibraryPath, Lookback: config.Lookback},
		Settle: config.WatchSettle,
	})
	defer idx.Stop()

	return idx.Provision(ctx)
}
