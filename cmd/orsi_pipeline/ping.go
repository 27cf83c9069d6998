package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jonathan/orsi-pipeline/internal/warehouse"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check warehouse connectivity",
	RunE:  runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, _ []string) error {
	cfg, err := loadSettings(cmd, nil)
	if err != nil {
		return err
	}
	if err := cfg.RequireSecrets(false, true); err != nil {
		return err
	}

	ctx := cmd.Context()
	db, err := warehouse.Connect(ctx, cfg.DatabaseURL, slog.Default())
	if err != nil {
		return err
	}
	defer db.Close()

	info, err := db.Ping(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Connected to %s (schema %s)\n%s\n", info.Database, info.Schema, info.Version)
	return nil
}
