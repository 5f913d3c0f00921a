package main

import (
	"context"
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dveri-ekat/door-assistant/internal/config"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Ingest the product feed once and persist a new catalog snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runRefresh(ctx, cfg, cmd.OutOrStdout())
	},
}

func runRefresh(ctx context.Context, c *config.Config, out io.Writer) error {
	env, err := initCatalog(ctx, c, "refresh")
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Service.Refresh(ctx); err != nil {
		return eris.Wrap(err, "refresh catalog")
	}

	stats := env.Service.Stats()
	zap.L().Info("catalog refreshed",
		zap.Int("products", stats.Products),
		zap.Time("last_updated", stats.LastUpdated),
	)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}
