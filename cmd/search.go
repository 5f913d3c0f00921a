package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dveri-ekat/door-assistant/internal/config"
	"github.com/dveri-ekat/door-assistant/internal/model"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the catalog and print matching products as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd.Context(), cfg, strings.Join(args, " "), searchLimit, cmd.OutOrStdout())
	},
}

// runSearch loads the catalog (ingesting the feed when the cache is missing
// or stale) and writes the ranked results to out.
func runSearch(ctx context.Context, c *config.Config, q string, limit int, out io.Writer) error {
	env, err := initCatalog(ctx, c, "search")
	if err != nil {
		return err
	}
	defer env.Close()

	if err := env.Service.Init(ctx); err != nil {
		zap.L().Warn("catalog init incomplete", zap.Error(err))
	}
	if !env.Service.Stats().Ready {
		return errNotReady
	}

	results := []model.ScoredProduct{}
	for _, p := range env.Service.Search(q, limit) {
		p.URL = p.AbsoluteURL(c.Catalog.StoreBaseURL)
		results = append(results, p)
	}

	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", -1, "maximum results (default from config)")
	rootCmd.AddCommand(searchCmd)
}
