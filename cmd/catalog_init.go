package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/dveri-ekat/door-assistant/internal/catalog"
	"github.com/dveri-ekat/door-assistant/internal/config"
	"github.com/dveri-ekat/door-assistant/internal/fetcher"
	"github.com/dveri-ekat/door-assistant/internal/normalize"
	"github.com/dveri-ekat/door-assistant/internal/query"
	"github.com/dveri-ekat/door-assistant/internal/store"
)

// catalogEnv holds the store and catalog service needed by the serve, refresh
// and search commands.
type catalogEnv struct {
	Store   store.Store
	Service *catalog.Service
}

// Close releases resources held by the catalog environment.
func (ce *catalogEnv) Close() {
	if ce.Store != nil {
		_ = ce.Store.Close()
	}
}

// initCatalog validates the config for mode, opens the store and builds the
// catalog service. Nothing is loaded yet; callers run Init or Refresh and
// should defer env.Close().
func initCatalog(ctx context.Context, c *config.Config, mode string) (*catalogEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	vocab := query.DefaultVocabulary()
	if c.Catalog.VocabularyPath != "" {
		v, err := query.LoadVocabulary(c.Catalog.VocabularyPath)
		if err != nil {
			return nil, err
		}
		vocab = v
	}

	st, err := openStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}

	svc := catalog.NewService(newIngestor(c.Feed), st, vocab, catalog.Options{
		MaxAge:       c.Catalog.MaxAge,
		DefaultLimit: c.Catalog.DefaultLimit,
	})

	return &catalogEnv{Store: st, Service: svc}, nil
}

func newIngestor(fc config.FeedConfig) *catalog.Ingestor {
	timeout := time.Duration(fc.TimeoutSecs) * time.Second
	f := fetcher.NewRouter(
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  fc.UserAgent,
			Timeout:    timeout,
			MaxRetries: fc.MaxRetries,
		}),
		fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: timeout}),
	)

	return catalog.NewIngestor(f, normalize.New(normalize.DefaultSchema()), catalog.IngestOptions{
		FeedURL: fc.URL,
		Format:  fetcher.Format(fc.Format),
		Decode: fetcher.DecodeOptions{
			XLSX: fetcher.XLSXOptions{SheetName: fc.Sheet},
			CSV:  fetcher.CSVOptions{Charset: fc.Charset, LazyQuotes: true, TrimSpace: true},
		},
		MaxBytes: fc.MaxBytes,
	})
}

// errNotReady is returned by one-shot commands when no snapshot could be
// loaded or ingested.
var errNotReady = eris.New("catalog is empty: no cached snapshot and the feed could not be ingested")
