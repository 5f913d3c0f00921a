package catalog

import (
	"bytes"
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/dveri-ekat/door-assistant/internal/fetcher"
	"github.com/dveri-ekat/door-assistant/internal/model"
	"github.com/dveri-ekat/door-assistant/internal/normalize"
)

// ErrEmptyFeed is returned when a feed decodes but yields no usable product.
var ErrEmptyFeed = eris.New("catalog: feed produced no products")

// DefaultMaxFeedBytes caps a feed download.
const DefaultMaxFeedBytes int64 = 64 << 20

// Source produces a fresh product list.
type Source interface {
	Ingest(ctx context.Context) ([]model.ProductRecord, error)
}

// IngestOptions configures an Ingestor.
type IngestOptions struct {
	FeedURL  string
	Format   fetcher.Format
	Decode   fetcher.DecodeOptions
	MaxBytes int64
}

// Ingestor downloads, decodes and normalizes the remote feed. It has no side
// effects; committing the result is the Service's job.
type Ingestor struct {
	fetcher    fetcher.Fetcher
	normalizer *normalize.Normalizer
	opts       IngestOptions
}

// NewIngestor creates an Ingestor.
func NewIngestor(f fetcher.Fetcher, n *normalize.Normalizer, opts IngestOptions) *Ingestor {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxFeedBytes
	}
	if opts.Format == "" {
		opts.Format = fetcher.FormatAuto
	}
	return &Ingestor{fetcher: f, normalizer: n, opts: opts}
}

// Ingest runs one download-decode-normalize pass.
func (in *Ingestor) Ingest(ctx context.Context) ([]model.ProductRecord, error) {
	if in.opts.FeedURL == "" {
		return nil, eris.New("catalog: feed url is not configured")
	}
	log := zap.L().With(zap.String("feed", in.opts.FeedURL))

	body, err := in.fetcher.Download(ctx, in.opts.FeedURL)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: download feed")
	}
	defer body.Close() //nolint:errcheck

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(body, in.opts.MaxBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "catalog: read feed")
	}
	if n > in.opts.MaxBytes {
		return nil, eris.Errorf("catalog: feed exceeds %d bytes", in.opts.MaxBytes)
	}

	table, err := fetcher.Decode(in.opts.FeedURL, buf.Bytes(), in.opts.Format, in.opts.Decode)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: decode feed")
	}

	rows := normalize.RowsFromTable(table)
	products := in.normalizer.Normalize(rows)
	log.Info("feed ingested",
		zap.Int64("bytes", n),
		zap.Int("rows", len(rows)),
		zap.Int("products", len(products)),
		zap.Int("dropped", len(rows)-len(products)),
	)

	if len(products) == 0 {
		return nil, ErrEmptyFeed
	}
	return products, nil
}
