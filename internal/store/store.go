// Package store persists the last good catalog snapshot between restarts.
package store

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/dveri-ekat/door-assistant/internal/model"
)

// ErrCorrupt is wrapped by Load when a snapshot exists but cannot be decoded.
var ErrCorrupt = eris.New("store: corrupt catalog snapshot")

// Store defines the persistence interface for catalog snapshots.
type Store interface {
	// Load returns the stored snapshot, or (nil, nil) when none exists.
	Load(ctx context.Context) (*model.Catalog, error)
	// Save replaces the stored snapshot. A reader never observes a partial write.
	Save(ctx context.Context, c *model.Catalog) error
	Close() error
}

func encodeCatalog(c *model.Catalog) ([]byte, error) {
	if c == nil {
		return nil, eris.New("store: nil catalog")
	}
	if c.Products == nil {
		c = &model.Catalog{Products: []model.ProductRecord{}, LastUpdated: c.LastUpdated}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, eris.Wrap(err, "store: encode catalog")
	}
	return buf.Bytes(), nil
}

func decodeCatalog(data []byte) (*model.Catalog, error) {
	var c model.Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, eris.Wrapf(ErrCorrupt, "decode: %v", err)
	}
	if c.LastUpdated.IsZero() {
		return nil, eris.Wrap(ErrCorrupt, "missing lastUpdated")
	}
	return &c, nil
}
