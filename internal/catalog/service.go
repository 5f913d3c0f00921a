// Package catalog owns the live product catalog: it loads the cached snapshot,
// refreshes it from the feed and answers searches against it.
package catalog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dveri-ekat/door-assistant/internal/collection"
	"github.com/dveri-ekat/door-assistant/internal/model"
	"github.com/dveri-ekat/door-assistant/internal/query"
	"github.com/dveri-ekat/door-assistant/internal/rank"
	"github.com/dveri-ekat/door-assistant/internal/store"
)

// Options tunes a Service.
type Options struct {
	// MaxAge is how old a cached snapshot may be before Init refreshes it.
	// Zero means the cache never goes stale.
	MaxAge       time.Duration
	DefaultLimit int
	Now          func() time.Time
}

// Stats describes the installed snapshot.
type Stats struct {
	Products    int       `json:"products"`
	LastUpdated time.Time `json:"lastUpdated"`
	Ready       bool      `json:"ready"`
}

type snapshot struct {
	catalog *model.Catalog
	index   *rank.Index
}

// Service is the catalog facade. Searches read an immutable snapshot; a refresh
// builds a new one and swaps it in with a single pointer store.
type Service struct {
	source      Source
	store       store.Store
	parser      *query.Parser
	collections *collection.Resolver
	opts        Options

	snap    atomic.Pointer[snapshot]
	refresh singleflight.Group
}

// NewService wires a Service. Nothing is loaded until Init.
func NewService(src Source, st store.Store, vocab query.Vocabulary, opts Options) *Service {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = rank.DefaultLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		source:      src,
		store:       st,
		parser:      query.NewParser(vocab),
		collections: collection.NewResolver(vocab.Collections),
		opts:        opts,
	}
}

// Init installs the cached snapshot when there is one, and refreshes from the
// feed when the cache is absent, unreadable or older than MaxAge. A stale cache
// keeps serving if that refresh fails. The returned error is for logging only.
func (s *Service) Init(ctx context.Context) error {
	cached, err := s.store.Load(ctx)
	if err != nil {
		zap.L().Warn("catalog: cached snapshot unreadable, treating as absent", zap.Error(err))
		cached = nil
	}

	if cached != nil {
		s.install(cached)
		age := cached.Age(s.opts.Now())
		if s.opts.MaxAge <= 0 || age <= s.opts.MaxAge {
			zap.L().Info("catalog: loaded cached snapshot",
				zap.Int("products", cached.Len()),
				zap.Duration("age", age),
			)
			return nil
		}
		zap.L().Info("catalog: cached snapshot is stale, refreshing",
			zap.Int("products", cached.Len()),
			zap.Duration("age", age),
			zap.Duration("max_age", s.opts.MaxAge),
		)
	} else {
		zap.L().Info("catalog: no cached snapshot, ingesting feed")
	}

	return s.Refresh(ctx)
}

// Refresh ingests the feed, persists the new snapshot and installs it.
// A failed ingest leaves both memory and the store untouched. A failed save
// still installs the new snapshot in memory and returns the save error.
// Concurrent calls share one in-flight refresh.
func (s *Service) Refresh(ctx context.Context) error {
	_, err, shared := s.refresh.Do("refresh", func() (any, error) {
		return nil, s.doRefresh(ctx)
	})
	if shared {
		zap.L().Debug("catalog: joined in-flight refresh")
	}
	return err
}

func (s *Service) doRefresh(ctx context.Context) error {
	start := time.Now()

	products, err := s.source.Ingest(ctx)
	if err != nil {
		return eris.Wrap(err, "catalog: ingest")
	}

	c := &model.Catalog{Products: products, LastUpdated: s.opts.Now().UTC()}
	saveErr := s.store.Save(ctx, c)
	s.install(c)

	zap.L().Info("catalog: refreshed",
		zap.Int("products", c.Len()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("persisted", saveErr == nil),
	)
	if saveErr != nil {
		return eris.Wrap(saveErr, "catalog: save snapshot")
	}
	return nil
}

func (s *Service) install(c *model.Catalog) {
	s.snap.Store(&snapshot{catalog: c, index: rank.NewIndex(c.Products)})
}

// Search parses q and ranks the installed snapshot. A negative limit selects the
// default. It never fails: any internal fault yields an empty slice.
func (s *Service) Search(q string, limit int) (results []model.ScoredProduct) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("catalog: search panicked", zap.Any("panic", r), zap.String("query", q))
			results = []model.ScoredProduct{}
		}
	}()

	if limit < 0 {
		limit = s.opts.DefaultLimit
	}
	snap := s.snap.Load()
	if snap == nil {
		return []model.ScoredProduct{}
	}
	return rank.Rank(snap.index, s.parser.Parse(q), limit)
}

// Product looks a record up by id.
func (s *Service) Product(id string) (model.ProductRecord, bool) {
	snap := s.snap.Load()
	if snap == nil {
		return model.ProductRecord{}, false
	}
	return snap.index.Lookup(id)
}

// Collection resolves q to a store collection landing page.
func (s *Service) Collection(q string) (collection.Entry, bool) {
	return s.collections.Resolve(q)
}

// Stats reports on the installed snapshot.
func (s *Service) Stats() Stats {
	snap := s.snap.Load()
	if snap == nil {
		return Stats{}
	}
	return Stats{
		Products:    snap.catalog.Len(),
		LastUpdated: snap.catalog.LastUpdated,
		Ready:       true,
	}
}
