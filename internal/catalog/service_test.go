package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dveri-ekat/door-assistant/internal/model"
	"github.com/dveri-ekat/door-assistant/internal/query"
	"github.com/dveri-ekat/door-assistant/internal/store"
)

type fakeSource struct {
	mu       sync.Mutex
	products []model.ProductRecord
	err      error
	calls    atomic.Int32
	gate     chan struct{}
}

func (f *fakeSource) Ingest(ctx context.Context) ([]model.ProductRecord, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func (f *fakeSource) set(products []model.ProductRecord, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products, f.err = products, err
}

type memStore struct {
	mu      sync.Mutex
	catalog *model.Catalog
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load(context.Context) (*model.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog, m.loadErr
}

func (m *memStore) Save(_ context.Context, c *model.Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.catalog = c
	m.saves++
	return nil
}

func (m *memStore) Close() error { return nil }

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func doors() []model.ProductRecord {
	return []model.ProductRecord{
		{ID: "1", Title: "Дверь Гранит", Price: "12000", URL: "/granit", Category: "Входные двери"},
		{ID: "2", Title: "Дверь Вега", Price: "18000", URL: "/vega", Category: "Межкомнатные двери"},
		{ID: "3", Title: "Дверь Люкс", Price: "25000", URL: "/lux", Category: "Входные двери",
			Properties: map[string]string{"Производитель": "Torex"}},
	}
}

func newTestService(src Source, st store.Store, maxAge time.Duration) *Service {
	return NewService(src, st, query.DefaultVocabulary(), Options{
		MaxAge: maxAge,
		Now:    func() time.Time { return fixedNow },
	})
}

func TestInit_NoCacheIngests(t *testing.T) {
	src := &fakeSource{products: doors()}
	st := &memStore{}
	svc := newTestService(src, st, 24*time.Hour)

	require.NoError(t, svc.Init(context.Background()))

	stats := svc.Stats()
	assert.True(t, stats.Ready)
	assert.Equal(t, 3, stats.Products)
	assert.Equal(t, fixedNow, stats.LastUpdated)
	assert.Equal(t, 1, st.saves)
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestInit_FreshCacheSkipsIngest(t *testing.T) {
	src := &fakeSource{err: errors.New("should not be called")}
	st := &memStore{catalog: &model.Catalog{Products: doors(), LastUpdated: fixedNow.Add(-time.Hour)}}
	svc := newTestService(src, st, 24*time.Hour)

	require.NoError(t, svc.Init(context.Background()))
	assert.Equal(t, int32(0), src.calls.Load())
	assert.Len(t, svc.Search("гранит", -1), 1)
}

func TestInit_StaleCacheRefreshes(t *testing.T) {
	fresh := []model.ProductRecord{{ID: "9", Title: "Дверь Новинка", Price: "1", URL: "/n"}}
	src := &fakeSource{products: fresh}
	st := &memStore{catalog: &model.Catalog{Products: doors(), LastUpdated: fixedNow.Add(-8 * 24 * time.Hour)}}
	svc := newTestService(src, st, 7*24*time.Hour)

	require.NoError(t, svc.Init(context.Background()))
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 1, svc.Stats().Products)
	assert.Len(t, svc.Search("новинка", -1), 1)
}

func TestInit_StaleCacheSurvivesFailedRefresh(t *testing.T) {
	src := &fakeSource{err: errors.New("feed down")}
	st := &memStore{catalog: &model.Catalog{Products: doors(), LastUpdated: fixedNow.Add(-30 * 24 * time.Hour)}}
	svc := newTestService(src, st, 7*24*time.Hour)

	err := svc.Init(context.Background())
	require.Error(t, err)
	assert.Equal(t, 3, svc.Stats().Products)
	assert.Len(t, svc.Search("гранит", -1), 1)
}

func TestInit_CorruptCacheTreatedAsAbsent(t *testing.T) {
	src := &fakeSource{products: doors()}
	st := &memStore{loadErr: store.ErrCorrupt}
	svc := newTestService(src, st, time.Hour)

	require.NoError(t, svc.Init(context.Background()))
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, 3, svc.Stats().Products)
}

func TestInit_NoCacheAndFailedIngestIsEmpty(t *testing.T) {
	svc := newTestService(&fakeSource{err: errors.New("offline")}, &memStore{}, time.Hour)

	require.Error(t, svc.Init(context.Background()))
	assert.False(t, svc.Stats().Ready)
	assert.Empty(t, svc.Search("гранит", -1))
	_, ok := svc.Product("1")
	assert.False(t, ok)
}

func TestRefresh_FailureKeepsPreviousCatalog(t *testing.T) {
	src := &fakeSource{products: doors()}
	st := &memStore{}
	svc := newTestService(src, st, 0)
	ctx := context.Background()
	require.NoError(t, svc.Refresh(ctx))
	before := svc.Search("входные", -1)
	require.Len(t, before, 2)

	src.set(nil, errors.New("network unreachable"))
	err := svc.Refresh(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network unreachable")

	assert.Equal(t, before, svc.Search("входные", -1))
	assert.Equal(t, 1, st.saves)
	assert.Equal(t, 3, st.catalog.Len())
}

func TestRefresh_SaveFailureStillSwaps(t *testing.T) {
	src := &fakeSource{products: doors()}
	st := &memStore{saveErr: errors.New("read-only filesystem")}
	svc := newTestService(src, st, 0)

	err := svc.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save snapshot")
	assert.Equal(t, 3, svc.Stats().Products)
}

func TestRefresh_ConcurrentCallsCoalesce(t *testing.T) {
	src := &fakeSource{products: doors(), gate: make(chan struct{})}
	svc := newTestService(src, &memStore{}, 0)

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = svc.Refresh(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, src.calls.Load(), int32(5))
	assert.Equal(t, 3, svc.Stats().Products)
}

func TestSearch_StorefrontQueries(t *testing.T) {
	svc := newTestService(&fakeSource{products: doors()}, &memStore{}, 0)
	require.NoError(t, svc.Refresh(context.Background()))

	got := svc.Search("двери 10000-20000", -1)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2", got[1].ID)

	assert.Empty(t, svc.Search("", -1))
	assert.Empty(t, svc.Search("какая фабрика?", -1))
	assert.Empty(t, svc.Search("дверь", 0))

	brand := svc.Search("какой производитель торекс", -1)
	require.Len(t, brand, 1)
	assert.Equal(t, "3", brand[0].ID)

	assert.Len(t, svc.Search("входные", 1), 1)
}

func TestSearch_ConcurrentWithRefresh(t *testing.T) {
	src := &fakeSource{products: doors()}
	svc := newTestService(src, &memStore{}, 0)
	ctx := context.Background()
	require.NoError(t, svc.Refresh(ctx))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					n := len(svc.Search("до 100000", -1))
					assert.True(t, n == 3 || n == 1, "saw %d results", n)
				}
			}
		}()
	}

	for i := range 10 {
		if i%2 == 0 {
			src.set([]model.ProductRecord{{ID: "x", Title: "Дверь Одна", Price: "1", URL: "/one"}}, nil)
		} else {
			src.set(doors(), nil)
		}
		require.NoError(t, svc.Refresh(ctx))
	}
	close(stop)
	wg.Wait()
}

func TestProductAndCollection(t *testing.T) {
	svc := newTestService(&fakeSource{products: doors()}, &memStore{}, 0)
	require.NoError(t, svc.Refresh(context.Background()))

	p, ok := svc.Product("2")
	require.True(t, ok)
	assert.Equal(t, "Дверь Вега", p.Title)

	e, ok := svc.Collection("двери с терморазрывом")
	require.True(t, ok)
	assert.Equal(t, "Двери с терморазрывом", e.Title)
}

func TestService_WithFileStoreRoundTrip(t *testing.T) {
	st := store.NewFile(filepath.Join(t.TempDir(), "catalog-cache.json"))
	svc := newTestService(&fakeSource{products: doors()}, st, time.Hour)
	require.NoError(t, svc.Init(context.Background()))

	failing := &fakeSource{err: errors.New("should not be called")}
	restarted := newTestService(failing, st, time.Hour)
	require.NoError(t, restarted.Init(context.Background()))
	assert.Equal(t, int32(0), failing.calls.Load())
	assert.Equal(t, 3, restarted.Stats().Products)
}
