package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/dveri-ekat/door-assistant/internal/config"
	"github.com/dveri-ekat/door-assistant/internal/store"
)

// openStore opens and migrates the snapshot store selected by sc.Driver.
func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "", "file":
		return store.NewFile(sc.Path), nil
	case "sqlite":
		st, err := store.NewSQLite(sc.Path)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate sqlite store")
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate postgres store")
		}
		return st, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}
