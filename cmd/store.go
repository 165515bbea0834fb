package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/clearcheck/verify-cli/internal/store"
)

// initStore opens the configured persistence backend, migrated and scoped
// to the configured namespace.
func initStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	var err error

	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Namespace)
	default:
		st, err = store.NewSQLite(cfg.Store.SQLitePath, cfg.Store.Namespace)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "init %s store", cfg.Store.Driver)
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
