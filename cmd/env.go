package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oakline-research/rating-cli/internal/edgar"
	"github.com/oakline-research/rating-cli/internal/filings"
	"github.com/oakline-research/rating-cli/internal/sigcache"
	"github.com/oakline-research/rating-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "rating.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initCache() (sigcache.Cache, error) {
	switch cfg.Cache.Backend {
	case "none":
		return nil, nil
	case "redis":
		return sigcache.NewRedisCache(cfg.Cache.RedisURL, cfg.Cache.TTL())
	case "file", "":
		dir := cfg.Cache.Dir
		if dir == "" {
			dir = ".sigcache"
		}
		return sigcache.NewFileCache(dir)
	default:
		return nil, eris.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}
}

// env bundles the long-lived collaborators a command needs: the store, the
// signal cache, the EDGAR client, and a scanner over all three.
type env struct {
	store   store.Store
	cache   sigcache.Cache
	edgar   *edgar.Client
	scanner *filings.Scanner
}

func initEnv(ctx context.Context) (*env, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	// Cache failures never block a run; scans just go uncached.
	cache, err := initCache()
	if err != nil {
		zap.L().Warn("signal cache unavailable, scanning fresh", zap.Error(err))
		cache = nil
	}

	client := edgar.NewClient(edgar.FromConfig(cfg.Edgar))

	return &env{
		store:   st,
		cache:   cache,
		edgar:   client,
		scanner: filings.NewScanner(cache, cfg.Scanner, cfg.Cache.TTL()),
	}, nil
}

func (e *env) Close() {
	_ = e.store.Close()
}
