package main

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/InfinityXone/construct-iq/internal/adapters/driven/storage/postgres"
	"github.com/InfinityXone/construct-iq/internal/adapters/driven/storage/sqlite"
	"github.com/InfinityXone/construct-iq/internal/core/ports/driven"
)

// rateStore is a rate store that also persists scheduler state.
type rateStore interface {
	driven.RateStore
	SchedulerStore() driven.SchedulerStore
	Close() error
}

type storeKind int

const (
	storeSQLite storeKind = iota
	storePostgres
)

// storeTarget is a parsed database URL.
type storeTarget struct {
	kind storeKind
	// dsn is the connection string for postgres or the file path for sqlite.
	// An empty sqlite path means the data directory.
	dsn string
}

// parseDatabaseURL selects a backend from the URL scheme. A value without
// a scheme is a SQLite file path.
func parseDatabaseURL(raw string) (storeTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return storeTarget{kind: storeSQLite}, nil
	}
	if !strings.Contains(raw, "://") && !strings.HasPrefix(raw, "file:") {
		return storeTarget{kind: storeSQLite, dsn: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return storeTarget{}, fmt.Errorf("invalid database url: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		return storeTarget{kind: storePostgres, dsn: raw}, nil
	case "sqlite", "file":
		path := u.Path
		if u.Host != "" {
			// sqlite://relative/path.db
			path = u.Host + u.Path
		}
		if path == "" {
			path = u.Opaque
		}
		if path == "" {
			return storeTarget{}, fmt.Errorf("database url %q has no path", raw)
		}
		return storeTarget{kind: storeSQLite, dsn: path}, nil
	default:
		return storeTarget{}, fmt.Errorf("unsupported database scheme %q", u.Scheme)
	}
}

// openStore opens the store named by databaseURL, defaulting to SQLite in dataDir.
func openStore(ctx context.Context, databaseURL, dataDir string) (rateStore, error) {
	target, err := parseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	switch {
	case target.kind == storePostgres:
		store, err := postgres.New(ctx, target.dsn, postgres.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		return store, nil
	case target.dsn == "":
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		return store, nil
	default:
		store, err := sqlite.Open(target.dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open store %s: %w", target.dsn, err)
		}
		return store, nil
	}
}
