package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fulltext-index/pkg/postgres"
)

// Open builds the document store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		path := cfg.StorePath()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
		return OpenSQLite(ctx, path, cfg.Store.RetryAttempts)
	case "postgres":
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		s, err := NewSQLStore(ctx, client.DB, Postgres, cfg.Store.RetryAttempts)
		if err != nil {
			client.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
