package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"example.com/storefront-cart/app/internal/config"
	"example.com/storefront-cart/app/internal/infra/catalog/httpapi"
	"example.com/storefront-cart/app/internal/infra/persistence/file"
	"example.com/storefront-cart/app/internal/infra/persistence/memory"
	"example.com/storefront-cart/app/internal/infra/persistence/mysql"
	"example.com/storefront-cart/app/internal/infra/persistence/postgres"
	"example.com/storefront-cart/app/internal/infra/persistence/redis"
	cartuc "example.com/storefront-cart/app/internal/usecase/cart"
)

// backends opens the configured stores. Connections shared by several
// components (MySQL serves both carts and the catalog) are opened and
// migrated once.
type backends struct {
	cfg       config.Config
	logger    *slog.Logger
	openMySQL func(ctx context.Context, dsn string) (*sql.DB, error)

	db      *sql.DB
	closers []func()
}

func newBackends(cfg config.Config, logger *slog.Logger) *backends {
	return &backends{cfg: cfg, logger: logger, openMySQL: mysql.Open}
}

// Close releases everything opened so far, newest first.
func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

func (b *backends) sqlDB(ctx context.Context) (*sql.DB, error) {
	if b.db != nil {
		return b.db, nil
	}
	db, err := b.openMySQL(ctx, b.cfg.MySQLDSN)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, func() { db.Close() })
	if err := mysql.Migrate(ctx, db); err != nil {
		return nil, err
	}
	b.db = db
	return db, nil
}

func (b *backends) cartRepository(ctx context.Context) (cartuc.CartRepository, error) {
	switch b.cfg.CartBackend {
	case "memory":
		return memory.NewCartRepository(), nil
	case "file":
		return file.NewCartRepository(b.cfg.CartFile, b.logger), nil
	case "redis":
		client, err := redis.Open(ctx, b.cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { client.Close() })
		return redis.NewCartRepository(client), nil
	case "mysql":
		db, err := b.sqlDB(ctx)
		if err != nil {
			return nil, err
		}
		return mysql.NewCartRepository(db), nil
	case "postgres":
		pool, err := postgres.Open(ctx, b.cfg.PGDSN)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		if err := postgres.Migrate(ctx, pool); err != nil {
			return nil, err
		}
		return postgres.NewCartRepository(pool), nil
	default:
		return nil, fmt.Errorf("unknown CART_BACKEND %q", b.cfg.CartBackend)
	}
}

func (b *backends) catalog(ctx context.Context) (cartuc.ProductCatalog, cartuc.StockLookup, error) {
	switch b.cfg.CatalogBackend {
	case "http":
		client := httpapi.NewClient(b.cfg.CatalogURL, b.cfg.CatalogTimeout)
		return client.Products(), client.Stock(), nil
	case "mysql":
		db, err := b.sqlDB(ctx)
		if err != nil {
			return nil, nil, err
		}
		return mysql.NewProductRepository(db), mysql.NewStockRepository(db), nil
	default:
		return nil, nil, fmt.Errorf("unknown CATALOG_BACKEND %q", b.cfg.CatalogBackend)
	}
}
