package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection with a ping.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	connector, err := gomysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cart_snapshots (
        cart_key   VARCHAR(191) NOT NULL PRIMARY KEY,
        payload    MEDIUMTEXT   NOT NULL,
        updated_at TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
    )`,
	`CREATE TABLE IF NOT EXISTS products (
        id    BIGINT        NOT NULL PRIMARY KEY,
        title VARCHAR(255)  NOT NULL,
        price DECIMAL(12,2) NOT NULL,
        image VARCHAR(512)  NOT NULL DEFAULT ''
    )`,
	`CREATE TABLE IF NOT EXISTS stock (
        id     BIGINT NOT NULL PRIMARY KEY,
        amount BIGINT NOT NULL DEFAULT 0
    )`,
}

// Migrate creates the tables used by the repositories in this package.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate mysql: %w", err)
		}
	}
	return nil
}
