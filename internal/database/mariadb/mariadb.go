// Package mariadb reads enrolled faces from an external enrollment database.
// The pool is read-only: subjects are managed by the enrollment system.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Pool is a connection pool to the enrollment database.
type Pool struct {
	db *sql.DB
}

// parseDSN validates the DSN and enforces the options the gallery queries rely on.
func parseDSN(dsn string) (*mysql.Config, error) {
	if dsn == "" {
		return nil, errors.New("enrollment DSN is required")
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid enrollment DSN: %w", err)
	}
	if cfg.DBName == "" {
		return nil, errors.New("enrollment DSN must name a database")
	}
	cfg.ParseTime = true
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return cfg, nil
}

// NewPool connects to the enrollment database and verifies the connection.
func NewPool(dsn string) (*Pool, error) {
	cfg, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create enrollment connector: %w", err)
	}
	db := sql.OpenDB(connector)

	// gallery reloads are the only traffic
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach enrollment database %s: %w", cfg.Addr, err)
	}

	return &Pool{db: db}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db == nil {
		return nil
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("closing enrollment database: %w", err)
	}
	return nil
}
