package postgres

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"wasterescue/internal/config"
)

const (
	connectTimeout  = 10 * time.Second
	connMaxLifetime = 30 * time.Minute
)

// Open connects to the review database and checks it answers before
// returning the pool.
func Open(ctx context.Context, cfg *config.DBConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("postgres: opening %s/%s: %w", cfg.Host, cfg.Name, err)
	}
	db.SetMaxOpenConns(cfg.MaxOpen)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(connMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: reaching %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}
