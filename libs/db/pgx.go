package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arefin-dev/slotbook/libs/config"
)

type Pool struct {
	*pgxpool.Pool
}

// PoolConfig sizes the connection pool. Zero fields keep the pgx defaults.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// PoolConfigFromEnv reads pool sizing from DB_* variables, with defaults
// suited to a single service instance.
func PoolConfigFromEnv() PoolConfig {
	return PoolConfig{
		MaxConns:        config.Int("DB_MAX_CONNS", 10),
		MinConns:        config.Int("DB_MIN_CONNS", 1),
		MaxConnLifetime: time.Duration(config.Int("DB_CONN_MAX_LIFETIME_MINS", 30)) * time.Minute,
		MaxConnIdleTime: time.Duration(config.Int("DB_CONN_MAX_IDLE_MINS", 5)) * time.Minute,
	}
}

func Open(ctx context.Context, databaseURL string, pc PoolConfig) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	if pc.MaxConns > 0 {
		cfg.MaxConns = int32(pc.MaxConns)
	}
	if pc.MinConns > 0 {
		cfg.MinConns = int32(pc.MinConns)
	}
	if pc.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = pc.MaxConnLifetime
	}
	if pc.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = pc.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Pool{Pool: pool}, nil
}

func (p *Pool) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

func ReadyCheck(pool *Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if pool == nil || pool.Pool == nil {
			return errors.New("db not configured")
		}
		return pool.Ping(ctx)
	}
}
