package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/lystopay/r4-gateway/internal/config"
)

// Adapter wraps the MySQL connection pool with health checks and monitoring.
// The pool is sized small on purpose: stored procedures hold a dedicated
// connection for session-variable recovery, so the cap bounds concurrency.
type Adapter struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAdapter creates a pooled MySQL connection and verifies connectivity.
func NewAdapter(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Adapter, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MinIdleConns)
	db.SetConnMaxLifetime(cfg.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("min_idle_conns", cfg.MinIdleConns))

	return &Adapter{db: db, logger: logger}, nil
}

// DB exposes the underlying pool for the procedure executor.
func (a *Adapter) DB() *sql.DB {
	return a.db
}

// HealthCheck verifies database connectivity
func (a *Adapter) HealthCheck(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var one int
	if err := a.db.QueryRowContext(checkCtx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (a *Adapter) Close() error {
	a.logger.Info("Closing database connection pool")
	return a.db.Close()
}

// StartPoolMonitoring logs pool statistics periodically and warns when
// utilization approaches the cap.
func (a *Adapter) StartPoolMonitoring(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := a.db.Stats()
				a.logger.Debug("Database pool stats",
					zap.Int("open", stats.OpenConnections),
					zap.Int("in_use", stats.InUse),
					zap.Int("idle", stats.Idle),
					zap.Int64("wait_count", stats.WaitCount),
					zap.Duration("wait_duration", stats.WaitDuration))

				if stats.MaxOpenConnections > 0 {
					utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections)
					if utilization > 0.8 {
						a.logger.Warn("Database pool utilization high",
							zap.Float64("utilization", utilization),
							zap.Int("in_use", stats.InUse),
							zap.Int("max", stats.MaxOpenConnections))
					}
				}
			}
		}
	}()
}
