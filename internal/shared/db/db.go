package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gatherly/configs"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
	"gorm.io/plugin/opentelemetry/tracing"
)

type Store struct{ Base *gorm.DB }

// New wraps an already opened connection.
func New(base *gorm.DB) *Store { return &Store{Base: base} }

// Open connects to postgres, retrying with backoff until the server answers.
// Reads go to the configured replicas when there are any.
func Open(cfg *configs.Config, log *zap.Logger) (*Store, error) {
	base, err := openWithRetry(cfg.DSN(), 8, time.Second, log)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}

	sqlDB, err := base.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpen)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdle)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if r := resolver(cfg.ReplicaDSNs()); r != nil {
		if err := base.Use(r); err != nil {
			return nil, fmt.Errorf("dbresolver: %w", err)
		}
	}
	if cfg.DB.Tracing {
		if err := base.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("db tracing: %w", err)
		}
	}
	return &Store{Base: base}, nil
}

// Writer forces the primary, for reads that must observe a preceding write.
func (s *Store) Writer(ctx context.Context) *gorm.DB {
	return s.Base.WithContext(ctx).Clauses(dbresolver.Write)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.Base.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.Base.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func resolver(replicas []string) *dbresolver.DBResolver {
	if len(replicas) == 0 {
		return nil
	}
	readers := make([]gorm.Dialector, 0, len(replicas))
	for _, r := range replicas {
		readers = append(readers, postgres.Open(r))
	}
	return dbresolver.Register(dbresolver.Config{
		Replicas: readers,
		Policy:   dbresolver.RandomPolicy{},
	})
}

func openWithRetry(dsn string, attempts int, sleep time.Duration, log *zap.Logger) (*gorm.DB, error) {
	var last error
	for i := 1; i <= attempts; i++ {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Warn),
			TranslateError: true,
		})
		if err == nil {
			s, e := db.DB()
			if e == nil {
				if e = pingWithTimeout(s, 2*time.Second); e == nil {
					return db, nil
				}
			}
			last = e
		} else {
			last = err
		}
		if log != nil {
			log.Warn("db not ready", zap.Int("attempt", i), zap.Error(last))
		}
		time.Sleep(sleep)
		if sleep < 8*time.Second {
			sleep *= 2
		}
	}
	return nil, last
}

func pingWithTimeout(sqlDB *sql.DB, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- sqlDB.Ping() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("db ping timeout after %s", timeout)
	}
}
