package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Config holds database configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps sql.DB for the gateway's local state: admin sessions and cached
// upstream snapshots. All authoritative data lives in the bot backend; this
// database only has to survive gateway restarts.
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// New opens the local database, creating the file if needed.
func New(cfg Config, logger *zap.Logger) (*DB, error) {
	// WAL so HTTP handlers and background workers don't serialize on writes
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", cfg.Path)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{
		DB:     sqlDB,
		logger: logger,
	}

	logger.Info("Local database opened", zap.String("path", cfg.Path))
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.logger.Info("Closing local database")
	return db.DB.Close()
}
