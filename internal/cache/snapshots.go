// Package cache persists the latest upstream snapshot per resource. A
// restarted gateway pre-warms its stores from here, so dashboards keep
// showing last-known data while the backend is unreachable.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Snapshots stores one JSON payload per resource name.
type Snapshots struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSnapshots creates a snapshot cache.
func NewSnapshots(db *sql.DB, logger *zap.Logger) *Snapshots {
	return &Snapshots{
		db:     db,
		logger: logger,
	}
}

// Save upserts the snapshot for a resource with the current time.
func (s *Snapshots) Save(resource string, records any) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode %s snapshot: %w", resource, err)
	}

	query := `
		INSERT INTO snapshots (resource, payload, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(resource) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at
	`
	if _, err := s.db.Exec(query, resource, string(payload), time.Now()); err != nil {
		s.logger.Error("Failed to save snapshot",
			zap.String("resource", resource),
			zap.Error(err))
		return fmt.Errorf("failed to save %s snapshot: %w", resource, err)
	}
	return nil
}

// Load decodes the cached snapshot for a resource into out. It returns the
// fetch time and false when no snapshot exists. A corrupt payload is treated
// as absent rather than fatal; the next refresh overwrites it.
func (s *Snapshots) Load(resource string, out any) (time.Time, bool, error) {
	var payload string
	var fetchedAt time.Time
	err := s.db.QueryRow(
		"SELECT payload, fetched_at FROM snapshots WHERE resource = ?", resource,
	).Scan(&payload, &fetchedAt)

	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to load %s snapshot: %w", resource, err)
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		s.logger.Warn("Discarding corrupt cached snapshot",
			zap.String("resource", resource),
			zap.Error(err))
		return time.Time{}, false, nil
	}
	return fetchedAt, true, nil
}
