package store

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Health describes the database for diagnostic output.
type Health struct {
	Path          string         `json:"path"`
	SizeBytes     int64          `json:"size_bytes"`
	SchemaVersion int            `json:"schema_version"`
	Integrity     bool           `json:"integrity_ok"`
	Recordings    int            `json:"recordings"`
	ByStatus      map[Status]int `json:"by_status"`
}

// CheckHealth pings the database, verifies its integrity, and counts
// recordings by status.
func (s *Store) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{Path: s.path}
	if info, err := os.Stat(s.path); err == nil {
		health.SizeBytes = info.Size()
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		return health, fmt.Errorf("ping database: %w", err)
	}
	if err := s.db.QueryRowContext(connCtx, "SELECT version FROM schema_version LIMIT 1").Scan(&health.SchemaVersion); err != nil {
		return health, fmt.Errorf("read schema version: %w", err)
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.Integrity = strings.EqualFold(integrity, "ok")

	stats, err := s.Stats(connCtx)
	if err != nil {
		return health, err
	}
	health.ByStatus = stats
	for _, count := range stats {
		health.Recordings += count
	}
	return health, nil
}
