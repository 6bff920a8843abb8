package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Vodeneev/tripprices/internal/comparator"
	"github.com/Vodeneev/tripprices/internal/pkg/config"
	"github.com/Vodeneev/tripprices/internal/pkg/models"
)

var _ comparator.Sink = (*PostgresComparisonStorage)(nil)

// PostgresComparisonStorage keeps a snapshot of every comparison run: one row per run
// and one row per populated matrix cell.
type PostgresComparisonStorage struct {
	db *sql.DB
}

// NewPostgresComparisonStorage connects, pings and creates the schema.
func NewPostgresComparisonStorage(cfg *config.PostgresConfig) (*PostgresComparisonStorage, error) {
	if cfg == nil || cfg.DSN == "" {
		return nil, errors.New("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s, err := NewPostgresComparisonStorageFromDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("PostgreSQL comparison storage initialized successfully")
	return s, nil
}

// NewPostgresComparisonStorageFromDB wraps an open handle and creates the schema.
func NewPostgresComparisonStorageFromDB(ctx context.Context, db *sql.DB) (*PostgresComparisonStorage, error) {
	s := &PostgresComparisonStorage{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresComparisonStorage) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS comparison_runs (
		run_id VARCHAR(64) PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		duration_ms BIGINT NOT NULL,
		contributing TEXT[] NOT NULL DEFAULT '{}',
		failed TEXT[] NOT NULL DEFAULT '{}',
		unmatched TEXT[] NOT NULL DEFAULT '{}',
		unresolved TEXT[] NOT NULL DEFAULT '{}',
		duplicates INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS comparison_cells (
		id SERIAL PRIMARY KEY,
		run_id VARCHAR(64) NOT NULL REFERENCES comparison_runs(run_id) ON DELETE CASCADE,
		row_key VARCHAR(500) NOT NULL,
		club_id VARCHAR(100) NOT NULL,
		match_label VARCHAR(500) NOT NULL,
		event_date DATE,
		source VARCHAR(100) NOT NULL,
		price DECIMAL(12, 2) NOT NULL,
		nights INTEGER NOT NULL,
		link TEXT NOT NULL DEFAULT '',
		is_valid BOOLEAN NOT NULL,
		is_comparable BOOLEAN NOT NULL,
		is_min BOOLEAN NOT NULL,
		is_max BOOLEAN NOT NULL,
		UNIQUE(run_id, row_key, source)
	);

	CREATE INDEX IF NOT EXISTS idx_comparison_cells_row_key ON comparison_cells(row_key);
	CREATE INDEX IF NOT EXISTS idx_comparison_cells_club_source ON comparison_cells(club_id, source);
	CREATE INDEX IF NOT EXISTS idx_comparison_runs_started_at ON comparison_runs(started_at DESC);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

const insertRunQuery = `
	INSERT INTO comparison_runs (
		run_id, started_at, duration_ms, contributing, failed, unmatched, unresolved, duplicates
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (run_id) DO NOTHING
	`

const insertCellQuery = `
	INSERT INTO comparison_cells (
		run_id, row_key, club_id, match_label, event_date, source,
		price, nights, link, is_valid, is_comparable, is_min, is_max
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (run_id, row_key, source) DO NOTHING
	`

// Publish stores the run and its cells in one transaction.
func (s *PostgresComparisonStorage) Publish(ctx context.Context, c *comparator.Comparison) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, insertRunQuery,
		c.RunID,
		c.StartedAt,
		c.Duration.Milliseconds(),
		pq.Array(orEmpty(c.Contributing)),
		pq.Array(orEmpty(c.Failed)),
		pq.Array(orEmpty(c.Unmatched)),
		pq.Array(entityIDs(c.Unresolved)),
		c.Duplicates,
	)
	if err != nil {
		return fmt.Errorf("failed to store comparison run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertCellQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare cell insert: %w", err)
	}
	defer stmt.Close()

	cells := 0
	for _, row := range c.Matrix.Rows {
		eventDate := sql.NullTime{Time: row.Date, Valid: !row.Undated}
		for _, source := range c.Matrix.Columns {
			cell, ok := row.Cell(source)
			if !ok {
				continue
			}
			_, err := stmt.ExecContext(ctx,
				c.RunID, row.Key, row.Entity.ID, row.Label, eventDate, source,
				cell.Price, cell.Nights, cell.Link,
				cell.Valid, cell.Comparable, cell.IsMin, cell.IsMax,
			)
			if err != nil {
				return fmt.Errorf("failed to store cell %s/%s: %w", row.Key, source, err)
			}
			cells++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit comparison: %w", err)
	}
	slog.Debug("Stored comparison snapshot", "run_id", c.RunID, "cells", cells)
	return nil
}

// Close closes the database connection.
func (s *PostgresComparisonStorage) Close() error {
	return s.db.Close()
}

// orEmpty keeps NOT NULL array columns happy: pq encodes a nil slice as NULL.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func entityIDs(es []models.CanonicalEntity) []string {
	ids := make([]string, len(es))
	for i, e := range es {
		ids[i] = e.ID
	}
	return ids
}
