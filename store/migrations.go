package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
)

// ErrDimensionMismatch is returned when a database created for one embedding
// dimension is opened with another. The vec0 table cannot be resized.
var ErrDimensionMismatch = errors.New("store: embedding dimension mismatch")

// migration is one versioned schema step. Steps run in a transaction and
// receive the store so they can read its settings.
type migration struct {
	version     int
	description string
	apply       func(ctx context.Context, tx *sql.Tx, s *Store) error
}

// migrations must stay ordered by version; released entries are immutable.
var migrations = []migration{
	{
		version:     1,
		description: "initial schema",
		apply:       func(context.Context, *sql.Tx, *Store) error { return nil }, // created by schemaSQL
	},
	{
		version:     2,
		description: "record embedding dimension",
		apply: func(ctx context.Context, tx *sql.Tx, s *Store) error {
			_, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO store_meta (key, value) VALUES ('embedding_dim', ?)",
				strconv.Itoa(s.embeddingDim))
			return err
		},
	},
}

// Migrate brings the database up to the latest schema version and verifies
// that it was created for the store's embedding dimension.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	current, err := s.schemaVersion(ctx)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		slog.Info("store: applying migration", "version", m.version, "description", m.description)
		if err := s.inTx(ctx, func(tx *sql.Tx) error {
			if err := m.apply(ctx, tx, s); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_version (version, description) VALUES (?, ?)",
				m.version, m.description)
			return err
		}); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
	}

	return s.checkEmbeddingDim(ctx)
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	return s.schemaVersion(ctx)
}

func (s *Store) schemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

func (s *Store) checkEmbeddingDim(ctx context.Context) error {
	var stored string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM store_meta WHERE key = 'embedding_dim'").Scan(&stored)
	if err != nil {
		return fmt.Errorf("reading embedding dimension: %w", err)
	}
	if stored != strconv.Itoa(s.embeddingDim) {
		return fmt.Errorf("%w: database uses %s, configured %d", ErrDimensionMismatch, stored, s.embeddingDim)
	}
	return nil
}
