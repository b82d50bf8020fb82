package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pharmos-labs/vigil-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure EntryStore implements the interface.
var _ driven.EntryStore = (*EntryStore)(nil)

// EntryStore is a SQLite-backed implementation of driven.EntryStore.
type EntryStore struct {
	db   *sql.DB
	path string
}

// NewEntryStore creates a SQLite entry store in the data directory.
// If dataDir is empty, defaults to ~/.vigil/data/entries.db.
func NewEntryStore(dataDir string) (*EntryStore, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".vigil", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "entries.db")

	// WAL mode for better concurrency under the parallel fetchers.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &EntryStore{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *EntryStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *EntryStore) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *EntryStore) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}
	return nil
}

// SaveEntries stores a batch of unified entries, upserting on ID.
func (s *EntryStore) SaveEntries(ctx context.Context, entries []domain.UnifiedEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (id, source, drug, reaction, text, confidence, severity, occurred_at, metadata, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source = excluded.source,
			drug = excluded.drug,
			reaction = excluded.reaction,
			text = excluded.text,
			confidence = excluded.confidence,
			severity = excluded.severity,
			occurred_at = excluded.occurred_at,
			metadata = excluded.metadata,
			stored_at = excluded.stored_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, entry := range entries {
		metadataJSON, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}

		var occurredAt sql.NullTime
		if entry.Timestamp != nil {
			occurredAt = sql.NullTime{Time: entry.Timestamp.UTC(), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, entry.ID, entry.Source, entry.Drug, entry.Reaction,
			entry.Text, entry.Confidence, entry.Severity, occurredAt, string(metadataJSON), now); err != nil {
			return fmt.Errorf("saving entry %s: %w", entry.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListBySource returns stored entries for one source, most recent first.
func (s *EntryStore) ListBySource(ctx context.Context, source string, limit int) ([]domain.UnifiedEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, drug, reaction, text, confidence, severity, occurred_at, metadata
		FROM entries WHERE source = ?
		ORDER BY stored_at DESC, id
		LIMIT ?
	`, source, limit)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.UnifiedEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var entry domain.UnifiedEntry
		var occurredAt sql.NullTime
		var metadataJSON sql.NullString

		if err := rows.Scan(&entry.ID, &entry.Source, &entry.Drug, &entry.Reaction,
			&entry.Text, &entry.Confidence, &entry.Severity, &occurredAt, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}

		if occurredAt.Valid {
			ts := occurredAt.Time.UTC()
			entry.Timestamp = &ts
		}
		if metadataJSON.Valid && metadataJSON.String != "" && metadataJSON.String != "null" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling metadata: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return entries, nil
}

// Count returns the total number of stored entries.
func (s *EntryStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return count, nil
}
