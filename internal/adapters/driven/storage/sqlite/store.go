package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/quorum-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/quorum-cli/internal/core/domain"
	"github.com/custodia-labs/quorum-cli/internal/core/ports/driven"
)

// Store is a SQLite-based storage providing persistent source
// configuration through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.quorum/data/quorum.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".quorum", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "quorum.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SourceConfigStore returns a SourceConfigStore interface backed by this store.
func (s *Store) SourceConfigStore() driven.SourceConfigStore {
	return &sourceConfigStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
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
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
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

// ==================== Source Config Store ====================

// sourceConfigStore implements driven.SourceConfigStore.
type sourceConfigStore struct {
	store *Store
}

var _ driven.SourceConfigStore = (*sourceConfigStore)(nil)

// Save stores or updates a source configuration.
func (s *sourceConfigStore) Save(ctx context.Context, cfg domain.SourceConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("%w: source config ID is required", domain.ErrInvalidInput)
	}

	settingsJSON, err := json.Marshal(cfg.Settings)
	if err != nil {
		return fmt.Errorf("marshalling settings: %w", err)
	}

	now := time.Now().UTC()
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO source_configs (id, type, name, priority, settings, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			name = excluded.name,
			priority = excluded.priority,
			settings = excluded.settings,
			updated_at = excluded.updated_at
	`, cfg.ID, cfg.Type, cfg.Name, cfg.Priority, string(settingsJSON),
		cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("saving source config: %w", err)
	}

	return nil
}

// Get retrieves a source configuration by ID.
func (s *sourceConfigStore) Get(ctx context.Context, id string) (*domain.SourceConfig, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, type, name, priority, settings, created_at, updated_at
		FROM source_configs WHERE id = ?
	`, id)

	cfg, err := scanSourceConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting source config: %w", err)
	}
	return cfg, nil
}

// Delete removes a source configuration.
func (s *sourceConfigStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM source_configs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting source config: %w", err)
	}
	return nil
}

// List returns all configured sources ordered by priority.
func (s *sourceConfigStore) List(ctx context.Context) ([]domain.SourceConfig, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, type, name, priority, settings, created_at, updated_at
		FROM source_configs ORDER BY priority, id
	`)
	if err != nil {
		return nil, fmt.Errorf("listing source configs: %w", err)
	}
	defer rows.Close()

	var configs []domain.SourceConfig
	for rows.Next() {
		cfg, err := scanSourceConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning source config: %w", err)
		}
		configs = append(configs, *cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating source configs: %w", err)
	}

	return configs, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scanning.
type scanner interface {
	Scan(dest ...any) error
}

// scanSourceConfig reads one source_configs row.
func scanSourceConfig(row scanner) (*domain.SourceConfig, error) {
	var cfg domain.SourceConfig
	var settingsJSON string

	err := row.Scan(&cfg.ID, &cfg.Type, &cfg.Name, &cfg.Priority,
		&settingsJSON, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(settingsJSON), &cfg.Settings); err != nil {
		return nil, fmt.Errorf("unmarshalling settings: %w", err)
	}
	return &cfg, nil
}
