package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/underwriter/pkg/strategy"
)

// SQLiteStore keeps strategy documents in SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	closeOnce sync.Once

	putStmt    *sql.Stmt
	deleteStmt *sql.Stmt
}

// NewSQLiteStore opens (creating if needed) the store at path. Use
// ":memory:" for a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS compiled_strategies (
		organization TEXT NOT NULL,
		name TEXT NOT NULL,
		short_name TEXT NOT NULL,
		status TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		document TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (organization, name)
	);

	CREATE INDEX IF NOT EXISTS idx_compiled_strategies_status ON compiled_strategies(organization, status);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO compiled_strategies (organization, name, short_name, status, version, document, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (organization, name) DO UPDATE SET
			short_name = excluded.short_name,
			status = excluded.status,
			version = excluded.version,
			document = excluded.document,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare put statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`
		DELETE FROM compiled_strategies
		WHERE organization = ? AND name = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	return nil
}

// Put stores cfg, replacing an existing document with the same
// organization and name.
func (s *SQLiteStore) Put(ctx context.Context, cfg *strategy.EngineConfig) error {
	if cfg == nil || cfg.Name == "" {
		return ErrNameRequired
	}

	doc, err := strategy.Encode(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode strategy %q: %w", cfg.Name, err)
	}

	status := cfg.Status
	if status == "" {
		status = "active"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.putStmt.ExecContext(ctx,
		cfg.Organization,
		cfg.Name,
		cfg.ShortName(),
		strings.ToLower(status),
		cfg.Version,
		string(doc),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save strategy: %w", err)
	}
	return nil
}

// Delete removes the named strategy.
func (s *SQLiteStore) Delete(ctx context.Context, organization, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deleteStmt.ExecContext(ctx, organization, name); err != nil {
		return fmt.Errorf("failed to delete strategy: %w", err)
	}
	return nil
}

// ActiveStrategies returns the stored strategies matching q, ordered by
// name.
func (s *SQLiteStore) ActiveStrategies(ctx context.Context, q Query) ([]*strategy.EngineConfig, error) {
	query, args := buildQuery(q)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	var configs []*strategy.EngineConfig
	for rows.Next() {
		var name, doc string
		if err := rows.Scan(&name, &doc); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		docs, err := strategy.DecodeBytes([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("strategy %q: %w", name, err)
		}
		configs = append(configs, docs...)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return configs, nil
}

// buildQuery renders q as SQL.
func buildQuery(q Query) (string, []any) {
	var (
		where []string
		args  []any
	)

	if !q.IncludeInactive {
		where = append(where, "status = 'active'")
	}
	if q.Organization != "" {
		where = append(where, "organization = ?")
		args = append(args, q.Organization)
	}
	if len(q.Names) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(q.Names)), ",")
		where = append(where, "(short_name IN ("+placeholders+") OR name IN ("+placeholders+"))")
		for _, n := range q.Names {
			args = append(args, n)
		}
		for _, n := range q.Names {
			args = append(args, n)
		}
	}

	query := "SELECT name, document FROM compiled_strategies"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY name", args
}

// Close releases the database. Close is idempotent.
func (s *SQLiteStore) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		if s.putStmt != nil {
			s.putStmt.Close()
		}
		if s.deleteStmt != nil {
			s.deleteStmt.Close()
		}
		closeErr = s.db.Close()
	})
	return closeErr
}
