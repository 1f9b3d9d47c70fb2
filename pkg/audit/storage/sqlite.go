package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/underwriter/pkg/audit"
)

const defaultLimit = 100

var errClosed = errors.New("storage closed")

// SQLiteConfig contains configuration for the SQLite backend.
type SQLiteConfig struct {
	// Path is the database file path. ":memory:" keeps the database in
	// memory for the lifetime of the storage.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// BusyTimeout is how long a writer waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	insert *sql.Stmt
	once   sync.Once
	logger *slog.Logger
}

// NewSQLiteStorage opens the database, enables WAL and creates the schema.
func NewSQLiteStorage(cfg *SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "audit.storage.sqlite")

	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if maxIdle <= 0 {
		maxIdle = 5
	}
	// Every connection to ":memory:" is a separate database.
	if cfg.Path == ":memory:" {
		maxOpen, maxIdle = 1, 1
	}

	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)

	s := &SQLiteStorage{db: db, config: cfg, logger: logger}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", cfg.Path,
		"max_open_conns", maxOpen,
	)
	return s, nil
}

func (s *SQLiteStorage) initialize() error {
	if s.config.Path != ":memory:" {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError("sqlite", "enable_wal", err)
		}
	}
	busy := s.config.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busy.Milliseconds())); err != nil {
		return audit.NewStorageError("sqlite", "set_busy_timeout", err)
	}
	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError("sqlite", "create_schema", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return audit.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	stmt, err := s.db.Prepare(insertDecision)
	if err != nil {
		return audit.NewStorageError("sqlite", "prepare", err)
	}
	s.insert = stmt
	return nil
}

// Store implements audit.Storage.
func (s *SQLiteStorage) Store(ctx context.Context, r *audit.DecisionRecord) error {
	engines, err := json.Marshal(nonNil(r.Engines))
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}
	reasons, err := json.Marshal(nonNil(r.DeclineReasons))
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}
	input, err := json.Marshal(r.Input)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}

	_, err = s.insert.ExecContext(ctx,
		r.ID, r.RequestID, r.Organization, string(engines), r.Outcome, r.Passed,
		string(reasons), r.InputHash, string(input), string(r.Decision), r.RecordedAt.UnixNano(),
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Get implements audit.Storage.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*audit.DecisionRecord, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM decisions WHERE id = ?", id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, audit.ErrNotFound
	}
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "get", err)
	}
	return r, nil
}

// Query implements audit.Storage.
func (s *SQLiteStorage) Query(ctx context.Context, q *audit.Query) ([]*audit.DecisionRecord, error) {
	if q == nil {
		q = &audit.Query{}
	}
	where, args := buildWhereClause(q)

	var b strings.Builder
	b.WriteString("SELECT " + selectColumns + " FROM decisions")
	if where != "" {
		b.WriteString(" WHERE " + where)
	}
	order := "DESC"
	if q.SortOrder == audit.SortAsc {
		order = "ASC"
	}
	limit := defaultLimit
	if q.Limit > 0 {
		limit = q.Limit
	}
	fmt.Fprintf(&b, " ORDER BY recorded_at %s, id %s LIMIT %d", order, order, limit)
	if q.Offset > 0 {
		fmt.Fprintf(&b, " OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*audit.DecisionRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// Count implements audit.Storage.
func (s *SQLiteStorage) Count(ctx context.Context, q *audit.Query) (int64, error) {
	query := "SELECT COUNT(*) FROM decisions"
	where, args := buildWhereClause(q)
	if where != "" {
		query += " WHERE " + where
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete implements audit.Storage.
func (s *SQLiteStorage) Delete(ctx context.Context, q *audit.Query) (int64, error) {
	query := "DELETE FROM decisions"
	where, args := buildWhereClause(q)
	if where != "" {
		query += " WHERE " + where
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "delete", err)
	}
	return n, nil
}

// Ping implements audit.Storage.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements audit.Storage.
func (s *SQLiteStorage) Close() error {
	var err error
	s.once.Do(func() {
		if s.insert != nil {
			s.insert.Close()
		}
		if cerr := s.db.Close(); cerr != nil {
			err = audit.NewStorageError("sqlite", "close", cerr)
			return
		}
		s.logger.Info("SQLite audit storage closed")
	})
	return err
}

func buildWhereClause(q *audit.Query) (string, []any) {
	if q == nil {
		return "", nil
	}
	var conds []string
	var args []any

	if q.StartTime != nil {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, q.StartTime.UnixNano())
	}
	if q.EndTime != nil {
		conds = append(conds, "recorded_at <= ?")
		args = append(args, q.EndTime.UnixNano())
	}
	if q.RequestID != "" {
		conds = append(conds, "request_id = ?")
		args = append(args, q.RequestID)
	}
	if q.Organization != "" {
		conds = append(conds, "organization = ?")
		args = append(args, q.Organization)
	}
	if q.Engine != "" {
		// engines holds a JSON array of names.
		conds = append(conds, "engines LIKE ?")
		args = append(args, `%"`+q.Engine+`"%`)
	}
	if q.Outcome != "" {
		conds = append(conds, "outcome = ?")
		args = append(args, q.Outcome)
	}
	if q.Passed != nil {
		conds = append(conds, "passed = ?")
		args = append(args, *q.Passed)
	}
	return strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*audit.DecisionRecord, error) {
	var (
		r                             audit.DecisionRecord
		requestID, org, reasons, hash sql.NullString
		input, decision               sql.NullString
		engines                       string
		recordedAt                    int64
	)
	if err := sc.Scan(&r.ID, &requestID, &org, &engines, &r.Outcome, &r.Passed,
		&reasons, &hash, &input, &decision, &recordedAt); err != nil {
		return nil, err
	}
	r.RequestID = requestID.String
	r.Organization = org.String
	r.InputHash = hash.String
	r.RecordedAt = time.Unix(0, recordedAt).UTC()

	if err := json.Unmarshal([]byte(engines), &r.Engines); err != nil {
		return nil, fmt.Errorf("decode engines: %w", err)
	}
	if reasons.Valid && reasons.String != "" {
		if err := json.Unmarshal([]byte(reasons.String), &r.DeclineReasons); err != nil {
			return nil, fmt.Errorf("decode decline reasons: %w", err)
		}
	}
	if input.Valid && input.String != "" && input.String != "null" {
		if err := json.Unmarshal([]byte(input.String), &r.Input); err != nil {
			return nil, fmt.Errorf("decode input: %w", err)
		}
	}
	if decision.Valid && decision.String != "" {
		r.Decision = json.RawMessage(decision.String)
	}
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
