// Package history persists per-build records so the serve API can report
// recent build outcomes across restarts.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/sitegen/internal/site"
)

// Entry is one persisted build record.
type Entry struct {
	ID          int64     `json:"id"`
	BuildID     string    `json:"build_id"`
	Incremental bool      `json:"incremental"`
	StartedAt   time.Time `json:"started_at"`
	DurationMS  int64     `json:"duration_ms"`
	Processed   int       `json:"processed"`
	Copied      int       `json:"copied"`
	Skipped     int       `json:"skipped"`
	Success     bool      `json:"success"`
	Errors      []string  `json:"errors,omitempty"`
	Commit      string    `json:"commit,omitempty"`
}

// Store persists build records in SQLite.
// Use ":memory:" for an ephemeral store, or a file path for persistence.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore opens (and initializes, if needed) the store at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		incremental INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		processed INTEGER NOT NULL,
		copied INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		success INTEGER NOT NULL,
		errors TEXT,
		commit_hash TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_builds_build_id ON builds(build_id);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record persists the outcome of one build.
func (s *Store) Record(ctx context.Context, res *site.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errorsJSON []byte
	if len(res.Errors) > 0 {
		msgs := make([]string, 0, len(res.Errors))
		for _, fe := range res.Errors {
			msgs = append(msgs, fe.Error())
		}
		var err error
		errorsJSON, err = json.Marshal(msgs)
		if err != nil {
			return fmt.Errorf("marshal errors: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO builds
		 (build_id, incremental, started_at, duration_ms, processed, copied, skipped, success, errors, commit_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.BuildID, boolInt(res.Incremental), res.StartedAt.Unix(), res.Duration.Milliseconds(),
		res.Processed, res.Copied, res.Skipped, boolInt(!res.Failed()), errorsJSON, res.Commit,
	)
	if err != nil {
		return fmt.Errorf("insert build record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, build_id, incremental, started_at, duration_ms, processed, copied, skipped, success, errors, commit_hash
		 FROM builds ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Get returns all records for one build ID, oldest first.
func (s *Store) Get(ctx context.Context, buildID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, build_id, incremental, started_at, duration_ms, processed, copied, skipped, success, errors, commit_hash
		 FROM builds WHERE build_id = ? ORDER BY id`, buildID)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			incremental int
			startedUnix int64
			success     int
			errorsJSON  []byte
			commit      sql.NullString
		)
		err := rows.Scan(&e.ID, &e.BuildID, &incremental, &startedUnix, &e.DurationMS,
			&e.Processed, &e.Copied, &e.Skipped, &success, &errorsJSON, &commit)
		if err != nil {
			return nil, fmt.Errorf("scan build record: %w", err)
		}

		e.Incremental = incremental != 0
		e.StartedAt = time.Unix(startedUnix, 0)
		e.Success = success != 0
		e.Commit = commit.String
		if len(errorsJSON) > 0 {
			if err := json.Unmarshal(errorsJSON, &e.Errors); err != nil {
				return nil, fmt.Errorf("unmarshal errors: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
