// Package storage persists agent conversation state in SQLite. One store
// is shared by every agent and team created within an execution context
// and released on its cleanup.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aatumaykin/cronbot/internal/logger"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// Turn is one stored conversation message.
type Turn struct {
	Agent   string
	RunID   string
	Role    string
	Content string
	At      time.Time
}

// Store is a SQLite-backed conversation store.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// Open opens (creating if needed) the store at path and applies migrations.
func Open(path string, log *logger.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	s := &Store{db: db, log: log}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	log.Info("Conversation store opened", logger.Field{Key: "path", Value: path})
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	schema, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(schema))
	return err
}

// AppendTurn records one conversation message for an agent.
func (s *Store) AppendTurn(ctx context.Context, turn Turn) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is closed")
	}
	at := turn.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations(agent, run_id, role, content, at) VALUES(?,?,?,?,?)`,
		turn.Agent, turn.RunID, turn.Role, turn.Content, at.Format(time.RFC3339Nano),
	)
	return err
}

// History returns up to limit most recent turns for an agent, oldest first.
func (s *Store) History(ctx context.Context, agent string, limit int) ([]Turn, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store is closed")
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT agent, run_id, role, content, at FROM (
		     SELECT id, agent, run_id, role, content, at
		     FROM conversations WHERE agent = ? ORDER BY id DESC LIMIT ?
		 ) ORDER BY id ASC`,
		agent, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var at string
		if err := rows.Scan(&t.Agent, &t.RunID, &t.Role, &t.Content, &at); err != nil {
			return nil, err
		}
		if parsed, err := time.Parse(time.RFC3339Nano, at); err == nil {
			t.At = parsed
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Prune keeps only the newest keep turns per agent.
func (s *Store) Prune(ctx context.Context, agent string, keep int) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store is closed")
	}
	if keep < 0 {
		keep = 0
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE agent = ? AND id NOT IN (
		     SELECT id FROM conversations WHERE agent = ? ORDER BY id DESC LIMIT ?
		 )`,
		agent, agent, keep,
	)
	return err
}

// Close releases the database handle. Safe to call more than once.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
