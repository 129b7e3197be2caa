package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps transcripts in a single file, for running the archiver
// without a database server.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path. ":memory:" works for tests.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS turns (
		"id" TEXT NOT NULL PRIMARY KEY,
		"session_id" TEXT NOT NULL,
		"user_message" TEXT NOT NULL,
		"reply" TEXT NOT NULL,
		"capabilities" TEXT NOT NULL DEFAULT '[]',
		"outcome" TEXT NOT NULL,
		"created_at" DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS turns_session_idx ON turns (session_id, created_at);`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create turns table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) SaveTurn(ctx context.Context, t Turn) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	caps, err := json.Marshal(stringArray(t.Capabilities))
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO turns(id, session_id, user_message, reply, capabilities, outcome, created_at)
		VALUES(?,?,?,?,?,?,?)`,
		t.ID.String(), t.SessionID.String(), t.UserMessage, t.Reply, string(caps), string(t.Outcome), t.CreatedAt.UTC())
	return err
}

func (s *SQLiteStore) ListTurns(ctx context.Context, sessionID uuid.UUID) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_message, reply, capabilities, outcome, created_at
		FROM turns WHERE session_id=? ORDER BY created_at, id`, sessionID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Turn{}
	for rows.Next() {
		var (
			id      string
			caps    string
			outcome string
		)
		t := Turn{SessionID: sessionID}
		if err := rows.Scan(&id, &t.UserMessage, &t.Reply, &caps, &outcome, &t.CreatedAt); err != nil {
			return nil, err
		}
		if t.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("turn id %q: %w", id, err)
		}
		if err := json.Unmarshal([]byte(caps), &t.Capabilities); err != nil {
			return nil, fmt.Errorf("turn %s capabilities: %w", id, err)
		}
		t.Outcome = Outcome(outcome)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
