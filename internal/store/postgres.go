package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock keeps several archiver replicas from racing on startup.
	const lockID = 718202411

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another replica is migrating; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			id UUID PRIMARY KEY,
			session_id UUID NOT NULL,
			user_message TEXT NOT NULL,
			reply TEXT NOT NULL,
			capabilities TEXT[] NOT NULL DEFAULT '{}',
			outcome TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS turns_session_idx ON turns (session_id, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) SaveTurn(ctx context.Context, t Turn) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns(id, session_id, user_message, reply, capabilities, outcome, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO NOTHING`,
		t.ID, t.SessionID, t.UserMessage, t.Reply, pq.Array(stringArray(t.Capabilities)), t.Outcome, t.CreatedAt)
	return err
}

func (s *PostgresStore) ListTurns(ctx context.Context, sessionID uuid.UUID) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_message, reply, capabilities, outcome, created_at
		FROM turns WHERE session_id=$1 ORDER BY created_at, id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Turn{}
	for rows.Next() {
		t := Turn{SessionID: sessionID}
		if err := rows.Scan(&t.ID, &t.UserMessage, &t.Reply, pq.Array(&t.Capabilities), &t.Outcome, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func stringArray(items []string) []string {
	if len(items) == 0 {
		return []string{}
	}
	return items
}
