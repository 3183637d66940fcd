package mirror

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agenthands/inquest/internal/core/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	metadata   JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	role       TEXT NOT NULL CHECK (role IN ('investigator', 'suspect')),
	content    TEXT NOT NULL,
	metadata   JSONB NOT NULL DEFAULT '{}',
	position   BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (session_id, position)
);

CREATE INDEX IF NOT EXISTS idx_messages_session_position ON messages (session_id, position);
`

type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and applies the schema.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) WriteExchange(ctx context.Context, session model.Session, question, answer model.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	metadata := session.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET updated_at = now()`,
		session.ID, metadata, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	for _, msg := range []model.Message{question, answer} {
		tag, err := tx.Exec(ctx, `
			INSERT INTO messages (id, session_id, role, content, metadata, position, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`,
			msg.ID, msg.SessionID, msg.Role, msg.Content, msg.Metadata, msg.Position, msg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert %s message: %w", msg.Role, err)
		}
		if tag.RowsAffected() == 1 {
			continue
		}
		// a replay of the same exchange is fine, a different one is not
		var existing string
		if err := tx.QueryRow(ctx, `SELECT content FROM messages WHERE id = $1`, msg.ID).Scan(&existing); err != nil {
			return fmt.Errorf("check %s message: %w", msg.Role, err)
		}
		if existing != msg.Content {
			return fmt.Errorf("%w: message %s at position %d", model.ErrSequenceConflict, msg.ID, msg.Position)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) Messages(ctx context.Context, sessionID string) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, role, content, metadata, position, created_at
		FROM messages
		WHERE session_id = $1
		ORDER BY position`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.Metadata, &m.Position, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
