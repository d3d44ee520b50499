package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/Birzhan20/neuro-search-core/internal/models"
)

// ChatRepository persists conversation sessions and their messages.
// Messages are append-only and always read back oldest first.
type ChatRepository interface {
	// GetOrCreateSession resolves an existing session or creates a new one.
	// A malformed or unknown id creates a fresh session; the bool reports
	// whether a new session was created.
	GetOrCreateSession(ctx context.Context, sessionID string) (uuid.UUID, bool, error)

	// AppendMessage appends one message to the session log.
	AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) error

	// ListRecentMessages returns up to limit most recent messages of the
	// session, ordered oldest first.
	ListRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.Message, error)
}

// PostgresChatRepository implements ChatRepository on Postgres.
type PostgresChatRepository struct {
	conn *sql.DB
}

// NewPostgresChatRepository creates a Postgres-backed chat repository.
func NewPostgresChatRepository(conn *sql.DB) *PostgresChatRepository {
	return &PostgresChatRepository{conn: conn}
}

// GetOrCreateSession resolves the session id, creating a session when the id
// is empty, malformed or unknown.
func (r *PostgresChatRepository) GetOrCreateSession(ctx context.Context, sessionID string) (uuid.UUID, bool, error) {
	if sessionID != "" {
		if sid, err := uuid.Parse(sessionID); err == nil {
			var found uuid.UUID
			err := r.conn.QueryRowContext(ctx,
				`SELECT id FROM chat_sessions WHERE id = $1`, sid).Scan(&found)
			if err == nil {
				return found, false, nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return uuid.Nil, false, NewRepositoryError("get_session", err)
			}
		}
	}

	sid := uuid.New()
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO chat_sessions (id) VALUES ($1)`, sid)
	if err != nil {
		return uuid.Nil, false, NewRepositoryError("create_session", err)
	}

	return sid, true, nil
}

// AppendMessage appends one message to the session log.
func (r *PostgresChatRepository) AppendMessage(ctx context.Context, sessionID uuid.UUID, role, content string) error {
	_, err := r.conn.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content) VALUES ($1, $2, $3)`,
		sessionID, role, content)
	if err != nil {
		return NewRepositoryError("append_message", err)
	}
	return nil
}

// ListRecentMessages returns the last limit messages, oldest first. The id
// tiebreak keeps the order stable when timestamps collide, so a user message
// written immediately before its assistant reply never trades places with it.
func (r *PostgresChatRepository) ListRecentMessages(ctx context.Context, sessionID uuid.UUID, limit int) ([]models.Message, error) {
	rows, err := r.conn.QueryContext(ctx,
		`SELECT session_id, role, content, created_at
		 FROM messages
		 WHERE session_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		sessionID, limit)
	if err != nil {
		return nil, NewRepositoryError("list_messages", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, NewRepositoryError("list_messages", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, NewRepositoryError("list_messages", err)
	}

	// Reverse newest-first into oldest-first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
