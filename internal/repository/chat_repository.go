package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/compliance-portal/internal/domain"
)

// ChatRepository persists chat sessions with their messages.
type ChatRepository interface {
	Create(ctx context.Context, session *domain.ChatSession) error
	SaveMessages(ctx context.Context, session *domain.ChatSession) error
	GetBySessionID(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error)
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]domain.ChatSession, error)
}

type chatRepository struct {
	db DBTX
}

// NewChatRepository builds the repository.
func NewChatRepository(db DBTX) ChatRepository {
	return &chatRepository{db: db}
}

const chatColumns = `id, session_id, user_id, state, silo, messages, status, created_at, updated_at`

func (r *chatRepository) Create(ctx context.Context, session *domain.ChatSession) error {
	if session.Status == "" {
		session.Status = domain.ChatSessionActive
	}
	messages, err := marshalMessages(session.Messages)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO compliance_chat_sessions (session_id, user_id, state, silo, messages, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		session.SessionID,
		session.UserID,
		session.State,
		session.Silo,
		messages,
		session.Status,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
}

// SaveMessages replaces the stored message list of the session.
func (r *chatRepository) SaveMessages(ctx context.Context, session *domain.ChatSession) error {
	messages, err := marshalMessages(session.Messages)
	if err != nil {
		return err
	}
	const query = `
        UPDATE compliance_chat_sessions SET messages=$1, updated_at=NOW()
        WHERE session_id=$2 AND user_id=$3
        RETURNING updated_at`
	var updatedAt time.Time
	if err := r.db.QueryRow(ctx, query, messages, session.SessionID, session.UserID).Scan(&updatedAt); err != nil {
		return err
	}
	session.UpdatedAt = updatedAt
	return nil
}

// GetBySessionID only returns sessions owned by userID.
func (r *chatRepository) GetBySessionID(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error) {
	query := `SELECT ` + chatColumns + ` FROM compliance_chat_sessions WHERE session_id=$1 AND user_id=$2`
	return scanChat(r.db.QueryRow(ctx, query, sessionID, userID))
}

func (r *chatRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]domain.ChatSession, error) {
	query := `SELECT ` + chatColumns + `
        FROM compliance_chat_sessions WHERE user_id=$1
        ORDER BY created_at DESC
        LIMIT $2`
	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ChatSession{}
	for rows.Next() {
		session, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *session)
	}
	return result, rows.Err()
}

func marshalMessages(messages []domain.ChatMessage) ([]byte, error) {
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	return marshalJSON(messages)
}

func scanChat(row pgx.Row) (*domain.ChatSession, error) {
	var (
		session  domain.ChatSession
		messages []byte
	)
	if err := row.Scan(
		&session.ID,
		&session.SessionID,
		&session.UserID,
		&session.State,
		&session.Silo,
		&messages,
		&session.Status,
		&session.CreatedAt,
		&session.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(messages, &session.Messages); err != nil {
		return nil, err
	}
	return &session, nil
}
