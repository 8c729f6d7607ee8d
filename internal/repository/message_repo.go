package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"pairchat/internal/domain"
)

// MessageRepository define el contrato de persistencia para mensajes.
type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	ListByConversation(ctx context.Context, conversationID string, since *time.Time) ([]domain.Message, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO messages (id, conversation_id, sender_id, text, media_url, media_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	var text, mediaURL, mediaType interface{}
	if message.Text != "" {
		text = message.Text
	}
	if message.MediaURL != "" {
		mediaURL = message.MediaURL
	}
	if message.MediaType != "" {
		mediaType = message.MediaType
	}

	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.ConversationID,
		message.SenderID,
		text,
		mediaURL,
		mediaType,
		message.CreatedAt,
	)
	return err
}

// ListByConversation devuelve el log en orden de creación; la columna seq
// (BIGSERIAL) desempata mensajes con el mismo timestamp por orden de inserción.
func (r *PgMessageRepository) ListByConversation(ctx context.Context, conversationID string, since *time.Time) ([]domain.Message, error) {
	const query = `
		SELECT id, conversation_id, sender_id, text, media_url, media_type, created_at
		FROM messages
		WHERE conversation_id = $1 AND ($2::timestamptz IS NULL OR created_at > $2)
		ORDER BY created_at ASC, seq ASC
	`

	rows, err := r.pool.Query(ctx, query, conversationID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var text, mediaURL, mediaType *string

		err = rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&text,
			&mediaURL,
			&mediaType,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if text != nil {
			msg.Text = *text
		}
		if mediaURL != nil {
			msg.MediaURL = *mediaURL
		}
		if mediaType != nil {
			msg.MediaType = *mediaType
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
