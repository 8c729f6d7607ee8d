package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pairchat/internal/domain"
)

// ConversationRepository define el contrato de persistencia para conversaciones.
type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (domain.Conversation, error)
	GetOrCreate(ctx context.Context, conv domain.Conversation) (domain.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Conversation, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

// PgConversationRepository implementa ConversationRepository usando pgxpool.
type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

func (r *PgConversationRepository) GetByID(ctx context.Context, id string) (domain.Conversation, error) {
	const query = `
		SELECT id, participant_a, participant_b, last_message_at, created_at
		FROM conversations
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetOrCreate inserta la conversación contra la clave única del par. Si otra
// llamada concurrente ya insertó la misma pareja, el perdedor relee la fila
// ganadora en lugar de fallar.
func (r *PgConversationRepository) GetOrCreate(ctx context.Context, conv domain.Conversation) (domain.Conversation, error) {
	const insert = `
		INSERT INTO conversations (id, pair_key, participant_a, participant_b, last_message_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (pair_key) DO NOTHING
		RETURNING id, participant_a, participant_b, last_message_at, created_at
	`
	pairKey := domain.PairKey(conv.ParticipantA, conv.ParticipantB)

	created, err := r.scanOne(r.pool.QueryRow(ctx, insert,
		conv.ID,
		pairKey,
		conv.ParticipantA,
		conv.ParticipantB,
		conv.LastMessageAt,
		conv.CreatedAt,
	))
	if err == nil {
		return created, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, err
	}

	const selectByPair = `
		SELECT id, participant_a, participant_b, last_message_at, created_at
		FROM conversations
		WHERE pair_key = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, selectByPair, pairKey))
}

func (r *PgConversationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	const query = `
		SELECT id, participant_a, participant_b, last_message_at, created_at
		FROM conversations
		WHERE participant_a = $1 OR participant_b = $1
		ORDER BY last_message_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		err = rows.Scan(
			&c.ID,
			&c.ParticipantA,
			&c.ParticipantB,
			&c.LastMessageAt,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return convs, nil
}

func (r *PgConversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE conversations
		SET last_message_at = $2
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *PgConversationRepository) scanOne(row pgx.Row) (domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(
		&c.ID,
		&c.ParticipantA,
		&c.ParticipantB,
		&c.LastMessageAt,
		&c.CreatedAt,
	)
	if err != nil {
		return domain.Conversation{}, err
	}
	return c, nil
}
