package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"pairchat/internal/domain"
	"pairchat/internal/repository"
)

// ConversationService resuelve y crea la conversación única entre dos usuarios.
type ConversationService struct {
	logger *zap.Logger
	convs  repository.ConversationRepository
	users  repository.UserRepository
}

func NewConversationService(logger *zap.Logger, convs repository.ConversationRepository, users repository.UserRepository) *ConversationService {
	return &ConversationService{
		logger: logger,
		convs:  convs,
		users:  users,
	}
}

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSelfConversation     = errors.New("cannot open a conversation with yourself")
)

// GetOrCreate devuelve la conversación del par, creándola si no existe.
// GetOrCreate(A,B) y GetOrCreate(B,A) devuelven la misma conversación.
func (s *ConversationService) GetOrCreate(ctx context.Context, userID, otherUserID string) (domain.ConversationView, error) {
	if s.convs == nil || s.users == nil {
		return domain.ConversationView{}, errors.New("conversation service not configured")
	}
	if userID == "" || otherUserID == "" {
		return domain.ConversationView{}, ErrMissingFields
	}
	if userID == otherUserID {
		return domain.ConversationView{}, ErrSelfConversation
	}

	caller, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ConversationView{}, ErrUserNotFound
		}
		return domain.ConversationView{}, err
	}
	other, err := s.users.GetByID(ctx, otherUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ConversationView{}, ErrUserNotFound
		}
		return domain.ConversationView{}, err
	}

	a, b := userID, otherUserID
	if b < a {
		a, b = b, a
	}
	now := time.Now().UTC()
	conv, err := s.convs.GetOrCreate(ctx, domain.Conversation{
		ID:            uuid.NewString(),
		ParticipantA:  a,
		ParticipantB:  b,
		LastMessageAt: now,
		CreatedAt:     now,
	})
	if err != nil {
		return domain.ConversationView{}, err
	}

	return s.view(conv, map[string]domain.UserSummary{
		caller.ID: caller.Summary(),
		other.ID:  other.Summary(),
	}), nil
}

// ListForUser devuelve las conversaciones del usuario ordenadas por actividad
// descendente, con ambos participantes resueltos.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]domain.ConversationView, error) {
	if s.convs == nil || s.users == nil {
		return nil, errors.New("conversation service not configured")
	}
	convs, err := s.convs.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]domain.UserSummary)
	views := make([]domain.ConversationView, 0, len(convs))
	for _, conv := range convs {
		for _, id := range []string{conv.ParticipantA, conv.ParticipantB} {
			if _, ok := summaries[id]; ok {
				continue
			}
			u, err := s.users.GetByID(ctx, id)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					s.logger.Warn("conversation references unknown user",
						zap.String("conversation_id", conv.ID),
						zap.String("user_id", id),
					)
					summaries[id] = domain.UserSummary{ID: id}
					continue
				}
				return nil, err
			}
			summaries[id] = u.Summary()
		}
		views = append(views, s.view(conv, summaries))
	}

	return views, nil
}

func (s *ConversationService) view(conv domain.Conversation, summaries map[string]domain.UserSummary) domain.ConversationView {
	return domain.ConversationView{
		ID: conv.ID,
		Participants: []domain.UserSummary{
			summaries[conv.ParticipantA],
			summaries[conv.ParticipantB],
		},
		LastMessageAt: conv.LastMessageAt,
		CreatedAt:     conv.CreatedAt,
	}
}
