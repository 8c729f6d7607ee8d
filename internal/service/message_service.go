package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"pairchat/internal/domain"
	"pairchat/internal/media"
	"pairchat/internal/repository"
)

// Broadcaster publica un evento a todas las conexiones suscritas a una sala.
// La publicación es best-effort: cero suscriptores no es un error.
type Broadcaster interface {
	Publish(room string, event string, payload any) int
}

// MessageService orquesta el envío de mensajes: membresía, subida de media,
// persistencia y difusión en ese orden.
type MessageService struct {
	logger        *zap.Logger
	convs         repository.ConversationRepository
	msgs          repository.MessageRepository
	users         repository.UserRepository
	uploader      media.Uploader
	broadcaster   Broadcaster
	uploadTimeout time.Duration
}

func NewMessageService(
	logger *zap.Logger,
	convs repository.ConversationRepository,
	msgs repository.MessageRepository,
	users repository.UserRepository,
	uploader media.Uploader,
	broadcaster Broadcaster,
	uploadTimeout time.Duration,
) *MessageService {
	if uploadTimeout <= 0 {
		uploadTimeout = 15 * time.Second
	}
	return &MessageService{
		logger:        logger,
		convs:         convs,
		msgs:          msgs,
		users:         users,
		uploader:      uploader,
		broadcaster:   broadcaster,
		uploadTimeout: uploadTimeout,
	}
}

var (
	ErrEmptyMessage   = errors.New("message must contain text or media")
	ErrNotParticipant = errors.New("not a participant in this conversation")
	ErrMediaUpload    = errors.New("media upload failed")
)

// EventMessageNew es el evento que recibe la sala con el mensaje canónico.
const EventMessageNew = "message:new"

type SendInput struct {
	ConversationID string
	SenderID       string
	Text           string
	Media          *media.Upload
}

// Send persiste el mensaje y luego lo publica a la sala de la conversación,
// incluido el propio remitente. Devuelve la misma forma canónica que recibe
// la sala.
func (s *MessageService) Send(ctx context.Context, in SendInput) (domain.WireMessage, error) {
	if s == nil || s.convs == nil || s.msgs == nil || s.users == nil {
		return domain.WireMessage{}, errors.New("message service not configured")
	}

	text := strings.TrimSpace(in.Text)
	if text == "" && in.Media == nil {
		return domain.WireMessage{}, ErrEmptyMessage
	}

	conv, sender, err := s.authorize(ctx, in.SenderID, in.ConversationID)
	if err != nil {
		return domain.WireMessage{}, err
	}

	var ref media.Ref
	if in.Media != nil {
		if s.uploader == nil {
			return domain.WireMessage{}, ErrMediaUpload
		}
		// Subida acotada y cancelable: si el cliente corta, el resultado se descarta.
		uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
		ref, err = s.uploader.Upload(uploadCtx, *in.Media)
		cancel()
		if err != nil {
			return domain.WireMessage{}, fmt.Errorf("%w: %v", ErrMediaUpload, err)
		}
	}

	msg := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       sender.ID,
		Text:           text,
		MediaURL:       ref.URL,
		MediaType:      ref.Kind,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.msgs.Create(ctx, msg); err != nil {
		return domain.WireMessage{}, err
	}

	// El mensaje ya es durable: un fallo al marcar actividad solo degrada el
	// orden del listado y no debe deshacer el append.
	if err := s.convs.Touch(ctx, conv.ID, msg.CreatedAt); err != nil {
		s.logger.Warn("conversation activity bump failed",
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
	}

	wire := msg.Resolve(sender.Summary())
	if s.broadcaster != nil {
		s.broadcaster.Publish(conv.ID, EventMessageNew, wire)
	}

	return wire, nil
}

// History devuelve el log de la conversación en orden de creación, con el
// remitente resuelto; since acota a mensajes estrictamente posteriores.
func (s *MessageService) History(ctx context.Context, callerID, conversationID string, since *time.Time) ([]domain.WireMessage, error) {
	if s == nil || s.convs == nil || s.msgs == nil || s.users == nil {
		return nil, errors.New("message service not configured")
	}

	conv, _, err := s.authorize(ctx, callerID, conversationID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.msgs.ListByConversation(ctx, conv.ID, since)
	if err != nil {
		return nil, err
	}

	summaries := make(map[string]domain.UserSummary, 2)
	wires := make([]domain.WireMessage, 0, len(msgs))
	for _, msg := range msgs {
		summary, ok := summaries[msg.SenderID]
		if !ok {
			u, err := s.users.GetByID(ctx, msg.SenderID)
			if err != nil {
				if !errors.Is(err, pgx.ErrNoRows) {
					return nil, err
				}
				summary = domain.UserSummary{ID: msg.SenderID}
			} else {
				summary = u.Summary()
			}
			summaries[msg.SenderID] = summary
		}
		wires = append(wires, msg.Resolve(summary))
	}

	return wires, nil
}

// Authorize valida que el usuario sea participante antes de un join de sala.
func (s *MessageService) Authorize(ctx context.Context, userID, conversationID string) error {
	_, _, err := s.authorize(ctx, userID, conversationID)
	return err
}

func (s *MessageService) authorize(ctx context.Context, userID, conversationID string) (domain.Conversation, domain.User, error) {
	conv, err := s.convs.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Conversation{}, domain.User{}, ErrConversationNotFound
		}
		return domain.Conversation{}, domain.User{}, err
	}
	if !conv.HasParticipant(userID) {
		return domain.Conversation{}, domain.User{}, ErrNotParticipant
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Conversation{}, domain.User{}, ErrNotParticipant
		}
		return domain.Conversation{}, domain.User{}, err
	}
	return conv, user, nil
}
