package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"pairchat/internal/domain"
)

type mockUserRepo struct {
	mu           sync.Mutex
	usersByID    map[string]domain.User
	usersByEmail map[string]string
	createErr    error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.usersByID[user.ID] = user
	m.usersByEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	id, ok := m.usersByEmail[email]
	m.mu.Unlock()
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) ListOthers(_ context.Context, excludeID string) ([]domain.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UserSummary
	for id, u := range m.usersByID {
		if id == excludeID {
			continue
		}
		out = append(out, u.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type mockConversationRepo struct {
	mu       sync.Mutex
	byID     map[string]domain.Conversation
	byPair   map[string]string
	touchErr error
	touched  []string
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{
		byID:   make(map[string]domain.Conversation),
		byPair: make(map[string]string),
	}
}

func (m *mockConversationRepo) GetByID(_ context.Context, id string) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.byID[id]
	if !ok {
		return domain.Conversation{}, pgx.ErrNoRows
	}
	return conv, nil
}

func (m *mockConversationRepo) GetOrCreate(_ context.Context, conv domain.Conversation) (domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := domain.PairKey(conv.ParticipantA, conv.ParticipantB)
	if id, ok := m.byPair[key]; ok {
		return m.byID[id], nil
	}
	m.byPair[key] = conv.ID
	m.byID[conv.ID] = conv
	return conv, nil
}

func (m *mockConversationRepo) ListByUser(_ context.Context, userID string) ([]domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Conversation
	for _, conv := range m.byID {
		if conv.HasParticipant(userID) {
			out = append(out, conv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

func (m *mockConversationRepo) Touch(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.touchErr != nil {
		return m.touchErr
	}
	conv, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	conv.LastMessageAt = at
	m.byID[id] = conv
	m.touched = append(m.touched, id)
	return nil
}

type mockMessageRepo struct {
	mu        sync.Mutex
	messages  []domain.Message
	createErr error
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{}
}

func (m *mockMessageRepo) Create(_ context.Context, message domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.messages = append(m.messages, message)
	return nil
}

func (m *mockMessageRepo) ListByConversation(_ context.Context, conversationID string, since *time.Time) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.ConversationID != conversationID {
			continue
		}
		if since != nil && !msg.CreatedAt.After(*since) {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

type publishedEvent struct {
	Room    string
	Event   string
	Payload any
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *mockBroadcaster) Publish(room string, event string, payload any) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{Room: room, Event: event, Payload: payload})
	return 1
}
