package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"pairchat/internal/domain"
	"pairchat/internal/service"
)

type stubUserRepo struct {
	users map[string]domain.User
}

func (r *stubUserRepo) Create(_ context.Context, user domain.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (r *stubUserRepo) ListOthers(_ context.Context, _ string) ([]domain.UserSummary, error) {
	return nil, nil
}

type stubConversationRepo struct {
	convs map[string]domain.Conversation
}

func (r *stubConversationRepo) GetByID(_ context.Context, id string) (domain.Conversation, error) {
	conv, ok := r.convs[id]
	if !ok {
		return domain.Conversation{}, pgx.ErrNoRows
	}
	return conv, nil
}

func (r *stubConversationRepo) GetOrCreate(_ context.Context, conv domain.Conversation) (domain.Conversation, error) {
	r.convs[conv.ID] = conv
	return conv, nil
}

func (r *stubConversationRepo) ListByUser(_ context.Context, _ string) ([]domain.Conversation, error) {
	return nil, nil
}

func (r *stubConversationRepo) Touch(_ context.Context, id string, at time.Time) error {
	conv, ok := r.convs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	conv.LastMessageAt = at
	r.convs[id] = conv
	return nil
}

type stubMessageRepo struct{}

func (stubMessageRepo) Create(_ context.Context, _ domain.Message) error { return nil }
func (stubMessageRepo) ListByConversation(_ context.Context, _ string, _ *time.Time) ([]domain.Message, error) {
	return nil, nil
}

type socketFixture struct {
	server *httptest.Server
	hub    *Hub
	tokens *service.TokenService
	alice  domain.User
	bob    domain.User
	carol  domain.User
	conv   domain.Conversation
}

func newSocketFixture(t *testing.T) *socketFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	users := &stubUserRepo{users: make(map[string]domain.User)}
	convs := &stubConversationRepo{convs: make(map[string]domain.Conversation)}

	f := &socketFixture{
		hub:    NewHub(logger),
		tokens: service.NewTokenService("test-secret", time.Minute, time.Hour),
	}

	now := time.Now().UTC()
	f.alice = domain.User{ID: "user-a", Name: "alice", Email: "alice@example.com", CreatedAt: now}
	f.bob = domain.User{ID: "user-b", Name: "bob", Email: "bob@example.com", CreatedAt: now}
	f.carol = domain.User{ID: "user-c", Name: "carol", Email: "carol@example.com", CreatedAt: now}
	for _, u := range []domain.User{f.alice, f.bob, f.carol} {
		if err := users.Create(context.Background(), u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	f.conv = domain.Conversation{
		ID:            "conv-1",
		ParticipantA:  f.alice.ID,
		ParticipantB:  f.bob.ID,
		LastMessageAt: now,
		CreatedAt:     now,
	}
	if _, err := convs.GetOrCreate(context.Background(), f.conv); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	gateway := service.NewMessageService(logger, convs, stubMessageRepo{}, users, nil, f.hub, time.Second)
	handler := NewSocketHandler(logger, f.hub, f.tokens, gateway)

	router := gin.New()
	router.GET("/ws", handler.Handle())
	f.server = httptest.NewServer(router)
	t.Cleanup(func() {
		f.hub.Close()
		f.server.Close()
	})
	return f
}

func (f *socketFixture) dial(t *testing.T, user domain.User) *websocket.Conn {
	t.Helper()
	pair, err := f.tokens.GeneratePair(user)
	if err != nil {
		t.Fatalf("issue tokens: %v", err)
	}
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=" + pair.AccessToken
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode frame %q: %v", data, err)
	}
	return frame
}

func joinRoom(t *testing.T, conn *websocket.Conn, conversationID string) map[string]any {
	t.Helper()
	frame := map[string]string{"type": EventConversationJoin, "conversationId": conversationID}
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write join: %v", err)
	}
	return readFrame(t, conn)
}

func TestSocketHandler_RejectsBadToken(t *testing.T) {
	f := newSocketFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws?token=not-a-jwt"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatalf("expected handshake rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}

	url = "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Fatalf("expected handshake rejection without token")
	}
}

func TestSocketHandler_ConnectAndJoin(t *testing.T) {
	f := newSocketFixture(t)

	conn := f.dial(t, f.alice)
	if frame := readFrame(t, conn); frame["type"] != "connected" {
		t.Fatalf("expected connected ack, got %v", frame)
	}

	ack := joinRoom(t, conn, f.conv.ID)
	if ack["type"] != "joined" || ack["conversationId"] != f.conv.ID {
		t.Fatalf("expected joined ack, got %v", ack)
	}

	// El evento publicado a la sala llega por la conexión.
	if got := f.hub.Publish(f.conv.ID, "message:new", map[string]string{"text": "hola"}); got != 1 {
		t.Fatalf("expected 1 delivery, got %d", got)
	}
	ev := readFrame(t, conn)
	if ev["type"] != "message:new" {
		t.Fatalf("expected message:new event, got %v", ev)
	}
}

func TestSocketHandler_JoinErrors(t *testing.T) {
	f := newSocketFixture(t)

	conn := f.dial(t, f.carol)
	if frame := readFrame(t, conn); frame["type"] != "connected" {
		t.Fatalf("expected connected ack, got %v", frame)
	}

	if frame := joinRoom(t, conn, f.conv.ID); frame["code"] != "forbidden" {
		t.Fatalf("expected forbidden error, got %v", frame)
	}
	if frame := joinRoom(t, conn, "missing"); frame["code"] != "not_found" {
		t.Fatalf("expected not_found error, got %v", frame)
	}
	if frame := joinRoom(t, conn, ""); frame["code"] != "bad_request" {
		t.Fatalf("expected bad_request error, got %v", frame)
	}

	// Nada de lo anterior suscribió la conexión a la sala.
	if got := f.hub.Publish(f.conv.ID, "message:new", nil); got != 0 {
		t.Fatalf("expected no delivery to rejected joins, got %d", got)
	}
}

func TestSocketHandler_PersonalRoomOnConnect(t *testing.T) {
	f := newSocketFixture(t)

	conn := f.dial(t, f.bob)
	if frame := readFrame(t, conn); frame["type"] != "connected" {
		t.Fatalf("expected connected ack, got %v", frame)
	}

	if got := f.hub.Publish(f.bob.ID, "ping", nil); got != 1 {
		t.Fatalf("expected delivery on personal room, got %d", got)
	}
	if ev := readFrame(t, conn); ev["type"] != "ping" {
		t.Fatalf("expected ping event, got %v", ev)
	}
}
