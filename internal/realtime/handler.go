package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pairchat/internal/service"
)

const (
	readTimeout     = 60 * time.Second
	inflightTimeout = 5 * time.Second
	maxFrameBytes   = 1 << 20
)

// EventConversationJoin es el evento que envía el cliente para unirse a la sala
// de una conversación.
const EventConversationJoin = "conversation:join"

// SocketHandler atiende el endpoint websocket de tiempo real.
type SocketHandler struct {
	logger  *zap.Logger
	hub     *Hub
	tokens  *service.TokenService
	gateway *service.MessageService
}

func NewSocketHandler(logger *zap.Logger, hub *Hub, tokens *service.TokenService, gateway *service.MessageService) *SocketHandler {
	return &SocketHandler{
		logger:  logger,
		hub:     hub,
		tokens:  tokens,
		gateway: gateway,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId,omitempty"`
}

type ackFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Handle autentica el handshake y, recién entonces, registra la conexión en
// el Hub. Un token inválido rechaza la conexión antes de crear suscripción
// alguna.
func (h *SocketHandler) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := h.authenticate(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade ya escribió la respuesta.
			return
		}

		conn := NewConnection(claims.UserID, ws)
		conn.Start()
		h.hub.Attach(conn)
		defer func() {
			h.hub.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(maxFrameBytes)
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(readTimeout))
		})

		h.reply(conn, ackFrame{Type: "connected"})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				h.replyError(conn, "read_error", "connection read failed")
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				h.replyError(conn, "bad_request", "invalid payload")
				continue
			}

			switch frame.Type {
			case EventConversationJoin:
				h.handleJoin(c, conn, frame)
			default:
				h.replyError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

// authenticate valida el bearer token del handshake (query o header).
func (h *SocketHandler) authenticate(c *gin.Context) (service.Claims, error) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(strings.ToLower(header), "bearer ") {
			token = strings.TrimSpace(header[len("Bearer "):])
		}
	}
	if token == "" {
		return service.Claims{}, service.ErrTokenInvalid
	}
	return h.tokens.ParseAccessToken(token)
}

func (h *SocketHandler) handleJoin(c *gin.Context, conn *Connection, frame inboundFrame) {
	if frame.ConversationID == "" {
		h.replyError(conn, "bad_request", "conversationId is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), inflightTimeout)
	defer cancel()

	if err := h.gateway.Authorize(ctx, conn.UserID(), frame.ConversationID); err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			h.replyError(conn, "not_found", "conversation not found")
		case errors.Is(err, service.ErrNotParticipant):
			h.replyError(conn, "forbidden", "not a participant in this conversation")
		default:
			h.logger.Error("room join failed", zap.String("conversation_id", frame.ConversationID), zap.Error(err))
			h.replyError(conn, "internal_error", "could not join conversation")
		}
		return
	}

	h.hub.Join(frame.ConversationID, conn)
	h.reply(conn, ackFrame{Type: "joined", ConversationID: frame.ConversationID})
}

func (h *SocketHandler) reply(conn *Connection, frame ackFrame) {
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}

func (h *SocketHandler) replyError(conn *Connection, code string, message string) {
	frame := errorFrame{Type: "error", Code: code, Error: message}
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}
