package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pairchat/internal/service"
)

// ConversationHandler mantiene dependencias para endpoints de conversaciones.
type ConversationHandler struct {
	logger   *zap.Logger
	convServ *service.ConversationService
}

func NewConversationHandler(logger *zap.Logger, convServ *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{
		logger:   logger,
		convServ: convServ,
	}
}

// ListConversations maneja GET /conversations.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	convs, err := h.convServ.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list conversations failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// CreateConversation maneja POST /conversations: devuelve la conversación del
// par, creándola si es el primer contacto.
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var req struct {
		OtherUserID string `json:"otherUserId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "otherUserId required"})
		return
	}

	conv, err := h.convServ.GetOrCreate(c.Request.Context(), claims.UserID, req.OtherUserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		case errors.Is(err, service.ErrSelfConversation), errors.Is(err, service.ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logger.Error("get or create conversation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not open conversation"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation": conv})
}
