package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pairchat/internal/media"
	"pairchat/internal/service"
)

// MessageHandler mantiene dependencias para historial y envío de mensajes.
type MessageHandler struct {
	logger         *zap.Logger
	msgServ        *service.MessageService
	maxUploadBytes int64
}

func NewMessageHandler(logger *zap.Logger, msgServ *service.MessageService, maxUploadBytes int64) *MessageHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &MessageHandler{
		logger:         logger,
		msgServ:        msgServ,
		maxUploadBytes: maxUploadBytes,
	}
}

// GetMessages maneja GET /messages/:conversationId. El query param since
// (RFC3339) acota a mensajes posteriores para sync incremental.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	var since *time.Time
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		since = &parsed
	}

	msgs, err := h.msgServ.History(c.Request.Context(), claims.UserID, c.Param("conversationId"), since)
	if err != nil {
		h.respondSendError(c, err, "list messages failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SendMessage maneja POST /messages/:conversationId. Acepta JSON {text} o
// multipart con campo text y archivo media opcional.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	in := service.SendInput{
		ConversationID: c.Param("conversationId"),
		SenderID:       claims.UserID,
	}

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
		in.Text = c.PostForm("text")

		fileHeader, err := c.FormFile("media")
		if err == nil {
			file, err := fileHeader.Open()
			if err != nil {
				h.logger.Warn("media open failed", zap.Error(err))
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media"})
				return
			}
			defer file.Close()
			in.Media = &media.Upload{
				FileName:    fileHeader.Filename,
				ContentType: fileHeader.Header.Get("Content-Type"),
				Data:        file,
			}
		} else if !errors.Is(err, http.ErrMissingFile) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart request"})
			return
		}
	} else {
		var req struct {
			Text string `json:"text"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		in.Text = req.Text
	}

	msg, err := h.msgServ.Send(c.Request.Context(), in)
	if err != nil {
		h.respondSendError(c, err, "send message failed")
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// respondSendError traduce errores del gateway a códigos de respuesta sin
// filtrar detalle interno.
func (h *MessageHandler) respondSendError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, service.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not in this conversation"})
	case errors.Is(err, service.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": "message must contain text or media"})
	case errors.Is(err, service.ErrMediaUpload):
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "media upload unavailable"})
	default:
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}
