package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pairchat/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtSvc *service.TokenService,
	authH *AuthHandler,
	userH *UserHandler,
	convH *ConversationHandler,
	msgH *MessageHandler,
	socketHandler gin.HandlerFunc,
	clientOrigin string,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y CORS para el cliente web.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), corsMiddleware(clientOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	auth.POST("/register", authH.Register)
	auth.POST("/login", authH.Login)
	auth.POST("/refresh", authH.Refresh)
	auth.POST("/logout", authH.Logout)

	protected := r.Group("/")
	protected.Use(JWTAuthMiddleware(jwtSvc))
	protected.GET("/users", userH.ListUsers)
	protected.GET("/conversations", convH.ListConversations)
	protected.POST("/conversations", convH.CreateConversation)
	protected.GET("/messages/:conversationId", msgH.GetMessages)
	protected.POST("/messages/:conversationId", msgH.SendMessage)

	// El handshake websocket autentica por su cuenta (token en el query).
	r.GET("/ws", socketHandler)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// corsMiddleware habilita el origen del cliente web configurado.
func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
