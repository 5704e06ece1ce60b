package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pulsechat/pulsechat-server/internal/auth"
	"github.com/pulsechat/pulsechat-server/internal/config"
	"github.com/pulsechat/pulsechat-server/internal/core"
	"github.com/pulsechat/pulsechat-server/internal/files"
	"github.com/pulsechat/pulsechat-server/internal/store"
)

// NewServer builds the HTTP server: REST API, static uploads and the
// WebSocket endpoint. The WebSocket route lives on an outer stdlib mux in
// front of the gin engine: the upgrade hijacks the connection, which gin's
// response writer refuses once the handshake response is written. It is also
// not guarded by the JWT middleware; connections authenticate with their
// first event instead.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, storage *files.Storage, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	apiHandlers := NewAPIHandlers(authService, logger)
	userHandlers := NewUserHandlers(st, logger)
	messageHandlers := NewMessageHandlers(st, logger)
	groupHandlers := NewGroupHandlers(st, logger)
	uploadHandlers := NewUploadHandlers(storage, st, logger)

	router.POST("/api/register", apiHandlers.Register)
	router.POST("/api/login", apiHandlers.Login)

	authorized := router.Group("/", AuthMiddleware(authService, logger))
	{
		authorized.GET("/api/users", userHandlers.ListUsers)
		authorized.GET("/api/messages/:userId", messageHandlers.GetConversation)

		authorized.POST("/api/groups", groupHandlers.CreateGroup)
		authorized.GET("/api/groups", groupHandlers.ListGroups)
		authorized.GET("/api/groups/:id/members", groupHandlers.ListMembers)
		authorized.GET("/api/groups/:id/messages", groupHandlers.ListMessages)
		authorized.POST("/api/groups/:id/members", groupHandlers.AddMember)
		authorized.DELETE("/api/groups/:id/members/:userId", groupHandlers.RemoveMember)

		authorized.POST("/api/upload", uploadHandlers.Upload)
		authorized.POST("/api/profile-image", uploadHandlers.UploadProfileImage)
	}

	if storage != nil {
		router.Static(files.URLPrefix, storage.Dir())
	}

	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
