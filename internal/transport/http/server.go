package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatpad-sync/internal/composer"
	"github.com/vovakirdan/chatpad-sync/internal/config"
	"github.com/vovakirdan/chatpad-sync/internal/core"
)

// Session is the part of the session coordinator the local API drives.
type Session interface {
	Self() core.User
	SelectGroup(ctx context.Context, groupID string) error
	ActiveGroup(ctx context.Context) (core.Group, bool, error)
	Timeline(ctx context.Context, groupID string) ([]core.Message, error)
	Presence(ctx context.Context, userID string) (core.PresenceRecord, error)
	ComposeAndSend(ctx context.Context, body string, isImage bool) (composer.Result, error)
	Retry(ctx context.Context, messageID string) (composer.Result, error)
	Subscribe(sub *core.Subscriber)
	Unsubscribe(id string)
}

// NewServer builds the local API server.
func NewServer(sess Session, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := NewAPIHandlers(sess, cfg.MaxImageBytes, logger)
	router.GET("/api/session", api.Session)
	router.POST("/api/groups/:id/select", api.SelectGroup)
	router.GET("/api/groups/:id/timeline", api.Timeline)
	router.GET("/api/presence/:id", api.Presence)
	router.POST("/api/messages", api.SendMessage)
	router.POST("/api/messages/:id/retry", api.Retry)
	router.POST("/api/images", api.SendImage)

	router.GET("/api/events", gin.WrapH(NewWSHandler(sess, cfg.EventsRateLimit, logger)))

	return &stdhttp.Server{
		Addr:              cfg.APIAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
