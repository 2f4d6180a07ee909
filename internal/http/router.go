package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/alessio-signorini/slack-meet-command/internal/config"
	"github.com/alessio-signorini/slack-meet-command/internal/http/handler"
	httpmiddleware "github.com/alessio-signorini/slack-meet-command/internal/http/middleware"
	"github.com/alessio-signorini/slack-meet-command/internal/slack"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(
	cfg config.Config,
	verifier *slack.Verifier,
	commandHandler *handler.CommandHandler,
	authHandler *handler.AuthHandler,
	logger *zap.Logger,
) *gin.Engine {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	slackGroup := r.Group("/slack", httpmiddleware.SlackSignature(verifier, logger))
	{
		slackGroup.POST("/command", commandHandler.MeetCommand)
	}

	auth := r.Group("/auth")
	{
		auth.GET("/google", authHandler.Start)
		auth.GET("/google/callback", authHandler.Callback)
		auth.GET("/success", authHandler.Success)
		auth.GET("/error", authHandler.Error)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
	})

	return r
}
