package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alessio-signorini/slack-meet-command/internal/slack"
)

// SlackSignature verifies the authenticity of Slack webhook requests before
// any other handling. The raw body is captured verbatim and restored for the
// downstream form binding: the signature covers the exact bytes Slack sent,
// and any re-encoding would invalidate it.
func SlackSignature(verifier *slack.Verifier, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.L()
	}

	return func(c *gin.Context) {
		rawBody, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))

		err = verifier.Verify(
			rawBody,
			c.Request.Header.Get("X-Slack-Request-Timestamp"),
			c.Request.Header.Get("X-Slack-Signature"),
		)
		if err != nil {
			logger.Warn("slack verification failed",
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid request signature"})
			return
		}

		c.Next()
	}
}
