package handler

import (
	"html"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alessio-signorini/slack-meet-command/internal/service"
)

// AuthHandler serves the Google OAuth round trip and its terminal views.
type AuthHandler struct {
	flow   *service.AuthFlow
	logger *zap.Logger
}

// NewAuthHandler creates the handler.
func NewAuthHandler(flow *service.AuthFlow, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &AuthHandler{flow: flow, logger: logger}
}

// Start redirects the browser to Google's consent screen, passing the state
// parameter through unmodified.
func (h *AuthHandler) Start(c *gin.Context) {
	state := c.Query("state")
	if state == "" {
		h.redirectError(c, "Missing state parameter.")
		return
	}
	c.Redirect(http.StatusFound, h.flow.AuthorizationURL(state))
}

// Callback finishes the flow: exchange, store, deferred confirmation, then a
// static success view. Provider errors and bad state land on the error view;
// no token is mutated on failure.
func (h *AuthHandler) Callback(c *gin.Context) {
	if providerErr := c.Query("error"); providerErr != "" {
		h.logger.Warn("oauth consent denied", zap.String("error", providerErr))
		h.redirectError(c, "Google authorization was denied or cancelled.")
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		h.redirectError(c, "Missing code or state parameter.")
		return
	}

	decoded, err := h.flow.HandleCallback(c.Request.Context(), code, state)
	if err != nil {
		h.logger.Error("oauth callback failed", zap.Error(err))
		h.redirectError(c, "Could not complete Google authorization. Please try again.")
		return
	}

	h.logger.Info("google account connected", zap.String("user_id", decoded.SlackUserID))
	c.Redirect(http.StatusFound, "/auth/success")
}

// Success renders the terminal view after a completed authorization.
func (h *AuthHandler) Success(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(successPage))
}

// Error renders the terminal failure view with a human-readable reason.
func (h *AuthHandler) Error(c *gin.Context) {
	reason := c.Query("reason")
	if reason == "" {
		reason = "Something went wrong."
	}
	page := errorPageHead + html.EscapeString(reason) + errorPageTail
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (h *AuthHandler) redirectError(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, "/auth/error?reason="+url.QueryEscape(reason))
}

const successPage = `<!DOCTYPE html>
<html>
<head><title>Connected</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4rem;">
<h1>✅ Google account connected</h1>
<p>You can close this window and return to Slack.</p>
</body>
</html>`

const errorPageHead = `<!DOCTYPE html>
<html>
<head><title>Authorization failed</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 4rem;">
<h1>❌ Authorization failed</h1>
<p>`

const errorPageTail = `</p>
<p>Return to Slack and run <code>/meet</code> to try again.</p>
</body>
</html>`
