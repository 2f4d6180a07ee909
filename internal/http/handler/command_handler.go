package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/alessio-signorini/slack-meet-command/internal/service"
)

// CommandHandler serves the /meet slash-command webhook.
type CommandHandler struct {
	orchestrator *service.Orchestrator
	logger       *zap.Logger
}

// NewCommandHandler creates the handler.
func NewCommandHandler(orchestrator *service.Orchestrator, logger *zap.Logger) *CommandHandler {
	if logger == nil {
		logger = zap.L()
	}
	return &CommandHandler{orchestrator: orchestrator, logger: logger}
}

// MeetCommand answers the webhook synchronously: either the auth prompt or
// the acknowledgment, with meeting creation continuing in the background.
func (h *CommandHandler) MeetCommand(c *gin.Context) {
	var form struct {
		UserID      string `form:"user_id" binding:"required"`
		TeamID      string `form:"team_id" binding:"required"`
		ResponseURL string `form:"response_url" binding:"required"`
		Text        string `form:"text"`
	}
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid command payload"})
		return
	}

	msg, err := h.orchestrator.HandleCommand(c.Request.Context(), service.CommandRequest{
		SlackUserID: form.UserID,
		SlackTeamID: form.TeamID,
		ResponseURL: form.ResponseURL,
		Text:        form.Text,
	})
	if err != nil {
		h.logger.Error("handle meet command", zap.String("user_id", form.UserID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, msg)
}
