package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/alessio-signorini/slack-meet-command/internal/adapter/google"
	"github.com/alessio-signorini/slack-meet-command/internal/adapter/slack"
	"github.com/alessio-signorini/slack-meet-command/internal/domain"
	"github.com/alessio-signorini/slack-meet-command/internal/repository"
)

// TaskRunner dispatches a unit of work to run past the HTTP response.
type TaskRunner interface {
	Go(name string, fn func(ctx context.Context) error)
}

// UsageTracker records command usage, best effort.
type UsageTracker interface {
	MeetCommandUsed(ctx context.Context, hasTitle bool, slackUserID, slackTeamID string)
}

// CommandRequest carries the fields extracted from a /meet invocation.
type CommandRequest struct {
	SlackUserID string
	SlackTeamID string
	ResponseURL string
	Text        string
}

// Orchestrator drives the /meet command: the synchronous auth check and
// acknowledgment, and the asynchronous meeting creation with its re-auth
// remediation and out-of-band delivery.
type Orchestrator struct {
	tokens    repository.TokenRepository
	pending   repository.PendingCallbackStore
	oauth     google.OAuthClient
	meetings  *MeetingCreator
	responder slack.Responder
	runner    TaskRunner
	tracker   UsageTracker
	baseURL   string
	logger    *zap.Logger
}

// NewOrchestrator wires the orchestrator. tracker may be nil.
func NewOrchestrator(
	tokens repository.TokenRepository,
	pending repository.PendingCallbackStore,
	oauth google.OAuthClient,
	meetings *MeetingCreator,
	responder slack.Responder,
	runner TaskRunner,
	tracker UsageTracker,
	baseURL string,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.L()
	}
	return &Orchestrator{
		tokens:    tokens,
		pending:   pending,
		oauth:     oauth,
		meetings:  meetings,
		responder: responder,
		runner:    runner,
		tracker:   tracker,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// HandleCommand is the synchronous phase. It must complete before the webhook
// reply: either the auth-required message (no async work dispatched) or an
// unconditional acknowledgment with one async unit in flight.
func (o *Orchestrator) HandleCommand(ctx context.Context, req CommandRequest) (slack.Message, error) {
	token, err := o.tokens.FindByUser(ctx, req.SlackUserID)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return o.authRequired(ctx, req.SlackUserID, req.SlackTeamID, req.ResponseURL)
		}
		return slack.Message{}, fmt.Errorf("token lookup: %w", err)
	}

	o.runner.Go("create-meeting", func(ctx context.Context) error {
		return o.processMeetingCreation(ctx, token, req.Text, req.ResponseURL)
	})

	return slack.Acknowledgment(), nil
}

// authRequired persists the pending callback and builds the connect message.
// It serves both the initial auth prompt and the async re-auth remediation.
func (o *Orchestrator) authRequired(ctx context.Context, slackUserID, slackTeamID, responseURL string) (slack.Message, error) {
	err := o.pending.Store(ctx, slackUserID, domain.PendingCallback{
		SlackTeamID: slackTeamID,
		ResponseURL: responseURL,
	})
	if err != nil {
		return slack.Message{}, fmt.Errorf("store pending callback: %w", err)
	}

	state := domain.OAuthState{SlackUserID: slackUserID, SlackTeamID: slackTeamID}
	authURL := o.baseURL + "/auth/google?state=" + state.Encode()
	return slack.AuthRequired(authURL), nil
}

// processMeetingCreation is the asynchronous phase. Every failure is turned
// into an out-of-band Slack message; the returned error exists only for the
// runner's log.
func (o *Orchestrator) processMeetingCreation(ctx context.Context, token *domain.UserToken, meetingName, responseURL string) error {
	accessToken, err := o.freshAccessToken(ctx, token)
	if err == nil {
		var meeting *domain.Meeting
		meeting, err = o.meetings.Create(ctx, accessToken, meetingName)
		if err == nil {
			hasTitle := strings.TrimSpace(meetingName) != ""
			o.deliverMeeting(ctx, token, meeting, hasTitle, responseURL)
			return nil
		}
	}

	return o.remediate(ctx, token, responseURL, err)
}

// freshAccessToken refreshes the access token first when it is about to
// expire, persisting the new one.
func (o *Orchestrator) freshAccessToken(ctx context.Context, token *domain.UserToken) (string, error) {
	expiring, err := o.tokens.IsExpiringSoon(ctx, token.SlackUserID)
	if err != nil {
		return "", fmt.Errorf("check expiry: %w", err)
	}
	if !expiring {
		return token.AccessToken, nil
	}

	if token.RefreshToken == nil {
		return "", &domain.TokenRefreshError{Reason: "no refresh token stored"}
	}

	grant, err := o.oauth.RefreshAccessToken(ctx, *token.RefreshToken)
	if err != nil {
		return "", err
	}
	if err := o.tokens.UpdateAccessToken(ctx, token.SlackUserID, grant.AccessToken, grant.ExpiresAt(time.Now())); err != nil {
		return "", fmt.Errorf("persist refreshed token: %w", err)
	}
	return grant.AccessToken, nil
}

// deliverMeeting posts the result and records usage. hasTitle reflects
// whether the user typed any text, so a meeting literally titled like the
// default label still counts as titled.
func (o *Orchestrator) deliverMeeting(ctx context.Context, token *domain.UserToken, meeting *domain.Meeting, hasTitle bool, responseURL string) {
	// A leftover pending callback from a prior auth cycle is stale now;
	// clearing it is best effort.
	if _, err := o.pending.Take(ctx, token.SlackUserID); err != nil {
		o.logger.Warn("clear pending callback", zap.String("user_id", token.SlackUserID), zap.Error(err))
	}

	o.responder.PostMessage(ctx, responseURL, slack.MeetingCreated(meeting.Name, meeting.MeetingURI))

	if o.tracker != nil {
		o.tracker.MeetCommandUsed(ctx, hasTitle, token.SlackUserID, token.SlackTeamID)
	}

	o.logger.Info("meeting created",
		zap.String("meeting_code", meeting.MeetingCode),
		zap.String("user_id", token.SlackUserID),
	)
}

// remediate maps an async-phase failure to the message owed to the user. A
// permanently dead token re-enters the auth-required flow out-of-band; any
// other failure becomes a generic ephemeral error.
func (o *Orchestrator) remediate(ctx context.Context, token *domain.UserToken, responseURL string, cause error) error {
	var refreshErr *domain.TokenRefreshError
	if errors.As(cause, &refreshErr) || domain.IsAuthError(cause) {
		o.logger.Warn("token invalid or revoked",
			zap.String("user_id", token.SlackUserID),
			zap.Error(cause),
		)
		if _, err := o.tokens.DeleteForUser(ctx, token.SlackUserID); err != nil {
			o.logger.Error("delete invalid token", zap.String("user_id", token.SlackUserID), zap.Error(err))
		}
		msg, err := o.authRequired(ctx, token.SlackUserID, token.SlackTeamID, responseURL)
		if err != nil {
			o.responder.PostMessage(ctx, responseURL, slack.ErrorMessage("❌ Something went wrong. Please try again."))
			return fmt.Errorf("re-auth remediation: %w", err)
		}
		o.responder.PostMessage(ctx, responseURL, msg)
		return cause
	}

	var apiErr *domain.GoogleAPIError
	if errors.As(cause, &apiErr) {
		o.responder.PostMessage(ctx, responseURL, slack.ErrorMessage("❌ Failed to create meeting. Please try again."))
		return cause
	}

	o.responder.PostMessage(ctx, responseURL, slack.ErrorMessage("❌ Something went wrong. Please try again."))
	return cause
}
