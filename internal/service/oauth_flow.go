package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alessio-signorini/slack-meet-command/internal/adapter/google"
	"github.com/alessio-signorini/slack-meet-command/internal/adapter/slack"
	"github.com/alessio-signorini/slack-meet-command/internal/domain"
	"github.com/alessio-signorini/slack-meet-command/internal/repository"
)

// AuthFlow handles the Google OAuth authorize/callback round trip.
type AuthFlow struct {
	oauth     google.OAuthClient
	tokens    repository.TokenRepository
	pending   repository.PendingCallbackStore
	responder slack.Responder
	logger    *zap.Logger
}

// NewAuthFlow wires the flow.
func NewAuthFlow(
	oauth google.OAuthClient,
	tokens repository.TokenRepository,
	pending repository.PendingCallbackStore,
	responder slack.Responder,
	logger *zap.Logger,
) *AuthFlow {
	if logger == nil {
		logger = zap.L()
	}
	return &AuthFlow{oauth: oauth, tokens: tokens, pending: pending, responder: responder, logger: logger}
}

// AuthorizationURL returns the Google consent-screen URL carrying the
// already-encoded state parameter through unmodified.
func (f *AuthFlow) AuthorizationURL(encodedState string) string {
	return f.oauth.AuthorizationURL(encodedState)
}

// HandleCallback exchanges the authorization code, stores the tokens, and
// delivers the owed one-time confirmation when a pending callback exists.
// Nothing is mutated when decoding or the exchange fails.
func (f *AuthFlow) HandleCallback(ctx context.Context, code, rawState string) (domain.OAuthState, error) {
	state, err := domain.DecodeOAuthState(rawState)
	if err != nil {
		return domain.OAuthState{}, fmt.Errorf("invalid state parameter: %w", err)
	}

	grant, err := f.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return domain.OAuthState{}, fmt.Errorf("exchange code: %w", err)
	}

	var refreshToken *string
	if grant.RefreshToken != "" {
		refreshToken = &grant.RefreshToken
	}
	err = f.tokens.Upsert(ctx, state.SlackUserID, state.SlackTeamID, grant.AccessToken, refreshToken, grant.ExpiresAt(time.Now()))
	if err != nil {
		return domain.OAuthState{}, fmt.Errorf("store tokens: %w", err)
	}

	f.confirmPendingCommand(ctx, state.SlackUserID)
	return state, nil
}

// confirmPendingCommand tells the waiting user their account is connected.
// The Take is the one consumption the pending slot allows.
func (f *AuthFlow) confirmPendingCommand(ctx context.Context, slackUserID string) {
	cb, err := f.pending.Take(ctx, slackUserID)
	if err != nil {
		f.logger.Warn("take pending callback", zap.String("user_id", slackUserID), zap.Error(err))
		return
	}
	if cb == nil {
		return
	}
	f.responder.PostMessage(ctx, cb.ResponseURL, slack.AccountConnected())
}
