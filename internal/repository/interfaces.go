package repository

import (
	"context"
	"time"

	"github.com/alessio-signorini/slack-meet-command/internal/domain"
)

// TokenRepository persists Google OAuth tokens keyed by Slack user ID.
//
// No row locking is performed: two commands issued in rapid succession by the
// same user can interleave refresh/upsert/delete and the last write wins.
type TokenRepository interface {
	// FindByUser returns the stored token, or domain.ErrTokenNotFound.
	FindByUser(ctx context.Context, slackUserID string) (*domain.UserToken, error)

	// Upsert inserts or updates the token row. When refreshToken is nil an
	// existing refresh token is preserved, since Google omits it from some
	// responses.
	Upsert(ctx context.Context, slackUserID, slackTeamID, accessToken string, refreshToken *string, expiresAt time.Time) error

	// UpdateAccessToken mutates only the access token and expiry. Unknown
	// users are a no-op.
	UpdateAccessToken(ctx context.Context, slackUserID, accessToken string, expiresAt time.Time) error

	// DeleteForUser removes the token row and returns how many were deleted.
	DeleteForUser(ctx context.Context, slackUserID string) (int64, error)

	// IsExpiringSoon reports whether a stored expiry exists and falls within
	// the next five minutes. Unknown users and tokens without an expiry are
	// not expiring.
	IsExpiringSoon(ctx context.Context, slackUserID string) (bool, error)
}

// PendingCallbackStore holds the one-shot Slack response URL owed to a user
// who was sent through the OAuth flow.
type PendingCallbackStore interface {
	Store(ctx context.Context, slackUserID string, cb domain.PendingCallback) error

	// Take returns the stored callback and clears it atomically, so the same
	// response URL is never delivered twice. Nil when nothing is pending.
	Take(ctx context.Context, slackUserID string) (*domain.PendingCallback, error)
}
