package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alessio-signorini/slack-meet-command/internal/domain"
)

// Compile-time interface assertion.
var _ TokenRepository = (*PostgresTokenRepo)(nil)

// expirySkew is how far ahead of the actual expiry a token counts as
// expiring, so a refresh happens before the meeting call can fail.
const expirySkew = 5 * time.Minute

// PostgresTokenRepo implements TokenRepository on pgxpool.
type PostgresTokenRepo struct {
	db *pgxpool.Pool
}

func NewPostgresTokenRepo(pool *pgxpool.Pool) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: pool}
}

func (r *PostgresTokenRepo) FindByUser(ctx context.Context, slackUserID string) (*domain.UserToken, error) {
	const q = `
		SELECT id, slack_user_id, slack_team_id, google_access_token,
		       google_refresh_token, google_token_expiry, created_at, updated_at
		FROM user_tokens
		WHERE slack_user_id = $1`

	var token domain.UserToken
	err := r.db.QueryRow(ctx, q, slackUserID).Scan(
		&token.ID,
		&token.SlackUserID,
		&token.SlackTeamID,
		&token.AccessToken,
		&token.RefreshToken,
		&token.TokenExpiry,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("find token: %w", err)
	}
	return &token, nil
}

func (r *PostgresTokenRepo) Upsert(ctx context.Context, slackUserID, slackTeamID, accessToken string, refreshToken *string, expiresAt time.Time) error {
	// COALESCE keeps the previous refresh token when the new grant omits one.
	const q = `
		INSERT INTO user_tokens
			(slack_user_id, slack_team_id, google_access_token, google_refresh_token, google_token_expiry)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (slack_user_id) DO UPDATE SET
			slack_team_id        = EXCLUDED.slack_team_id,
			google_access_token  = EXCLUDED.google_access_token,
			google_refresh_token = COALESCE(EXCLUDED.google_refresh_token, user_tokens.google_refresh_token),
			google_token_expiry  = EXCLUDED.google_token_expiry,
			updated_at           = now()`

	if _, err := r.db.Exec(ctx, q, slackUserID, slackTeamID, accessToken, refreshToken, expiresAt); err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return nil
}

func (r *PostgresTokenRepo) UpdateAccessToken(ctx context.Context, slackUserID, accessToken string, expiresAt time.Time) error {
	const q = `
		UPDATE user_tokens
		SET google_access_token = $2, google_token_expiry = $3, updated_at = now()
		WHERE slack_user_id = $1`

	if _, err := r.db.Exec(ctx, q, slackUserID, accessToken, expiresAt); err != nil {
		return fmt.Errorf("update access token: %w", err)
	}
	return nil
}

func (r *PostgresTokenRepo) DeleteForUser(ctx context.Context, slackUserID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_tokens WHERE slack_user_id = $1`, slackUserID)
	if err != nil {
		return 0, fmt.Errorf("delete token: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PostgresTokenRepo) IsExpiringSoon(ctx context.Context, slackUserID string) (bool, error) {
	const q = `
		SELECT google_token_expiry < now() + make_interval(secs => $2)
		FROM user_tokens
		WHERE slack_user_id = $1 AND google_token_expiry IS NOT NULL`

	var expiring bool
	err := r.db.QueryRow(ctx, q, slackUserID, expirySkew.Seconds()).Scan(&expiring)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check token expiry: %w", err)
	}
	return expiring, nil
}
