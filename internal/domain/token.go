package domain

import "time"

// UserToken is the stored Google OAuth token set for one Slack user.
// SlackUserID uniquely identifies at most one live row.
type UserToken struct {
	ID           int64
	SlackUserID  string
	SlackTeamID  string
	AccessToken  string
	RefreshToken *string
	TokenExpiry  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PendingCallback is the one-shot Slack response URL captured when a command
// could not proceed because authentication was required.
type PendingCallback struct {
	SlackTeamID string `json:"slack_team_id"`
	ResponseURL string `json:"response_url"`
}

// TokenGrant is a token response from Google's token endpoint. RefreshToken
// is empty on refresh-grant responses, which must not erase a stored one.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// ExpiresAt converts ExpiresIn into an absolute expiry from now.
func (g TokenGrant) ExpiresAt(now time.Time) time.Time {
	return now.Add(time.Duration(g.ExpiresIn) * time.Second)
}
