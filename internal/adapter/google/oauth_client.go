package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"github.com/alessio-signorini/slack-meet-command/internal/domain"
)

// MeetScope grants creation of Meet spaces on the user's behalf.
const MeetScope = "https://www.googleapis.com/auth/meetings.space.created"

// OAuthClient builds authorization URLs and talks to Google's token endpoint.
type OAuthClient interface {
	// AuthorizationURL is deterministic for a given state. access_type=offline
	// and prompt=consent force Google to reissue a refresh token on every
	// re-auth, compensating for refresh-token rotation and expiry.
	AuthorizationURL(state string) string

	// ExchangeCode trades an authorization code for a token grant.
	ExchangeCode(ctx context.Context, code string) (*domain.TokenGrant, error)

	// RefreshAccessToken obtains a fresh access token. An invalid_grant
	// answer means the refresh token is permanently dead and yields
	// *domain.TokenRefreshError; everything else is a *domain.GoogleAPIError.
	RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenGrant, error)
}

// HTTPOAuthClient is the default implementation. The token-endpoint calls are
// issued directly rather than through oauth2.Config.Exchange so the error
// body stays inspectable for invalid_grant classification.
type HTTPOAuthClient struct {
	oauth      oauth2.Config
	httpClient *http.Client
}

var _ OAuthClient = (*HTTPOAuthClient)(nil)

// NewHTTPOAuthClient constructs the default OAuthClient.
func NewHTTPOAuthClient(clientID, clientSecret, redirectURI string, client *http.Client) *HTTPOAuthClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPOAuthClient{
		oauth: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     googleoauth.Endpoint,
			RedirectURL:  redirectURI,
			Scopes:       []string{MeetScope},
		},
		httpClient: client,
	}
}

func (c *HTTPOAuthClient) AuthorizationURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func (c *HTTPOAuthClient) ExchangeCode(ctx context.Context, code string) (*domain.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.oauth.ClientID)
	form.Set("client_secret", c.oauth.ClientSecret)
	form.Set("redirect_uri", c.oauth.RedirectURL)

	status, body, err := c.postTokenRequest(ctx, form)
	if err != nil {
		return nil, err
	}
	return parseTokenResponse(status, body)
}

func (c *HTTPOAuthClient) RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.oauth.ClientID)
	form.Set("client_secret", c.oauth.ClientSecret)

	status, body, err := c.postTokenRequest(ctx, form)
	if err != nil {
		return nil, err
	}

	if status == http.StatusBadRequest {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error == "invalid_grant" {
			return nil, &domain.TokenRefreshError{Reason: "refresh token is invalid or revoked"}
		}
	}
	return parseTokenResponse(status, body)
}

func (c *HTTPOAuthClient) postTokenRequest(ctx context.Context, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauth.Endpoint.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read token response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func parseTokenResponse(status int, body []byte) (*domain.TokenGrant, error) {
	if status != http.StatusOK {
		return nil, &domain.GoogleAPIError{StatusCode: status, Message: tokenErrorMessage(status, body)}
	}

	var grant struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &grant); err != nil {
		return nil, &domain.GoogleAPIError{StatusCode: status, Message: "invalid response from Google"}
	}
	return &domain.TokenGrant{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresIn:    grant.ExpiresIn,
	}, nil
}

func tokenErrorMessage(status int, body []byte) string {
	message := fmt.Sprintf("token request failed: %d", status)
	var errResp struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if errResp.Description != "" {
			return message + " - " + errResp.Description
		}
		if errResp.Error != "" {
			return message + " - " + errResp.Error
		}
	}
	return message
}
