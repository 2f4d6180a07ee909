package domain

import (
	"errors"
	"fmt"
)

// ErrTokenNotFound signals that no stored Google token exists for a user.
var ErrTokenNotFound = errors.New("token not found")

// VerificationError indicates a Slack request that failed authenticity checks.
// It is surfaced as a 403 at the HTTP boundary and never retried.
type VerificationError struct {
	Reason string
}

func (e *VerificationError) Error() string {
	return "slack verification failed: " + e.Reason
}

// ConfigurationError indicates invalid startup configuration. The process
// must not serve traffic when one is returned.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Reason
}

// TokenRefreshError indicates the stored refresh token is permanently
// invalid (the provider answered invalid_grant). The remediation is to
// delete the stored token and ask the user to re-authenticate.
type TokenRefreshError struct {
	Reason string
}

func (e *TokenRefreshError) Error() string {
	return "token refresh failed: " + e.Reason
}

// GoogleAPIError carries the HTTP status of a failed Google call. Status 401
// triggers the same re-auth remediation as TokenRefreshError; every other
// status is treated as transient and surfaced to the user as a generic error.
type GoogleAPIError struct {
	StatusCode int
	Message    string
}

func (e *GoogleAPIError) Error() string {
	return fmt.Sprintf("google api error (status %d): %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether err means the access token was rejected.
func IsAuthError(err error) bool {
	var apiErr *GoogleAPIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 401
}
