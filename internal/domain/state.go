package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// OAuthState identifies the Slack user traversing the authorize/callback
// round trip. It travels as base64url(JSON) in the `state` query parameter,
// unsigned: tamper evidence comes from TLS alone, which is the documented
// trade-off for this protocol.
type OAuthState struct {
	SlackUserID string `json:"userId"`
	SlackTeamID string `json:"teamId"`
}

// Encode serializes the state for the authorization URL.
func (s OAuthState) Encode() string {
	payload, _ := json.Marshal(s)
	return base64.URLEncoding.EncodeToString(payload)
}

// DecodeOAuthState reverses Encode. It fails on malformed encodings or when
// either identifier is missing.
func DecodeOAuthState(raw string) (OAuthState, error) {
	decoded, err := base64.URLEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return OAuthState{}, fmt.Errorf("decode state: %w", err)
	}
	var state OAuthState
	if err := json.Unmarshal(decoded, &state); err != nil {
		return OAuthState{}, fmt.Errorf("decode state: %w", err)
	}
	if state.SlackUserID == "" || state.SlackTeamID == "" {
		return OAuthState{}, fmt.Errorf("decode state: missing user or team id")
	}
	return state, nil
}
