// Package analytics sends best-effort usage events to Google Analytics.
package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const collectEndpoint = "https://www.google-analytics.com/mp/collect"

// Client posts Measurement Protocol events. A zero MeasurementID disables it.
// Failures never affect command handling; they are logged at debug and
// dropped.
type Client struct {
	measurementID string
	apiSecret     string
	endpoint      string
	httpClient    *http.Client
	logger        *zap.Logger
}

// NewClient constructs the analytics client.
func NewClient(measurementID, apiSecret string, client *http.Client, logger *zap.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Client{
		measurementID: measurementID,
		apiSecret:     apiSecret,
		endpoint:      collectEndpoint,
		httpClient:    client,
		logger:        logger,
	}
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c.measurementID != "" && c.apiSecret != ""
}

type event struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type payload struct {
	ClientID string  `json:"client_id"`
	Events   []event `json:"events"`
}

// MeetCommandUsed records a /meet invocation. Only whether a title was given
// is tracked, never the title itself.
func (c *Client) MeetCommandUsed(ctx context.Context, hasTitle bool, slackUserID, slackTeamID string) {
	c.send(ctx, slackUserID, event{
		Name: "meet_command_used",
		Params: map[string]any{
			"has_title": hasTitle,
			"team_id":   slackTeamID,
		},
	})
}

func (c *Client) send(ctx context.Context, clientID string, ev event) {
	if !c.Enabled() {
		return
	}

	body, err := json.Marshal(payload{ClientID: clientID, Events: []event{ev}})
	if err != nil {
		c.logger.Debug("marshal analytics event", zap.Error(err))
		return
	}

	query := url.Values{}
	query.Set("measurement_id", c.measurementID)
	query.Set("api_secret", c.apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		c.logger.Debug("build analytics request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("post analytics event", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.logger.Debug("analytics event rejected", zap.Int("status", resp.StatusCode))
	}
}
