package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Responder posts messages to Slack response URLs.
type Responder interface {
	// PostMessage delivers msg to the one-time responseURL. Delivery is best
	// effort: any non-2xx status or transport failure is logged and reported
	// as false, never retried.
	PostMessage(ctx context.Context, responseURL string, msg Message) bool
}

// HTTPResponder is the default Responder.
type HTTPResponder struct {
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Responder = (*HTTPResponder)(nil)

// NewHTTPResponder constructs the default Responder.
func NewHTTPResponder(client *http.Client, logger *zap.Logger) *HTTPResponder {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.L()
	}
	return &HTTPResponder{httpClient: client, logger: logger}
}

func (r *HTTPResponder) PostMessage(ctx context.Context, responseURL string, msg Message) bool {
	payload, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal slack message", zap.Error(err))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responseURL, bytes.NewReader(payload))
	if err != nil {
		r.logger.Error("build slack request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.Error("post to slack", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Error("slack rejected message",
			zap.Int("status", resp.StatusCode),
			zap.String("response_type", msg.ResponseType),
		)
		return false
	}

	r.logger.Info("posted to slack",
		zap.Int("status", resp.StatusCode),
		zap.String("response_type", msg.ResponseType),
	)
	return true
}
