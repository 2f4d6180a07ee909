// Package slack verifies the authenticity of inbound Slack webhooks.
package slack

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/alessio-signorini/slack-meet-command/internal/domain"
)

// MaxRequestAge bounds the replay window on either side of now.
const MaxRequestAge = 5 * time.Minute

// Verifier checks Slack request signatures against the signing secret.
type Verifier struct {
	signingSecret string
	now           func() time.Time
}

// NewVerifier constructs a Verifier for the workspace signing secret.
func NewVerifier(signingSecret string) *Verifier {
	return &Verifier{signingSecret: signingSecret, now: time.Now}
}

// Verify validates the v0 signature over the exact raw request body. The
// body must not have been re-encoded by the framework. Requests older than
// MaxRequestAge, or that far in the future, are rejected as too old.
func (v *Verifier) Verify(rawBody []byte, timestampHeader, signatureHeader string) error {
	if timestampHeader == "" {
		return &domain.VerificationError{Reason: "missing timestamp header"}
	}
	if signatureHeader == "" {
		return &domain.VerificationError{Reason: "missing signature header"}
	}

	ts, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return &domain.VerificationError{Reason: "malformed timestamp header"}
	}

	age := v.now().Sub(time.Unix(ts, 0))
	if age > MaxRequestAge || age < -MaxRequestAge {
		return &domain.VerificationError{Reason: "request timestamp too old"}
	}

	if !hmac.Equal([]byte(v.computeSignature(rawBody, timestampHeader)), []byte(signatureHeader)) {
		return &domain.VerificationError{Reason: "invalid signature"}
	}
	return nil
}

func (v *Verifier) computeSignature(rawBody []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(v.signingSecret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(rawBody)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}
