package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alessio-signorini/slack-meet-command/internal/domain"
)

const spacesEndpoint = "https://meet.googleapis.com/v2/spaces"

// MeetClient creates Google Meet spaces.
type MeetClient interface {
	CreateSpace(ctx context.Context, accessToken string, opts domain.MeetingOptions) (*domain.Meeting, error)
}

// HTTPMeetClient is the default MeetClient.
type HTTPMeetClient struct {
	endpoint   string
	httpClient *http.Client
}

var _ MeetClient = (*HTTPMeetClient)(nil)

// NewHTTPMeetClient constructs the default MeetClient.
func NewHTTPMeetClient(client *http.Client) *HTTPMeetClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPMeetClient{endpoint: spacesEndpoint, httpClient: client}
}

type spaceConfig struct {
	AccessType string `json:"accessType,omitempty"`
	Moderation string `json:"moderation,omitempty"`
}

type artifactConfig struct {
	TranscriptionConfig *transcriptionConfig `json:"transcriptionConfig,omitempty"`
	RecordingConfig     *recordingConfig     `json:"recordingConfig,omitempty"`
	SmartNotesConfig    *smartNotesConfig    `json:"smartNotesConfig,omitempty"`
}

type transcriptionConfig struct {
	AutoTranscriptionGeneration string `json:"autoTranscriptionGeneration"`
}

type recordingConfig struct {
	AutoRecordingGeneration string `json:"autoRecordingGeneration"`
}

type smartNotesConfig struct {
	AutoSmartNotesGeneration string `json:"autoSmartNotesGeneration"`
}

type spaceRequest struct {
	Config         *spaceConfig    `json:"config,omitempty"`
	ArtifactConfig *artifactConfig `json:"artifactConfig,omitempty"`
}

// CreateSpace provisions a Meet space configured per opts.
func (c *HTTPMeetClient) CreateSpace(ctx context.Context, accessToken string, opts domain.MeetingOptions) (*domain.Meeting, error) {
	payload, err := json.Marshal(buildSpaceRequest(opts))
	if err != nil {
		return nil, fmt.Errorf("marshal space request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build space request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create space request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read space response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.GoogleAPIError{
			StatusCode: resp.StatusCode,
			Message:    spaceErrorMessage(resp.StatusCode, body),
		}
	}

	var space struct {
		Name        string `json:"name"`
		MeetingURI  string `json:"meetingUri"`
		MeetingCode string `json:"meetingCode"`
	}
	if err := json.Unmarshal(body, &space); err != nil {
		return nil, &domain.GoogleAPIError{StatusCode: resp.StatusCode, Message: "invalid response from Google Meet API"}
	}

	return &domain.Meeting{
		MeetingURI:  space.MeetingURI,
		MeetingCode: space.MeetingCode,
		SpaceName:   space.Name,
	}, nil
}

func buildSpaceRequest(opts domain.MeetingOptions) spaceRequest {
	req := spaceRequest{}

	cfg := spaceConfig{AccessType: opts.AccessType, Moderation: opts.Moderation}
	if cfg != (spaceConfig{}) {
		req.Config = &cfg
	}

	artifacts := artifactConfig{}
	if opts.AutoTranscribe {
		artifacts.TranscriptionConfig = &transcriptionConfig{AutoTranscriptionGeneration: "ON"}
	}
	if opts.AutoRecord {
		artifacts.RecordingConfig = &recordingConfig{AutoRecordingGeneration: "ON"}
	}
	if opts.SmartNotes {
		artifacts.SmartNotesConfig = &smartNotesConfig{AutoSmartNotesGeneration: "ON"}
	}
	if artifacts != (artifactConfig{}) {
		req.ArtifactConfig = &artifacts
	}
	return req
}

func spaceErrorMessage(status int, body []byte) string {
	message := fmt.Sprintf("failed to create meeting: %d", status)
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		return message + " - " + errResp.Error.Message
	}
	return message
}
