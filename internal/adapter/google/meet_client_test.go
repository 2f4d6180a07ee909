package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alessio-signorini/slack-meet-command/internal/domain"
)

func newTestMeetClient(t *testing.T, handler http.HandlerFunc) *HTTPMeetClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewHTTPMeetClient(srv.Client())
	c.endpoint = srv.URL
	return c
}

func TestCreateSpace(t *testing.T) {
	var gotAuth string
	var gotBody []byte
	c := newTestMeetClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name":"spaces/abc123","meetingUri":"https://meet.google.com/abc-defg-hij","meetingCode":"abc-defg-hij"}`))
	})

	meeting, err := c.CreateSpace(context.Background(), "ya29.token", domain.MeetingOptions{})
	require.NoError(t, err)
	require.Equal(t, "https://meet.google.com/abc-defg-hij", meeting.MeetingURI)
	require.Equal(t, "abc-defg-hij", meeting.MeetingCode)
	require.Equal(t, "spaces/abc123", meeting.SpaceName)

	require.Equal(t, "Bearer ya29.token", gotAuth)
	require.JSONEq(t, `{}`, string(gotBody))
}

func TestCreateSpace_Options(t *testing.T) {
	var gotBody []byte
	c := newTestMeetClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"name":"spaces/abc","meetingUri":"https://meet.google.com/abc","meetingCode":"abc"}`))
	})

	_, err := c.CreateSpace(context.Background(), "ya29.token", domain.MeetingOptions{
		AccessType:     "TRUSTED",
		Moderation:     "ON",
		AutoTranscribe: true,
		AutoRecord:     true,
		SmartNotes:     true,
	})
	require.NoError(t, err)

	var req map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(gotBody, &req))
	require.JSONEq(t, `{"accessType":"TRUSTED","moderation":"ON"}`, string(req["config"]))
	require.JSONEq(t, `{
		"transcriptionConfig": {"autoTranscriptionGeneration": "ON"},
		"recordingConfig": {"autoRecordingGeneration": "ON"},
		"smartNotesConfig": {"autoSmartNotesGeneration": "ON"}
	}`, string(req["artifactConfig"]))
}

func TestCreateSpace_APIError(t *testing.T) {
	c := newTestMeetClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"code":401,"message":"Request had invalid authentication credentials.","status":"UNAUTHENTICATED"}}`))
	})

	_, err := c.CreateSpace(context.Background(), "ya29.stale", domain.MeetingOptions{})
	var apiErr *domain.GoogleAPIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	require.Contains(t, apiErr.Message, "invalid authentication credentials")
	require.True(t, domain.IsAuthError(err))
}

func TestCreateSpace_MalformedResponse(t *testing.T) {
	c := newTestMeetClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>gateway error</html>`))
	})

	_, err := c.CreateSpace(context.Background(), "ya29.token", domain.MeetingOptions{})
	var apiErr *domain.GoogleAPIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "invalid response from Google Meet API", apiErr.Message)
}

func TestBuildSpaceRequest_OmitsEmptySections(t *testing.T) {
	req := buildSpaceRequest(domain.MeetingOptions{})
	require.Nil(t, req.Config)
	require.Nil(t, req.ArtifactConfig)

	req = buildSpaceRequest(domain.MeetingOptions{AccessType: "OPEN"})
	require.NotNil(t, req.Config)
	require.Equal(t, "OPEN", req.Config.AccessType)
	require.Nil(t, req.ArtifactConfig)

	req = buildSpaceRequest(domain.MeetingOptions{AutoTranscribe: true})
	require.Nil(t, req.Config)
	require.NotNil(t, req.ArtifactConfig)
	require.NotNil(t, req.ArtifactConfig.TranscriptionConfig)
	require.Nil(t, req.ArtifactConfig.RecordingConfig)
}
