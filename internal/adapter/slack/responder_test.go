package slack

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPostMessage(t *testing.T) {
	var gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	r := NewHTTPResponder(srv.Client(), zap.NewNop())
	ok := r.PostMessage(context.Background(), srv.URL, Acknowledgment())

	require.True(t, ok)
	require.Equal(t, "application/json", gotContentType)
	require.JSONEq(t, `{"response_type":"ephemeral","text":"⏳ Creating meeting..."}`, string(gotBody))
}

func TestPostMessage_RejectedStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("used_url"))
	}))
	t.Cleanup(srv.Close)

	r := NewHTTPResponder(srv.Client(), zap.NewNop())
	ok := r.PostMessage(context.Background(), srv.URL, AccountConnected())

	require.False(t, ok)
	require.Equal(t, 1, calls, "delivery failures are never retried")
}

func TestPostMessage_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	r := NewHTTPResponder(nil, zap.NewNop())
	ok := r.PostMessage(context.Background(), url, ErrorMessage("nope"))
	require.False(t, ok)
}
