package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alessio-signorini/slack-meet-command/internal/adapter/slack"
	"github.com/alessio-signorini/slack-meet-command/internal/domain"
)

const (
	testUserID      = "U2CERLKJA"
	testTeamID      = "T1DC2JH3J"
	testResponseURL = "https://hooks.slack.com/commands/T1DC2JH3J/123/abc"
	testBaseURL     = "https://meet.example.com"
)

// memoryTokenRepo mirrors the persistence contract in memory: upserts keep an
// existing refresh token when the new one is nil, and expiry checks use the
// same five minute skew as the SQL implementation.
type memoryTokenRepo struct {
	rows map[string]*domain.UserToken
	now  func() time.Time

	findErr error
}

func newMemoryTokenRepo() *memoryTokenRepo {
	return &memoryTokenRepo{rows: map[string]*domain.UserToken{}, now: time.Now}
}

func (r *memoryTokenRepo) FindByUser(_ context.Context, slackUserID string) (*domain.UserToken, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	row, ok := r.rows[slackUserID]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	clone := *row
	return &clone, nil
}

func (r *memoryTokenRepo) Upsert(_ context.Context, slackUserID, slackTeamID, accessToken string, refreshToken *string, expiresAt time.Time) error {
	row, ok := r.rows[slackUserID]
	if !ok {
		row = &domain.UserToken{SlackUserID: slackUserID}
		r.rows[slackUserID] = row
	}
	row.SlackTeamID = slackTeamID
	row.AccessToken = accessToken
	if refreshToken != nil {
		row.RefreshToken = refreshToken
	}
	row.TokenExpiry = &expiresAt
	return nil
}

func (r *memoryTokenRepo) UpdateAccessToken(_ context.Context, slackUserID, accessToken string, expiresAt time.Time) error {
	if row, ok := r.rows[slackUserID]; ok {
		row.AccessToken = accessToken
		row.TokenExpiry = &expiresAt
	}
	return nil
}

func (r *memoryTokenRepo) DeleteForUser(_ context.Context, slackUserID string) (int64, error) {
	if _, ok := r.rows[slackUserID]; !ok {
		return 0, nil
	}
	delete(r.rows, slackUserID)
	return 1, nil
}

func (r *memoryTokenRepo) IsExpiringSoon(_ context.Context, slackUserID string) (bool, error) {
	row, ok := r.rows[slackUserID]
	if !ok || row.TokenExpiry == nil {
		return false, nil
	}
	return row.TokenExpiry.Before(r.now().Add(5 * time.Minute)), nil
}

type memoryPendingStore struct {
	slots map[string]domain.PendingCallback

	storeErr error
	takeErr  error
}

func newMemoryPendingStore() *memoryPendingStore {
	return &memoryPendingStore{slots: map[string]domain.PendingCallback{}}
}

func (s *memoryPendingStore) Store(_ context.Context, slackUserID string, cb domain.PendingCallback) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.slots[slackUserID] = cb
	return nil
}

func (s *memoryPendingStore) Take(_ context.Context, slackUserID string) (*domain.PendingCallback, error) {
	if s.takeErr != nil {
		return nil, s.takeErr
	}
	cb, ok := s.slots[slackUserID]
	if !ok {
		return nil, nil
	}
	delete(s.slots, slackUserID)
	return &cb, nil
}

type fakeOAuthClient struct {
	exchangeGrant *domain.TokenGrant
	exchangeErr   error
	refreshGrant  *domain.TokenGrant
	refreshErr    error

	exchangedCodes   []string
	refreshedTokens  []string
	authorizedStates []string
}

func (c *fakeOAuthClient) AuthorizationURL(state string) string {
	c.authorizedStates = append(c.authorizedStates, state)
	return "https://accounts.google.com/o/oauth2/auth?state=" + state
}

func (c *fakeOAuthClient) ExchangeCode(_ context.Context, code string) (*domain.TokenGrant, error) {
	c.exchangedCodes = append(c.exchangedCodes, code)
	if c.exchangeErr != nil {
		return nil, c.exchangeErr
	}
	return c.exchangeGrant, nil
}

func (c *fakeOAuthClient) RefreshAccessToken(_ context.Context, refreshToken string) (*domain.TokenGrant, error) {
	c.refreshedTokens = append(c.refreshedTokens, refreshToken)
	if c.refreshErr != nil {
		return nil, c.refreshErr
	}
	return c.refreshGrant, nil
}

type fakeMeetClient struct {
	meeting *domain.Meeting
	err     error

	gotAccessToken string
	gotOpts        domain.MeetingOptions
	calls          int
}

func (c *fakeMeetClient) CreateSpace(_ context.Context, accessToken string, opts domain.MeetingOptions) (*domain.Meeting, error) {
	c.calls++
	c.gotAccessToken = accessToken
	c.gotOpts = opts
	if c.err != nil {
		return nil, c.err
	}
	clone := *c.meeting
	return &clone, nil
}

type postedMessage struct {
	url string
	msg slack.Message
}

type recordingResponder struct {
	posted []postedMessage
}

func (r *recordingResponder) PostMessage(_ context.Context, responseURL string, msg slack.Message) bool {
	r.posted = append(r.posted, postedMessage{url: responseURL, msg: msg})
	return true
}

// syncRunner executes units inline so tests observe the async phase
// deterministically.
type syncRunner struct {
	names []string
	errs  []error
}

func (r *syncRunner) Go(name string, fn func(ctx context.Context) error) {
	r.names = append(r.names, name)
	r.errs = append(r.errs, fn(context.Background()))
}

type trackedEvent struct {
	hasTitle bool
	userID   string
	teamID   string
}

type fakeTracker struct {
	events []trackedEvent
}

func (t *fakeTracker) MeetCommandUsed(_ context.Context, hasTitle bool, slackUserID, slackTeamID string) {
	t.events = append(t.events, trackedEvent{hasTitle: hasTitle, userID: slackUserID, teamID: slackTeamID})
}

type orchestratorHarness struct {
	tokens    *memoryTokenRepo
	pending   *memoryPendingStore
	oauth     *fakeOAuthClient
	meet      *fakeMeetClient
	responder *recordingResponder
	runner    *syncRunner
	tracker   *fakeTracker
	svc       *Orchestrator
}

func newOrchestratorHarness() *orchestratorHarness {
	h := &orchestratorHarness{
		tokens:  newMemoryTokenRepo(),
		pending: newMemoryPendingStore(),
		oauth:   &fakeOAuthClient{},
		meet: &fakeMeetClient{meeting: &domain.Meeting{
			MeetingURI:  "https://meet.google.com/abc-defg-hij",
			MeetingCode: "abc-defg-hij",
			SpaceName:   "spaces/abc123",
		}},
		responder: &recordingResponder{},
		runner:    &syncRunner{},
		tracker:   &fakeTracker{},
	}
	h.svc = NewOrchestrator(
		h.tokens,
		h.pending,
		h.oauth,
		NewMeetingCreator(h.meet, domain.MeetingOptions{AccessType: "TRUSTED", Moderation: "OFF"}),
		h.responder,
		h.runner,
		h.tracker,
		testBaseURL,
		zap.NewNop(),
	)
	return h
}

func (h *orchestratorHarness) storeValidToken(t *testing.T) {
	t.Helper()
	refresh := "1//rt"
	expiry := time.Now().Add(time.Hour)
	h.tokens.rows[testUserID] = &domain.UserToken{
		SlackUserID:  testUserID,
		SlackTeamID:  testTeamID,
		AccessToken:  "ya29.current",
		RefreshToken: &refresh,
		TokenExpiry:  &expiry,
	}
}

func command(text string) CommandRequest {
	return CommandRequest{
		SlackUserID: testUserID,
		SlackTeamID: testTeamID,
		ResponseURL: testResponseURL,
		Text:        text,
	}
}

func TestHandleCommand_UnknownUserGetsAuthPrompt(t *testing.T) {
	h := newOrchestratorHarness()

	msg, err := h.svc.HandleCommand(context.Background(), command("Standup"))
	require.NoError(t, err)

	require.Equal(t, "ephemeral", msg.ResponseType)
	require.Len(t, msg.Blocks, 2)
	button := msg.Blocks[1].Elements[0]
	require.Equal(t, "button", button.Type)

	// The button links to this service's authorize route with a decodable state.
	require.True(t, strings.HasPrefix(button.URL, testBaseURL+"/auth/google?state="))
	rawState := strings.TrimPrefix(button.URL, testBaseURL+"/auth/google?state=")
	state, err := domain.DecodeOAuthState(rawState)
	require.NoError(t, err)
	require.Equal(t, testUserID, state.SlackUserID)
	require.Equal(t, testTeamID, state.SlackTeamID)

	// The response URL is parked for the post-auth confirmation.
	require.Equal(t, domain.PendingCallback{SlackTeamID: testTeamID, ResponseURL: testResponseURL}, h.pending.slots[testUserID])

	// No async work was dispatched.
	require.Empty(t, h.runner.names)
	require.Zero(t, h.meet.calls)
}

func TestHandleCommand_PendingStoreFailure(t *testing.T) {
	h := newOrchestratorHarness()
	h.pending.storeErr = errors.New("redis down")

	_, err := h.svc.HandleCommand(context.Background(), command(""))
	require.ErrorContains(t, err, "store pending callback")
}

func TestHandleCommand_LookupFailure(t *testing.T) {
	h := newOrchestratorHarness()
	h.tokens.findErr = errors.New("connection refused")

	_, err := h.svc.HandleCommand(context.Background(), command(""))
	require.ErrorContains(t, err, "token lookup")
}

func TestHandleCommand_CreatesTitledMeeting(t *testing.T) {
	h := newOrchestratorHarness()
	h.storeValidToken(t)

	msg, err := h.svc.HandleCommand(context.Background(), command("Standup"))
	require.NoError(t, err)
	require.Equal(t, slack.Acknowledgment(), msg)

	require.Equal(t, []string{"create-meeting"}, h.runner.names)
	require.NoError(t, h.runner.errs[0])

	require.Equal(t, "ya29.current", h.meet.gotAccessToken)
	require.Equal(t, "TRUSTED", h.meet.gotOpts.AccessType)
	require.Empty(t, h.oauth.refreshedTokens, "fresh token needs no refresh")

	require.Len(t, h.responder.posted, 1)
	delivered := h.responder.posted[0]
	require.Equal(t, testResponseURL, delivered.url)
	require.Equal(t, "in_channel", delivered.msg.ResponseType)
	require.Contains(t, delivered.msg.Blocks[0].Text.Text, "*Standup*")
	require.Contains(t, delivered.msg.Blocks[0].Text.Text, "https://meet.google.com/abc-defg-hij")

	require.Equal(t, []trackedEvent{{hasTitle: true, userID: testUserID, teamID: testTeamID}}, h.tracker.events)
}

func TestHandleCommand_BlankTextUsesDefaultName(t *testing.T) {
	h := newOrchestratorHarness()
	h.storeValidToken(t)

	_, err := h.svc.HandleCommand(context.Background(), command("   "))
	require.NoError(t, err)

	require.Len(t, h.responder.posted, 1)
	text := h.responder.posted[0].msg.Blocks[0].Text.Text
	require.NotContains(t, text, "*")
	require.Contains(t, text, "https://meet.google.com/abc-defg-hij")

	require.Equal(t, []trackedEvent{{hasTitle: false, userID: testUserID, teamID: testTeamID}}, h.tracker.events)
}

func TestHandleCommand_LiteralDefaultNameCountsAsTitled(t *testing.T) {
	h := newOrchestratorHarness()
	h.storeValidToken(t)

	// A user who types the default label verbatim still gave a title.
	_, err := h.svc.HandleCommand(context.Background(), command(domain.DefaultMeetingName))
	require.NoError(t, err)

	require.Equal(t, []trackedEvent{{hasTitle: true, userID: testUserID, teamID: testTeamID}}, h.tracker.events)
}

func TestHandleCommand_RefreshesExpiringToken(t *testing.T) {
	h := newOrchestratorHarness()
	h.storeValidToken(t)
	soon := time.Now().Add(90 * time.Second)
	h.tokens.rows[testUserID].TokenExpiry = &soon

	h.oauth.refreshGrant = &domain.TokenGrant{AccessToken: "ya29.renewed", ExpiresIn: 3600}

	_, err := h.svc.HandleCommand(context.Background(), command(""))
	require.NoError(t, err)

	require.Equal(t, []string{"1//rt"}, h.oauth.refreshedTokens)
	require.Equal(t, "ya29.renewed", h.meet.gotAccessToken)

	// The renewed token was persisted.
	stored := h.tokens.rows[testUserID]
	require.Equal(t, "ya29.renewed", stored.AccessToken)
	require.True(t, stored.TokenExpiry.After(time.Now().Add(30*time.Minute)))
}

func TestHandleCommand_ExpiryBoundary(t *testing.T) {
	h := newOrchestratorHarness()
	h.storeValidToken(t)
	h.oauth.refreshGrant = &domain.TokenGrant{AccessToken: "ya29.renewed", ExpiresIn: 3600}

	now := time.Now()
	h.tokens.now = func() time.Time { return now }

	inside := now.Add(299 * time.Second)
	h.tokens.rows[testUserID].TokenExpiry = &inside
	_, err := h.svc.HandleCommand(context.Background(), command(""))
	require.NoError(t, err)
	require.Len(t, h.oauth.refreshedTokens, 1, "expiry inside the skew window triggers a refresh")

	h.storeValidToken(t)
	outside := now.Add(301 * time.Second)
	h.tokens.rows[testUserID].TokenExpiry = &outside
	_, err = h.svc.HandleCommand(context.Background(), command(""))
	require.NoError(t, err)
	require.Len(t, h.oauth.refreshedTokens, 1, "expiry outside the skew window is used as is")
}

func TestHandleCommand_InvalidGrantTriggersReauth(t *testing.T) {
	h := newOrchestratorHarness()
	h.storeValidToken(t)
	soon := time.Now().Add(time.Minute)
	h.tokens.rows[testUserID].TokenExpiry = &soon
	h.oauth.refreshErr = &domain.TokenRefreshError{Reason: "refresh token is invalid or revoked"}

	msg, err := h.svc.HandleCommand(context.Background(), command("Standup"))
	require.NoError(t, err, "async failures never reach the command reply")
	require.Equal(t, slack.Acknowledgment(), msg)

	// The dead token is gone and the user is asked to reconnect out of band.
	require.NotContains(t, h.tokens.rows, testUserID)
	require.Len(t, h.responder.posted, 1)
	reauth := h.responder.posted[0]
	require.Equal(t, testResponseURL, reauth.url)
	require.Equal(t, "ephemeral", reauth.msg.ResponseType)
	require.Len(t, reauth.msg.Blocks, 2)

	// The parked callback allows the post-auth confirmation.
	require.Contains(t, h.pending.slots, testUserID)

	// The cause is still surfaced to the runner's log.
	var refreshErr *domain.TokenRefreshError
	require.ErrorAs(t, h.runner.errs[0], &refreshErr)
	require.Empty(t, h.tracker.events)
}

func TestHandleCommand_MissingRefreshTokenTriggersReauth(t *testing.T) {
	h := newOrchestratorHarness()
	h.storeValidToken(t)
	soon := time.Now().Add(time.Minute)
	h.tokens.rows[testUserID].TokenExpiry = &soon
	h.tokens.rows[testUserID].RefreshToken = nil

	_, err := h.svc.HandleCommand(context.Background(), command(""))
	require.NoError(t, err)

	require.Empty(t, h.oauth.refreshedTokens)
	require.NotContains(t, h.tokens.rows, testUserID)
	require.Len(t, h.responder.posted, 1)
	require.Len(t, h.responder.posted[0].msg.Blocks, 2)
}

func TestHandleCommand_RejectedAccessTokenTriggersReauth(t *testing.T) {
	h := newOrchestratorHarness()
	h.storeValidToken(t)
	h.meet.err = &domain.GoogleAPIError{StatusCode: http.StatusUnauthorized, Message: "invalid credentials"}

	_, err := h.svc.HandleCommand(context.Background(), command("Standup"))
	require.NoError(t, err)

	require.NotContains(t, h.tokens.rows, testUserID)
	require.Len(t, h.responder.posted, 1)
	require.Len(t, h.responder.posted[0].msg.Blocks, 2)
	require.Contains(t, h.pending.slots, testUserID)
}

func TestHandleCommand_TransientAPIFailure(t *testing.T) {
	h := newOrchestratorHarness()
	h.storeValidToken(t)
	h.meet.err = &domain.GoogleAPIError{StatusCode: http.StatusInternalServerError, Message: "backend error"}

	_, err := h.svc.HandleCommand(context.Background(), command(""))
	require.NoError(t, err)

	// Transient failures keep the token and report a generic error.
	require.Contains(t, h.tokens.rows, testUserID)
	require.Len(t, h.responder.posted, 1)
	require.Equal(t, "❌ Failed to create meeting. Please try again.", h.responder.posted[0].msg.Text)
}

func TestHandleCommand_UnexpectedFailure(t *testing.T) {
	h := newOrchestratorHarness()
	h.storeValidToken(t)
	h.meet.err = errors.New("dial tcp: connection refused")

	_, err := h.svc.HandleCommand(context.Background(), command(""))
	require.NoError(t, err)

	require.Contains(t, h.tokens.rows, testUserID)
	require.Len(t, h.responder.posted, 1)
	require.Equal(t, "❌ Something went wrong. Please try again.", h.responder.posted[0].msg.Text)
}

func TestHandleCommand_StaleCallbackClearedOnDelivery(t *testing.T) {
	h := newOrchestratorHarness()
	h.storeValidToken(t)
	h.pending.slots[testUserID] = domain.PendingCallback{SlackTeamID: testTeamID, ResponseURL: "https://hooks.slack.com/old"}

	_, err := h.svc.HandleCommand(context.Background(), command(""))
	require.NoError(t, err)

	require.NotContains(t, h.pending.slots, testUserID)
	require.Len(t, h.responder.posted, 1)
	require.Equal(t, testResponseURL, h.responder.posted[0].url, "delivery goes to the current response URL, not the stale one")
}

func TestHandleCommand_NilTracker(t *testing.T) {
	h := newOrchestratorHarness()
	h.storeValidToken(t)
	h.svc = NewOrchestrator(
		h.tokens, h.pending, h.oauth,
		NewMeetingCreator(h.meet, domain.MeetingOptions{}),
		h.responder, h.runner, nil, testBaseURL, zap.NewNop(),
	)

	_, err := h.svc.HandleCommand(context.Background(), command("Standup"))
	require.NoError(t, err)
	require.Len(t, h.responder.posted, 1)
}
