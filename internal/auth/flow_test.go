package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/joseph-ayodele/docsheet/constants"
	"github.com/joseph-ayodele/docsheet/internal/common"
)

// tokenServer answers the authorization-code exchange and records the form.
func tokenServer(t *testing.T, status int) (*httptest.Server, *url.Values) {
	t.Helper()
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		_, _ = io.WriteString(w, `{"access_token":"ya29.test","token_type":"Bearer","expires_in":3599}`)
	}))
	t.Cleanup(srv.Close)
	return srv, &form
}

func newFlow(t *testing.T, tokenURL string) (*Flow, *TokenManager) {
	t.Helper()
	tokens := NewTokenManager(nil)
	flow := NewFlow(FlowConfig{
		ClientID:    "client-1",
		RedirectURL: "http://localhost:8080/api/auth/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/auth",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}, tokens, nil)
	return flow, tokens
}

func TestBegin_BuildsPKCEAuthorizationURL(t *testing.T) {
	flow, _ := newFlow(t, "http://unused")

	p, err := flow.Begin(context.Background())
	require.NoError(t, err)

	u, err := url.Parse(p.URL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.example.com", u.Host)
	assert.Equal(t, "client-1", q.Get("client_id"))
	assert.Equal(t, constants.SheetsScope, q.Get("scope"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.NotEmpty(t, q.Get("state"))
	assert.Equal(t, "code", q.Get("response_type"))
}

func TestComplete_ExchangesCodeAndStoresToken(t *testing.T) {
	srv, form := tokenServer(t, http.StatusOK)
	flow, tokens := newFlow(t, srv.URL)

	p, err := flow.Begin(context.Background())
	require.NoError(t, err)
	state := mustState(t, p.URL)

	require.NoError(t, flow.Complete(context.Background(), state, "auth-code", ""))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	tok, err := p.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ya29.test", tok)

	stored, err := tokens.Token()
	require.NoError(t, err)
	assert.Equal(t, "ya29.test", stored)
	assert.Equal(t, "auth-code", form.Get("code"))
	assert.NotEmpty(t, form.Get("code_verifier"))
}

func TestComplete_UnknownState(t *testing.T) {
	flow, _ := newFlow(t, "http://unused")
	_, err := flow.Begin(context.Background())
	require.NoError(t, err)

	err = flow.Complete(context.Background(), "forged", "code", "")

	assert.True(t, errors.Is(err, common.ErrUnauthorized))
}

func TestComplete_ExchangeFailure(t *testing.T) {
	srv, _ := tokenServer(t, http.StatusBadRequest)
	flow, tokens := newFlow(t, srv.URL)
	p, err := flow.Begin(context.Background())
	require.NoError(t, err)

	err = flow.Complete(context.Background(), mustState(t, p.URL), "bad-code", "")

	assert.True(t, errors.Is(err, common.ErrUnauthorized))
	assert.False(t, tokens.Authenticated())
	<-p.Done()
}

func TestComplete_UserDenied(t *testing.T) {
	flow, _ := newFlow(t, "http://unused")
	p, err := flow.Begin(context.Background())
	require.NoError(t, err)

	err = flow.Complete(context.Background(), mustState(t, p.URL), "", "access_denied")

	assert.True(t, errors.Is(err, ErrFlowCancelled))
	_, err = p.Wait(context.Background())
	assert.True(t, errors.Is(err, ErrFlowCancelled))
}

func TestBegin_CancelsPreviousPending(t *testing.T) {
	flow, _ := newFlow(t, "http://unused")
	first, err := flow.Begin(context.Background())
	require.NoError(t, err)

	_, err = flow.Begin(context.Background())
	require.NoError(t, err)

	_, err = first.Wait(context.Background())
	assert.True(t, errors.Is(err, ErrFlowCancelled))
	assert.Error(t, flow.Complete(context.Background(), mustState(t, first.URL), "code", ""))
}

func TestSetClientID_CancelsPending(t *testing.T) {
	flow, _ := newFlow(t, "http://unused")
	p, err := flow.Begin(context.Background())
	require.NoError(t, err)

	flow.SetClientID("client-2")

	_, err = p.Wait(context.Background())
	assert.True(t, errors.Is(err, ErrFlowCancelled))
}

func TestBegin_RequiresClientID(t *testing.T) {
	flow := NewFlow(FlowConfig{}, NewTokenManager(nil), nil)
	_, err := flow.Begin(context.Background())
	assert.True(t, errors.Is(err, common.ErrInvalidInput))
}

func TestWait_HonoursContext(t *testing.T) {
	flow, _ := newFlow(t, "http://unused")
	p, err := flow.Begin(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenManager(t *testing.T) {
	m := NewTokenManager(nil)
	_, err := m.Token()
	assert.ErrorIs(t, err, ErrNoToken)

	m.Set("abc")
	assert.True(t, m.Authenticated())

	m.Invalidate()
	assert.False(t, m.Authenticated())
	_, err = m.Token()
	assert.ErrorIs(t, err, ErrNoToken)
}

func mustState(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	return u.Query().Get("state")
}
