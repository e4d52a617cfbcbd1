package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/joseph-ayodele/docsheet/constants"
	"github.com/joseph-ayodele/docsheet/internal/common"
)

// GoogleEndpoint is Google's OAuth 2.0 authorization server.
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// FlowConfig identifies the OAuth application.
type FlowConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint // zero value means GoogleEndpoint
}

// Flow runs the popup authorization-code flow with PKCE. Begin hands out the
// URL the popup opens; the popup's redirect lands in Complete, which resolves
// the Pending the initiator is waiting on.
type Flow struct {
	mu      sync.Mutex
	cfg     FlowConfig
	tokens  *TokenManager
	pending *Pending
	logger  *slog.Logger
}

// Pending is one in-flight authorization.
type Pending struct {
	URL      string
	state    string
	verifier string
	done     chan struct{}
	token    string
	err      error
	once     sync.Once
}

func NewFlow(cfg FlowConfig, tokens *TokenManager, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint.AuthURL == "" {
		cfg.Endpoint = GoogleEndpoint
	}
	return &Flow{cfg: cfg, tokens: tokens, logger: logger}
}

// SetClientID swaps the OAuth client identity (settings change). Any pending
// authorization is cancelled since it was issued for the old client.
func (f *Flow) SetClientID(clientID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cfg.ClientID == clientID {
		return
	}
	f.cfg.ClientID = clientID
	if f.pending != nil {
		f.pending.resolve("", ErrFlowCancelled)
		f.pending = nil
	}
}

func (f *Flow) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     f.cfg.ClientID,
		ClientSecret: f.cfg.ClientSecret,
		RedirectURL:  f.cfg.RedirectURL,
		Endpoint:     f.cfg.Endpoint,
		Scopes:       []string{constants.SheetsScope},
	}
}

// Begin starts a new authorization. A previous pending one is cancelled.
func (f *Flow) Begin(_ context.Context) (*Pending, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cfg.ClientID == "" {
		return nil, common.InvalidInputf("OAuth client id is not configured")
	}
	if f.pending != nil {
		f.pending.resolve("", ErrFlowCancelled)
	}

	p := &Pending{
		state:    uuid.NewString(),
		verifier: oauth2.GenerateVerifier(),
		done:     make(chan struct{}),
	}
	p.URL = f.oauthConfig().AuthCodeURL(p.state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(p.verifier),
	)
	f.pending = p

	f.logger.Info("auth.flow.begin", "state", p.state)
	return p, nil
}

// Complete exchanges the authorization code delivered to the redirect URL.
// The resulting token is stored in the TokenManager and handed to the waiter.
func (f *Flow) Complete(ctx context.Context, state, code, errParam string) error {
	f.mu.Lock()
	p := f.pending
	if p == nil || p.state != state {
		f.mu.Unlock()
		return common.NewAppError("AUTH_STATE", "unknown or expired authorization state", common.ErrUnauthorized)
	}
	f.pending = nil
	cfg := f.oauthConfig()
	f.mu.Unlock()

	if errParam != "" {
		err := fmt.Errorf("%w: %s", ErrFlowCancelled, errParam)
		p.resolve("", err)
		f.logger.Warn("auth.flow.denied", "error", errParam)
		return err
	}

	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(p.verifier))
	if err != nil {
		err = common.NewAppError("AUTH_EXCHANGE", "token exchange failed", fmt.Errorf("%w: %v", common.ErrUnauthorized, err))
		p.resolve("", err)
		f.logger.Error("auth.flow.exchange_failed", "error", err)
		return err
	}

	f.tokens.Set(tok.AccessToken)
	p.resolve(tok.AccessToken, nil)
	f.logger.Info("auth.flow.complete")
	return nil
}

// Cancel abandons the pending authorization, if any.
func (f *Flow) Cancel() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending != nil {
		f.pending.resolve("", ErrFlowCancelled)
		f.pending = nil
	}
}

// Wait blocks until the authorization resolves or ctx ends.
func (p *Pending) Wait(ctx context.Context) (string, error) {
	select {
	case <-p.done:
		return p.token, p.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Done is closed once the authorization resolves.
func (p *Pending) Done() <-chan struct{} { return p.done }

func (p *Pending) resolve(token string, err error) {
	p.once.Do(func() {
		p.token, p.err = token, err
		close(p.done)
	})
}
