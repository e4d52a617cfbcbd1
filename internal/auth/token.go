// Package auth holds the spreadsheet API bearer token and the OAuth flow that
// obtains it. Tokens live in memory only and are never refreshed: expiry is
// discovered when an API call is rejected, at which point the token is dropped.
package auth

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrNoToken means the user has to authenticate before exporting.
	ErrNoToken = errors.New("re-authentication required: no spreadsheet access token")
	// ErrFlowCancelled means a pending authorization was superseded or abandoned.
	ErrFlowCancelled = errors.New("authorization cancelled")
)

// TokenManager owns the one bearer token of the running application.
type TokenManager struct {
	mu       sync.RWMutex
	token    string
	issuedAt time.Time
	logger   *slog.Logger
}

func NewTokenManager(logger *slog.Logger) *TokenManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenManager{logger: logger}
}

// Token returns the current token or ErrNoToken.
func (m *TokenManager) Token() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

// Set stores a freshly issued token.
func (m *TokenManager) Set(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.issuedAt = time.Now()
	m.logger.Info("auth.token.set")
}

// Invalidate discards the token after the API rejected it.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return
	}
	m.token = ""
	m.logger.Warn("auth.token.invalidated", "age", time.Since(m.issuedAt).Round(time.Second).String())
}

// Authenticated reports whether a token is held.
func (m *TokenManager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != ""
}
