package workspace

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/docsheet/internal/auth"
	"github.com/joseph-ayodele/docsheet/internal/common"
)

// SheetConfig is the user-editable sync target and OAuth client.
type SheetConfig struct {
	SpreadsheetID string `json:"spreadsheet_id"`
	ClientID      string `json:"client_id"`
}

func (c SheetConfig) validate() error {
	return common.NewValidator().
		Field("spreadsheet_id", c.SpreadsheetID, common.MaxLength(200), common.NoControlChars).
		Field("client_id", c.ClientID, common.MaxLength(300), common.NoControlChars).
		Err()
}

func (s *Service) Settings() SheetConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// UpdateSettings replaces the configuration. A changed client id cancels any
// authorization in progress.
func (s *Service) UpdateSettings(cfg SheetConfig) (SheetConfig, error) {
	cfg.SpreadsheetID = strings.TrimSpace(cfg.SpreadsheetID)
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	if err := cfg.validate(); err != nil {
		return SheetConfig{}, err
	}

	s.mu.Lock()
	s.settings = cfg
	s.mu.Unlock()

	if s.flow != nil {
		s.flow.SetClientID(cfg.ClientID)
	}
	s.logger.Info("workspace.settings.updated",
		"spreadsheet_set", cfg.SpreadsheetID != "",
		"client_set", cfg.ClientID != "",
	)
	return cfg, nil
}

// BeginAuth starts the popup authorization.
func (s *Service) BeginAuth(ctx context.Context) (*auth.Pending, error) {
	if s.flow == nil {
		return nil, common.InvalidInputf("OAuth is not configured")
	}
	return s.flow.Begin(ctx)
}

// CompleteAuth handles the popup redirect.
func (s *Service) CompleteAuth(ctx context.Context, state, code, errParam string) error {
	if s.flow == nil {
		return common.InvalidInputf("OAuth is not configured")
	}
	return s.flow.Complete(ctx, state, code, errParam)
}

func (s *Service) Authenticated() bool {
	return s.tokens.Authenticated()
}

// SignOut drops the token and any authorization in progress.
func (s *Service) SignOut() {
	if s.flow != nil {
		s.flow.Cancel()
	}
	s.tokens.Invalidate()
}
