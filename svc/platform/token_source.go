package platform

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/shopflow/pkg/logger"
)

// storingTokenSource writes refreshed tokens back to the credential store so
// other processes pick up the rotated refresh token.
type storingTokenSource struct {
	base   oauth2.TokenSource
	store  CredentialStore
	logger *slog.Logger

	mu   sync.Mutex
	cred *Credential
}

func (s *storingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tok.AccessToken == s.cred.AccessToken {
		return tok, nil
	}

	next := s.cred.withToken(tok)
	if err := s.store.Save(context.Background(), next); err != nil {
		s.logger.Warn("failed to store refreshed platform token",
			logger.Platform(next.Platform),
			slog.String("scope", next.Scope),
			logger.Error(err))
	}
	s.cred = next
	return tok, nil
}
