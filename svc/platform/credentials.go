package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Credential is the OAuth grant of one credential scope (usually a user) on
// one platform. AccountID is the platform-side account posts go to, such as
// a Facebook page id.
type Credential struct {
	Platform     string
	Scope        string
	AccountID    string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	UpdatedAt    time.Time
}

// Token returns the credential as an oauth2 token.
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    c.TokenType,
		Expiry:       c.Expiry,
	}
}

// withToken returns a copy of c carrying tok. A refresh response without a
// refresh token keeps the old one.
func (c *Credential) withToken(tok *oauth2.Token) *Credential {
	next := *c
	next.AccessToken = tok.AccessToken
	next.TokenType = tok.TokenType
	next.Expiry = tok.Expiry
	if tok.RefreshToken != "" {
		next.RefreshToken = tok.RefreshToken
	}
	return &next
}

// CredentialStore persists platform credentials.
type CredentialStore interface {
	// Get fails with ErrCredentialsNotFound when the scope never connected the platform.
	Get(ctx context.Context, platform, scope string) (*Credential, error)
	Save(ctx context.Context, cred *Credential) error
	Delete(ctx context.Context, platform, scope string) error
}

// MemoryCredentialStore keeps credentials in process memory.
type MemoryCredentialStore struct {
	mu    sync.RWMutex
	creds map[string]Credential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{creds: make(map[string]Credential)}
}

func (s *MemoryCredentialStore) Get(_ context.Context, platform, scope string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.creds[credentialID(platform, scope)]
	if !ok {
		return nil, fmt.Errorf("%w: %s for %q", ErrCredentialsNotFound, platform, scope)
	}
	return &c, nil
}

func (s *MemoryCredentialStore) Save(_ context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *cred
	c.UpdatedAt = time.Now()
	s.creds[credentialID(cred.Platform, cred.Scope)] = c
	return nil
}

func (s *MemoryCredentialStore) Delete(_ context.Context, platform, scope string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.creds, credentialID(platform, scope))
	return nil
}

func credentialID(platform, scope string) string {
	return platform + ":" + scope
}
