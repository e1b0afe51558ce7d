package platform

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// AuthCodeURL returns the consent page URL for connecting platform.
func (f *Factory) AuthCodeURL(platform, state string) (string, error) {
	provider, ok := f.cfg.provider(platform)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
	return oauthConfig(provider).AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Connect exchanges an authorization code for tokens and stores them as the
// credentials of scope on platform. The cached token source is dropped so
// the new grant is used right away.
func (f *Factory) Connect(ctx context.Context, platform, scope, accountID, code string) (*Credential, error) {
	provider, ok := f.cfg.provider(platform)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}

	exCtx := context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	tok, err := oauthConfig(provider).Exchange(exCtx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %w", ErrUnauthorized, err)
	}

	cred := (&Credential{Platform: platform, Scope: scope, AccountID: accountID}).withToken(tok)
	if err := f.store.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("store credentials: %w", err)
	}
	f.Invalidate(platform, scope)
	return cred, nil
}
