package platform

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/shopflow/pkg/cache"
	"github.com/dmitrymomot/shopflow/pkg/logger"
)

const defaultTokenCacheSize = 1024

type adapterConstructor func(client *http.Client, baseURL string, cred *Credential) Adapter

var constructors = map[string]adapterConstructor{
	Facebook: newFacebookAdapter,
	TikTok:   newTikTokAdapter,
	X:        newXAdapter,
}

type sourceKey struct {
	platform string
	scope    string
}

type cachedSource struct {
	ts   oauth2.TokenSource
	cred *Credential
}

// Factory builds adapters for a platform and credential scope. Token sources
// are resolved once per (platform, scope) and reused until evicted from a
// bounded LRU; adapters get an HTTP client bound to that source and keep no
// auth state of their own.
type Factory struct {
	cfg        Config
	store      CredentialStore
	httpClient *http.Client
	logger     *slog.Logger

	sources *cache.LRU[sourceKey, *cachedSource]
}

type FactoryOption func(*Factory)

// WithHTTPClient sets the client used for API calls and token refreshes.
func WithHTTPClient(c *http.Client) FactoryOption {
	return func(f *Factory) {
		if c != nil {
			f.httpClient = c
		}
	}
}

func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

func NewFactory(cfg Config, store CredentialStore, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:        cfg,
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		sources:    cache.NewLRU[sourceKey, *cachedSource](cmp.Or(cfg.TokenCacheSize, defaultTokenCacheSize)),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(logger.Component("platform.factory"))
	return f
}

// Create returns an adapter for platform acting for scope. It fails with
// ErrUnsupportedPlatform for unknown platforms and ErrCredentialsNotFound
// when scope never connected the platform.
func (f *Factory) Create(ctx context.Context, platform, scope string) (Adapter, error) {
	construct, ok := constructors[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedPlatform, platform)
	}
	provider, _ := f.cfg.provider(platform)

	src, err := f.source(ctx, platform, scope, provider)
	if err != nil {
		return nil, err
	}

	base := context.WithValue(context.Background(), oauth2.HTTPClient, f.httpClient)
	client := oauth2.NewClient(base, src.ts)
	client.Timeout = f.cfg.RequestTimeout
	if client.Timeout <= 0 {
		client.Timeout = 30 * time.Second
	}

	return construct(client, provider.APIBaseURL, src.cred), nil
}

// Invalidate drops the cached token source so the next Create reloads the
// credentials from the store.
func (f *Factory) Invalidate(platform, scope string) {
	f.sources.Remove(sourceKey{platform, scope})
}

func (f *Factory) source(ctx context.Context, platform, scope string, provider ProviderConfig) (*cachedSource, error) {
	key := sourceKey{platform, scope}

	if src, ok := f.sources.Get(key); ok {
		return src, nil
	}

	cred, err := f.store.Get(ctx, platform, scope)
	if err != nil {
		return nil, err
	}

	refreshCtx := context.WithValue(context.Background(), oauth2.HTTPClient, f.httpClient)
	tok := cred.Token()
	src := &cachedSource{
		cred: cred,
		ts: oauth2.ReuseTokenSource(tok, &storingTokenSource{
			base:   oauthConfig(provider).TokenSource(refreshCtx, tok),
			store:  f.store,
			logger: f.logger,
			cred:   cred,
		}),
	}

	// Another caller may have loaded the same scope meanwhile; keep the first.
	if cached := f.sources.PutIfAbsent(key, src); cached != src {
		return cached, nil
	}

	f.logger.DebugContext(ctx, "platform token source created",
		logger.Platform(platform),
		slog.String("scope", scope))
	return src, nil
}

func oauthConfig(p ProviderConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURL,
		Scopes:       p.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.AuthURL,
			TokenURL: p.TokenURL,
		},
	}
}
